package issuer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"badgekeeper/internal/issuer/metrics"
	"badgekeeper/internal/platform/config"
	"badgekeeper/pkg/platform/circuit"
	"badgekeeper/pkg/platform/sentinel"
)

const maxResponseBytes = 1 << 20 // resolved documents and key sets are small

// Client is the hardened HTTP client for DID document, JWKS, and status list
// fetches: per-request timeout, bounded exponential retry, and a circuit
// breaker so a dead issuer endpoint cannot stall every verification.
type Client struct {
	http       *http.Client
	maxRetries uint64
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient builds a Client from resolver configuration.
func NewClient(cfg config.Resolver, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: uint64(max(cfg.MaxRetries, 0)),
		breaker:    circuit.New("issuer-endpoints"),
		logger:     logger,
		metrics:    m,
	}
}

// GetJSON fetches url and decodes the response body into out.
//
// Error classification matters to callers: transport failures and 5xx map to
// sentinel.ErrUnavailable (the orchestrator reports those as indeterminate),
// 404 maps to sentinel.ErrNotFound, and other statuses are permanent failures.
func (c *Client) GetJSON(ctx context.Context, url string, kind string, out any) error {
	if c.breaker.IsOpen() {
		return fmt.Errorf("%s endpoint circuit open: %w", kind, sentinel.ErrUnavailable)
	}

	start := time.Now()
	err := c.getWithRetry(ctx, url, out)
	c.metrics.ObserveFetch(kind, time.Since(start))

	if errors.Is(err, sentinel.ErrUnavailable) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.metrics.IncrementBreaker("opened")
			c.logger.WarnContext(ctx, "issuer endpoint circuit opened",
				"kind", kind,
				"url", url,
			)
		}
		return err
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.IncrementBreaker("closed")
	}
	return err
}

func (c *Client) getWithRetry(ctx context.Context, url string, out any) error {
	op := func() error {
		return c.getOnce(ctx, url, out)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(100*time.Millisecond),
			backoff.WithMaxInterval(2*time.Second),
		), c.maxRetries),
		ctx,
	)

	return backoff.Retry(op, policy)
}

func (c *Client) getOnce(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors are retryable and count as unavailable.
		return fmt.Errorf("fetch %s: %v: %w", url, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(fmt.Errorf("fetch %s: %w", url, sentinel.ErrNotFound))
	case resp.StatusCode >= 500:
		return fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s: %v: %w", url, err, sentinel.ErrUnavailable)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s: %w", url, err))
	}
	return nil
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *circuit.Breaker { return c.breaker }
