package issuer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"badgekeeper/internal/did"
	"badgekeeper/internal/issuer/metrics"
	"badgekeeper/pkg/platform/sentinel"
)

const (
	wellKnownPath = "/.well-known/did.json"
	documentPath  = "/did.json"
)

// Resolver resolves issuer DIDs to documents describing their verification keys.
type Resolver struct {
	client    *Client
	cache     DocumentCache
	allowHTTP bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache sets the DID document cache.
func WithCache(cache DocumentCache) Option {
	return func(r *Resolver) { r.cache = cache }
}

// WithAllowHTTP permits plain-HTTP did:web resolution (local development only).
func WithAllowHTTP(allow bool) Option {
	return func(r *Resolver) { r.allowHTTP = allow }
}

// NewResolver constructs a Resolver.
func NewResolver(client *Client, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Resolver {
	r := &Resolver{
		client:  client,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve dispatches on the DID method. Unsupported methods resolve to
// sentinel.ErrUnsupported so the caller can report a graceful not-found.
func (r *Resolver) Resolve(ctx context.Context, id string) (*did.Document, error) {
	parsed, err := did.Parse(id)
	if err != nil {
		r.metrics.IncrementResolution("invalid", "error")
		return nil, err
	}

	if r.cache != nil {
		if doc, err := r.cache.Get(ctx, id); err == nil {
			r.metrics.IncrementCache("hit")
			return doc, nil
		}
		r.metrics.IncrementCache("miss")
	}

	var doc *did.Document
	switch parsed.Method {
	case "web":
		doc, err = r.resolveWeb(ctx, parsed)
	case "key":
		doc, err = resolveKey(parsed)
	default:
		err = fmt.Errorf("DID method %q: %w", parsed.Method, sentinel.ErrUnsupported)
	}

	if err != nil {
		r.metrics.IncrementResolution(parsed.Method, "error")
		return nil, err
	}
	r.metrics.IncrementResolution(parsed.Method, "ok")

	if r.cache != nil {
		if cerr := r.cache.Put(ctx, id, doc); cerr != nil {
			r.logger.WarnContext(ctx, "DID cache write failed",
				"did", id,
				"error", cerr,
			)
		}
	}
	return doc, nil
}

// resolveWeb maps the identifier's domain and optional path segments to an
// HTTPS URL: no segments use /.well-known/did.json, path segments use
// /<path>/did.json. The returned document's id must equal the requested DID.
func (r *Resolver) resolveWeb(ctx context.Context, parsed did.DID) (*did.Document, error) {
	docURL, err := didWebURL(parsed.MethodSpecificID, r.allowHTTP)
	if err != nil {
		return nil, err
	}

	var doc did.Document
	if err := r.client.GetJSON(ctx, docURL, "did_web", &doc); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", parsed.Raw, err)
	}

	if doc.ID != parsed.Raw {
		return nil, fmt.Errorf("resolve %s: document id %q does not match requested DID", parsed.Raw, doc.ID)
	}
	return &doc, nil
}

func didWebURL(methodSpecificID string, allowHTTP bool) (string, error) {
	segments := strings.Split(methodSpecificID, ":")

	host, err := url.QueryUnescape(segments[0])
	if err != nil || host == "" {
		return "", fmt.Errorf("invalid did:web domain %q", segments[0])
	}

	scheme := "https://"
	if allowHTTP {
		scheme = "http://"
	}

	if len(segments) == 1 {
		return scheme + host + wellKnownPath, nil
	}

	for i, seg := range segments {
		unescaped, err := url.QueryUnescape(seg)
		if err != nil {
			return "", fmt.Errorf("invalid did:web path segment %q", seg)
		}
		segments[i] = unescaped
	}
	return scheme + strings.Join(segments, "/") + documentPath, nil
}
