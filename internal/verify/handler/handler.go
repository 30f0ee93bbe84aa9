package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"badgekeeper/internal/bake"
	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
	"badgekeeper/internal/verify"
	"badgekeeper/internal/verify/metrics"
	"badgekeeper/pkg/platform/httputil"
	"badgekeeper/pkg/requestcontext"
)

// Service defines the interface for credential verification.
type Service interface {
	Verify(ctx context.Context, env credential.Envelope, opts verify.Options) *verify.Result
}

// Extractor defines the interface for pulling credentials out of baked
// badge images.
type Extractor interface {
	Unbake(image []byte) (*bake.UnbakeResult, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service   Service
	extractor Extractor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New constructs a verification handler with its dependencies.
func New(service Service, extractor Extractor, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:   service,
		extractor: extractor,
		logger:    logger,
		metrics:   metrics,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials/verify", h.HandleVerify)
	r.Post("/credentials/verify/baked", h.HandleVerifyBaked)
}

// HandleVerify handles POST /credentials/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result := h.service.Verify(ctx, req.Envelope(), req.Options)

	h.logger.InfoContext(ctx, "credential verified",
		"request_id", requestID,
		"credential_id", result.CredentialID,
		"issuer", result.Issuer,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleVerifyBaked handles POST /credentials/verify/baked requests: extract
// the embedded credential, then run it through the regular pipeline. Any
// extraction failure surfaces as a not-valid result rather than an HTTP error.
func (h *Handler) HandleVerifyBaked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyBakedRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	extracted, err := h.extractor.Unbake(req.ImageData())
	if err != nil {
		h.logger.WarnContext(ctx, "baked image rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !extracted.Found {
		detail := extracted.Detail
		if detail == "" {
			detail = "image carries no embedded credential"
		}
		h.logger.InfoContext(ctx, "baked credential extraction failed",
			"request_id", requestID,
			"format", extracted.SourceFormat,
			"detail", detail,
		)
		httputil.WriteJSON(w, http.StatusOK, extractionFailureResult(detail))
		return
	}

	result := h.service.Verify(ctx, envelopeFor(extracted.RawData), req.Options)

	h.logger.InfoContext(ctx, "baked credential verified",
		"request_id", requestID,
		"credential_id", result.CredentialID,
		"format", extracted.SourceFormat,
		"spec_version", extracted.Version,
		"status", result.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, result)
}

// envelopeFor classifies the extracted payload: JSON documents become
// document envelopes, anything else is treated as a compact token.
func envelopeFor(raw []byte) credential.Envelope {
	if json.Valid(raw) {
		if env, err := credential.ParseEnvelope(raw); err == nil {
			return env
		}
	}
	return credential.TokenEnvelope{Token: string(raw)}
}

func extractionFailureResult(detail string) *verify.Result {
	return &verify.Result{
		Status:  verify.StatusError,
		IsValid: false,
		Error:   detail,
		Checks: verify.Checks{
			General: []domain.Check{
				domain.Fail("bake.extraction", "baked image yields an embedded credential", detail),
			},
		},
		VerifiedAt: time.Now(),
	}
}
