package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"badgekeeper/internal/bake"
	"badgekeeper/pkg/platform/httputil"
	"badgekeeper/pkg/requestcontext"
)

// Service defines the interface for badge baking operations.
type Service interface {
	Bake(image, credentialJSON []byte, opts bake.Options) (*bake.BakedImage, error)
}

// Handler wires baking endpoints to the baking service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a baking handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts baking endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials/bake", h.HandleBake)
}

// HandleBake handles POST /credentials/bake requests.
func (h *Handler) HandleBake(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BakeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	baked, err := h.service.Bake(req.ImageData(), req.Credential, bake.Options{
		Format:             req.Format(),
		Compress:           req.Compress,
		ValidateCredential: req.ValidateCredential,
		PreserveExisting:   req.PreserveExisting,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "badge baking failed",
			"request_id", requestID,
			"format", req.Format(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "badge baked",
		"request_id", requestID,
		"format", baked.Format,
		"size", len(baked.Data),
		"compressed", baked.Compressed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromBaked(baked))
}
