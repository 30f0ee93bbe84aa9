package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"badgekeeper/internal/keys"
	"badgekeeper/pkg/platform/httputil"
)

// Handler serves the well-known key projections.
type Handler struct {
	store  *keys.Store
	logger *slog.Logger
}

// New constructs a well-known handler over the key store.
func New(store *keys.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the well-known endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/.well-known/jwks.json", h.HandleJWKS)
	r.Get("/.well-known/did.json", h.HandleDIDDocument)
}

// HandleJWKS handles GET /.well-known/jwks.json requests.
func (h *Handler) HandleJWKS(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.JWKS())
}

// HandleDIDDocument handles GET /.well-known/did.json requests.
func (h *Handler) HandleDIDDocument(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.DIDDocument())
}
