// Package httpapi assembles the service router from the module handlers.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bakehandler "badgekeeper/internal/bake/handler"
	keyshandler "badgekeeper/internal/keys/handler"
	"badgekeeper/internal/platform/middleware"
	verifyhandler "badgekeeper/internal/verify/handler"
	"badgekeeper/pkg/platform/httputil"
	"badgekeeper/pkg/platform/middleware/requesttime"
)

// HealthChecker probes a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handlers groups the module handlers the router mounts.
type Handlers struct {
	Verify *verifyhandler.Handler
	Bake   *bakehandler.Handler
	Keys   *keyshandler.Handler

	// Probes maps dependency names to health checks. A failing probe
	// turns /healthz into a 503 with per-dependency detail.
	Probes map[string]HealthChecker
}

// NewRouter wires all public endpoints behind the shared middleware stack.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth(h.Probes))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h.Verify.Register(r)
	h.Bake.Register(r)
	h.Keys.Register(r)

	return r
}

func handleHealth(probes map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		deps := make(map[string]string, len(probes))
		for name, probe := range probes {
			if err := probe.Health(r.Context()); err != nil {
				deps[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
			} else {
				deps[name] = "ok"
			}
		}

		body := map[string]any{"status": status}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		httputil.WriteJSON(w, code, body)
	}
}
