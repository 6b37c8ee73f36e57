package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"Linkgrab/internal/api/handlers"
	"Linkgrab/internal/core/resolver"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RegisterSystemRoutes registers /health and /metrics. db may be nil when running without Postgres.
func RegisterSystemRoutes(r chi.Router, dispatcher *resolver.Dispatcher, db Pinger, metricsHandler http.Handler) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{
			"status":   "ok",
			"services": dispatcher.Services(),
			"circuits": dispatcher.CircuitStates(),
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["database"] = "unreachable"
			}
		}
		handlers.WriteJSON(w, status, body)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
}
