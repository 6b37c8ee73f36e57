package routes

import (
	"github.com/go-chi/chi/v5"

	usagehandler "Linkgrab/internal/api/handlers/usage"
	"Linkgrab/internal/core/usage"
)

// RegisterUsageRoutes registers the session usage endpoint
func RegisterUsageRoutes(r chi.Router, service usage.Service) {
	h := usagehandler.NewHandler(service)
	r.Get("/api/usage", h.HandleGetUsage)
}
