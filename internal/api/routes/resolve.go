package routes

import (
	"github.com/go-chi/chi/v5"

	"Linkgrab/internal/api/handlers/resolve"
	"Linkgrab/internal/core/resolver"
	"Linkgrab/internal/core/usage"
)

// RegisterResolveRoutes registers the resolve and link lookup endpoints
func RegisterResolveRoutes(r chi.Router, service resolver.Service, usageService usage.Service) {
	h := resolve.NewHandler(service, usageService)

	// POST /api/resolve - resolve a pasted link into downloadable media
	r.Post("/api/resolve", h.HandleResolve)

	// GET /api/links/{hash} - caption and keywords of a recently resolved link
	r.Get("/api/links/{hash}", h.HandleGetLink)
}
