package routes

import (
	"github.com/go-chi/chi/v5"

	"Linkgrab/internal/api/handlers/download"
	"Linkgrab/internal/core/usage"
)

// RegisterDownloadRoutes registers the media download proxy endpoint
func RegisterDownloadRoutes(r chi.Router, proxy download.Opener, usageService usage.Service) {
	h := download.NewHandler(proxy, usageService)
	r.Get("/api/download", h.HandleDownload)
}
