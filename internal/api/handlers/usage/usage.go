package usage

import (
	"log/slog"
	"net/http"

	"Linkgrab/internal/api/handlers"
	"Linkgrab/internal/api/middleware"
	"Linkgrab/internal/core/usage"
)

// Handler serves the session usage counters
type Handler struct {
	service usage.Service
}

// NewHandler creates a usage handler
func NewHandler(service usage.Service) *Handler {
	return &Handler{service: service}
}

// HandleGetUsage returns the counters of the caller's session
// GET /api/usage
func (h *Handler) HandleGetUsage(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r)
	if sessionID == "" {
		handlers.WriteError(w, http.StatusBadRequest, "SessionRequired", "No session cookie")
		return
	}

	stats, err := h.service.Stats(r.Context(), sessionID)
	if err != nil {
		slog.Error("[USAGE] failed to load stats", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
		return
	}

	handlers.WriteJSON(w, http.StatusOK, stats)
}
