package resolve

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"Linkgrab/internal/api/handlers"
	"Linkgrab/internal/api/middleware"
	"Linkgrab/internal/core/keywords"
	"Linkgrab/internal/core/linkcache"
	"Linkgrab/internal/core/resolver"
	"Linkgrab/internal/core/usage"
)

// maxBodyBytes caps the resolve request body.
const maxBodyBytes = 16 << 10

// ResolveInput is the resolve request body. Link may be a bare URL or free text containing one.
type ResolveInput struct {
	Link string `json:"link" validate:"required,max=4096"`
}

// LinkOutput is a remembered link plus the keywords extracted from its caption.
type LinkOutput struct {
	linkcache.Entry
	Keywords []string `json:"keywords"`
	Query    string   `json:"query,omitempty"`
}

// Handler serves the resolve and link lookup endpoints.
type Handler struct {
	service resolver.Service
	usage   usage.Service
}

// NewHandler creates a resolve handler. usageService may be nil.
func NewHandler(service resolver.Service, usageService usage.Service) *Handler {
	return &Handler{
		service: service,
		usage:   usageService,
	}
}

// HandleResolve resolves a link into downloadable media
// POST /api/resolve
//
// Request body: { "link": "https://..." }
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var input ResolveInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	if err := handlers.Validate(input); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", handlers.ValidationMessage(err))
		return
	}

	resolved, err := h.service.Resolve(r.Context(), input.Link)
	if err != nil {
		// Details were logged by the dispatcher; only the public message leaves the server.
		handlers.WriteError(w, resolver.StatusCode(err), resolver.ErrorType(err), resolver.PublicMessage(err))
		return
	}

	h.record(r, usage.ActionResolve, string(resolved.Service))
	handlers.WriteJSON(w, http.StatusOK, resolved)
}

// HandleGetLink returns a remembered link by the hash handed out with a resolve
// GET /api/links/{hash}
func (h *Handler) HandleGetLink(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if err := handlers.ValidateVar(hash, "required,len=64,hexadecimal"); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "hash must be a 64-character hex string")
		return
	}

	entry, err := h.service.Lookup(r.Context(), hash)
	if err != nil {
		if errors.Is(err, linkcache.ErrNotFound) {
			handlers.WriteError(w, http.StatusNotFound, "LinkNotFound", "Link not found or expired")
			return
		}
		slog.Error("[API] link lookup failed", "hash", hash, "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
		return
	}

	kw := keywords.Extract(entry.Caption, keywords.DefaultMax)
	if kw == nil {
		kw = []string{}
	}
	handlers.WriteJSON(w, http.StatusOK, LinkOutput{
		Entry:    *entry,
		Keywords: kw,
		Query:    strings.Join(kw, " "),
	})
}

func (h *Handler) record(r *http.Request, action usage.Action, service string) {
	if h.usage == nil {
		return
	}
	sessionID := middleware.GetSessionID(r)
	if sessionID == "" {
		return
	}
	if err := h.usage.Record(r.Context(), sessionID, action, service); err != nil {
		slog.Warn("[USAGE] failed to record usage",
			"action", action,
			"service", service,
			"error", err,
		)
	}
}
