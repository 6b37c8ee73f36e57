package download

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"Linkgrab/internal/api/handlers"
	"Linkgrab/internal/api/middleware"
	"Linkgrab/internal/core/download"
	"Linkgrab/internal/core/resolver"
	"Linkgrab/internal/core/usage"
)

// Opener opens an upstream media stream. *download.Proxy implements it.
type Opener interface {
	Open(ctx context.Context, req download.Request) (*download.Stream, error)
}

// Handler relays resolved media to the client as an attachment.
type Handler struct {
	proxy Opener
	usage usage.Service
}

// NewHandler creates a download handler. usageService may be nil.
func NewHandler(proxy Opener, usageService usage.Service) *Handler {
	return &Handler{
		proxy: proxy,
		usage: usageService,
	}
}

// HandleDownload streams a media URL, walking the fallbacks when the primary fails
// GET /api/download?url=...&fallback=...&fallback=...&filename=...&service=...
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	primary := q.Get("url")
	if err := handlers.ValidateVar(primary, "required,max=4096"); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "url is required")
		return
	}

	stream, err := h.proxy.Open(r.Context(), download.Request{
		URL:       primary,
		Fallbacks: q["fallback"],
		FileName:  q.Get("filename"),
	})
	if err != nil {
		switch {
		case errors.Is(err, download.ErrInvalidURL), errors.Is(err, download.ErrBlockedHost):
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "url must be a public http(s) URL")
		default:
			slog.Warn("[DOWNLOAD] all upstream candidates failed",
				"fallbacks", len(q["fallback"]),
				"error", err,
			)
			handlers.WriteError(w, http.StatusBadGateway, "UpstreamFailed", "The media could not be fetched. Resolve the link again and retry.")
		}
		return
	}
	defer stream.Body.Close()

	service := resolver.ServiceName(strings.ToLower(q.Get("service")))
	h.record(r, lo.Ternary(service.Known(), string(service), "unknown"))

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": stream.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	if stream.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)

	if n, err := io.Copy(w, stream.Body); err != nil {
		// Usually the client went away mid-transfer.
		slog.Debug("[DOWNLOAD] stream interrupted", "bytes", n, "error", err)
	}
}

func (h *Handler) record(r *http.Request, service string) {
	if h.usage == nil {
		return
	}
	sessionID := middleware.GetSessionID(r)
	if sessionID == "" {
		return
	}
	if err := h.usage.Record(r.Context(), sessionID, usage.ActionDownload, service); err != nil {
		slog.Warn("[USAGE] failed to record download", "service", service, "error", err)
	}
}
