package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// MinSessionSecretLength is the minimum SESSION_SECRET length accepted.
const MinSessionSecretLength = 32

const (
	sessionName     = "linkgrab_session"
	sessionIDField  = "sid"
	sessionMaxAge   = 365 * 24 * 60 * 60
	sessionIDCtxKey = contextKey("session_id")
)

// ErrSessionSecretTooShort is returned when the cookie secret is shorter than MinSessionSecretLength.
var ErrSessionSecretTooShort = errors.New("session secret too short")

type contextKey string

// Sessions assigns every visitor an anonymous session ID kept in a signed cookie.
// Usage counters are keyed by this ID.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates the session middleware. secure sets the cookie Secure flag.
func NewSessions(secret string, secure bool) (*Sessions, error) {
	if len(secret) < MinSessionSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSessionSecretTooShort, MinSessionSecretLength)
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}, nil
}

// Middleware loads or creates the session and injects its ID into the request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A tampered or stale cookie yields a fresh session rather than an error.
		session, err := s.store.Get(r, sessionName)
		if err != nil {
			slog.Debug("[SESSION] discarding unreadable session cookie", "error", err)
		}

		id, _ := session.Values[sessionIDField].(string)
		if _, parseErr := uuid.Parse(id); parseErr != nil {
			id = uuid.NewString()
			session.Values[sessionIDField] = id
			if err := session.Save(r, w); err != nil {
				slog.Warn("[SESSION] failed to save session cookie", "error", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
	})
}

// WithSessionID returns ctx carrying the session ID. Used by tests and the middleware.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDCtxKey, id)
}

// GetSessionID returns the session ID injected by Sessions.Middleware, or "".
func GetSessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDCtxKey).(string)
	return id
}
