package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"Linkgrab/internal/api/handlers"
)

// maxTrackedClients bounds the number of per-client limiters held in memory.
// The least recently seen client is evicted first and starts over with a full bucket.
const maxTrackedClients = 10000

// RateLimiter is a per-client token bucket limiter.
type RateLimiter struct {
	clients *lru.Cache[string, *rate.Limiter]
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
}

// NewRateLimiter allows each client `requests` requests per window, with bursts of the same size.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	clients, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	return &RateLimiter{
		clients: clients,
		limit:   rate.Every(window / time.Duration(requests)),
		burst:   requests,
	}
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			handlers.WriteError(w, http.StatusTooManyRequests, "RateLimitExceeded",
				"Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	limiter, ok := rl.clients.Get(clientID)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.clients.Add(clientID, limiter)
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// getClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
