package resolver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"Linkgrab/internal/core/ytdlp"
)

// roundTripFunc lets tests answer requests for real platform hosts without a network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubResponse(r *http.Request, status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func stubClient(fn roundTripFunc) *http.Client {
	c := NewHTTPClient(5 * time.Second)
	c.Transport = fn
	return c
}

type fakeExtractor struct {
	info *ytdlp.Info
	err  error

	mu    sync.Mutex
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (*ytdlp.Info, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTPTimeout = 5 * time.Second
	cfg.ShortLinkTimeout = 5 * time.Second
	return cfg
}
