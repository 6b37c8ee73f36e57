package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopeeSharePage = `<!DOCTYPE html><html><head><title>Shopee Video</title></head><body>
<div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"mediaInfo":{"id":42,"title":"Cute cat","caption":"Cat caption #cat","video":{"watermarkVideoUrl":"https://cdn.example/video.123.456.mp4","cover":"https://cdn.example/cover.jpg","duration":15000}}}}}
</script></body></html>`

func TestStripWatermarkSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cdn.example/video.123.456.mp4", "https://cdn.example/video.mp4"},
		{"https://cdn.example/video.mp4", "https://cdn.example/video.mp4"},
		{"https://cdn.example/video.123.mp4", "https://cdn.example/video.123.mp4"},
		{"https://cdn.example/a.1.2.mp4?token=x", "https://cdn.example/a.mp4?token=x"},
		{"https://cdn.example/video.123.456.webm", "https://cdn.example/video.123.456.webm"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripWatermarkSuffix(tt.in))
		})
	}
}

func newShopeeServer(t *testing.T, page string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/share/video/42" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func universalLinkFor(srv *httptest.Server) string {
	return srv.URL + "/universal-link/now-share?redir=" + url.QueryEscape(srv.URL+"/share/video/42")
}

func TestShopeeResolve_UniversalLink(t *testing.T) {
	srv := newShopeeServer(t, shopeeSharePage)
	s := NewShopeeStrategy(testConfig(), NewHTTPClient(5*time.Second))

	result, err := s.Resolve(context.Background(), universalLinkFor(srv))
	require.NoError(t, err)

	assert.Equal(t, ServiceShopee, result.Service)
	assert.Equal(t, "Cute cat", result.Title)
	assert.Empty(t, result.Description)
	assert.Equal(t, "https://cdn.example/cover.jpg", result.Thumbnail)
	assert.Equal(t, srv.URL+"/share/video/42", result.ShareURL)

	require.NotNil(t, result.Video)
	assert.Equal(t, "https://cdn.example/video.mp4", result.Video.URL)
	assert.Equal(t, []string{"https://cdn.example/video.123.456.mp4"}, result.Video.FallbackURLs)
	assert.Equal(t, "Cute-cat.mp4", result.Video.FileName)
	assert.Equal(t, "video/mp4", result.Video.ContentType)

	require.NotNil(t, result.PageProps)
	assert.Equal(t, "Cat caption #cat", captionFor(result))
	assert.Equal(t, "42", result.Extras["videoId"])
	assert.InDelta(t, 15.0, result.Extras["duration"], 0.001)
}

func TestShopeeResolve_ShortLinkRedirect(t *testing.T) {
	srv := newShopeeServer(t, shopeeSharePage)
	universal := universalLinkFor(srv)

	client := NewHTTPClient(5 * time.Second)
	client.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Host == "shp.ee" {
			return stubResponse(r, http.StatusFound, "", http.Header{"Location": {universal}}), nil
		}
		return http.DefaultTransport.RoundTrip(r)
	})
	s := NewShopeeStrategy(testConfig(), client)

	result, err := s.Resolve(context.Background(), "https://shp.ee/abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/video.mp4", result.Video.URL)
}

func TestShopeeResolve_Failures(t *testing.T) {
	tests := []struct {
		name       string
		transport  roundTripFunc
		link       string
		wantStatus int
	}{
		{
			name: "short link serves content instead of redirecting",
			transport: func(r *http.Request) (*http.Response, error) {
				return stubResponse(r, http.StatusOK, "<html></html>", nil), nil
			},
			link:       "https://shp.ee/abc",
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "redirect without location",
			transport: func(r *http.Request) (*http.Response, error) {
				return stubResponse(r, http.StatusFound, "", nil), nil
			},
			link:       "https://shp.ee/abc",
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "universal link without redir",
			transport: func(r *http.Request) (*http.Response, error) {
				return stubResponse(r, http.StatusOK, "", nil), nil
			},
			link:       "https://shopee.co.id/universal-link/x?foo=bar",
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "share page without next data",
			transport: func(r *http.Request) (*http.Response, error) {
				return stubResponse(r, http.StatusOK, "<html><script>var x = 1</script></html>", nil), nil
			},
			link:       "https://shopee.co.id/universal-link/x?redir=" + url.QueryEscape("https://sv.shopee.co.id/share/1"),
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "share page rate limited",
			transport: func(r *http.Request) (*http.Response, error) {
				return stubResponse(r, http.StatusTooManyRequests, "", nil), nil
			},
			link:       "https://shopee.co.id/universal-link/x?redir=" + url.QueryEscape("https://sv.shopee.co.id/share/1"),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShopeeStrategy(testConfig(), stubClient(tt.transport))
			result, err := s.Resolve(context.Background(), tt.link)
			require.Error(t, err)
			assert.Nil(t, result)

			var unavailable *ServiceAvailabilityError
			require.True(t, errors.As(err, &unavailable), "got %T: %v", err, err)
			assert.Equal(t, ServiceShopee, unavailable.Service)
			assert.Equal(t, tt.wantStatus, unavailable.HTTPStatus())
			assert.NotEmpty(t, unavailable.Detail)
		})
	}
}

func TestShopeeResolve_NotAUniversalLink(t *testing.T) {
	s := NewShopeeStrategy(testConfig(), stubClient(func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", r.URL)
		return nil, nil
	}))

	_, err := s.Resolve(context.Background(), "https://shopee.co.id/product/1/2")
	var unsupported *UnsupportedLinkError
	assert.True(t, errors.As(err, &unsupported))
}

func TestShopeeResolve_NoVideo(t *testing.T) {
	page := `<script id="__NEXT_DATA__">{"props":{"pageProps":{"mediaInfo":{"title":"x"}}}}</script>`
	srv := newShopeeServer(t, page)
	s := NewShopeeStrategy(testConfig(), NewHTTPClient(5*time.Second))

	_, err := s.Resolve(context.Background(), universalLinkFor(srv))
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestExtractScriptByID(t *testing.T) {
	page := []byte(`<html><script id="other">nope</script><script type="application/json" id="__NEXT_DATA__"> {"a":1} </script></html>`)
	raw, ok := extractScriptByID(page, nextDataScriptID)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(raw))

	_, ok = extractScriptByID([]byte(`<script id="__NEXT_DATA__"></script>`), nextDataScriptID)
	assert.False(t, ok)
}
