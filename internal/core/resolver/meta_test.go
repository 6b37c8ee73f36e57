package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Linkgrab/internal/core/ytdlp"
)

const instagramPage = `<html><head>
<meta property="og:title" content="Reel by someone">
<meta property="og:description" content="Morning run #running">
<meta property="og:image" content="https://scontent.example/thumb.jpg">
<meta property="og:video" content="https://scontent.example/reel.mp4">
<meta property="og:video:secure_url" content="https://scontent.example/reel-secure.mp4">
</head><body></body></html>`

const facebookPage = `<html><head><meta property="og:title" content="Watch party"></head><body>
<script>{"video":{"browser_native_sd_url":"https:\/\/video.fbcdn.example\/v\/sd.mp4?a=1&b=2","browser_native_hd_url":"https:\/\/video.fbcdn.example\/v\/hd.mp4?a=1&b=2"}}</script>
</body></html>`

func TestMetaResolve_OpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(instagramPage))
	}))
	defer srv.Close()

	extractor := &fakeExtractor{err: errors.New("must not be called")}
	s := NewMetaStrategy(testConfig(), NewHTTPClient(testConfig().HTTPTimeout), extractor)

	result, err := s.Resolve(context.Background(), srv.URL+"/reel/abc/")
	require.NoError(t, err)

	assert.Equal(t, ServiceMeta, result.Service)
	assert.Equal(t, "Reel by someone", result.Title)
	assert.Equal(t, "Morning run #running", result.Description)
	assert.Equal(t, "https://scontent.example/thumb.jpg", result.Thumbnail)
	assert.Equal(t, "https://scontent.example/reel-secure.mp4", result.Video.URL)
	assert.Equal(t, []string{"https://scontent.example/reel.mp4"}, result.Video.FallbackURLs)
	assert.Equal(t, "page", result.Extras["source"])
	assert.Zero(t, extractor.callCount())
}

func TestMetaResolve_FacebookSources(t *testing.T) {
	client := stubClient(func(r *http.Request) (*http.Response, error) {
		return stubResponse(r, http.StatusOK, facebookPage, nil), nil
	})
	s := NewMetaStrategy(testConfig(), client, nil)

	result, err := s.Resolve(context.Background(), "https://www.facebook.com/watch/?v=123")
	require.NoError(t, err)

	assert.Equal(t, "https://video.fbcdn.example/v/hd.mp4?a=1&b=2", result.Video.URL)
	assert.Equal(t, []string{"https://video.fbcdn.example/v/sd.mp4?a=1&b=2"}, result.Video.FallbackURLs)
	assert.Equal(t, "HD", result.Video.QualityLabel)
	assert.Equal(t, "Watch party", result.Title)
}

func TestMetaResolve_FallsBackToExtractor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Login • Instagram</title></head></html>`))
	}))
	defer srv.Close()

	extractor := &fakeExtractor{info: &ytdlp.Info{
		ID:         "Cxyz",
		Title:      "Reel",
		URL:        "https://scontent.example/from-tool.mp4",
		Ext:        "mp4",
		FormatNote: "720p",
		Thumbnail:  "https://scontent.example/tool-thumb.jpg",
		Formats: []ytdlp.Format{
			{Ext: "mp4", URL: "https://scontent.example/low.mp4", VCodec: "avc1", ACodec: "mp4a", Height: 360},
		},
	}}
	s := NewMetaStrategy(testConfig(), NewHTTPClient(testConfig().HTTPTimeout), extractor)

	link := srv.URL + "/reel/Cxyz/"
	result, err := s.Resolve(context.Background(), link)
	require.NoError(t, err)

	assert.Equal(t, 1, extractor.callCount())
	assert.Equal(t, "https://scontent.example/from-tool.mp4", result.Video.URL)
	assert.Equal(t, []string{"https://scontent.example/low.mp4"}, result.Video.FallbackURLs)
	assert.Equal(t, "720p", result.Video.QualityLabel)
	assert.Equal(t, "https://scontent.example/tool-thumb.jpg", result.Thumbnail)
	assert.Equal(t, "ytdlp", result.Extras["source"])
}

func TestMetaResolve_BothPathsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	extractor := &fakeExtractor{err: ytdlp.ErrLoginRequired}
	s := NewMetaStrategy(testConfig(), NewHTTPClient(testConfig().HTTPTimeout), extractor)

	_, err := s.Resolve(context.Background(), srv.URL+"/reel/abc/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ytdlp.ErrLoginRequired)

	var unavailable *ServiceAvailabilityError
	assert.True(t, errors.As(err, &unavailable), "page failure stays visible in the joined error")
}

func TestMetaResolve_NoExtractorReturnsPageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	s := NewMetaStrategy(testConfig(), NewHTTPClient(testConfig().HTTPTimeout), nil)
	_, err := s.Resolve(context.Background(), srv.URL+"/p/abc/")
	assert.ErrorIs(t, err, ErrNoMedia)
}
