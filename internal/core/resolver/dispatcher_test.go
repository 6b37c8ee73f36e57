package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Linkgrab/internal/core/linkcache"
	"Linkgrab/internal/core/ytdlp"
)

// stubStrategy matches by host suffix and returns canned results.
type stubStrategy struct {
	name   ServiceName
	host   string
	result *Result
	err    error

	mu    sync.Mutex
	links []string
}

func (s *stubStrategy) Name() ServiceName { return s.name }

func (s *stubStrategy) IsApplicable(link string) bool {
	return hostMatches(safeHostname(link), s.host)
}

func (s *stubStrategy) Resolve(_ context.Context, link string) (*Result, error) {
	s.mu.Lock()
	s.links = append(s.links, link)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	return &r, nil
}

func (s *stubStrategy) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

type recordedOutcome struct {
	service string
	outcome string
}

type fakeRecorder struct {
	mu          sync.Mutex
	outcomes    []recordedOutcome
	cacheErrors int
}

func (f *fakeRecorder) ObserveCacheWriteError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheErrors++
}

func (f *fakeRecorder) ObserveResolve(service, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, recordedOutcome{service, outcome})
}

type failingCache struct{}

func (failingCache) Remember(context.Context, string, string, linkcache.Payload) error {
	return errors.New("cache down")
}

func (failingCache) Get(context.Context, string) (*linkcache.Entry, error) {
	return nil, linkcache.ErrNotFound
}

func videoResult(url string) *Result {
	return &Result{
		Title: "Title",
		Video: &MediaSelection{URL: url, FileName: "x.mp4", ContentType: "video/mp4"},
	}
}

func newTestDispatcher(t *testing.T, strategies []Strategy, opts ...DispatcherOption) (*Dispatcher, *linkcache.Cache) {
	t.Helper()
	cache, err := linkcache.NewCache(linkcache.NewMemoryStore())
	require.NoError(t, err)
	d, err := NewDispatcher(cache, strategies, opts...)
	require.NoError(t, err)
	return d, cache
}

func TestDispatcher_ResolvesEmbeddedURL(t *testing.T) {
	tiktok := &stubStrategy{name: ServiceTikTok, host: "tiktok.com", result: videoResult("https://dl.example/v.mp4")}
	d, _ := newTestDispatcher(t, []Strategy{tiktok})

	resolved, err := d.Resolve(context.Background(), "check this out https://www.tiktok.com/@u/video/1 thanks")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://www.tiktok.com/@u/video/1"}, tiktok.links)
	assert.Equal(t, HashLink("https://www.tiktok.com/@u/video/1"), resolved.LinkHash)
	assert.Equal(t, ServiceTikTok, resolved.Service)
}

func TestDispatcher_FirstApplicableWins(t *testing.T) {
	first := &stubStrategy{name: ServiceShopee, host: "example.com", result: videoResult("https://a.example/1.mp4")}
	second := &stubStrategy{name: ServicePinterest, host: "example.com", result: videoResult("https://a.example/2.mp4")}
	d, _ := newTestDispatcher(t, []Strategy{first, second})

	resolved, err := d.Resolve(context.Background(), "https://www.example.com/x")
	require.NoError(t, err)
	assert.Equal(t, ServiceShopee, resolved.Service)
	assert.Equal(t, 0, second.calls())
	assert.Equal(t, []ServiceName{ServiceShopee, ServicePinterest}, d.Services())
}

func TestDispatcher_Unsupported(t *testing.T) {
	rec := &fakeRecorder{}
	d, _ := newTestDispatcher(t, []Strategy{
		&stubStrategy{name: ServiceTikTok, host: "tiktok.com", result: videoResult("https://a.example/1.mp4")},
	}, WithRecorder(rec))

	for _, in := range []string{"hello there", "https://vimeo.com/1", "://broken"} {
		_, err := d.Resolve(context.Background(), in)
		var unsupported *UnsupportedLinkError
		require.True(t, errors.As(err, &unsupported), "input %q", in)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
		assert.Equal(t, ErrorTypeUnsupportedLink, ErrorType(err))
	}
	assert.Equal(t, recordedOutcome{"", OutcomeUnsupported}, rec.outcomes[0])
}

func TestDispatcher_AvailabilityErrorDoesNotLeakDetail(t *testing.T) {
	const secret = "upstream returned HTML with token=abc123"
	shopee := &stubStrategy{
		name: ServiceShopee,
		host: "shp.ee",
		err:  NewAvailabilityError(ServiceShopee, http.StatusServiceUnavailable, "%s", secret),
	}
	rec := &fakeRecorder{}
	d, cache := newTestDispatcher(t, []Strategy{shopee}, WithRecorder(rec))

	resolved, err := d.Resolve(context.Background(), "https://shp.ee/abc")
	require.Error(t, err)
	assert.Nil(t, resolved)

	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, ErrorTypeServiceUnavailable, ErrorType(err))

	msg := PublicMessage(err)
	assert.Equal(t, "Shopee is temporarily unavailable. Please try again later.", msg)
	assert.NotContains(t, msg, secret)

	body, marshalErr := json.Marshal(map[string]string{"error": ErrorType(err), "message": msg})
	require.NoError(t, marshalErr)
	assert.NotContains(t, string(body), "token=abc123")

	_, getErr := cache.Get(context.Background(), HashLink("https://shp.ee/abc"))
	assert.ErrorIs(t, getErr, linkcache.ErrNotFound)
	assert.Equal(t, recordedOutcome{"shopee", OutcomeUnavailable}, rec.outcomes[0])
}

func TestDispatcher_AvailabilityStatusOverride(t *testing.T) {
	d, _ := newTestDispatcher(t, []Strategy{&stubStrategy{
		name: ServiceShopee,
		host: "shp.ee",
		err:  NewAvailabilityError(ServiceShopee, http.StatusBadGateway, "redirect missing"),
	}})

	_, err := d.Resolve(context.Background(), "https://shp.ee/abc")
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestDispatcher_GenericFailure(t *testing.T) {
	cause := errors.New("parse exploded at byte 1234")
	d, _ := newTestDispatcher(t, []Strategy{
		&stubStrategy{name: ServicePinterest, host: "pinterest.com", err: cause},
	})

	_, err := d.Resolve(context.Background(), "https://www.pinterest.com/pin/1/")
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ServicePinterest, resErr.Service)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, "Failed to resolve the link.", PublicMessage(err))
	assert.NotContains(t, PublicMessage(err), "1234")
}

func TestDispatcher_RejectsInvalidResult(t *testing.T) {
	d, _ := newTestDispatcher(t, []Strategy{
		&stubStrategy{name: ServiceTikTok, host: "tiktok.com", result: videoResult("not-a-url")},
	})

	_, err := d.Resolve(context.Background(), "https://www.tiktok.com/@u/video/1")
	assert.ErrorIs(t, err, ErrInvalidMediaURL)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestDispatcher_RemembersCaption(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   string
	}{
		{
			name: "description first",
			result: &Result{
				Title:       "title",
				Description: "description",
				PageProps:   map[string]any{"mediaInfo": map[string]any{"caption": "nested"}},
				Video:       &MediaSelection{URL: "https://a.example/v.mp4"},
			},
			want: "description",
		},
		{
			name: "nested page caption second",
			result: &Result{
				Title:     "title",
				PageProps: map[string]any{"videoInfo": map[string]any{"caption": "nested caption"}},
				Video:     &MediaSelection{URL: "https://a.example/v.mp4"},
			},
			want: "nested caption",
		},
		{
			name: "title last",
			result: &Result{
				Title: "title only",
				Video: &MediaSelection{URL: "https://a.example/v.mp4"},
			},
			want: "title only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t, []Strategy{
				&stubStrategy{name: ServiceShopee, host: "shp.ee", result: tt.result},
			})

			resolved, err := d.Resolve(context.Background(), "https://shp.ee/abc")
			require.NoError(t, err)

			entry, err := d.Lookup(context.Background(), resolved.LinkHash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, entry.Caption)
			assert.Equal(t, "https://shp.ee/abc", entry.Link)
			assert.Equal(t, "shopee", entry.Service)
		})
	}
}

func TestDispatcher_LongCaptionIsTruncated(t *testing.T) {
	result := videoResult("https://a.example/v.mp4")
	result.Description = strings.Repeat("x", 1000)
	d, _ := newTestDispatcher(t, []Strategy{&stubStrategy{name: ServiceTikTok, host: "tiktok.com", result: result}})

	resolved, err := d.Resolve(context.Background(), "https://www.tiktok.com/@u/video/1")
	require.NoError(t, err)
	assert.Len(t, resolved.Description, 1000, "the response itself is not truncated")

	entry, err := d.Lookup(context.Background(), resolved.LinkHash)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 600)+linkcache.Ellipsis, entry.Caption)
}

func TestDispatcher_CacheFailureDoesNotFailResolve(t *testing.T) {
	rec := &fakeRecorder{}
	d, err := NewDispatcher(failingCache{}, []Strategy{
		&stubStrategy{name: ServiceTikTok, host: "tiktok.com", result: videoResult("https://a.example/v.mp4")},
	}, WithRecorder(rec))
	require.NoError(t, err)

	resolved, err := d.Resolve(context.Background(), "https://www.tiktok.com/@u/video/1")
	require.NoError(t, err)
	assert.NotEmpty(t, resolved.LinkHash)
	assert.Equal(t, 1, rec.cacheErrors)
}

func TestDispatcher_CircuitOpensAfterThreshold(t *testing.T) {
	failing := &stubStrategy{name: ServiceTikTok, host: "tiktok.com", err: errors.New("boom")}
	rec := &fakeRecorder{}
	d, _ := newTestDispatcher(t, []Strategy{failing}, WithCircuitBreaker(2, time.Minute), WithRecorder(rec))

	link := "https://www.tiktok.com/@u/video/1"
	for i := 0; i < 2; i++ {
		_, err := d.Resolve(context.Background(), link)
		assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	}
	assert.Equal(t, 2, failing.calls())

	_, err := d.Resolve(context.Background(), link)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, "TikTok is temporarily unavailable. Please try again later.", PublicMessage(err))
	assert.Equal(t, 2, failing.calls(), "open circuit must not call upstream")
	assert.Equal(t, "open", d.CircuitStates()[ServiceTikTok])
	assert.Equal(t, OutcomeCircuitOpen, rec.outcomes[len(rec.outcomes)-1].outcome)
}

func TestDispatcher_UnsupportedFromStrategyDoesNotTripCircuit(t *testing.T) {
	strategy := &stubStrategy{name: ServiceShopee, host: "shopee.co.id", err: &UnsupportedLinkError{Link: "x"}}
	d, _ := newTestDispatcher(t, []Strategy{strategy}, WithCircuitBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := d.Resolve(context.Background(), "https://shopee.co.id/product/1")
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	}
	assert.Equal(t, 3, strategy.calls())
}

func TestDispatcher_LinkFailuresDoNotTripCircuit(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no media", fmt.Errorf("pin has only images: %w", ErrNoMedia)},
		{"invalid media url", fmt.Errorf("%w: %q", ErrInvalidMediaURL, "ftp://x")},
		{"upstream 404", fmt.Errorf("%w: www.youtube.com answered 404", ErrUnexpectedResponse)},
		{"private video", fmt.Errorf("metadata extraction failed: %w", errors.Join(ytdlp.ErrExtractionFailed, ytdlp.ErrVideoPrivate))},
		{"age restricted", fmt.Errorf("metadata extraction failed: %w", errors.Join(ytdlp.ErrExtractionFailed, ytdlp.ErrAgeRestricted))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &stubStrategy{name: ServiceYouTube, host: "youtube.com", err: tt.err}
			d, _ := newTestDispatcher(t, []Strategy{strategy}, WithCircuitBreaker(2, time.Minute))

			for i := 0; i < 5; i++ {
				_, err := d.Resolve(context.Background(), "https://www.youtube.com/watch?v=bad")
				assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
			}
			assert.Equal(t, 5, strategy.calls())
			assert.NotEqual(t, "open", d.CircuitStates()[ServiceYouTube])

			strategy.err = nil
			strategy.result = videoResult("https://cdn.example.com/v.mp4")
			resolved, err := d.Resolve(context.Background(), "https://www.youtube.com/watch?v=good")
			require.NoError(t, err)
			assert.Equal(t, ServiceYouTube, resolved.Service)
		})
	}
}

func TestDispatcher_PlatformFailuresTripCircuit(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"availability", NewAvailabilityError(ServiceYouTube, http.StatusBadGateway, "no table")},
		{"timeout", fmt.Errorf("request failed: %w", context.DeadlineExceeded)},
		{"tool timeout", fmt.Errorf("metadata extraction failed: %w", ytdlp.ErrTimeout)},
		{"transport", errors.New("connection reset by peer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &stubStrategy{name: ServiceYouTube, host: "youtube.com", err: tt.err}
			d, _ := newTestDispatcher(t, []Strategy{strategy}, WithCircuitBreaker(2, time.Minute))

			for i := 0; i < 2; i++ {
				_, _ = d.Resolve(context.Background(), "https://www.youtube.com/watch?v=x")
			}
			assert.Equal(t, "open", d.CircuitStates()[ServiceYouTube])
		})
	}
}

func TestNewDispatcher_Validation(t *testing.T) {
	cache, err := linkcache.NewCache(linkcache.NewMemoryStore())
	require.NoError(t, err)

	_, err = NewDispatcher(nil, []Strategy{&stubStrategy{}})
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewDispatcher(cache, nil)
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewDispatcher(cache, []Strategy{nil})
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestDefaultStrategies_Order(t *testing.T) {
	cache, err := linkcache.NewCache(linkcache.NewMemoryStore())
	require.NoError(t, err)
	d, err := NewDispatcher(cache, DefaultStrategies(testConfig(), NewHTTPClient(time.Second), nil))
	require.NoError(t, err)

	assert.Equal(t, []ServiceName{ServiceShopee, ServicePinterest, ServiceTikTok, ServiceYouTube, ServiceMeta}, d.Services())
}
