package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	m.ObserveResolve("shopee", "success", 200*time.Millisecond)
	m.ObserveResolve("shopee", "success", 300*time.Millisecond)
	m.ObserveResolve("", "unsupported", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolvesTotal.WithLabelValues("shopee", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolvesTotal.WithLabelValues("none", "unsupported")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.resolveDuration))
}

func TestObserveDownloadAndCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	m.ObserveDownload("fallback")
	m.ObserveCacheWriteError()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheWriteFails))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveResolve("youtube", "failed", time.Second)
		m.ObserveDownload("success")
		m.ObserveCacheWriteError()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveResolve("tiktok", "timeout", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `linkgrab_resolve_total{outcome="timeout",service="tiktok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
