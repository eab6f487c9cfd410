package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveRecording("live", "good", 85, 120)
	m.SetLiveSessions(3)
	m.IncLiveEvent("start", "ok")
	m.IncSSEPublishFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("GET", "/api/recordings", "200", 20*time.Millisecond)
	m.ObserveRecording("upload", "good", 85, 420)
	m.SetLiveSessions(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `nepq_api_requests_total{method="GET",route="/api/recordings",status="200"} 1`), body)
	assert.Contains(t, body, `nepq_recordings_created_total{source="upload"} 1`)
	assert.Contains(t, body, "nepq_live_sessions_active 2")
}

func TestEnabled(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "yes")
	assert.True(t, Enabled())
	t.Setenv("METRICS_ENABLED", "")
	assert.False(t, Enabled())
}
