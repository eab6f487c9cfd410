package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
)

func TestMetricsSkipsLatencyForStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("METRICS_ENABLED", "true")
	m := observability.Init(nil)
	require.NotNil(t, m)

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/sse/stream", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/leaderboard", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/sse/stream", "/api/leaderboard", "/wp-login.php"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `nepq_api_requests_total{method="GET",route="/api/sse/stream",status="200"}`)
	assert.NotContains(t, body, `nepq_api_request_duration_seconds_count{method="GET",route="/api/sse/stream"`)
	assert.Contains(t, body, `nepq_api_request_duration_seconds_count{method="GET",route="/api/leaderboard",status="200"}`)
	assert.Contains(t, body, `route="unmatched",status="404"`)
	assert.NotContains(t, body, "wp-login")
}

func TestTraceContextTagsCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	// Equivalent of t.Context() (Go 1.24+): canceled before Cleanup funcs run.
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })
	t.Cleanup(cancel)

	userID, orgID := uuid.New(), uuid.New()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), "GET /api/me")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(AttachTraceContext())
	r.Use(func(c *gin.Context) {
		rd := &ctxutil.RequestData{UserID: userID, OrganizationID: orgID, Role: "COACH"}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	})
	var seen *ctxutil.TraceData
	r.GET("/api/me", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(headerTraceID, "client-supplied")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	traceID := spans[0].SpanContext().TraceID().String()
	require.NotNil(t, seen)
	assert.Equal(t, traceID, seen.TraceID, "active span wins over the header")
	assert.Equal(t, traceID, rec.Header().Get(headerTraceID))

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, userID.String(), attrs[observability.AttrUserID])
	assert.Equal(t, orgID.String(), attrs[observability.AttrOrganizationID])
	assert.Equal(t, "COACH", attrs[observability.AttrRole])
	assert.Equal(t, rec.Header().Get(headerRequestID), attrs["http.request_id"])
}
