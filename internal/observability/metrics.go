package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	recordingsCreated *prometheus.CounterVec
	overallScore      *prometheus.HistogramVec
	sessionDuration   prometheus.Histogram
	liveActive        prometheus.Gauge
	liveEvents        *prometheus.CounterVec
	sseDropped        prometheus.Counter

	dbStats *prometheus.GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process metrics, or nil when metrics are disabled.
// Every method is safe to call on a nil *Metrics.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	if v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 15 * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nepq_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nepq_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nepq_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		recordingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nepq_recordings_created_total",
			Help: "Recordings stored, by source (upload, live, revision, rescore).",
		}, []string{"source"}),
		overallScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nepq_overall_score",
			Help:    "Overall score of stored recordings by tier.",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}, []string{"tier"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nepq_session_duration_seconds",
			Help:    "Duration of stored practice sessions.",
			Buckets: []float64{30, 60, 120, 300, 600, 900, 1200, 1800, 3600},
		}),
		liveActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nepq_live_sessions_active",
			Help: "Live practice sessions currently open.",
		}),
		liveEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nepq_live_session_events_total",
			Help: "Live session operations by action/status.",
		}, []string{"action", "status"}),
		sseDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nepq_sse_publish_failures_total",
			Help: "SSE messages that could not be published to the bus.",
		}),
		dbStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nepq_db_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.recordingsCreated, m.overallScore, m.sessionDuration,
		m.liveActive, m.liveEvents, m.sseDropped, m.dbStats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	method, route, status = apiLabels(method, route, status)
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

// CountAPI counts a request without a latency sample.
func (m *Metrics) CountAPI(method, route, status string) {
	if m == nil {
		return
	}
	method, route, status = apiLabels(method, route, status)
	m.apiRequests.WithLabelValues(method, route, status).Inc()
}

func apiLabels(method, route, status string) (string, string, string) {
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	return method, route, status
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveRecording(source, tier string, overall int, durationSeconds float64) {
	if m == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	m.recordingsCreated.WithLabelValues(source).Inc()
	m.overallScore.WithLabelValues(tier).Observe(float64(overall))
	m.sessionDuration.Observe(durationSeconds)
}

func (m *Metrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.liveActive.Set(float64(n))
}

func (m *Metrics) IncLiveEvent(action, status string) {
	if m == nil {
		return
	}
	m.liveEvents.WithLabelValues(action, status).Inc()
}

func (m *Metrics) IncSSEPublishFailure() {
	if m == nil {
		return
	}
	m.sseDropped.Inc()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
			}
		}
	}()
}
