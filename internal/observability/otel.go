package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/nepq-coach-backend/internal/platform/envutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const (
	tracerName         = "github.com/yungbote/nepq-coach-backend"
	defaultSampleRatio = 0.1
)

// Span attribute keys shared by the recording and live session spans.
const (
	AttrRecordingID     = attribute.Key("nepq.recording.id")
	AttrRecordingSource = attribute.Key("nepq.recording.source")
	AttrVersion         = attribute.Key("nepq.recording.version")
	AttrOverallScore    = attribute.Key("nepq.score.overall")
	AttrTier            = attribute.Key("nepq.score.tier")
	AttrUserID          = attribute.Key("nepq.user.id")
	AttrOrganizationID  = attribute.Key("nepq.organization.id")
	AttrRole            = attribute.Key("nepq.user.role")
	AttrScenarioID      = attribute.Key("nepq.scenario.id")
	AttrLiveSessionID   = attribute.Key("nepq.live.session_id")
	AttrStagesCompleted = attribute.Key("nepq.live.stages_completed")
	AttrTurns           = attribute.Key("nepq.live.turns")
)

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	// Endpoint is the OTLP/HTTP collector; empty exports to stdout.
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

// LoadOtelConfig reads the OTEL_* variables. Service identity is left to
// the caller.
func LoadOtelConfig(log *logger.Logger) OtelConfig {
	return OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		Endpoint:    strings.TrimSpace(envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log)),
		Headers:     ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		SampleRatio: parseSampleRatio(envutil.String("OTEL_SAMPLER_RATIO", "", log)),
	}
}

// InitOTel installs the global tracer provider. The returned shutdown is
// never nil; it is a no-op when tracing is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop
	}
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "nepq-coach-backend"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
		attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
	))
	if err != nil && log != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	}
	exporter, err := buildTraceExporter(ctx, cfg)
	switch {
	case err != nil:
		if log != nil {
			log.Warn("otel exporter init failed (continuing)", "error", err)
		}
	default:
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if log != nil {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "stdout"
		}
		log.Info("otel tracing initialized", "service", serviceName, "endpoint", endpoint)
	}
	return tp.Shutdown
}

func buildTraceExporter(ctx context.Context, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

// ParseHeaders reads "k1=v1,k2=v2". Malformed pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		headers[key] = val
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func parseSampleRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultSampleRatio
	}
	return clampRatio(f)
}

func clampRatio(f float64) float64 {
	switch {
	case !(f >= 0):
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Tracer resolves through the global provider on every call so spans pick
// up a provider installed after package init.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartRecordingSpan opens a span for a write to a recording. recordingID
// may be uuid.Nil when the row does not exist yet.
func StartRecordingSpan(ctx context.Context, op, source string, recordingID uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrRecordingSource.String(source)}
	if recordingID != uuid.Nil {
		attrs = append(attrs, AttrRecordingID.String(recordingID.String()))
	}
	return Tracer().Start(ctx, "recording."+op, trace.WithAttributes(attrs...))
}

// RecordingStored tags span with the stored version and its score.
func RecordingStored(span trace.Span, recordingID, userID, scenarioID uuid.UUID, version, overall int, tier string) {
	span.SetAttributes(
		AttrRecordingID.String(recordingID.String()),
		AttrUserID.String(userID.String()),
		AttrScenarioID.String(scenarioID.String()),
		AttrVersion.Int(version),
		AttrOverallScore.Int(overall),
		AttrTier.String(tier),
	)
}

// StartLiveSpan opens a span for an action on a live recorder.
func StartLiveSpan(ctx context.Context, action string, sessionID, userID uuid.UUID) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "live."+action, trace.WithAttributes(
		AttrLiveSessionID.String(sessionID.String()),
		AttrUserID.String(userID.String()),
	))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
