package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestRecordingWritesAreTraced(t *testing.T) {
	sr := recordSpans(t)
	f := newFixture(t)
	agent := f.user(t, "agent@example.com", types.RoleAgent)
	outsider := f.outsider(t, "agent@elsewhere.com", types.RoleAgent)
	svc := f.recordingService()
	ctx := asUser(agent)

	v1, err := svc.Create(ctx, uploadInput(f.scenario.ID))
	require.NoError(t, err)
	tags := []string{"reviewed"}
	v2, err := svc.Revise(ctx, v1.ID, ReviseRecordingInput{Tags: &tags})
	require.NoError(t, err)
	_, err = svc.Revise(asUser(outsider), v2.ID, ReviseRecordingInput{Tags: &tags})
	require.True(t, errors.Is(err, apierr.ErrNotFound), "got %v", err)

	spans := sr.Ended()
	require.Len(t, spans, 3)

	store := spans[0]
	assert.Equal(t, "recording.store", store.Name())
	attrs := map[string]string{}
	for _, kv := range store.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, SourceUpload, attrs[string(observability.AttrRecordingSource)])
	assert.Equal(t, v1.ID.String(), attrs[string(observability.AttrRecordingID)])
	assert.Equal(t, agent.ID.String(), attrs[string(observability.AttrUserID)])

	assert.Equal(t, "recording.revise", spans[1].Name())
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, "recording.revise", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}
