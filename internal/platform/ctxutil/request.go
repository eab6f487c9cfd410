package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type (
	requestDataKey struct{}
	traceDataKey   struct{}
)

// RequestData is attached by the auth middleware once a bearer token has
// been verified.
type RequestData struct {
	TokenString    string
	RefreshToken   string
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	SessionID      uuid.UUID
	Role           string
}

// TraceData correlates one HTTP request across logs, spans and the
// X-Trace-Id/X-Request-Id response headers.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the key/value pairs identifying the request and its
// caller. Unset values are omitted.
func LogFields(ctx context.Context) []any {
	var fields []any
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			fields = append(fields, "request_id", td.RequestID)
		}
	}
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fields
	}
	fields = append(fields, "user_id", rd.UserID.String(), "role", rd.Role)
	if rd.OrganizationID != uuid.Nil {
		fields = append(fields, "organization_id", rd.OrganizationID.String())
	}
	if rd.SessionID != uuid.Nil {
		fields = append(fields, "session_id", rd.SessionID.String())
	}
	return fields
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
