package services

import (
	"context"

	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter broadcasts straight into the local hub. Used when no bus is
// configured and by tests.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Hub == nil {
		return
	}
	e.Hub.Broadcast(msg)
}

// RedisEmitter publishes to the bus; every instance's forwarder delivers it
// to its own hub.
type RedisEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(ctx, msg); err != nil {
		observability.Current().IncSSEPublishFailure()
		if e.Log != nil {
			e.Log.Warn("sse publish failed", "channel", msg.Channel, "event", msg.Event, "error", err)
		}
	}
}

// NewSSEEmitter picks the bus when one is available.
func NewSSEEmitter(hub *realtime.SSEHub, b bus.Bus, log *logger.Logger) SSEEmitter {
	if b != nil {
		return &RedisEmitter{Bus: b, Log: log}
	}
	return &HubEmitter{Hub: hub}
}
