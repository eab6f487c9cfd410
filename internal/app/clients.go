package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime/bus"
)

type Clients struct {
	// SSEBus is nil when REDIS_ADDR is unset; events then stay in-process.
	SSEBus bus.Bus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	b, err := bus.NewRedisBus(log)
	switch {
	case errors.Is(err, bus.ErrNotConfigured):
		log.Info("REDIS_ADDR not set; SSE stays on the local hub")
		b = nil
	case err != nil:
		return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
	}

	return Clients{SSEBus: b}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
}
