package bus

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
)

func TestNewRedisBusWithoutAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	log, _ := logger.New("test")
	_, err := NewRedisBus(log)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis bus integration tests")
	}
	t.Setenv("REDIS_ADDR", addr)
	t.Setenv("REDIS_CHANNEL", "nepq:test")

	log, _ := logger.New("test")
	b, err := NewRedisBus(log)
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.SSEMessage, 1)
	if err := b.StartForwarder(ctx, func(m realtime.SSEMessage) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	want := realtime.SSEMessage{Channel: "user:1", Event: realtime.SSEEventRecordingCreated}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Channel != want.Channel || m.Event != want.Event {
			t.Fatalf("forwarded: want=%+v got=%+v", want, m)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for forwarded message")
	}
}
