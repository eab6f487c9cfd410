package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubResilienceReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventLiveSessionStarted, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventLiveTurnAdded, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventLiveSessionStarted {
		t.Fatalf("first event: want=%s got=%s", SSEEventLiveSessionStarted, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventLiveTurnAdded {
		t.Fatalf("second event: want=%s got=%s", SSEEventLiveTurnAdded, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventLiveSessionStopped, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventLiveSessionStopped {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventLiveSessionStopped, gotReconnect.Event)
	}
}

func TestSSEHubDuplicateSuppressionExpectation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := uuid.New().String()
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	dup := SSEMessage{Channel: channel, Event: SSEEventLiveTurnAdded, Data: map[string]any{"turnId": "t1"}}
	hub.Broadcast(dup)
	hub.Broadcast(dup)

	gotOne := recvMessage(t, client.Outbound, time.Second)
	gotTwo := recvMessage(t, client.Outbound, time.Second)
	if gotOne.Event != SSEEventLiveTurnAdded || gotTwo.Event != SSEEventLiveTurnAdded {
		t.Fatalf("expected duplicate transition events to be delivered, got=%s and %s", gotOne.Event, gotTwo.Event)
	}
}

func TestSSEHubChannelIsolationAndServe(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	mine := UserChannel(userID.String())
	other := RecordingChannel(uuid.New().String())
	hub.AddChannel(client, mine)
	hub.AddChannel(client, "  ")

	if got := hub.Subscribers(mine); got != 1 {
		t.Fatalf("subscribers: want=1 got=%d", got)
	}

	hub.Broadcast(SSEMessage{Channel: other, Event: SSEEventRecordingCreated})
	hub.Broadcast(SSEMessage{Channel: mine, Event: SSEEventCommentAdded, Data: map[string]any{"content": "nice"}})

	got := recvMessage(t, client.Outbound, time.Second)
	if got.Event != SSEEventCommentAdded {
		t.Fatalf("isolation: want=%s got=%s", SSEEventCommentAdded, got.Event)
	}

	hub.RemoveChannel(client, mine)
	if got := hub.Subscribers(mine); got != 0 {
		t.Fatalf("subscribers after remove: want=0 got=%d", got)
	}
	hub.Broadcast(SSEMessage{Channel: mine, Event: SSEEventCommentAdded})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected message after unsubscribe: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHubServeHTTPWritesFrames(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	channel := UserChannel(client.UserID.String())
	hub.AddChannel(client, channel)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventLiveStageChanged, Data: map[string]any{"stage": 2}})
	deadline := time.Now().Add(time.Second)
	for len(client.Outbound) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: message\n") || !strings.Contains(body, `"event":"LiveStageChanged"`) {
		t.Fatalf("unexpected SSE body: %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: want=text/event-stream got=%s", ct)
	}
}

func TestSSEHubClosedClientStaysClosed(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	channel := RecordingChannel(uuid.New().String())
	if !hub.AddChannel(client, UserChannel(client.UserID.String())) {
		t.Fatalf("AddChannel on open client: want=true")
	}

	hub.CloseClient(client)
	hub.CloseClient(client)
	select {
	case <-client.Done():
	default:
		t.Fatalf("Done should be closed after CloseClient")
	}

	if hub.AddChannel(client, channel) {
		t.Fatalf("AddChannel on closed client: want=false")
	}
	if got := hub.Subscribers(channel); got != 0 {
		t.Fatalf("subscribers: want=0 got=%d", got)
	}
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventRecordingRevised})
}
