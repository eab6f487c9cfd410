package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
)

// =========================
// Recording notifier
// =========================

type RecordingNotifier interface {
	RecordingCreated(userID uuid.UUID, rec *RecordingView)
	RecordingRevised(userID uuid.UUID, previousID uuid.UUID, rec *RecordingView)
	CommentAdded(recordingOwnerID uuid.UUID, comment *types.Comment)
}

type recordingNotifier struct {
	emit SSEEmitter
}

func NewRecordingNotifier(emit SSEEmitter) RecordingNotifier {
	return &recordingNotifier{emit: emit}
}

func (n *recordingNotifier) RecordingCreated(userID uuid.UUID, rec *RecordingView) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID.String()),
		Event:   realtime.SSEEventRecordingCreated,
		Data:    map[string]any{"recording": rec},
	})
}

func (n *recordingNotifier) RecordingRevised(userID uuid.UUID, previousID uuid.UUID, rec *RecordingView) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	data := map[string]any{
		"previousId": previousID,
		"recording":  rec,
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID.String()),
		Event:   realtime.SSEEventRecordingRevised,
		Data:    data,
	})
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.RecordingChannel(previousID.String()),
		Event:   realtime.SSEEventRecordingRevised,
		Data:    data,
	})
}

func (n *recordingNotifier) CommentAdded(recordingOwnerID uuid.UUID, comment *types.Comment) {
	if n == nil || n.emit == nil || comment == nil {
		return
	}
	data := map[string]any{"comment": comment}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.RecordingChannel(comment.RecordingID.String()),
		Event:   realtime.SSEEventCommentAdded,
		Data:    data,
	})
	if recordingOwnerID != uuid.Nil && recordingOwnerID != comment.UserID {
		n.emit.Emit(context.Background(), realtime.SSEMessage{
			Channel: realtime.UserChannel(recordingOwnerID.String()),
			Event:   realtime.SSEEventCommentAdded,
			Data:    data,
		})
	}
}

// =========================
// Live session notifier
// =========================

type LiveNotifier interface {
	Live(userID, recordingID uuid.UUID, event realtime.SSEEvent, data map[string]any)
}

type liveNotifier struct {
	emit SSEEmitter
}

func NewLiveNotifier(emit SSEEmitter) LiveNotifier {
	return &liveNotifier{emit: emit}
}

// Live fans the event out to the owner's channel and the recording channel,
// so a coach watching the session sees the same stream.
func (n *liveNotifier) Live(userID, recordingID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["recordingId"] = recordingID
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID.String()),
		Event:   event,
		Data:    data,
	})
	if recordingID != uuid.Nil {
		n.emit.Emit(context.Background(), realtime.SSEMessage{
			Channel: realtime.RecordingChannel(recordingID.String()),
			Event:   event,
			Data:    data,
		})
	}
}
