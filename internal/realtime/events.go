package realtime

type SSEEvent string

const (
	SSEEventUserNameChanged SSEEvent = "UserNameChanged"

	SSEEventLiveSessionStarted SSEEvent = "LiveSessionStarted"
	SSEEventLiveSessionPaused  SSEEvent = "LiveSessionPaused"
	SSEEventLiveSessionResumed SSEEvent = "LiveSessionResumed"
	SSEEventLiveStageChanged   SSEEvent = "LiveStageChanged"
	SSEEventLiveTurnAdded      SSEEvent = "LiveTurnAdded"
	SSEEventLiveTurnUpdated    SSEEvent = "LiveTurnUpdated"
	SSEEventLiveViolation      SSEEvent = "LiveViolation"
	SSEEventLiveSessionStopped SSEEvent = "LiveSessionStopped"

	SSEEventRecordingCreated SSEEvent = "RecordingCreated"
	SSEEventRecordingRevised SSEEvent = "RecordingRevised"
	SSEEventCommentAdded     SSEEvent = "CommentAdded"

	SSEEventTranscriptChunk SSEEvent = "TranscriptChunk"
	SSEEventTranscriptDone  SSEEvent = "TranscriptDone"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the channel every client of a user is subscribed to.
func UserChannel(userID string) string { return "user:" + userID }

// RecordingChannel carries events about one live or stored recording.
func RecordingChannel(recordingID string) string { return "recording:" + recordingID }
