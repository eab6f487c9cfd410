package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const (
	DefaultReplaySpeed = 1.0
	MaxReplaySpeed     = 16.0
	// maxReplayGap caps the pause between chunks so long silences do not
	// stall a replay.
	maxReplayGap = 3 * time.Second
)

// StreamChunk is one transcribed utterance as a live transcriber would emit it.
type StreamChunk struct {
	Text       string       `json:"text"`
	Timestamp  float64      `json:"timestamp"`
	Confidence float64      `json:"confidence"`
	Speaker    nepq.Speaker `json:"speaker"`
	NEPQStage  *nepq.Stage  `json:"nepqStage,omitempty"`
}

func ChunkFromTurn(t nepq.TranscriptTurn) StreamChunk {
	c := StreamChunk{
		Text:       t.Content,
		Timestamp:  t.Timestamp,
		Confidence: 1,
		Speaker:    t.Speaker,
		NEPQStage:  t.NEPQStage,
	}
	if t.Confidence != nil {
		c.Confidence = *t.Confidence
	}
	return c
}

type TranscriptReplayService interface {
	// Replay sends the recording's turns to emit, spaced by their original
	// timing divided by speed. It stops at the first emit error.
	Replay(ctx context.Context, recordingID uuid.UUID, speed float64, emit func(StreamChunk) error) error
}

type transcriptReplayService struct {
	log        *logger.Logger
	recordings RecordingService
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewTranscriptReplayService(log *logger.Logger, recordings RecordingService) TranscriptReplayService {
	return &transcriptReplayService{
		log:        log.With("service", "TranscriptReplayService"),
		recordings: recordings,
		sleep:      sleepCtx,
	}
}

func (ts *transcriptReplayService) Replay(ctx context.Context, recordingID uuid.UUID, speed float64, emit func(StreamChunk) error) error {
	view, err := ts.recordings.Get(dbctx.Context{Ctx: ctx}, recordingID)
	if err != nil {
		return err
	}
	// NaN fails every comparison, so test for the valid range.
	if !(speed > 0) {
		speed = DefaultReplaySpeed
	}
	if speed > MaxReplaySpeed {
		speed = MaxReplaySpeed
	}

	prev := 0.0
	for _, turn := range view.Transcript.Turns {
		gap := time.Duration((turn.Timestamp - prev) / speed * float64(time.Second))
		if gap > maxReplayGap {
			gap = maxReplayGap
		}
		if gap > 0 {
			if err := ts.sleep(ctx, gap); err != nil {
				return err
			}
		}
		if err := emit(ChunkFromTurn(turn)); err != nil {
			return err
		}
		prev = turn.Timestamp
	}
	ts.log.Debug("Transcript replay finished", "recording_id", recordingID, "turns", len(view.Transcript.Turns))
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
