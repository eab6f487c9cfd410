package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/recorder"
)

type FinishLiveInput struct {
	Rubric   recorder.Rubric          `json:"rubric"`
	Tags     []string                 `json:"tags"`
	Metadata *types.RecordingMetadata `json:"metadata"`
}

// LiveSessionService drives the caller's in-progress recording. Every
// method acts on the recorder owned by the user in the request context.
type LiveSessionService interface {
	Start(ctx context.Context, scenarioID uuid.UUID) (recorder.Snapshot, error)
	Pause(ctx context.Context) (recorder.Snapshot, error)
	Resume(ctx context.Context) (recorder.Snapshot, error)
	SetStage(ctx context.Context, ordinal int) (recorder.Snapshot, error)
	AddTurn(ctx context.Context, turn nepq.TranscriptTurn) (nepq.TranscriptTurn, error)
	UpdateTurn(ctx context.Context, turnID string, patch recorder.TurnPatch) (nepq.TranscriptTurn, error)
	Annotate(ctx context.Context, v nepq.Violation) error
	SetAudioLevel(ctx context.Context, level float64) error
	SetDevice(ctx context.Context, deviceID string) error
	Stop(ctx context.Context) (recorder.Snapshot, error)
	Finish(ctx context.Context, in FinishLiveInput) (*RecordingView, error)
	Discard(ctx context.Context) error
	Snapshot(ctx context.Context) (recorder.Snapshot, error)
	Watch(ctx context.Context, recordingID uuid.UUID) (recorder.Snapshot, error)
}

type liveSessionService struct {
	log          *logger.Logger
	registry     *recorder.Registry
	scenarioRepo repos.ScenarioRepo
	userRepo     repos.UserRepo
	recordings   RecordingService
	notifier     LiveNotifier
}

func NewLiveSessionService(log *logger.Logger, registry *recorder.Registry, scenarioRepo repos.ScenarioRepo, userRepo repos.UserRepo, recordings RecordingService, notifier LiveNotifier) LiveSessionService {
	return &liveSessionService{
		log:          log.With("service", "LiveSessionService"),
		registry:     registry,
		scenarioRepo: scenarioRepo,
		userRepo:     userRepo,
		recordings:   recordings,
		notifier:     notifier,
	}
}

func (ls *liveSessionService) Start(ctx context.Context, scenarioID uuid.UUID) (recorder.Snapshot, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return recorder.Snapshot{}, err
	}
	scenarios, err := ls.scenarioRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{scenarioID})
	if err != nil {
		return recorder.Snapshot{}, fmt.Errorf("load scenario: %w", err)
	}
	if len(scenarios) == 0 || (rd.OrganizationID != uuid.Nil && scenarios[0].OrganizationID != rd.OrganizationID) {
		return recorder.Snapshot{}, apierr.NotFound("scenario_not_found", "scenario %s", scenarioID)
	}
	if !scenarios[0].IsActive {
		return recorder.Snapshot{}, apierr.Conflict("scenario_inactive", "scenario %s is not active", scenarioID)
	}

	rec, err := ls.registry.Open(rd.UserID, scenarioID)
	if err != nil {
		ls.track("start", err)
		return recorder.Snapshot{}, liveErr(err)
	}
	if err := rec.Start(); err != nil {
		ls.registry.Close(rec.ID())
		ls.track("start", err)
		return recorder.Snapshot{}, liveErr(err)
	}
	snap := rec.Snapshot()
	ls.track("start", nil)
	ls.log.Info("Live session started", "recording_id", snap.ID, "user_id", rd.UserID, "scenario_id", scenarioID)
	ls.notify(snap, realtime.SSEEventLiveSessionStarted, map[string]any{"snapshot": snap})
	return snap, nil
}

func (ls *liveSessionService) Pause(ctx context.Context) (recorder.Snapshot, error) {
	return ls.transition(ctx, "pause", realtime.SSEEventLiveSessionPaused, (*recorder.Recorder).Pause)
}

func (ls *liveSessionService) Resume(ctx context.Context) (recorder.Snapshot, error) {
	return ls.transition(ctx, "resume", realtime.SSEEventLiveSessionResumed, (*recorder.Recorder).Resume)
}

func (ls *liveSessionService) Stop(ctx context.Context) (recorder.Snapshot, error) {
	return ls.transition(ctx, "stop", realtime.SSEEventLiveSessionStopped, func(r *recorder.Recorder) error {
		_, err := r.Stop()
		return err
	})
}

func (ls *liveSessionService) transition(ctx context.Context, action string, event realtime.SSEEvent, fn func(*recorder.Recorder) error) (recorder.Snapshot, error) {
	rec, err := ls.current(ctx)
	if err != nil {
		return recorder.Snapshot{}, err
	}
	if err := fn(rec); err != nil {
		ls.track(action, err)
		return recorder.Snapshot{}, liveErr(err)
	}
	ls.track(action, nil)
	snap := rec.Snapshot()
	ls.notify(snap, event, map[string]any{"state": snap.State, "duration": snap.Duration})
	return snap, nil
}

func (ls *liveSessionService) SetStage(ctx context.Context, ordinal int) (recorder.Snapshot, error) {
	rec, err := ls.current(ctx)
	if err != nil {
		return recorder.Snapshot{}, err
	}
	if err := rec.SetStage(nepq.Stage(ordinal)); err != nil {
		ls.track("stage", err)
		return recorder.Snapshot{}, liveErr(err)
	}
	snap := rec.Snapshot()
	ls.track("stage", nil)
	ls.notify(snap, realtime.SSEEventLiveStageChanged, map[string]any{
		"currentStage":    snap.CurrentStage,
		"completedStages": snap.CompletedStages,
		"progress":        snap.Progress,
	})
	return snap, nil
}

func (ls *liveSessionService) AddTurn(ctx context.Context, turn nepq.TranscriptTurn) (nepq.TranscriptTurn, error) {
	rec, err := ls.current(ctx)
	if err != nil {
		return nepq.TranscriptTurn{}, err
	}
	if err := rec.AddTurn(turn); err != nil {
		ls.track("turn", err)
		return nepq.TranscriptTurn{}, liveErr(err)
	}
	snap := rec.Snapshot()
	added := snap.Turns[len(snap.Turns)-1]
	ls.track("turn", nil)
	ls.notify(snap, realtime.SSEEventLiveTurnAdded, map[string]any{"turn": added})
	return added, nil
}

func (ls *liveSessionService) UpdateTurn(ctx context.Context, turnID string, patch recorder.TurnPatch) (nepq.TranscriptTurn, error) {
	rec, err := ls.current(ctx)
	if err != nil {
		return nepq.TranscriptTurn{}, err
	}
	updated, err := rec.UpdateTurn(turnID, patch)
	if err != nil {
		ls.track("turn_update", err)
		return nepq.TranscriptTurn{}, liveErr(err)
	}
	ls.track("turn_update", nil)
	ls.notify(rec.Snapshot(), realtime.SSEEventLiveTurnUpdated, map[string]any{"turn": updated})
	return updated, nil
}

func (ls *liveSessionService) Annotate(ctx context.Context, v nepq.Violation) error {
	rec, err := ls.current(ctx)
	if err != nil {
		return err
	}
	if err := rec.Annotate(v); err != nil {
		ls.track("violation", err)
		return liveErr(err)
	}
	ls.track("violation", nil)
	ls.notify(rec.Snapshot(), realtime.SSEEventLiveViolation, map[string]any{
		"violation":   v,
		"explanation": v.Explanation(),
	})
	return nil
}

func (ls *liveSessionService) SetAudioLevel(ctx context.Context, level float64) error {
	rec, err := ls.current(ctx)
	if err != nil {
		return err
	}
	if err := rec.SetAudioLevel(level); err != nil {
		if errors.Is(err, recorder.ErrSealed) {
			return liveErr(err)
		}
		return apierr.Invalid("invalid_audio_level", "%v", err)
	}
	return nil
}

func (ls *liveSessionService) SetDevice(ctx context.Context, deviceID string) error {
	rec, err := ls.current(ctx)
	if err != nil {
		return err
	}
	return liveErr(rec.SetDevice(deviceID))
}

// Finish seals the recorder if needed, scores it with the rubric and stores
// the result. The recorder is released only once the recording is stored,
// so a failed save can be retried.
func (ls *liveSessionService) Finish(ctx context.Context, in FinishLiveInput) (_ *RecordingView, err error) {
	rec, err := ls.current(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartLiveSpan(ctx, "finish", rec.ID(), rec.UserID())
	defer func() { observability.EndSpan(span, err) }()
	if rec.State() != recorder.StateStopped {
		if _, err := rec.Stop(); err != nil {
			ls.track("finish", err)
			return nil, liveErr(err)
		}
		ls.notify(rec.Snapshot(), realtime.SSEEventLiveSessionStopped, map[string]any{"state": recorder.StateStopped})
	}
	session, err := rec.Finalize(ctx, in.Rubric, in.Tags)
	if err != nil {
		ls.track("finish", err)
		return nil, liveErr(err)
	}
	span.SetAttributes(
		observability.AttrScenarioID.String(session.ScenarioID),
		observability.AttrTurns.Int(len(session.Transcript.Turns)),
		observability.AttrStagesCompleted.Int(len(rec.Snapshot().CompletedStages)),
	)
	view, err := ls.recordings.CreateFromSession(ctx, session, in.Metadata)
	if err != nil {
		ls.track("finish", err)
		return nil, err
	}
	ls.registry.Close(rec.ID())
	ls.track("finish", nil)
	return view, nil
}

func (ls *liveSessionService) Discard(ctx context.Context) error {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return err
	}
	ls.registry.CloseUser(rd.UserID)
	ls.track("discard", nil)
	return nil
}

func (ls *liveSessionService) Snapshot(ctx context.Context) (recorder.Snapshot, error) {
	rec, err := ls.current(ctx)
	if err != nil {
		return recorder.Snapshot{}, err
	}
	return rec.Snapshot(), nil
}

// Watch lets the owner, or a coach of the owner's organization, read a
// live recorder by id.
func (ls *liveSessionService) Watch(ctx context.Context, recordingID uuid.UUID) (recorder.Snapshot, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return recorder.Snapshot{}, err
	}
	rec, err := ls.registry.Get(recordingID)
	if err != nil {
		return recorder.Snapshot{}, apierr.NotFound("live_session_not_found", "live session %s", recordingID)
	}
	ok, err := canViewUserData(dbctx.Context{Ctx: ctx}, ls.userRepo, rd, rec.UserID())
	if err != nil {
		return recorder.Snapshot{}, err
	}
	if !ok {
		return recorder.Snapshot{}, apierr.NotFound("live_session_not_found", "live session %s", recordingID)
	}
	return rec.Snapshot(), nil
}

func (ls *liveSessionService) current(ctx context.Context) (*recorder.Recorder, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := ls.registry.ForUser(rd.UserID)
	if err != nil {
		return nil, liveErr(err)
	}
	return rec, nil
}

func (ls *liveSessionService) notify(snap recorder.Snapshot, event realtime.SSEEvent, data map[string]any) {
	if ls.notifier == nil {
		return
	}
	ls.notifier.Live(snap.UserID, snap.ID, event, data)
}

func (ls *liveSessionService) track(action string, err error) {
	m := observability.Current()
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.IncLiveEvent(action, status)
	m.SetLiveSessions(ls.registry.Active())
}

// liveErr maps recorder errors onto API errors. Stage, score and transcript
// errors pass through untouched.
func liveErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recorder.ErrNotFound):
		return apierr.New(http.StatusNotFound, "live_session_not_found", err)
	case errors.Is(err, recorder.ErrAlreadyActive):
		return apierr.New(http.StatusConflict, "live_session_active", err)
	case errors.Is(err, recorder.ErrSealed):
		return apierr.New(http.StatusConflict, "live_session_sealed", err)
	case errors.Is(err, recorder.ErrInvalidTransition):
		return apierr.New(http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, recorder.ErrTurnNotFound):
		return apierr.New(http.StatusNotFound, "turn_not_found", err)
	}
	return err
}
