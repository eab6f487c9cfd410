package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/recorder"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLiveFixture(t *testing.T) (*fixture, *stepClock, LiveSessionService) {
	t.Helper()
	f := newFixture(t)
	clock := &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewLiveSessionService(f.log, recorder.NewRegistry(clock), f.scenarios, f.users, f.recordingService(), NewLiveNotifier(f.emitter))
	return f, clock, svc
}

func TestLiveSessionLifecycle(t *testing.T) {
	f, clock, svc := newLiveFixture(t)
	agent := f.user(t, "agent@example.com", types.RoleAgent)
	coach := f.user(t, "coach@example.com", types.RoleCoach)
	other := f.user(t, "other@example.com", types.RoleAgent)
	ctx := asUser(agent)

	snap, err := svc.Start(ctx, f.scenario.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if snap.State != recorder.StateRecording || snap.CurrentStage != nepq.StageConnection {
		t.Fatalf("started: state=%s stage=%d", snap.State, snap.CurrentStage)
	}
	if _, err := svc.Start(ctx, f.scenario.ID); apiCode(err) != "live_session_active" {
		t.Fatalf("second Start: want=live_session_active got=%v", err)
	}

	turns := sampleTurns()
	clock.Advance(5 * time.Second)
	if _, err := svc.AddTurn(ctx, turns[0]); err != nil {
		t.Fatalf("AddTurn t1: %v", err)
	}
	if _, err := svc.AddTurn(ctx, turns[1]); err != nil {
		t.Fatalf("AddTurn t2: %v", err)
	}
	snap, err = svc.SetStage(ctx, int(nepq.StageSituation))
	if err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if len(snap.CompletedStages) != 1 || snap.CompletedStages[0] != nepq.StageConnection {
		t.Fatalf("completed stages: got=%v", snap.CompletedStages)
	}
	if _, err := svc.SetStage(ctx, 9); !errors.Is(err, nepq.ErrOutOfRange) {
		t.Fatalf("SetStage 9: want ErrOutOfRange got=%v", err)
	}
	if _, err := svc.AddTurn(ctx, turns[2]); err != nil {
		t.Fatalf("AddTurn t3: %v", err)
	}
	overlap := turns[2]
	overlap.ID = "t4"
	if _, err := svc.AddTurn(ctx, overlap); !errors.Is(err, nepq.ErrMalformedTranscript) {
		t.Fatalf("overlapping turn: want ErrMalformedTranscript got=%v", err)
	}

	content := "Busy, but I have a minute."
	updated, err := svc.UpdateTurn(ctx, "t2", recorder.TurnPatch{Content: &content})
	if err != nil || updated.Content != content {
		t.Fatalf("UpdateTurn: turn=%+v err=%v", updated, err)
	}
	if _, err := svc.UpdateTurn(ctx, "missing", recorder.TurnPatch{Content: &content}); apiCode(err) != "turn_not_found" {
		t.Fatalf("UpdateTurn missing: want=turn_not_found got=%v", err)
	}

	clock.Advance(15 * time.Second)
	v := nepq.Violation{Stage: nepq.StageSituation, Type: nepq.ViolationEarlyPresentation, Severity: nepq.SeverityHigh, Timestamp: 12}
	if err := svc.Annotate(ctx, v); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	late := v
	late.Timestamp = 500
	if err := svc.Annotate(ctx, late); !errors.Is(err, nepq.ErrInvalidViolation) {
		t.Fatalf("late violation: want ErrInvalidViolation got=%v", err)
	}
	if err := svc.SetAudioLevel(ctx, 2); apiCode(err) != "invalid_audio_level" {
		t.Fatalf("audio level: want=invalid_audio_level got=%v", err)
	}
	if err := svc.SetDevice(ctx, "mic-1"); err != nil {
		t.Fatalf("SetDevice: %v", err)
	}

	if _, err := svc.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if _, err := svc.Pause(ctx); apiCode(err) != "invalid_transition" {
		t.Fatalf("second Pause: want=invalid_transition got=%v", err)
	}
	clock.Advance(time.Minute)
	if _, err := svc.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	clock.Advance(10 * time.Second)

	watched, err := svc.Watch(asUser(coach), snap.ID)
	if err != nil || watched.DeviceID != "mic-1" || len(watched.Turns) != 3 {
		t.Fatalf("coach Watch: snap=%+v err=%v", watched, err)
	}
	if _, err := svc.Watch(asUser(other), snap.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("Watch by other agent: want ErrNotFound got=%v", err)
	}
	if _, err := svc.Watch(asUser(f.outsider(t, "coach@elsewhere.com", types.RoleCoach)), snap.ID); !errors.Is(err, apierr.ErrNotFound) {
		t.Fatalf("Watch by coach of another organization: want ErrNotFound got=%v", err)
	}

	view, err := svc.Finish(ctx, FinishLiveInput{Rubric: recorder.Rubric{
		StageProgression: 4, TransitionDiscipline: 3, DiscoveryDepth: 4,
		ObjectionHandling: 3, Tonality: 4, ActiveListening: 4,
	}})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if view.ID != snap.ID || view.UserID != agent.ID || view.ScenarioID != f.scenario.ID {
		t.Fatalf("stored recording: id=%s user=%s scenario=%s", view.ID, view.UserID, view.ScenarioID)
	}
	if view.Duration != 30 {
		t.Fatalf("duration excludes the pause: want=30 got=%v", view.Duration)
	}
	if len(view.Violations) != 1 || len(view.Transcript.Turns) != 3 || view.Score.Breakdown.FillerWords != 1 {
		t.Fatalf("stored content: violations=%d turns=%d fillers=%d", len(view.Violations), len(view.Transcript.Turns), view.Score.Breakdown.FillerWords)
	}

	if _, err := svc.Snapshot(ctx); apiCode(err) != "live_session_not_found" {
		t.Fatalf("Snapshot after finish: want=live_session_not_found got=%v", err)
	}
	if _, err := svc.Start(ctx, f.scenario.ID); err != nil {
		t.Fatalf("Start after finish: %v", err)
	}
	if err := svc.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	events := f.emitter.events(realtime.RecordingChannel(snap.ID.String()))
	if len(events) == 0 || events[0] != realtime.SSEEventLiveSessionStarted {
		t.Fatalf("recording channel events: got=%v", events)
	}
	var stopped bool
	for _, e := range events {
		if e == realtime.SSEEventLiveSessionStopped {
			stopped = true
		}
	}
	if !stopped {
		t.Fatalf("finish did not announce the stop: got=%v", events)
	}
}

func TestLiveSessionStoppedIsSealed(t *testing.T) {
	f, clock, svc := newLiveFixture(t)
	agent := f.user(t, "agent@example.com", types.RoleAgent)
	ctx := asUser(agent)

	if _, err := svc.Start(ctx, f.scenario.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.Advance(20 * time.Second)
	if _, err := svc.AddTurn(ctx, sampleTurns()[0]); err != nil {
		t.Fatalf("AddTurn: %v", err)
	}
	if _, err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := svc.AddTurn(ctx, sampleTurns()[1]); apiCode(err) != "live_session_sealed" {
		t.Fatalf("AddTurn after stop: want=live_session_sealed got=%v", err)
	}
	if _, err := svc.Resume(ctx); apiCode(err) != "live_session_sealed" {
		t.Fatalf("Resume after stop: want=live_session_sealed got=%v", err)
	}
	// A stopped recorder no longer blocks a new session.
	if _, err := svc.Start(ctx, f.scenario.ID); err != nil {
		t.Fatalf("Start after stop: %v", err)
	}
}

func TestLiveSessionStartChecksScenario(t *testing.T) {
	f, _, svc := newLiveFixture(t)
	agent := f.user(t, "agent@example.com", types.RoleAgent)
	ctx := asUser(agent)

	if _, err := svc.Start(ctx, uuid.New()); apiCode(err) != "scenario_not_found" {
		t.Fatalf("unknown scenario: want=scenario_not_found got=%v", err)
	}
	if err := f.db.Model(f.scenario).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Start(ctx, f.scenario.ID); apiCode(err) != "scenario_inactive" {
		t.Fatalf("inactive scenario: want=scenario_inactive got=%v", err)
	}
	if _, err := svc.Pause(ctx); apiCode(err) != "live_session_not_found" {
		t.Fatalf("Pause without session: want=live_session_not_found got=%v", err)
	}
}
