// Package recorder tracks an in-progress practice recording: lifecycle,
// elapsed time, the stage in play and the transcript as it arrives. A
// recorder is sealed once stopped and can then be finalized into a
// nepq.Session.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/nepq/analytics"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
)

var (
	ErrInvalidTransition = errors.New("invalid recorder transition")
	ErrSealed            = errors.New("recording is sealed")
	ErrTurnNotFound      = errors.New("turn not found")
	ErrNotFinalized      = errors.New("recording not finalized")
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var SystemClock Clock = systemClock{}

type Options struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ScenarioID uuid.UUID
	Clock      Clock
	Scorer     *nepq.Scorer
}

type Recorder struct {
	mu sync.Mutex

	id         uuid.UUID
	userID     uuid.UUID
	scenarioID uuid.UUID
	clock      Clock
	scorer     nepq.Scorer

	state     State
	runStart  time.Time
	elapsed   time.Duration
	stage     nepq.Stage
	completed []nepq.Stage

	turns      []nepq.TranscriptTurn
	violations []nepq.Violation
	audioLevel float64
	deviceID   string

	session *nepq.Session
}

func New(opts Options) *Recorder {
	r := &Recorder{
		id:         opts.ID,
		userID:     opts.UserID,
		scenarioID: opts.ScenarioID,
		clock:      opts.Clock,
		scorer:     nepq.DefaultScorer,
		state:      StateIdle,
		stage:      nepq.StageConnection,
	}
	if r.id == uuid.Nil {
		r.id = uuid.New()
	}
	if r.clock == nil {
		r.clock = SystemClock
	}
	if opts.Scorer != nil {
		r.scorer = *opts.Scorer
	}
	return r
}

func (r *Recorder) ID() uuid.UUID     { return r.id }
func (r *Recorder) UserID() uuid.UUID { return r.userID }

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return r.transitionErr("start")
	}
	r.state = StateRecording
	r.runStart = r.clock.Now()
	return nil
}

func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return r.transitionErr("pause")
	}
	r.elapsed += r.clock.Now().Sub(r.runStart)
	r.state = StatePaused
	return nil
}

func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return r.transitionErr("resume")
	}
	r.runStart = r.clock.Now()
	r.state = StateRecording
	return nil
}

// Stop seals the recording and returns its length.
func (r *Recorder) Stop() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateRecording:
		r.elapsed += r.clock.Now().Sub(r.runStart)
	case StatePaused:
	default:
		return 0, r.transitionErr("stop")
	}
	r.state = StateStopped
	r.audioLevel = 0
	return r.elapsed, nil
}

// Reset discards the take and returns to idle.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateIdle
	r.elapsed = 0
	r.stage = nepq.StageConnection
	r.completed = nil
	r.turns = nil
	r.violations = nil
	r.audioLevel = 0
	r.session = nil
}

func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsedLocked()
}

func (r *Recorder) elapsedLocked() time.Duration {
	if r.state == StateRecording {
		return r.elapsed + r.clock.Now().Sub(r.runStart)
	}
	return r.elapsed
}

// SetStage moves the stage in play. Moving forward marks the stage being
// left as completed.
func (r *Recorder) SetStage(stage nepq.Stage) error {
	if err := stage.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutableLocked(); err != nil {
		return err
	}
	if stage > r.stage && !containsStage(r.completed, r.stage) {
		r.completed = append(r.completed, r.stage)
	}
	r.stage = stage
	return nil
}

// AddTurn appends a turn. It must start at or after the end of the last one.
func (r *Recorder) AddTurn(turn nepq.TranscriptTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutableLocked(); err != nil {
		return err
	}
	if r.state == StateIdle {
		return r.transitionErr("add turn")
	}
	next := append(append([]nepq.TranscriptTurn(nil), r.turns...), turn)
	if err := nepq.ValidateTranscript(next); err != nil {
		return err
	}
	r.turns = next
	return nil
}

type TurnPatch struct {
	Content    *string            `json:"content,omitempty"`
	NEPQStage  *nepq.Stage        `json:"nepqStage,omitempty"`
	Confidence *float64           `json:"confidence,omitempty"`
	Analysis   *nepq.TurnAnalysis `json:"analysis,omitempty"`
}

func (r *Recorder) UpdateTurn(id string, patch TurnPatch) (nepq.TranscriptTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutableLocked(); err != nil {
		return nepq.TranscriptTurn{}, err
	}
	idx := -1
	for i := range r.turns {
		if r.turns[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nepq.TranscriptTurn{}, fmt.Errorf("%w: %s", ErrTurnNotFound, id)
	}
	turn := r.turns[idx]
	if patch.Content != nil {
		turn.Content = *patch.Content
	}
	if patch.NEPQStage != nil {
		st := *patch.NEPQStage
		turn.NEPQStage = &st
	}
	if patch.Confidence != nil {
		c := *patch.Confidence
		turn.Confidence = &c
	}
	if patch.Analysis != nil {
		a := *patch.Analysis
		turn.Analysis = &a
	}
	if err := turn.Validate(); err != nil {
		return nepq.TranscriptTurn{}, err
	}
	r.turns[idx] = turn
	return turn, nil
}

// Annotate attaches a violation. Its timestamp may not be later than the
// time recorded so far.
func (r *Recorder) Annotate(v nepq.Violation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutableLocked(); err != nil {
		return err
	}
	if err := v.Validate(r.elapsedLocked().Seconds()); err != nil {
		return err
	}
	r.violations = append(r.violations, v)
	return nil
}

func (r *Recorder) SetAudioLevel(level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("audio level %v outside [0,1]", level)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutableLocked(); err != nil {
		return err
	}
	r.audioLevel = level
	return nil
}

func (r *Recorder) SetDevice(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mutableLocked(); err != nil {
		return err
	}
	r.deviceID = deviceID
	return nil
}

type Snapshot struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	ScenarioID      uuid.UUID             `json:"scenarioId"`
	State           State                 `json:"state"`
	IsRecording     bool                  `json:"isRecording"`
	IsPaused        bool                  `json:"isPaused"`
	Duration        float64               `json:"duration"`
	CurrentStage    nepq.Stage            `json:"currentStage"`
	CompletedStages []nepq.Stage          `json:"completedStages"`
	Progress        float64               `json:"progress"`
	AudioLevel      float64               `json:"audioLevel"`
	DeviceID        string                `json:"deviceId,omitempty"`
	Turns           []nepq.TranscriptTurn `json:"turns"`
	Violations      []nepq.Violation      `json:"violations"`
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID:              r.id,
		UserID:          r.userID,
		ScenarioID:      r.scenarioID,
		State:           r.state,
		IsRecording:     r.state == StateRecording,
		IsPaused:        r.state == StatePaused,
		Duration:        r.elapsedLocked().Seconds(),
		CurrentStage:    r.stage,
		CompletedStages: append([]nepq.Stage{}, r.completed...),
		Progress:        nepq.StageProgress(r.completed),
		AudioLevel:      r.audioLevel,
		DeviceID:        r.deviceID,
		Turns:           append([]nepq.TranscriptTurn{}, r.turns...),
		Violations:      append([]nepq.Violation{}, r.violations...),
	}
}

// Rubric is the reviewer-supplied half of the score; the measured half
// comes from the transcript.
type Rubric struct {
	StageProgression     float64 `json:"stageProgression"`
	TransitionDiscipline float64 `json:"transitionDiscipline"`
	DiscoveryDepth       float64 `json:"discoveryDepth"`
	ObjectionHandling    float64 `json:"objectionHandling"`
	Tonality             float64 `json:"tonality"`
	ActiveListening      float64 `json:"activeListening"`
}

func (rb Rubric) Breakdown() nepq.ScoreBreakdown {
	return nepq.ScoreBreakdown{
		StageProgression:     rb.StageProgression,
		TransitionDiscipline: rb.TransitionDiscipline,
		DiscoveryDepth:       rb.DiscoveryDepth,
		ObjectionHandling:    rb.ObjectionHandling,
		Tonality:             rb.Tonality,
		ActiveListening:      rb.ActiveListening,
	}
}

// Finalize turns a stopped recording into a scored session. Repeated calls
// return the first result.
func (r *Recorder) Finalize(ctx context.Context, rubric Rubric, tags []string) (nepq.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return *r.session, nil
	}
	if r.state != StateStopped {
		return nepq.Session{}, r.transitionErr("finalize")
	}
	state, err := analytics.Analyze(ctx, r.turns)
	if err != nil {
		return nepq.Session{}, err
	}
	breakdown := rubric.Breakdown()
	state.ApplyTechnical(&breakdown)
	if len(tags) == 0 {
		tags = nepq.StageTags(r.turns)
	}
	session, err := r.scorer.Finalize(nepq.FinalizeInput{
		ID:         r.id.String(),
		UserID:     r.userID.String(),
		ScenarioID: r.scenarioID.String(),
		Duration:   r.elapsed.Seconds(),
		Turns:      r.turns,
		Breakdown:  breakdown,
		Analytics:  state.Analytics(),
		Violations: r.violations,
		Tags:       tags,
	})
	if err != nil {
		return nepq.Session{}, err
	}
	r.session = &session
	return session, nil
}

// Session returns the finalized session, if any.
func (r *Recorder) Session() (nepq.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nepq.Session{}, ErrNotFinalized
	}
	return *r.session, nil
}

func (r *Recorder) mutableLocked() error {
	if r.state == StateStopped {
		return ErrSealed
	}
	return nil
}

func (r *Recorder) transitionErr(action string) error {
	if r.state == StateStopped {
		return fmt.Errorf("%w: cannot %s", ErrSealed, action)
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, r.state)
}

func containsStage(stages []nepq.Stage, s nepq.Stage) bool {
	for _, x := range stages {
		if x == s {
			return true
		}
	}
	return false
}
