package nepq

import (
	"fmt"
	"math"
)

type Transcript struct {
	Turns []TranscriptTurn `json:"turns"`
}

// Analytics are the delivery metrics shown on a recording. TalkRatio here
// is a percentage, unlike ScoreBreakdown.TalkRatio.
type Analytics struct {
	TalkRatio         float64 `json:"talkRatio"`
	FillerWords       int     `json:"fillerWords"`
	Pace              float64 `json:"pace"`
	InterruptionCount int     `json:"interruptionCount"`
	QuestionCount     int     `json:"questionCount"`
	StatementCount    int     `json:"statementCount"`
}

// Session is one finished role-play. It owns its turns and score; stage
// references are ordinals only.
type Session struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	ScenarioID string      `json:"scenarioId"`
	Duration   float64     `json:"duration"`
	Transcript Transcript  `json:"transcript"`
	Score      Score       `json:"score"`
	Analytics  Analytics   `json:"analytics"`
	Violations []Violation `json:"violations,omitempty"`
	Tags       []string    `json:"tags"`
}

func (s Session) Validate() error {
	if math.IsNaN(s.Duration) || s.Duration < 0 {
		return fmt.Errorf("%w: negative session duration", ErrMalformedTranscript)
	}
	if err := ValidateTranscript(s.Transcript.Turns); err != nil {
		return err
	}
	if end := TranscriptEnd(s.Transcript.Turns); s.Duration < end {
		return fmt.Errorf("%w: duration %v shorter than last turn end %v", ErrMalformedTranscript, s.Duration, end)
	}
	for _, v := range s.Violations {
		if err := v.Validate(s.Duration); err != nil {
			return err
		}
	}
	if err := s.Score.Breakdown.Validate(); err != nil {
		return err
	}
	if s.Score.Overall < 0 || s.Score.Overall > 100 {
		return fmt.Errorf("%w: overall %d outside [0,100]", ErrInvalidScore, s.Score.Overall)
	}
	return nil
}

// FinalizeInput carries everything needed to seal a session.
type FinalizeInput struct {
	ID         string
	UserID     string
	ScenarioID string
	Duration   float64
	Turns      []TranscriptTurn
	Breakdown  ScoreBreakdown
	Analytics  Analytics
	Violations []Violation
	Tags       []string
}

// Finalize validates the transcript first and only then computes the overall
// score. The returned session does not alias the input slices.
func (s Scorer) Finalize(in FinalizeInput) (Session, error) {
	turns := cloneTurns(in.Turns)
	if err := ValidateTranscript(turns); err != nil {
		return Session{}, err
	}
	duration := in.Duration
	if end := TranscriptEnd(turns); duration < end {
		duration = end
	}
	overall, err := s.OverallForTurns(in.Breakdown, len(turns))
	if err != nil {
		return Session{}, err
	}
	out := Session{
		ID:         in.ID,
		UserID:     in.UserID,
		ScenarioID: in.ScenarioID,
		Duration:   duration,
		Transcript: Transcript{Turns: turns},
		Score:      Score{Overall: overall, Breakdown: in.Breakdown},
		Analytics:  in.Analytics,
		Violations: append([]Violation(nil), in.Violations...),
		Tags:       append([]string{}, in.Tags...),
	}
	if err := out.Validate(); err != nil {
		return Session{}, err
	}
	return out, nil
}

// Finalize seals a session with DefaultScorer.
func Finalize(in FinalizeInput) (Session, error) {
	return DefaultScorer.Finalize(in)
}

// StageTags names the distinct stages touched by turns, in stage order.
func StageTags(turns []TranscriptTurn) []string {
	var seen [StageCount + 1]bool
	for _, t := range turns {
		if t.NEPQStage != nil && t.NEPQStage.Valid() {
			seen[*t.NEPQStage] = true
		}
	}
	tags := make([]string, 0, StageCount)
	for s := StageConnection; s <= StageCommitment; s++ {
		if seen[s] {
			tags = append(tags, s.String())
		}
	}
	return tags
}

func cloneTurns(in []TranscriptTurn) []TranscriptTurn {
	out := make([]TranscriptTurn, len(in))
	for i, t := range in {
		if t.NEPQStage != nil {
			st := *t.NEPQStage
			t.NEPQStage = &st
		}
		if t.Confidence != nil {
			c := *t.Confidence
			t.Confidence = &c
		}
		if t.Analysis != nil {
			a := *t.Analysis
			a.Keywords = append([]string(nil), a.Keywords...)
			a.Objections = append([]string(nil), a.Objections...)
			t.Analysis = &a
		}
		out[i] = t
	}
	return out
}
