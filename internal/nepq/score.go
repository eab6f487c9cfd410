package nepq

import (
	"fmt"
	"math"
)

const (
	RubricMin = 0.0
	RubricMax = 5.0

	disciplineWeight    = 50.0
	communicationWeight = 30.0
	technicalWeight     = 20.0
)

// ScoreBreakdown is the per-session rubric. The first six fields are coach
// ratings on a 0..5 scale; the last three are measured from the transcript.
type ScoreBreakdown struct {
	StageProgression     float64 `json:"stageProgression"`
	TransitionDiscipline float64 `json:"transitionDiscipline"`
	DiscoveryDepth       float64 `json:"discoveryDepth"`

	ObjectionHandling float64 `json:"objectionHandling"`
	Tonality          float64 `json:"tonality"`
	ActiveListening   float64 `json:"activeListening"`

	TalkRatio     float64 `json:"talkRatio"`
	FillerWords   int     `json:"fillerWords"`
	QuestionRatio float64 `json:"questionRatio"`
}

type Score struct {
	Overall   int            `json:"overall"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

func (b ScoreBreakdown) Validate() error {
	rubric := []struct {
		name string
		v    float64
	}{
		{"stageProgression", b.StageProgression},
		{"transitionDiscipline", b.TransitionDiscipline},
		{"discoveryDepth", b.DiscoveryDepth},
		{"objectionHandling", b.ObjectionHandling},
		{"tonality", b.Tonality},
		{"activeListening", b.ActiveListening},
	}
	for _, r := range rubric {
		if !inRange(r.v, RubricMin, RubricMax) {
			return fmt.Errorf("%w: %s=%v outside [%v,%v]", ErrInvalidScore, r.name, r.v, RubricMin, RubricMax)
		}
	}
	if !inRange(b.TalkRatio, 0, 1) {
		return fmt.Errorf("%w: talkRatio=%v outside [0,1]", ErrInvalidScore, b.TalkRatio)
	}
	if b.FillerWords < 0 {
		return fmt.Errorf("%w: fillerWords=%d is negative", ErrInvalidScore, b.FillerWords)
	}
	if !inRange(b.QuestionRatio, 0, 1) {
		return fmt.Errorf("%w: questionRatio=%v outside [0,1]", ErrInvalidScore, b.QuestionRatio)
	}
	return nil
}

// Scorer holds the tunables for the technical component. The zero value is
// not useful; start from DefaultScorer.
type Scorer struct {
	// IdealTalkRatio is the agent talk share at or below which the talk term is full.
	IdealTalkRatio float64
	// IdealQuestionRatio is the question share at or above which the question term is full.
	IdealQuestionRatio float64
	// FillerBudget is the filler count that zeroes the filler term when the turn count is unknown.
	FillerBudget float64
	// FillerWordsPerTurn scales the filler budget when the turn count is known.
	FillerWordsPerTurn float64
}

// DefaultScorer is the scorer used by the API, the CLI and the seed.
var DefaultScorer = Scorer{
	IdealTalkRatio:     0.5,
	IdealQuestionRatio: 0.3,
	FillerBudget:       20,
	FillerWordsPerTurn: 0.5,
}

// Overall aggregates b into a 0..100 score using DefaultScorer.
func Overall(b ScoreBreakdown) (int, error) {
	return DefaultScorer.Overall(b)
}

func (s Scorer) Overall(b ScoreBreakdown) (int, error) {
	return s.OverallForTurns(b, 0)
}

// OverallForTurns is Overall with the filler budget sized to turnCount.
// A turnCount of zero falls back to the fixed budget.
func (s Scorer) OverallForTurns(b ScoreBreakdown, turnCount int) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	discipline := (b.StageProgression + b.TransitionDiscipline + b.DiscoveryDepth) / (3 * RubricMax)
	communication := (b.ObjectionHandling + b.Tonality + b.ActiveListening) / (3 * RubricMax)
	technical := s.Technical(b, turnCount)

	raw := discipline*disciplineWeight + communication*communicationWeight + technical*technicalWeight
	overall := int(math.Round(raw))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}
	return overall, nil
}

// Technical folds talk ratio, filler density and question ratio into [0,1]
// as the mean of three terms, each monotonic in the favourable direction.
func (s Scorer) Technical(b ScoreBreakdown, turnCount int) float64 {
	return (s.talkTerm(b.TalkRatio) + s.fillerTerm(b.FillerWords, turnCount) + s.questionTerm(b.QuestionRatio)) / 3
}

func (s Scorer) talkTerm(ratio float64) float64 {
	ideal := s.IdealTalkRatio
	if ideal <= 0 || ideal >= 1 {
		ideal = DefaultScorer.IdealTalkRatio
	}
	if ratio <= ideal {
		return 1
	}
	return clamp01((1 - ratio) / (1 - ideal))
}

func (s Scorer) fillerTerm(fillers, turnCount int) float64 {
	budget := s.FillerBudget
	if turnCount > 0 && s.FillerWordsPerTurn > 0 {
		budget = s.FillerWordsPerTurn * float64(turnCount)
	}
	if budget <= 0 {
		budget = DefaultScorer.FillerBudget
	}
	return clamp01(1 - float64(fillers)/budget)
}

func (s Scorer) questionTerm(ratio float64) float64 {
	ideal := s.IdealQuestionRatio
	if ideal <= 0 {
		ideal = DefaultScorer.IdealQuestionRatio
	}
	return clamp01(ratio / ideal)
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
