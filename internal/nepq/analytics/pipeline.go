// Package analytics derives delivery metrics from a transcript: talk share,
// filler words, pace, interruptions and question/statement counts.
package analytics

import (
	"context"
	"fmt"

	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

// Processor is one stage of the pipeline. It sees every turn in order and
// accumulates into the shared State.
type Processor interface {
	Process(ctx context.Context, turn *nepq.TranscriptTurn, state *State) error
}

// State is the running tally for a single transcript.
type State struct {
	Turns int

	AgentTalkSeconds    float64
	ProspectTalkSeconds float64
	AgentWords          int

	FillerWords       int
	QuestionCount     int
	StatementCount    int
	InterruptionCount int

	lastSpeaker nepq.Speaker
	lastEnd     float64
}

// Analytics renders the tally in the recording shape.
func (s *State) Analytics() nepq.Analytics {
	out := nepq.Analytics{
		FillerWords:       s.FillerWords,
		InterruptionCount: s.InterruptionCount,
		QuestionCount:     s.QuestionCount,
		StatementCount:    s.StatementCount,
	}
	if total := s.AgentTalkSeconds + s.ProspectTalkSeconds; total > 0 {
		out.TalkRatio = round1(s.AgentTalkSeconds / total * 100)
	}
	if s.AgentTalkSeconds > 0 {
		out.Pace = round1(float64(s.AgentWords) / (s.AgentTalkSeconds / 60))
	}
	return out
}

// ApplyTechnical overwrites the measured fields of b with this tally.
func (s *State) ApplyTechnical(b *nepq.ScoreBreakdown) {
	if b == nil {
		return
	}
	if total := s.AgentTalkSeconds + s.ProspectTalkSeconds; total > 0 {
		b.TalkRatio = s.AgentTalkSeconds / total
	}
	b.FillerWords = s.FillerWords
	if sentences := s.QuestionCount + s.StatementCount; sentences > 0 {
		b.QuestionRatio = float64(s.QuestionCount) / float64(sentences)
	}
}

type Pipeline struct {
	log        *logger.Logger
	processors []Processor
}

// NewPipeline wires processors in order; with none it uses DefaultProcessors.
func NewPipeline(log *logger.Logger, processors ...Processor) *Pipeline {
	if len(processors) == 0 {
		processors = DefaultProcessors()
	}
	p := &Pipeline{processors: processors}
	if log != nil {
		p.log = log.With("component", "AnalyticsPipeline")
	}
	return p
}

func DefaultProcessors() []Processor {
	return []Processor{
		NewTalkTimeProcessor(),
		NewFillerWordProcessor(DefaultFillerWords),
		NewSentenceProcessor(),
		NewInterruptionProcessor(DefaultInterruptionGap),
	}
}

// Run validates turns and feeds them through every processor.
func (p *Pipeline) Run(ctx context.Context, turns []nepq.TranscriptTurn) (*State, error) {
	if err := nepq.ValidateTranscript(turns); err != nil {
		return nil, err
	}
	state := &State{}
	for i := range turns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		turn := &turns[i]
		for _, proc := range p.processors {
			if err := proc.Process(ctx, turn, state); err != nil {
				return nil, fmt.Errorf("analytics turn %s: %w", turn.ID, err)
			}
		}
		state.Turns++
		state.lastSpeaker = turn.Speaker
		state.lastEnd = turn.End()
	}
	if p.log != nil {
		p.log.Debug("Transcript analyzed",
			"turns", state.Turns,
			"filler_words", state.FillerWords,
			"questions", state.QuestionCount,
			"interruptions", state.InterruptionCount,
		)
	}
	return state, nil
}

// Analyze runs the default pipeline without logging.
func Analyze(ctx context.Context, turns []nepq.TranscriptTurn) (*State, error) {
	return NewPipeline(nil).Run(ctx, turns)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// Result is a scored breakdown, optionally corrected by a transcript.
type Result struct {
	Score     nepq.Score      `json:"score"`
	Tier      nepq.ScoreTier  `json:"tier"`
	TierColor string          `json:"tierColor"`
	Analytics *nepq.Analytics `json:"analytics,omitempty"`
}

// Score overwrites the technical fields of b with values measured from
// turns, when there are any, and scores the result with scorer.
func Score(ctx context.Context, scorer nepq.Scorer, b nepq.ScoreBreakdown, turns []nepq.TranscriptTurn) (Result, error) {
	var measured *nepq.Analytics
	if len(turns) > 0 {
		state, err := Analyze(ctx, turns)
		if err != nil {
			return Result{}, err
		}
		state.ApplyTechnical(&b)
		a := state.Analytics()
		measured = &a
	}
	overall, err := scorer.OverallForTurns(b, len(turns))
	if err != nil {
		return Result{}, err
	}
	tier := nepq.TierOf(overall)
	return Result{
		Score:     nepq.Score{Overall: overall, Breakdown: b},
		Tier:      tier,
		TierColor: tier.Color(),
		Analytics: measured,
	}, nil
}
