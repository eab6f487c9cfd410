package analytics

import (
	"context"
	"strings"
	"unicode"

	"github.com/yungbote/nepq-coach-backend/internal/nepq"
)

// TalkTimeProcessor splits spoken time and agent word count by speaker.
type TalkTimeProcessor struct{}

func NewTalkTimeProcessor() *TalkTimeProcessor { return &TalkTimeProcessor{} }

func (p *TalkTimeProcessor) Process(_ context.Context, turn *nepq.TranscriptTurn, state *State) error {
	switch turn.Speaker {
	case nepq.SpeakerAgent:
		state.AgentTalkSeconds += turn.Duration
		state.AgentWords += len(words(turn.Content))
	case nepq.SpeakerProspect:
		state.ProspectTalkSeconds += turn.Duration
	}
	return nil
}

var DefaultFillerWords = []string{
	"um", "uh", "er", "ah", "like", "basically", "actually", "literally",
	"you know", "kind of", "sort of", "i mean",
}

// FillerWordProcessor counts filler words and phrases in agent turns.
type FillerWordProcessor struct {
	phrases [][]string
}

func NewFillerWordProcessor(fillers []string) *FillerWordProcessor {
	p := &FillerWordProcessor{}
	for _, f := range fillers {
		if toks := words(f); len(toks) > 0 {
			p.phrases = append(p.phrases, toks)
		}
	}
	return p
}

func (p *FillerWordProcessor) Process(_ context.Context, turn *nepq.TranscriptTurn, state *State) error {
	if turn.Speaker != nepq.SpeakerAgent {
		return nil
	}
	toks := words(turn.Content)
	for i := 0; i < len(toks); {
		n := p.matchAt(toks, i)
		if n == 0 {
			i++
			continue
		}
		state.FillerWords++
		i += n
	}
	return nil
}

// matchAt returns the token length of the longest filler starting at i.
func (p *FillerWordProcessor) matchAt(toks []string, i int) int {
	best := 0
	for _, phrase := range p.phrases {
		if len(phrase) <= best || i+len(phrase) > len(toks) {
			continue
		}
		match := true
		for j, w := range phrase {
			if toks[i+j] != w {
				match = false
				break
			}
		}
		if match {
			best = len(phrase)
		}
	}
	return best
}

// SentenceProcessor classifies agent sentences as questions or statements.
type SentenceProcessor struct{}

func NewSentenceProcessor() *SentenceProcessor { return &SentenceProcessor{} }

func (p *SentenceProcessor) Process(_ context.Context, turn *nepq.TranscriptTurn, state *State) error {
	if turn.Speaker != nepq.SpeakerAgent {
		return nil
	}
	for _, s := range sentences(turn.Content) {
		if strings.HasSuffix(s, "?") {
			state.QuestionCount++
		} else {
			state.StatementCount++
		}
	}
	return nil
}

const DefaultInterruptionGap = 0.25

// InterruptionProcessor counts speaker changes that start within gap
// seconds of the previous turn ending.
type InterruptionProcessor struct {
	gap float64
}

func NewInterruptionProcessor(gap float64) *InterruptionProcessor {
	if gap <= 0 {
		gap = DefaultInterruptionGap
	}
	return &InterruptionProcessor{gap: gap}
}

func (p *InterruptionProcessor) Process(_ context.Context, turn *nepq.TranscriptTurn, state *State) error {
	if state.Turns == 0 || state.lastSpeaker == turn.Speaker {
		return nil
	}
	if turn.Timestamp-state.lastEnd < p.gap {
		state.InterruptionCount++
	}
	return nil
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// sentences splits on terminal punctuation, keeping the terminator. A
// trailing fragment without punctuation counts as a sentence.
func sentences(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			if frag := strings.TrimSpace(s[start : i+1]); len(frag) > 1 {
				out = append(out, frag)
			}
			start = i + 1
		}
	}
	if frag := strings.TrimSpace(s[start:]); frag != "" {
		out = append(out, frag)
	}
	return out
}
