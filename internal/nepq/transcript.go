package nepq

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type Speaker string

const (
	SpeakerAgent    Speaker = "agent"
	SpeakerProspect Speaker = "prospect"
)

func (s Speaker) Valid() bool { return s == SpeakerAgent || s == SpeakerProspect }

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

type TurnAnalysis struct {
	Sentiment  Sentiment `json:"sentiment"`
	Intent     string    `json:"intent"`
	Keywords   []string  `json:"keywords"`
	Objections []string  `json:"objections,omitempty"`
}

type TranscriptTurn struct {
	ID         string        `json:"id"`
	Speaker    Speaker       `json:"speaker"`
	Content    string        `json:"content"`
	Timestamp  float64       `json:"timestamp"`
	Duration   float64       `json:"duration"`
	NEPQStage  *Stage        `json:"nepqStage,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
	Analysis   *TurnAnalysis `json:"analysis,omitempty"`
}

// End is the exclusive end of the turn in session seconds.
func (t TranscriptTurn) End() float64 { return t.Timestamp + t.Duration }

// Contains reports whether cursor falls inside [Timestamp, End).
func (t TranscriptTurn) Contains(cursor float64) bool {
	return cursor >= t.Timestamp && cursor < t.End()
}

func (t TranscriptTurn) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: turn missing id", ErrMalformedTranscript)
	}
	if !t.Speaker.Valid() {
		return fmt.Errorf("%w: turn %s has unknown speaker %q", ErrMalformedTranscript, t.ID, t.Speaker)
	}
	if math.IsNaN(t.Timestamp) || t.Timestamp < 0 {
		return fmt.Errorf("%w: turn %s has negative timestamp", ErrMalformedTranscript, t.ID)
	}
	if math.IsNaN(t.Duration) || t.Duration <= 0 {
		return fmt.Errorf("%w: turn %s has non-positive duration", ErrMalformedTranscript, t.ID)
	}
	if t.NEPQStage != nil {
		if err := t.NEPQStage.Validate(); err != nil {
			return fmt.Errorf("turn %s: %w", t.ID, err)
		}
	}
	if t.Confidence != nil && !inRange(*t.Confidence, 0, 1) {
		return fmt.Errorf("%w: turn %s confidence %v outside [0,1]", ErrMalformedTranscript, t.ID, *t.Confidence)
	}
	if t.Analysis != nil && t.Analysis.Sentiment != "" && !t.Analysis.Sentiment.Valid() {
		return fmt.Errorf("%w: turn %s has unknown sentiment %q", ErrMalformedTranscript, t.ID, t.Analysis.Sentiment)
	}
	return nil
}

// ValidateTranscript checks every turn and that turns are ordered by
// timestamp without overlap. Turn ids must be unique.
func ValidateTranscript(turns []TranscriptTurn) error {
	ids := make(map[string]struct{}, len(turns))
	for i, t := range turns {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("%w: duplicate turn id %s", ErrMalformedTranscript, t.ID)
		}
		ids[t.ID] = struct{}{}
		if i == 0 {
			continue
		}
		prev := turns[i-1]
		if t.Timestamp < prev.Timestamp {
			return fmt.Errorf("%w: turn %s starts before turn %s", ErrMalformedTranscript, t.ID, prev.ID)
		}
		if t.Timestamp < prev.End() {
			return fmt.Errorf("%w: turn %s overlaps turn %s", ErrMalformedTranscript, t.ID, prev.ID)
		}
	}
	return nil
}

// TranscriptEnd is the latest turn end, or zero for an empty transcript.
func TranscriptEnd(turns []TranscriptTurn) float64 {
	end := 0.0
	for _, t := range turns {
		if e := t.End(); e > end {
			end = e
		}
	}
	return end
}

// CurrentTurn returns the index of the turn playing at cursor, or -1 when
// cursor sits in a gap or outside the transcript. turns must already satisfy
// ValidateTranscript.
func CurrentTurn(turns []TranscriptTurn, cursor float64) int {
	// first turn starting after cursor; the candidate is the one before it
	i := sort.Search(len(turns), func(i int) bool { return turns[i].Timestamp > cursor })
	if i == 0 {
		return -1
	}
	if turns[i-1].Contains(cursor) {
		return i - 1
	}
	return -1
}
