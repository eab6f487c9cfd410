package nepq

import (
	"errors"
	"testing"
)

func stagePtr(s Stage) *Stage { return &s }

func twoTurns() []TranscriptTurn {
	return []TranscriptTurn{
		{ID: "1", Speaker: SpeakerAgent, Content: "Hi there", Timestamp: 0, Duration: 5},
		{ID: "2", Speaker: SpeakerProspect, Content: "Hello", Timestamp: 5, Duration: 4},
	}
}

func TestCurrentTurn(t *testing.T) {
	turns := twoTurns()
	cases := []struct {
		cursor float64
		want   int
	}{
		{0, 0},
		{3, 0},
		{4.9999, 0},
		{5, 1},
		{7, 1},
		{9, -1},
		{-1, -1},
	}
	for _, tc := range cases {
		if got := CurrentTurn(turns, tc.cursor); got != tc.want {
			t.Fatalf("CurrentTurn(%v): want=%d got=%d", tc.cursor, tc.want, got)
		}
	}
}

func TestCurrentTurnInGap(t *testing.T) {
	turns := []TranscriptTurn{
		{ID: "1", Speaker: SpeakerAgent, Timestamp: 2.5, Duration: 6.2},
		{ID: "2", Speaker: SpeakerProspect, Timestamp: 8.7, Duration: 4.1},
	}
	if got := CurrentTurn(turns, 1); got != -1 {
		t.Fatalf("before first turn: want=-1 got=%d", got)
	}
	if got := CurrentTurn(turns, 8.71); got != 1 {
		t.Fatalf("inside second turn: want=1 got=%d", got)
	}
	if got := CurrentTurn(nil, 0); got != -1 {
		t.Fatalf("empty transcript: want=-1 got=%d", got)
	}
}

func TestValidateTranscript(t *testing.T) {
	if err := ValidateTranscript(twoTurns()); err != nil {
		t.Fatalf("ValidateTranscript: %v", err)
	}

	overlap := twoTurns()
	overlap[1].Timestamp = 4
	if err := ValidateTranscript(overlap); !errors.Is(err, ErrMalformedTranscript) {
		t.Fatalf("overlap: want ErrMalformedTranscript got=%v", err)
	}

	reversed := []TranscriptTurn{twoTurns()[1], twoTurns()[0]}
	if err := ValidateTranscript(reversed); !errors.Is(err, ErrMalformedTranscript) {
		t.Fatalf("reversed: want ErrMalformedTranscript got=%v", err)
	}

	zeroDuration := twoTurns()
	zeroDuration[0].Duration = 0
	if err := ValidateTranscript(zeroDuration); !errors.Is(err, ErrMalformedTranscript) {
		t.Fatalf("zero duration: want ErrMalformedTranscript got=%v", err)
	}

	badSpeaker := twoTurns()
	badSpeaker[0].Speaker = "narrator"
	if err := ValidateTranscript(badSpeaker); !errors.Is(err, ErrMalformedTranscript) {
		t.Fatalf("bad speaker: want ErrMalformedTranscript got=%v", err)
	}

	badStage := twoTurns()
	badStage[0].NEPQStage = stagePtr(0)
	if err := ValidateTranscript(badStage); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("bad stage: want ErrOutOfRange got=%v", err)
	}

	dup := twoTurns()
	dup[1].ID = "1"
	if err := ValidateTranscript(dup); !errors.Is(err, ErrMalformedTranscript) {
		t.Fatalf("duplicate id: want ErrMalformedTranscript got=%v", err)
	}
}
