package nepq

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func sampleInput() FinalizeInput {
	conf := 0.95
	turns := []TranscriptTurn{
		{ID: "1", Speaker: SpeakerAgent, Content: "Hi there! Thanks for taking my call.", Timestamp: 2.5, Duration: 6.2, NEPQStage: stagePtr(StageConnection), Confidence: &conf},
		{ID: "2", Speaker: SpeakerProspect, Content: "I wasn't expecting a call today.", Timestamp: 8.7, Duration: 4.1,
			Analysis: &TurnAnalysis{Sentiment: SentimentNeutral, Intent: "hesitation", Keywords: []string{"call"}}},
		{ID: "3", Speaker: SpeakerAgent, Content: "What made you fill out the form?", Timestamp: 13, Duration: 3, NEPQStage: stagePtr(StageSituation)},
	}
	return FinalizeInput{
		ID:         "rec-1",
		UserID:     "user-1",
		ScenarioID: "scenario-1",
		Duration:   10,
		Turns:      turns,
		Breakdown:  perfectBreakdown(),
		Analytics:  Analytics{TalkRatio: 45, FillerWords: 2, Pace: 150, QuestionCount: 1, StatementCount: 2},
		Violations: []Violation{{Stage: StageSituation, Type: ViolationMissedDiscovery, Severity: SeverityLow, Timestamp: 14}},
		Tags:       StageTags(turns),
	}
}

func TestFinalizeExtendsDurationAndScores(t *testing.T) {
	s, err := Finalize(sampleInput())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if s.Duration != 16 {
		t.Fatalf("Duration: want=16 got=%v", s.Duration)
	}
	// two fillers over three turns exhaust the filler budget: 50 + 30 + 13.33
	if s.Score.Overall != 93 {
		t.Fatalf("Overall: want=93 got=%d", s.Score.Overall)
	}
	if !reflect.DeepEqual(s.Tags, []string{"Connection", "Situation"}) {
		t.Fatalf("Tags: got=%v", s.Tags)
	}
}

func TestFinalizeDoesNotAliasInput(t *testing.T) {
	in := sampleInput()
	s, err := Finalize(in)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	*in.Turns[0].NEPQStage = StageCommitment
	in.Turns[1].Content = "edited"
	if *s.Transcript.Turns[0].NEPQStage != StageConnection || s.Transcript.Turns[1].Content == "edited" {
		t.Fatalf("finalized session shares memory with its input")
	}
}

func TestFinalizeRejectsBadTranscriptBeforeScoring(t *testing.T) {
	in := sampleInput()
	in.Turns[2].Timestamp = 9
	in.Breakdown.Tonality = 99
	if _, err := Finalize(in); !errors.Is(err, ErrMalformedTranscript) {
		t.Fatalf("Finalize: want ErrMalformedTranscript got=%v", err)
	}
}

func TestFinalizeRejectsLateViolation(t *testing.T) {
	in := sampleInput()
	in.Violations[0].Timestamp = 120
	if _, err := Finalize(in); !errors.Is(err, ErrInvalidViolation) {
		t.Fatalf("Finalize: want ErrInvalidViolation got=%v", err)
	}
}

func TestSessionJSONRoundTrip(t *testing.T) {
	s, err := Finalize(sampleInput())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Session
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(s, back) {
		t.Fatalf("round trip mismatch:\nwant=%+v\ngot=%+v", s, back)
	}

	var shape map[string]any
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	for _, key := range []string{"id", "userId", "scenarioId", "duration", "transcript", "score", "analytics", "tags"} {
		if _, ok := shape[key]; !ok {
			t.Fatalf("missing key %q in %s", key, raw)
		}
	}
	turn := shape["transcript"].(map[string]any)["turns"].([]any)[0].(map[string]any)
	if turn["nepqStage"] != float64(1) {
		t.Fatalf("nepqStage should serialize as a small integer, got=%v", turn["nepqStage"])
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatDuration(65); got != "1:05" {
		t.Fatalf("FormatDuration(65): got=%s", got)
	}
	if got := FormatDuration(3725); got != "1:02:05" {
		t.Fatalf("FormatDuration(3725): got=%s", got)
	}
	if got := StageColor(StageCommitment); got != "emerald" {
		t.Fatalf("StageColor(8): got=%s", got)
	}
	if got := StageColor(42); got != "blue" {
		t.Fatalf("StageColor(42): got=%s", got)
	}
	if got := TierOf(89); got != ScoreTierGood || got.Color() != "green" {
		t.Fatalf("TierOf(89): got=%s", got)
	}
	if got := TierOf(12).Color(); got != "red" {
		t.Fatalf("TierOf(12).Color: got=%s", got)
	}
}
