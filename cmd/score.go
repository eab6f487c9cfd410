package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/nepq/analytics"
)

type scoreInput struct {
	Breakdown  nepq.ScoreBreakdown `json:"breakdown"`
	Transcript *nepq.Transcript    `json:"transcript"`
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <file>",
		Short: "Score a breakdown and optional transcript from a JSON file",
		Long: `Score reads {"breakdown": {...}, "transcript": {"turns": [...]}} from
file ("-" for stdin) and prints the overall score and tier. When a
transcript is present its talk ratio, filler words and question ratio
replace the ones in the breakdown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := scoreFile(cmd, raw)
			if err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			return printScore(cmd.OutOrStdout(), res)
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func scoreFile(cmd *cobra.Command, raw []byte) (analytics.Result, error) {
	var in scoreInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return analytics.Result{}, fmt.Errorf("parse score input: %w", err)
	}
	var turns []nepq.TranscriptTurn
	if in.Transcript != nil {
		turns = in.Transcript.Turns
	}
	return analytics.Score(withContext(cmd), nepq.DefaultScorer, in.Breakdown, turns)
}

func printScore(w io.Writer, res analytics.Result) error {
	b := res.Score.Breakdown
	_, err := fmt.Fprintf(w, `overall:  %d (%s)
rubric:   stage=%.1f transition=%.1f discovery=%.1f objection=%.1f tonality=%.1f listening=%.1f
delivery: talk=%.0f%% fillers=%d questions=%.0f%%
`,
		res.Score.Overall, res.Tier,
		b.StageProgression, b.TransitionDiscipline, b.DiscoveryDepth,
		b.ObjectionHandling, b.Tonality, b.ActiveListening,
		b.TalkRatio*100, b.FillerWords, b.QuestionRatio*100,
	)
	if err != nil || res.Analytics == nil {
		return err
	}
	a := res.Analytics
	_, err = fmt.Fprintf(w, "measured: pace=%.0f wpm interruptions=%d\n", a.Pace, a.InterruptionCount)
	return err
}
