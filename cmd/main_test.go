package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/nepq-coach-backend/internal/nepq/analytics"
)

const scoreJSON = `{
  "breakdown": {
    "stageProgression": 4, "transitionDiscipline": 4, "discoveryDepth": 3,
    "objectionHandling": 4, "tonality": 4, "activeListening": 4,
    "talkRatio": 0.9, "fillerWords": 0, "questionRatio": 0.5
  },
  "transcript": {"turns": [
    {"id": "t1", "speaker": "agent", "content": "Um, how did you hear about us?", "timestamp": 0, "duration": 4},
    {"id": "t2", "speaker": "prospect", "content": "A friend told me.", "timestamp": 5, "duration": 4}
  ]}
}`

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "seed", "score"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("json"))
}

func TestScoreCmdJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(scoreJSON), 0o600))

	out, err := runRoot(t, "", "score", path, "--json")
	require.NoError(t, err)

	var res analytics.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Analytics)
	assert.Equal(t, 1, res.Score.Breakdown.FillerWords)
	assert.InDelta(t, 0.5, res.Score.Breakdown.TalkRatio, 1e-9)
	assert.GreaterOrEqual(t, res.Score.Overall, 0)
	assert.LessOrEqual(t, res.Score.Overall, 100)
}

func TestScoreCmdText(t *testing.T) {
	out, err := runRoot(t, scoreJSON, "score", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "overall:")
	assert.Contains(t, out, "measured:")
}

func TestScoreCmdErrors(t *testing.T) {
	_, err := runRoot(t, "", "score")
	assert.Error(t, err)

	_, err = runRoot(t, "", "score", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read")

	_, err = runRoot(t, "{not json", "score", "-")
	assert.ErrorContains(t, err, "parse score input")

	_, err = runRoot(t, `{"breakdown": {"stageProgression": 7}}`, "score", "-")
	assert.ErrorContains(t, err, "invalid score")
}
