package nepq

import (
	"fmt"
)

// Stage is the 1-based ordinal of a NEPQ stage.
type Stage int

const (
	StageConnection Stage = iota + 1
	StageSituation
	StageProblemAwareness
	StageSolutionAwareness
	StageConsequence
	StageTransition
	StagePresentation
	StageCommitment
)

// StageCount is the number of NEPQ stages.
const StageCount = 8

// StageInfo is one row of the stage table.
type StageInfo struct {
	Ordinal     Stage  `json:"ordinal"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var stageTable = [StageCount]StageInfo{
	{Ordinal: StageConnection, Name: "Connection", Description: "Build rapport and find common ground"},
	{Ordinal: StageSituation, Name: "Situation", Description: "Understand current circumstances"},
	{Ordinal: StageProblemAwareness, Name: "Problem Awareness", Description: "Uncover pain points naturally"},
	{Ordinal: StageSolutionAwareness, Name: "Solution Awareness", Description: "Explore what they've tried"},
	{Ordinal: StageConsequence, Name: "Consequence", Description: "Discuss impact of inaction"},
	{Ordinal: StageTransition, Name: "Transition", Description: "Bridge to presentation (critical: no early presenting)"},
	{Ordinal: StagePresentation, Name: "Presentation", Description: "Share solution when earned"},
	{Ordinal: StageCommitment, Name: "Commitment", Description: "Secure next steps"},
}

func (s Stage) Valid() bool {
	return s >= StageConnection && s <= StageCommitment
}

func (s Stage) Validate() error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrOutOfRange, int(s))
	}
	return nil
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageTable[s-1].Name
}

// LookupStage returns the canonical name and description for ordinal.
func LookupStage(ordinal int) (StageInfo, error) {
	s := Stage(ordinal)
	if err := s.Validate(); err != nil {
		return StageInfo{}, err
	}
	return stageTable[s-1], nil
}

// MustLookupStage is LookupStage for callers holding a known-good ordinal.
// The stage set is closed, so a bad ordinal here is a programming error.
func MustLookupStage(ordinal int) StageInfo {
	info, err := LookupStage(ordinal)
	if err != nil {
		panic(err)
	}
	return info
}

// Stages returns the stage table in progression order.
func Stages() []StageInfo {
	out := make([]StageInfo, StageCount)
	copy(out, stageTable[:])
	return out
}

// StageStatus is how a stage renders on the progress rail.
type StageStatus string

const (
	StageStatusUpcoming  StageStatus = "upcoming"
	StageStatusCurrent   StageStatus = "current"
	StageStatusCompleted StageStatus = "completed"
	StageStatusPassed    StageStatus = "passed"
)

// StatusOf classifies stage relative to the stage in progress and the
// stages already marked complete.
func StatusOf(stage, current Stage, completed []Stage) StageStatus {
	if stage == current {
		return StageStatusCurrent
	}
	for _, c := range completed {
		if c == stage {
			return StageStatusCompleted
		}
	}
	if stage < current {
		return StageStatusPassed
	}
	return StageStatusUpcoming
}

// StageProgress is the share of distinct valid stages completed, as a
// percentage in [0,100].
func StageProgress(completed []Stage) float64 {
	seen := make(map[Stage]struct{}, len(completed))
	for _, c := range completed {
		if c.Valid() {
			seen[c] = struct{}{}
		}
	}
	return float64(len(seen)) / StageCount * 100
}
