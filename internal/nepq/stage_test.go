package nepq

import (
	"errors"
	"testing"
)

func TestLookupStageCoversAllOrdinals(t *testing.T) {
	for ordinal := 1; ordinal <= StageCount; ordinal++ {
		info, err := LookupStage(ordinal)
		if err != nil {
			t.Fatalf("LookupStage(%d): %v", ordinal, err)
		}
		if info.Name == "" || info.Description == "" {
			t.Fatalf("LookupStage(%d): empty name or description: %+v", ordinal, info)
		}
		if int(info.Ordinal) != ordinal {
			t.Fatalf("LookupStage(%d): ordinal want=%d got=%d", ordinal, ordinal, info.Ordinal)
		}
	}
}

func TestLookupStageOutOfRange(t *testing.T) {
	for _, ordinal := range []int{-1, 0, 9, 100} {
		if _, err := LookupStage(ordinal); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("LookupStage(%d): want ErrOutOfRange got=%v", ordinal, err)
		}
	}
}

func TestMustLookupStagePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("MustLookupStage(0) should panic")
		}
	}()
	MustLookupStage(0)
}

func TestStagesAreOrdered(t *testing.T) {
	stages := Stages()
	if len(stages) != StageCount {
		t.Fatalf("Stages: want=%d got=%d", StageCount, len(stages))
	}
	for i, s := range stages {
		if int(s.Ordinal) != i+1 {
			t.Fatalf("Stages[%d]: ordinal want=%d got=%d", i, i+1, s.Ordinal)
		}
	}
	stages[0].Name = "mutated"
	if MustLookupStage(1).Name != "Connection" {
		t.Fatalf("Stages must return a copy")
	}
	if StageTransition.String() != "Transition" {
		t.Fatalf("String: want=Transition got=%s", StageTransition.String())
	}
}

func TestStatusOf(t *testing.T) {
	completed := []Stage{StageConnection, StageSituation}
	cases := []struct {
		stage Stage
		want  StageStatus
	}{
		{StageConnection, StageStatusCompleted},
		{StageProblemAwareness, StageStatusPassed},
		{StageSolutionAwareness, StageStatusCurrent},
		{StageCommitment, StageStatusUpcoming},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.stage, StageSolutionAwareness, completed); got != tc.want {
			t.Fatalf("StatusOf(%s): want=%s got=%s", tc.stage, tc.want, got)
		}
	}
	if got := StageProgress([]Stage{1, 2, 2, 9}); got != 25 {
		t.Fatalf("StageProgress: want=25 got=%v", got)
	}
}
