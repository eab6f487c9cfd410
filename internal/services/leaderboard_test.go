package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
)

func TestLeaderboardRanking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	team := testutil.SeedTeam(t, ctx, f.db, f.org.ID, "Alpha")

	a := f.user(t, "a@example.com", types.RoleAgent)
	b := f.user(t, "b@example.com", types.RoleAgent)
	c := f.user(t, "c@example.com", types.RoleAgent)
	coach := f.user(t, "coach@example.com", types.RoleCoach)
	for _, u := range []*types.User{a, b} {
		if err := f.db.Model(u).Update("team_id", team.ID).Error; err != nil {
			t.Fatalf("assign team: %v", err)
		}
	}

	testutil.SeedRecording(t, ctx, f.db, a.ID, f.scenario.ID, 80)
	testutil.SeedRecording(t, ctx, f.db, a.ID, f.scenario.ID, 70)
	testutil.SeedRecording(t, ctx, f.db, b.ID, f.scenario.ID, 75)
	old := testutil.SeedRecording(t, ctx, f.db, c.ID, f.scenario.ID, 92)
	testutil.SeedRecording(t, ctx, f.db, c.ID, f.scenario.ID, 90)

	svc := NewLeaderboardService(f.log, f.recordings, f.users, f.teams)
	dbc := dbctx.Context{Ctx: asUser(coach)}

	board, err := svc.Get(dbc, LeaderboardQuery{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if board.Period != PeriodAll || len(board.Entries) != 3 {
		t.Fatalf("board: period=%s entries=%d", board.Period, len(board.Entries))
	}
	wantOrder := []struct {
		id   uuid.UUID
		rank int
		avg  float64
	}{
		{c.ID, 1, 91},
		{a.ID, 2, 75},
		{b.ID, 2, 75},
	}
	for i, w := range wantOrder {
		e := board.Entries[i]
		if e.UserID != w.id || e.Rank != w.rank || e.AverageScore != w.avg {
			t.Fatalf("entry %d: want=%v/%d/%v got=%v/%d/%v", i, w.id, w.rank, w.avg, e.UserID, e.Rank, e.AverageScore)
		}
	}
	if board.Entries[0].BestScore != 92 || board.Entries[0].Tier != nepq.ScoreTierExcellent {
		t.Fatalf("leader: best=%d tier=%s", board.Entries[0].BestScore, board.Entries[0].Tier)
	}
	if board.Entries[1].TeamName != "Alpha" || board.Entries[1].RecordingCount != 2 {
		t.Fatalf("team entry: team=%q count=%d", board.Entries[1].TeamName, board.Entries[1].RecordingCount)
	}

	board, err = svc.Get(dbc, LeaderboardQuery{TeamID: team.ID})
	if err != nil {
		t.Fatalf("Get team: %v", err)
	}
	if len(board.Entries) != 2 || board.Entries[0].Rank != 1 || board.Entries[1].Rank != 1 {
		t.Fatalf("team board: %+v", board.Entries)
	}

	if err := f.db.Model(old).Update("created_at", time.Now().AddDate(0, 0, -30)).Error; err != nil {
		t.Fatalf("age recording: %v", err)
	}
	board, err = svc.Get(dbc, LeaderboardQuery{Period: "week", Limit: 1})
	if err != nil {
		t.Fatalf("Get week: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].UserID != c.ID || board.Entries[0].AverageScore != 90 {
		t.Fatalf("week board: %+v", board.Entries)
	}
}

func TestLeaderboardRejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	agent := f.user(t, "agent@example.com", types.RoleAgent)
	svc := NewLeaderboardService(f.log, f.recordings, f.users, f.teams)
	dbc := dbctx.Context{Ctx: asUser(agent)}

	if _, err := svc.Get(dbc, LeaderboardQuery{Period: "decade"}); apiCode(err) != "invalid_period" {
		t.Fatalf("bad period: want=invalid_period got=%v", err)
	}
	if _, err := svc.Get(dbc, LeaderboardQuery{TeamID: uuid.New()}); apiCode(err) != "team_not_found" {
		t.Fatalf("unknown team: want=team_not_found got=%v", err)
	}

	board, err := svc.Get(dbc, LeaderboardQuery{Period: "MONTH"})
	if err != nil {
		t.Fatalf("empty board: %v", err)
	}
	if board.Period != PeriodMonth || len(board.Entries) != 0 {
		t.Fatalf("empty board: %+v", board)
	}
}

func TestAssignRanksCompetition(t *testing.T) {
	entries := []*LeaderboardEntry{
		{AverageScore: 90}, {AverageScore: 85}, {AverageScore: 85}, {AverageScore: 80},
	}
	assignRanks(entries)
	want := []int{1, 2, 2, 4}
	for i, e := range entries {
		if e.Rank != want[i] {
			t.Fatalf("rank %d: want=%d got=%d", i, want[i], e.Rank)
		}
	}
}
