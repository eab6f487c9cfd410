package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
)

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	catalog, err := LoadSeedCatalog(log)
	if err != nil {
		t.Fatalf("LoadSeedCatalog: %v", err)
	}
	userRepo := repos.NewUserRepo(db, log)
	recordingRepo := repos.NewRecordingRepo(db, log)
	svc := NewSeedService(db, log, catalog,
		repos.NewOrganizationRepo(db, log),
		repos.NewTeamRepo(db, log),
		userRepo,
		repos.NewPersonaRepo(db, log),
		repos.NewScenarioRepo(db, log),
		recordingRepo,
		nepq.DefaultScorer,
	)
	ctx := context.Background()

	first, err := svc.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if first.Users != 5 || first.Teams != 2 || first.Personas != 3 || first.Scenarios != 4 || first.Recordings != 1 {
		t.Fatalf("first report: %+v", first)
	}
	second, err := svc.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if second.Recordings != 0 || second.Organization != first.Organization {
		t.Fatalf("second report: %+v", second)
	}

	var users, recordings int64
	db.Model(&types.User{}).Count(&users)
	db.Model(&types.Recording{}).Count(&recordings)
	if users != 5 || recordings != 1 {
		t.Fatalf("row counts: users=%d recordings=%d", users, recordings)
	}

	var team types.Team
	if err := db.First(&team, "id = ?", SeedID("team", "team1")).Error; err != nil {
		t.Fatalf("load team1: %v", err)
	}
	if team.CoachID == nil || *team.CoachID != SeedID("user", "coach@cvj.com") {
		t.Fatalf("team1 coach: got=%v", team.CoachID)
	}

	rows, err := recordingRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{SeedID("recording", "recording1")})
	if err != nil || len(rows) != 1 {
		t.Fatalf("seeded recording: rows=%d err=%v", len(rows), err)
	}
	view, err := recordingToView(rows[0])
	if err != nil {
		t.Fatalf("recordingToView: %v", err)
	}
	want, err := nepq.DefaultScorer.OverallForTurns(view.Score.Breakdown, len(view.Transcript.Turns))
	if err != nil {
		t.Fatalf("OverallForTurns: %v", err)
	}
	if view.Score.Overall != want || rows[0].OverallScore != want {
		t.Fatalf("seeded overall: want=%d got=%d/%d", want, view.Score.Overall, rows[0].OverallScore)
	}
	if view.UserID != SeedID("user", "agent@cvj.com") {
		t.Fatalf("seeded owner: got=%s", view.UserID)
	}

	auth := NewAuthService(db, log, userRepo, repos.NewUserTokenRepo(db, log), "secret", time.Minute, time.Hour)
	if _, _, err := auth.LoginUser(ctx, "agent@cvj.com", catalog.DefaultPassword); err != nil {
		t.Fatalf("login as seeded agent: %v", err)
	}
}

func TestSeedIDStable(t *testing.T) {
	if SeedID("user", "Agent@CVJ.com") != SeedID("user", "agent@cvj.com") {
		t.Fatalf("SeedID is case sensitive")
	}
	if SeedID("user", "x") == SeedID("team", "x") {
		t.Fatalf("SeedID ignores kind")
	}
}

func TestLoadSeedCatalogFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := []byte("defaultPassword: pw\norganization:\n  key: acme\n  name: Acme\n  plan: starter\n  seats: 3\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	t.Setenv(seedCatalogEnv, path)

	c, err := LoadSeedCatalog(nil)
	if err != nil {
		t.Fatalf("LoadSeedCatalog: %v", err)
	}
	if c.Organization.Key != "acme" || c.Organization.Seats != 3 {
		t.Fatalf("catalog: %+v", c.Organization)
	}

	if _, err := ParseSeedCatalog([]byte("organization:\n  key: acme\n")); err == nil {
		t.Fatalf("missing password: want error")
	}
	if _, err := ParseSeedCatalog([]byte("defaultPassword: pw\n")); err == nil {
		t.Fatalf("missing organization key: want error")
	}
}
