package training

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
)

func TestScenarioRepoList(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewScenarioRepo(db, testutil.Logger(t))

	org := testutil.SeedOrganization(t, ctx, tx)
	persona := testutil.SeedPersona(t, ctx, tx, org.ID)
	phone := testutil.SeedScenario(t, ctx, tx, org.ID, persona.ID, types.CategoryPhone)
	zoom := testutil.SeedScenario(t, ctx, tx, org.ID, persona.ID, types.CategoryZoom)

	inactive := &types.Scenario{
		Name:           "Retired",
		Category:       types.CategoryInHome,
		PersonaID:      persona.ID,
		NEPQStages:     datatypes.JSON([]byte(`[3]`)),
		Difficulty:     types.DifficultyAdvanced,
		OrganizationID: org.ID,
		IsActive:       false,
	}
	if _, err := repo.Create(dbc, []*types.Scenario{inactive}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := repo.List(dbc, ScenarioFilter{OrganizationID: org.ID})
	if err != nil || len(all) != 3 {
		t.Fatalf("List all: err=%v len=%d", err, len(all))
	}

	onlyPhone, err := repo.List(dbc, ScenarioFilter{Category: types.CategoryPhone})
	if err != nil || len(onlyPhone) != 1 || onlyPhone[0].ID != phone.ID {
		t.Fatalf("List category: err=%v rows=%v", err, onlyPhone)
	}
	if onlyPhone[0].Persona == nil || onlyPhone[0].Persona.ID != persona.ID {
		t.Fatalf("List: persona not preloaded")
	}

	active := true
	rows, err := repo.List(dbc, ScenarioFilter{IsActive: &active})
	if err != nil || len(rows) != 2 {
		t.Fatalf("List active: err=%v len=%d", err, len(rows))
	}

	if err := repo.SetActive(dbc, zoom.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	rows, err = repo.List(dbc, ScenarioFilter{IsActive: &active, PersonaID: persona.ID})
	if err != nil || len(rows) != 1 || rows[0].ID != phone.ID {
		t.Fatalf("List after SetActive: err=%v len=%d", err, len(rows))
	}

	got, err := repo.GetByIDs(dbc, []uuid.UUID{inactive.ID})
	if err != nil || len(got) != 1 || got[0].IsActive {
		t.Fatalf("GetByIDs: err=%v rows=%v", err, got)
	}
}

func TestPersonaRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPersonaRepo(db, testutil.Logger(t))

	org := testutil.SeedOrganization(t, ctx, tx)
	id := uuid.New()
	p := &types.Persona{ID: id, Name: "Referral Lead", OrganizationID: org.ID}
	if err := repo.Upsert(dbc, []*types.Persona{p}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	again := &types.Persona{ID: id, Name: "Renamed", OrganizationID: org.ID}
	if err := repo.Upsert(dbc, []*types.Persona{again}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	rows, err := repo.GetByOrganizationID(dbc, org.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByOrganizationID: err=%v len=%d", err, len(rows))
	}
	if rows[0].Name != "Referral Lead" {
		t.Fatalf("Upsert overwrote existing persona: %q", rows[0].Name)
	}
	if rows, err := repo.GetByIDs(dbc, []uuid.UUID{id}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
}
