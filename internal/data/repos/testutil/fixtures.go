package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
)

func SeedOrganization(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Organization {
	tb.Helper()
	org := &types.Organization{
		Name:     "Test Org",
		Plan:     types.PlanProfessional,
		Seats:    10,
		Settings: datatypes.JSON([]byte(`{"retentionDays":90}`)),
	}
	if err := tx.WithContext(ctx).Create(org).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return org
}

func SeedTeam(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, name string) *types.Team {
	tb.Helper()
	team := &types.Team{Name: name, OrganizationID: orgID}
	if err := tx.WithContext(ctx).Create(team).Error; err != nil {
		tb.Fatalf("seed team: %v", err)
	}
	return team
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      types.RoleAgent,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedPersona(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID) *types.Persona {
	tb.Helper()
	p := &types.Persona{
		Name:           "Busy Professional",
		Description:    "Short on time.",
		Traits:         datatypes.JSON([]byte(`{"personality":["direct"]}`)),
		OrganizationID: orgID,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed persona: %v", err)
	}
	return p
}

func SeedScenario(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, personaID uuid.UUID, category types.Category) *types.Scenario {
	tb.Helper()
	s := &types.Scenario{
		Name:           "Phone opener",
		Category:       category,
		PersonaID:      personaID,
		NEPQStages:     datatypes.JSON([]byte(`[1,2]`)),
		TimeLimit:      600,
		Difficulty:     types.DifficultyBeginner,
		Objectives:     datatypes.JSON([]byte(`["Build rapport"]`)),
		IsActive:       true,
		OrganizationID: orgID,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed scenario: %v", err)
	}
	return s
}

// SeedRecording stores a minimal valid recording with the given overall score.
func SeedRecording(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, scenarioID uuid.UUID, overall int) *types.Recording {
	tb.Helper()
	score := nepq.Score{Overall: overall, Breakdown: nepq.ScoreBreakdown{TalkRatio: 0.5, QuestionRatio: 0.3}}
	rawScore, err := json.Marshal(score)
	if err != nil {
		tb.Fatalf("marshal score: %v", err)
	}
	rec := &types.Recording{
		UserID:       userID,
		ScenarioID:   scenarioID,
		Duration:     60,
		Transcript:   datatypes.JSON([]byte(`{"turns":[]}`)),
		Score:        datatypes.JSON(rawScore),
		OverallScore: overall,
		Analytics:    datatypes.JSON([]byte(`{}`)),
		Tags:         datatypes.JSON([]byte(`[]`)),
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed recording: %v", err)
	}
	return rec
}
