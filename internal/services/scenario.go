package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const (
	DefaultScenarioTimeLimit  = 600
	DefaultScenarioDifficulty = types.DifficultyIntermediate
)

type ScenarioStats struct {
	RecordingCount int64   `json:"recordingCount"`
	AverageScore   float64 `json:"averageScore"`
}

type ScenarioView struct {
	*types.Scenario
	Stats ScenarioStats `json:"stats"`
}

type ScenarioListFilter struct {
	Category   string
	Difficulty string
	PersonaID  uuid.UUID
	IsActive   *bool
}

type CreateScenarioInput struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	PersonaID  string   `json:"personaId"`
	NEPQStages []int    `json:"nepqStages"`
	TimeLimit  int      `json:"timeLimit"`
	Difficulty string   `json:"difficulty"`
	Objectives []string `json:"objectives"`
	Context    string   `json:"context"`
	IsActive   *bool    `json:"isActive"`
}

type ScenarioService interface {
	List(dbc dbctx.Context, filter ScenarioListFilter) ([]*ScenarioView, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*ScenarioView, error)
	Create(ctx context.Context, in CreateScenarioInput) (*ScenarioView, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	FocusStages(s *types.Scenario) ([]nepq.Stage, error)
}

type scenarioService struct {
	db            *gorm.DB
	log           *logger.Logger
	scenarioRepo  repos.ScenarioRepo
	personaRepo   repos.PersonaRepo
	recordingRepo repos.RecordingRepo
}

func NewScenarioService(db *gorm.DB, log *logger.Logger, scenarioRepo repos.ScenarioRepo, personaRepo repos.PersonaRepo, recordingRepo repos.RecordingRepo) ScenarioService {
	return &scenarioService{
		db:            db,
		log:           log.With("service", "ScenarioService"),
		scenarioRepo:  scenarioRepo,
		personaRepo:   personaRepo,
		recordingRepo: recordingRepo,
	}
}

func (ss *scenarioService) List(dbc dbctx.Context, filter ScenarioListFilter) ([]*ScenarioView, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	repoFilter := repos.ScenarioFilter{
		OrganizationID: rd.OrganizationID,
		PersonaID:      filter.PersonaID,
		IsActive:       filter.IsActive,
	}
	if c := types.Category(strings.TrimSpace(filter.Category)); c != "" {
		if !c.Valid() {
			return nil, apierr.Invalid("invalid_category", "unknown category %q", filter.Category)
		}
		repoFilter.Category = c
	}
	if d := types.Difficulty(strings.TrimSpace(filter.Difficulty)); d != "" {
		if !d.Valid() {
			return nil, apierr.Invalid("invalid_difficulty", "unknown difficulty %q", filter.Difficulty)
		}
		repoFilter.Difficulty = d
	}

	rows, err := ss.scenarioRepo.List(dbc, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return ss.withStats(dbc, rows)
}

func (ss *scenarioService) Get(dbc dbctx.Context, id uuid.UUID) (*ScenarioView, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ss.scenarioRepo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("get scenario: %w", err)
	}
	if len(rows) == 0 || (rd.OrganizationID != uuid.Nil && rows[0].OrganizationID != rd.OrganizationID) {
		return nil, apierr.NotFound("scenario_not_found", "scenario %s", id)
	}
	views, err := ss.withStats(dbc, rows)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (ss *scenarioService) Create(ctx context.Context, in CreateScenarioInput) (*ScenarioView, error) {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return nil, err
	}
	if !canManageTraining(rd) {
		return nil, apierr.Forbidden("forbidden", "role %s cannot create scenarios", rd.Role)
	}
	if rd.OrganizationID == uuid.Nil {
		return nil, apierr.Forbidden("no_organization", "user has no organization")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Invalid("invalid_scenario", "name required")
	}
	category := types.Category(strings.TrimSpace(in.Category))
	if !category.Valid() {
		return nil, apierr.Invalid("invalid_category", "unknown category %q", in.Category)
	}
	difficulty := DefaultScenarioDifficulty
	if d := strings.TrimSpace(in.Difficulty); d != "" {
		difficulty = types.Difficulty(d)
		if !difficulty.Valid() {
			return nil, apierr.Invalid("invalid_difficulty", "unknown difficulty %q", in.Difficulty)
		}
	}
	timeLimit := in.TimeLimit
	if timeLimit == 0 {
		timeLimit = DefaultScenarioTimeLimit
	}
	if timeLimit < 0 {
		return nil, apierr.Invalid("invalid_scenario", "timeLimit must be positive")
	}
	stages, err := normalizeFocusStages(in.NEPQStages)
	if err != nil {
		return nil, apierr.New(http.StatusUnprocessableEntity, "invalid_stage", err)
	}
	personaID, err := uuid.Parse(strings.TrimSpace(in.PersonaID))
	if err != nil {
		return nil, apierr.Invalid("invalid_persona", "personaId %q", in.PersonaID)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return nil, err
	}
	objectives := in.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	objectivesJSON, err := json.Marshal(objectives)
	if err != nil {
		return nil, err
	}

	var out *types.Scenario
	if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		personas, err := ss.personaRepo.GetByIDs(dbc, []uuid.UUID{personaID})
		if err != nil {
			return fmt.Errorf("load persona: %w", err)
		}
		if len(personas) == 0 || personas[0].OrganizationID != rd.OrganizationID {
			return apierr.NotFound("persona_not_found", "persona %s", personaID)
		}
		created, err := ss.scenarioRepo.Create(dbc, []*types.Scenario{{
			Name:           name,
			Category:       category,
			PersonaID:      personaID,
			NEPQStages:     datatypes.JSON(stagesJSON),
			TimeLimit:      timeLimit,
			Difficulty:     difficulty,
			Objectives:     datatypes.JSON(objectivesJSON),
			Context:        strings.TrimSpace(in.Context),
			IsActive:       active,
			OrganizationID: rd.OrganizationID,
		}})
		if err != nil {
			return fmt.Errorf("create scenario: %w", err)
		}
		out = created[0]
		out.Persona = personas[0]
		return nil
	}); err != nil {
		return nil, err
	}
	ss.log.Info("Scenario created", "scenario_id", out.ID, "user_id", rd.UserID)
	return &ScenarioView{Scenario: out}, nil
}

func (ss *scenarioService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	rd, err := requireRequestData(ctx)
	if err != nil {
		return err
	}
	if !canManageTraining(rd) {
		return apierr.Forbidden("forbidden", "role %s cannot edit scenarios", rd.Role)
	}
	if _, err := ss.Get(dbctx.Context{Ctx: ctx}, id); err != nil {
		return err
	}
	return ss.scenarioRepo.SetActive(dbctx.Context{Ctx: ctx}, id, active)
}

// FocusStages decodes the stored ordinals, rejecting any outside 1..8.
func (ss *scenarioService) FocusStages(s *types.Scenario) ([]nepq.Stage, error) {
	return decodeFocusStages(s)
}

func decodeFocusStages(s *types.Scenario) ([]nepq.Stage, error) {
	if s == nil || len(s.NEPQStages) == 0 {
		return nil, nil
	}
	var ordinals []int
	if err := json.Unmarshal(s.NEPQStages, &ordinals); err != nil {
		return nil, fmt.Errorf("decode scenario stages: %w", err)
	}
	out := make([]nepq.Stage, 0, len(ordinals))
	for _, o := range ordinals {
		st := nepq.Stage(o)
		if err := st.Validate(); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// normalizeFocusStages validates, de-duplicates and sorts stage ordinals.
func normalizeFocusStages(ordinals []int) ([]int, error) {
	var seen [nepq.StageCount + 1]bool
	for _, o := range ordinals {
		if _, err := nepq.LookupStage(o); err != nil {
			return nil, err
		}
		seen[o] = true
	}
	out := make([]int, 0, len(ordinals))
	for o := 1; o <= nepq.StageCount; o++ {
		if seen[o] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (ss *scenarioService) withStats(dbc dbctx.Context, rows []*types.Scenario) ([]*ScenarioView, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, s := range rows {
		ids = append(ids, s.ID)
	}
	stats, err := ss.recordingRepo.ScenarioStats(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("scenario stats: %w", err)
	}
	out := make([]*ScenarioView, 0, len(rows))
	for _, s := range rows {
		st := stats[s.ID]
		out = append(out, &ScenarioView{
			Scenario: s,
			Stats: ScenarioStats{
				RecordingCount: st.RecordingCount,
				AverageScore:   math.Round(st.AverageScore*10) / 10,
			},
		})
	}
	return out, nil
}
