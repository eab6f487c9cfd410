package training

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

// ScenarioFilter narrows List; zero values mean "any".
type ScenarioFilter struct {
	OrganizationID uuid.UUID
	Category       types.Category
	Difficulty     types.Difficulty
	PersonaID      uuid.UUID
	IsActive       *bool
}

type ScenarioRepo interface {
	Create(dbc dbctx.Context, scenarios []*types.Scenario) ([]*types.Scenario, error)
	Upsert(dbc dbctx.Context, scenarios []*types.Scenario) error
	GetByIDs(dbc dbctx.Context, scenarioIDs []uuid.UUID) ([]*types.Scenario, error)
	List(dbc dbctx.Context, filter ScenarioFilter) ([]*types.Scenario, error)
	SetActive(dbc dbctx.Context, scenarioID uuid.UUID, active bool) error
}

type scenarioRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScenarioRepo(db *gorm.DB, baseLog *logger.Logger) ScenarioRepo {
	repoLog := baseLog.With("repo", "ScenarioRepo")
	return &scenarioRepo{db: db, log: repoLog}
}

func (sr *scenarioRepo) Create(dbc dbctx.Context, scenarios []*types.Scenario) ([]*types.Scenario, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(scenarios) == 0 {
		return []*types.Scenario{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&scenarios).Error; err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (sr *scenarioRepo) Upsert(dbc dbctx.Context, scenarios []*types.Scenario) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(scenarios) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&scenarios).Error
}

func (sr *scenarioRepo) GetByIDs(dbc dbctx.Context, scenarioIDs []uuid.UUID) ([]*types.Scenario, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.Scenario
	if len(scenarioIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Persona").
		Where("id IN ?", scenarioIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *scenarioRepo) List(dbc dbctx.Context, filter ScenarioFilter) ([]*types.Scenario, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}

	q := transaction.WithContext(dbc.Ctx).Model(&types.Scenario{}).Preload("Persona")
	if filter.OrganizationID != uuid.Nil {
		q = q.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Difficulty != "" {
		q = q.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.PersonaID != uuid.Nil {
		q = q.Where("persona_id = ?", filter.PersonaID)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var results []*types.Scenario
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *scenarioRepo) SetActive(dbc dbctx.Context, scenarioID uuid.UUID, active bool) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Scenario{}).
		Where("id = ?", scenarioID).
		Update("is_active", active).Error
}
