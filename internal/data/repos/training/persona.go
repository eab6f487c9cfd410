package training

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type PersonaRepo interface {
	Upsert(dbc dbctx.Context, personas []*types.Persona) error
	GetByIDs(dbc dbctx.Context, personaIDs []uuid.UUID) ([]*types.Persona, error)
	GetByOrganizationID(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Persona, error)
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	repoLog := baseLog.With("repo", "PersonaRepo")
	return &personaRepo{db: db, log: repoLog}
}

func (pr *personaRepo) Upsert(dbc dbctx.Context, personas []*types.Persona) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = pr.db
	}
	if len(personas) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&personas).Error
}

func (pr *personaRepo) GetByIDs(dbc dbctx.Context, personaIDs []uuid.UUID) ([]*types.Persona, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.Persona
	if len(personaIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", personaIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByOrganizationID lists an organization's personas; a nil id lists all.
func (pr *personaRepo) GetByOrganizationID(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Persona, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = pr.db
	}

	q := transaction.WithContext(dbc.Ctx).Model(&types.Persona{})
	if orgID != uuid.Nil {
		q = q.Where("organization_id = ?", orgID)
	}

	var results []*types.Persona
	if err := q.Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
