package user

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type OrganizationRepo interface {
	Upsert(dbc dbctx.Context, orgs []*types.Organization) error
	GetByIDs(dbc dbctx.Context, orgIDs []uuid.UUID) ([]*types.Organization, error)
	UpdateSettings(dbc dbctx.Context, orgID uuid.UUID, settings datatypes.JSON) error
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	repoLog := baseLog.With("repo", "OrganizationRepo")
	return &organizationRepo{db: db, log: repoLog}
}

func (or *organizationRepo) Upsert(dbc dbctx.Context, orgs []*types.Organization) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}
	if len(orgs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orgs).Error
}

func (or *organizationRepo) GetByIDs(dbc dbctx.Context, orgIDs []uuid.UUID) ([]*types.Organization, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}

	var results []*types.Organization
	if len(orgIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", orgIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *organizationRepo) UpdateSettings(dbc dbctx.Context, orgID uuid.UUID, settings datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = or.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Organization{}).
		Where("id = ?", orgID).
		Update("settings", settings).Error
}

type TeamRepo interface {
	Upsert(dbc dbctx.Context, teams []*types.Team) error
	GetByIDs(dbc dbctx.Context, teamIDs []uuid.UUID) ([]*types.Team, error)
	GetByOrganizationID(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Team, error)
	SetCoach(dbc dbctx.Context, teamID, coachID uuid.UUID) error
}

type teamRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeamRepo(db *gorm.DB, baseLog *logger.Logger) TeamRepo {
	repoLog := baseLog.With("repo", "TeamRepo")
	return &teamRepo{db: db, log: repoLog}
}

func (tr *teamRepo) Upsert(dbc dbctx.Context, teams []*types.Team) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = tr.db
	}
	if len(teams) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&teams).Error
}

func (tr *teamRepo) GetByIDs(dbc dbctx.Context, teamIDs []uuid.UUID) ([]*types.Team, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Team
	if len(teamIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", teamIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *teamRepo) GetByOrganizationID(dbc dbctx.Context, orgID uuid.UUID) ([]*types.Team, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Team
	if err := transaction.WithContext(dbc.Ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *teamRepo) SetCoach(dbc dbctx.Context, teamID, coachID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = tr.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Team{}).
		Where("id = ?", teamID).
		Update("coach_id", coachID).Error
}
