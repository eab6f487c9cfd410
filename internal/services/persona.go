package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/platform/apierr"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type PersonaService interface {
	List(dbc dbctx.Context) ([]*types.Persona, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Persona, error)
	Traits(p *types.Persona) (types.PersonaTraits, error)
}

type personaService struct {
	db          *gorm.DB
	log         *logger.Logger
	personaRepo repos.PersonaRepo
}

func NewPersonaService(db *gorm.DB, log *logger.Logger, personaRepo repos.PersonaRepo) PersonaService {
	return &personaService{
		db:          db,
		log:         log.With("service", "PersonaService"),
		personaRepo: personaRepo,
	}
}

func (ps *personaService) List(dbc dbctx.Context) ([]*types.Persona, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ps.personaRepo.GetByOrganizationID(dbc, rd.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	return rows, nil
}

func (ps *personaService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Persona, error) {
	rd, err := requireRequestData(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ps.personaRepo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("get persona: %w", err)
	}
	if len(rows) == 0 || (rd.OrganizationID != uuid.Nil && rows[0].OrganizationID != rd.OrganizationID) {
		return nil, apierr.NotFound("persona_not_found", "persona %s", id)
	}
	return rows[0], nil
}

func (ps *personaService) Traits(p *types.Persona) (types.PersonaTraits, error) {
	var traits types.PersonaTraits
	if p == nil || len(p.Traits) == 0 {
		return traits, nil
	}
	if err := json.Unmarshal(p.Traits, &traits); err != nil {
		return traits, fmt.Errorf("decode persona traits: %w", err)
	}
	return traits, nil
}
