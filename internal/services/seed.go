package services

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

const seedCatalogEnv = "SEED_CATALOG_YAML"

//go:embed seeddata/catalog.yaml
var seedFS embed.FS

// seedNamespace scopes the deterministic ids derived from catalog keys.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://nepq-coach.local/seed"))

// SeedID is the id the seed gives the row with the given kind and key.
func SeedID(kind, key string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+strings.ToLower(strings.TrimSpace(key))))
}

type SeedCatalog struct {
	DefaultPassword string          `yaml:"defaultPassword"`
	Organization    seedOrg         `yaml:"organization"`
	Teams           []seedTeam      `yaml:"teams"`
	Users           []seedUser      `yaml:"users"`
	Personas        []seedPersona   `yaml:"personas"`
	Scenarios       []seedScenario  `yaml:"scenarios"`
	Recordings      []seedRecording `yaml:"recordings"`
}

type seedOrg struct {
	Key       string                     `yaml:"key"`
	Name      string                     `yaml:"name"`
	Plan      string                     `yaml:"plan"`
	Seats     int                        `yaml:"seats"`
	UsedSeats int                        `yaml:"usedSeats"`
	Settings  types.OrganizationSettings `yaml:"settings"`
}

type seedTeam struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Coach string `yaml:"coach"`
}

type seedUser struct {
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Team      string `yaml:"team"`
}

type seedPersona struct {
	Key         string              `yaml:"key"`
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Traits      types.PersonaTraits `yaml:"traits"`
}

type seedScenario struct {
	Key        string   `yaml:"key"`
	Name       string   `yaml:"name"`
	Category   string   `yaml:"category"`
	Persona    string   `yaml:"persona"`
	NEPQStages []int    `yaml:"nepqStages"`
	TimeLimit  int      `yaml:"timeLimit"`
	Difficulty string   `yaml:"difficulty"`
	Objectives []string `yaml:"objectives"`
	Context    string   `yaml:"context"`
}

type seedTurn struct {
	ID         string   `yaml:"id"`
	Speaker    string   `yaml:"speaker"`
	Content    string   `yaml:"content"`
	Timestamp  float64  `yaml:"timestamp"`
	Duration   float64  `yaml:"duration"`
	NEPQStage  *int     `yaml:"nepqStage"`
	Confidence *float64 `yaml:"confidence"`
}

type seedBreakdown struct {
	StageProgression     float64 `yaml:"stageProgression"`
	TransitionDiscipline float64 `yaml:"transitionDiscipline"`
	DiscoveryDepth       float64 `yaml:"discoveryDepth"`
	ObjectionHandling    float64 `yaml:"objectionHandling"`
	Tonality             float64 `yaml:"tonality"`
	ActiveListening      float64 `yaml:"activeListening"`
	TalkRatio            float64 `yaml:"talkRatio"`
	FillerWords          int     `yaml:"fillerWords"`
	QuestionRatio        float64 `yaml:"questionRatio"`
}

type seedAnalytics struct {
	TalkRatio         float64 `yaml:"talkRatio"`
	FillerWords       int     `yaml:"fillerWords"`
	Pace              float64 `yaml:"pace"`
	InterruptionCount int     `yaml:"interruptionCount"`
	QuestionCount     int     `yaml:"questionCount"`
	StatementCount    int     `yaml:"statementCount"`
}

type seedRecording struct {
	Key       string         `yaml:"key"`
	User      string         `yaml:"user"`
	Scenario  string         `yaml:"scenario"`
	Duration  float64        `yaml:"duration"`
	Turns     []seedTurn     `yaml:"turns"`
	Breakdown seedBreakdown  `yaml:"breakdown"`
	Analytics *seedAnalytics `yaml:"analytics"`
	Tags      []string       `yaml:"tags"`
}

type SeedReport struct {
	Organization uuid.UUID `json:"organizationId"`
	Teams        int       `json:"teams"`
	Users        int       `json:"users"`
	Personas     int       `json:"personas"`
	Scenarios    int       `json:"scenarios"`
	Recordings   int       `json:"recordings"`
}

type SeedService interface {
	Seed(ctx context.Context) (SeedReport, error)
}

type seedService struct {
	db            *gorm.DB
	log           *logger.Logger
	catalog       *SeedCatalog
	orgRepo       repos.OrganizationRepo
	teamRepo      repos.TeamRepo
	userRepo      repos.UserRepo
	personaRepo   repos.PersonaRepo
	scenarioRepo  repos.ScenarioRepo
	recordingRepo repos.RecordingRepo
	scorer        nepq.Scorer
}

func NewSeedService(
	db *gorm.DB,
	log *logger.Logger,
	catalog *SeedCatalog,
	orgRepo repos.OrganizationRepo,
	teamRepo repos.TeamRepo,
	userRepo repos.UserRepo,
	personaRepo repos.PersonaRepo,
	scenarioRepo repos.ScenarioRepo,
	recordingRepo repos.RecordingRepo,
	scorer nepq.Scorer,
) SeedService {
	return &seedService{
		db:            db,
		log:           log.With("service", "SeedService"),
		catalog:       catalog,
		orgRepo:       orgRepo,
		teamRepo:      teamRepo,
		userRepo:      userRepo,
		personaRepo:   personaRepo,
		scenarioRepo:  scenarioRepo,
		recordingRepo: recordingRepo,
		scorer:        scorer,
	}
}

// LoadSeedCatalog reads the catalog from SEED_CATALOG_YAML when set and
// from the embedded copy otherwise.
func LoadSeedCatalog(log *logger.Logger) (*SeedCatalog, error) {
	var (
		raw []byte
		err error
	)
	if path := strings.TrimSpace(os.Getenv(seedCatalogEnv)); path != "" {
		if log != nil {
			log.Info("Loading seed catalog", "path", path)
		}
		raw, err = os.ReadFile(path)
	} else {
		raw, err = seedFS.ReadFile("seeddata/catalog.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	return ParseSeedCatalog(raw)
}

func ParseSeedCatalog(raw []byte) (*SeedCatalog, error) {
	var c SeedCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	if strings.TrimSpace(c.Organization.Key) == "" {
		return nil, fmt.Errorf("seed catalog: organization key required")
	}
	if c.DefaultPassword == "" {
		return nil, fmt.Errorf("seed catalog: defaultPassword required")
	}
	return &c, nil
}

// Seed upserts the catalog in one transaction. Existing rows are left as
// they are, so running it twice changes nothing.
func (ss *seedService) Seed(ctx context.Context) (SeedReport, error) {
	c := ss.catalog
	report := SeedReport{Organization: SeedID("org", c.Organization.Key)}

	password, err := HashPassword(c.DefaultPassword)
	if err != nil {
		return report, err
	}

	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		orgID := report.Organization

		settings, err := json.Marshal(c.Organization.Settings)
		if err != nil {
			return err
		}
		if err := ss.orgRepo.Upsert(dbc, []*types.Organization{{
			ID:        orgID,
			Name:      c.Organization.Name,
			Plan:      types.Plan(c.Organization.Plan),
			Seats:     c.Organization.Seats,
			UsedSeats: c.Organization.UsedSeats,
			Settings:  datatypes.JSON(settings),
		}}); err != nil {
			return fmt.Errorf("seed organization: %w", err)
		}

		teams := make([]*types.Team, 0, len(c.Teams))
		for _, t := range c.Teams {
			teams = append(teams, &types.Team{ID: SeedID("team", t.Key), Name: t.Name, OrganizationID: orgID})
		}
		if err := ss.teamRepo.Upsert(dbc, teams); err != nil {
			return fmt.Errorf("seed teams: %w", err)
		}
		report.Teams = len(teams)

		users := make([]*types.User, 0, len(c.Users))
		for _, u := range c.Users {
			role := types.Role(strings.ToUpper(u.Role))
			if !role.Valid() {
				return fmt.Errorf("seed user %s: unknown role %q", u.Email, u.Role)
			}
			row := &types.User{
				ID:             SeedID("user", u.Email),
				Email:          strings.ToLower(u.Email),
				Password:       password,
				FirstName:      u.FirstName,
				LastName:       u.LastName,
				Role:           role,
				OrganizationID: &orgID,
			}
			if u.Team != "" {
				teamID := SeedID("team", u.Team)
				row.TeamID = &teamID
			}
			users = append(users, row)
		}
		if err := ss.userRepo.Upsert(dbc, users); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		report.Users = len(users)

		for _, t := range c.Teams {
			if t.Coach == "" {
				continue
			}
			if err := ss.teamRepo.SetCoach(dbc, SeedID("team", t.Key), SeedID("user", t.Coach)); err != nil {
				return fmt.Errorf("seed team coach %s: %w", t.Key, err)
			}
		}

		personas := make([]*types.Persona, 0, len(c.Personas))
		for _, p := range c.Personas {
			traits, err := json.Marshal(p.Traits)
			if err != nil {
				return err
			}
			personas = append(personas, &types.Persona{
				ID:             SeedID("persona", p.Key),
				Name:           p.Name,
				Description:    p.Description,
				Traits:         datatypes.JSON(traits),
				OrganizationID: orgID,
			})
		}
		if err := ss.personaRepo.Upsert(dbc, personas); err != nil {
			return fmt.Errorf("seed personas: %w", err)
		}
		report.Personas = len(personas)

		scenarios := make([]*types.Scenario, 0, len(c.Scenarios))
		for _, s := range c.Scenarios {
			row, err := s.toScenario(orgID)
			if err != nil {
				return err
			}
			scenarios = append(scenarios, row)
		}
		if err := ss.scenarioRepo.Upsert(dbc, scenarios); err != nil {
			return fmt.Errorf("seed scenarios: %w", err)
		}
		report.Scenarios = len(scenarios)

		for _, r := range c.Recordings {
			created, err := ss.seedRecording(dbc, r)
			if err != nil {
				return err
			}
			if created {
				report.Recordings++
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	ss.log.Info("Seed complete",
		"organization_id", report.Organization,
		"users", report.Users,
		"scenarios", report.Scenarios,
		"recordings_created", report.Recordings,
	)
	return report, nil
}

func (s seedScenario) toScenario(orgID uuid.UUID) (*types.Scenario, error) {
	category := types.Category(s.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("seed scenario %s: unknown category %q", s.Key, s.Category)
	}
	difficulty := types.Difficulty(s.Difficulty)
	if s.Difficulty == "" {
		difficulty = DefaultScenarioDifficulty
	}
	if !difficulty.Valid() {
		return nil, fmt.Errorf("seed scenario %s: unknown difficulty %q", s.Key, s.Difficulty)
	}
	stages, err := normalizeFocusStages(s.NEPQStages)
	if err != nil {
		return nil, fmt.Errorf("seed scenario %s: %w", s.Key, err)
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return nil, err
	}
	objectives := s.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	objectivesJSON, err := json.Marshal(objectives)
	if err != nil {
		return nil, err
	}
	timeLimit := s.TimeLimit
	if timeLimit == 0 {
		timeLimit = DefaultScenarioTimeLimit
	}
	return &types.Scenario{
		ID:             SeedID("scenario", s.Key),
		Name:           s.Name,
		Category:       category,
		PersonaID:      SeedID("persona", s.Persona),
		NEPQStages:     datatypes.JSON(stagesJSON),
		TimeLimit:      timeLimit,
		Difficulty:     difficulty,
		Objectives:     datatypes.JSON(objectivesJSON),
		Context:        s.Context,
		IsActive:       true,
		OrganizationID: orgID,
	}, nil
}

// seedRecording scores the catalog entry with the current scorer and stores
// it unless a recording with its id already exists.
func (ss *seedService) seedRecording(dbc dbctx.Context, r seedRecording) (bool, error) {
	id := SeedID("recording", r.Key)
	existing, err := ss.recordingRepo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return false, fmt.Errorf("seed recording %s: %w", r.Key, err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	turns := make([]nepq.TranscriptTurn, 0, len(r.Turns))
	for _, t := range r.Turns {
		turn := nepq.TranscriptTurn{
			ID:         t.ID,
			Speaker:    nepq.Speaker(t.Speaker),
			Content:    t.Content,
			Timestamp:  t.Timestamp,
			Duration:   t.Duration,
			Confidence: t.Confidence,
		}
		if t.NEPQStage != nil {
			st := nepq.Stage(*t.NEPQStage)
			turn.NEPQStage = &st
		}
		turns = append(turns, turn)
	}
	b := r.Breakdown
	in := nepq.FinalizeInput{
		ID:         id.String(),
		UserID:     SeedID("user", r.User).String(),
		ScenarioID: SeedID("scenario", r.Scenario).String(),
		Duration:   r.Duration,
		Turns:      turns,
		Breakdown: nepq.ScoreBreakdown{
			StageProgression:     b.StageProgression,
			TransitionDiscipline: b.TransitionDiscipline,
			DiscoveryDepth:       b.DiscoveryDepth,
			ObjectionHandling:    b.ObjectionHandling,
			Tonality:             b.Tonality,
			ActiveListening:      b.ActiveListening,
			TalkRatio:            b.TalkRatio,
			FillerWords:          b.FillerWords,
			QuestionRatio:        b.QuestionRatio,
		},
		Tags: r.Tags,
	}
	if a := r.Analytics; a != nil {
		in.Analytics = nepq.Analytics{
			TalkRatio:         a.TalkRatio,
			FillerWords:       a.FillerWords,
			Pace:              a.Pace,
			InterruptionCount: a.InterruptionCount,
			QuestionCount:     a.QuestionCount,
			StatementCount:    a.StatementCount,
		}
	}
	session, err := ss.scorer.Finalize(in)
	if err != nil {
		return false, fmt.Errorf("seed recording %s: %w", r.Key, err)
	}
	row, err := sessionToRecording(session, nil)
	if err != nil {
		return false, err
	}
	if _, err := ss.recordingRepo.Create(dbc, []*types.Recording{row}); err != nil {
		return false, fmt.Errorf("seed recording %s: %w", r.Key, err)
	}
	return true, nil
}
