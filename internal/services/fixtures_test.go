package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/nepq-coach-backend/internal/domain"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/ctxutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
)

const testPassword = "correct horse battery"

type captureEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (c *captureEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureEmitter) events(channel string) []realtime.SSEEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []realtime.SSEEvent
	for _, m := range c.msgs {
		if m.Channel == channel {
			out = append(out, m.Event)
		}
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	log      *logger.Logger
	emitter  *captureEmitter
	org      *types.Organization
	persona  *types.Persona
	scenario *types.Scenario

	users      repos.UserRepo
	orgs       repos.OrganizationRepo
	teams      repos.TeamRepo
	tokens     repos.UserTokenRepo
	personas   repos.PersonaRepo
	scenarios  repos.ScenarioRepo
	recordings repos.RecordingRepo
	comments   repos.CommentRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	org := testutil.SeedOrganization(t, ctx, db)
	persona := testutil.SeedPersona(t, ctx, db, org.ID)
	scenario := testutil.SeedScenario(t, ctx, db, org.ID, persona.ID, types.CategoryPhone)

	return &fixture{
		db:         db,
		log:        log,
		emitter:    &captureEmitter{},
		org:        org,
		persona:    persona,
		scenario:   scenario,
		users:      repos.NewUserRepo(db, log),
		orgs:       repos.NewOrganizationRepo(db, log),
		teams:      repos.NewTeamRepo(db, log),
		tokens:     repos.NewUserTokenRepo(db, log),
		personas:   repos.NewPersonaRepo(db, log),
		scenarios:  repos.NewScenarioRepo(db, log),
		recordings: repos.NewRecordingRepo(db, log),
		comments:   repos.NewCommentRepo(db, log),
	}
}

// user stores a member of the fixture organization. The password is
// testPassword.
func (f *fixture) user(t *testing.T, email string, role types.Role) *types.User {
	t.Helper()
	hashed, err := HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	orgID := f.org.ID
	u := &types.User{
		Email:          email,
		Password:       hashed,
		FirstName:      "Pat",
		LastName:       string(role),
		Role:           role,
		OrganizationID: &orgID,
	}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// outsider stores a user in a second, unrelated organization.
func (f *fixture) outsider(t *testing.T, email string, role types.Role) *types.User {
	t.Helper()
	org := testutil.SeedOrganization(t, context.Background(), f.db)
	orgID := org.ID
	u := &types.User{
		Email:          email,
		Password:       "unused",
		FirstName:      "Out",
		LastName:       string(role),
		Role:           role,
		OrganizationID: &orgID,
	}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create outsider %s: %v", email, err)
	}
	return u
}

func (f *fixture) recordingService() RecordingService {
	return NewRecordingService(f.db, f.log, f.recordings, f.scenarios, f.users, NewRecordingNotifier(f.emitter), nepq.DefaultScorer)
}

func asUser(u *types.User) context.Context {
	rd := &ctxutil.RequestData{UserID: u.ID, Role: string(u.Role)}
	if u.OrganizationID != nil {
		rd.OrganizationID = *u.OrganizationID
	}
	return ctxutil.WithRequestData(context.Background(), rd)
}

func stagePtr(s nepq.Stage) *nepq.Stage { return &s }

// sampleTurns is a short phone opener: 9s of agent speech against 3s from
// the prospect, two agent questions, one statement and one filler word.
func sampleTurns() []nepq.TranscriptTurn {
	return []nepq.TranscriptTurn{
		{ID: "t1", Speaker: nepq.SpeakerAgent, Content: "Hi there. How are things going?", Timestamp: 0, Duration: 4, NEPQStage: stagePtr(nepq.StageConnection)},
		{ID: "t2", Speaker: nepq.SpeakerProspect, Content: "Busy, honestly.", Timestamp: 5, Duration: 3, NEPQStage: stagePtr(nepq.StageConnection)},
		{ID: "t3", Speaker: nepq.SpeakerAgent, Content: "Um, what made you look into coverage?", Timestamp: 9, Duration: 5, NEPQStage: stagePtr(nepq.StageSituation)},
	}
}

func sampleRubric() nepq.ScoreBreakdown {
	return nepq.ScoreBreakdown{
		StageProgression:     4,
		TransitionDiscipline: 3.5,
		DiscoveryDepth:       4,
		ObjectionHandling:    3,
		Tonality:             4.5,
		ActiveListening:      4,
	}
}

func uploadInput(scenarioID uuid.UUID) CreateRecordingInput {
	return CreateRecordingInput{
		ScenarioID: scenarioID.String(),
		Duration:   20,
		Transcript: nepq.Transcript{Turns: sampleTurns()},
		Breakdown:  sampleRubric(),
	}
}
