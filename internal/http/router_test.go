package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/nepq-coach-backend/internal/data/repos"
	"github.com/yungbote/nepq-coach-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/nepq-coach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/nepq-coach-backend/internal/http/middleware"
	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/recorder"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

type testAPI struct {
	t        *testing.T
	engine   *gin.Engine
	password string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	tokenRepo := repos.NewUserTokenRepo(db, log)
	orgRepo := repos.NewOrganizationRepo(db, log)
	teamRepo := repos.NewTeamRepo(db, log)
	personaRepo := repos.NewPersonaRepo(db, log)
	scenarioRepo := repos.NewScenarioRepo(db, log)
	recordingRepo := repos.NewRecordingRepo(db, log)
	commentRepo := repos.NewCommentRepo(db, log)

	catalog, err := services.LoadSeedCatalog(log)
	require.NoError(t, err)
	seed := services.NewSeedService(db, log, catalog, orgRepo, teamRepo, userRepo, personaRepo, scenarioRepo, recordingRepo, nepq.DefaultScorer)
	_, err = seed.Seed(context.Background())
	require.NoError(t, err)

	hub := realtime.NewSSEHub(log)
	emitter := services.NewSSEEmitter(hub, nil, log)
	avatars, err := services.NewAvatarService(log)
	require.NoError(t, err)

	auth := services.NewAuthService(db, log, userRepo, tokenRepo, "router-test-secret", 15*time.Minute, 24*time.Hour)
	recordingNotifier := services.NewRecordingNotifier(emitter)
	recordings := services.NewRecordingService(db, log, recordingRepo, scenarioRepo, userRepo, recordingNotifier, nepq.DefaultScorer)
	live := services.NewLiveSessionService(log, recorder.NewRegistry(nil), scenarioRepo, userRepo, recordings, services.NewLiveNotifier(emitter))

	engine := NewRouter(RouterConfig{
		Log:                log,
		HealthHandler:      httpH.NewHealthHandler(nil),
		AuthHandler:        httpH.NewAuthHandler(auth),
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, auth),
		UserHandler:        httpH.NewUserHandler(services.NewUserService(db, log, userRepo, avatars, emitter)),
		RealtimeHandler:    httpH.NewRealtimeHandler(log, hub, recordings, live),
		NEPQHandler:        httpH.NewNEPQHandler(nepq.DefaultScorer),
		ScenarioHandler:    httpH.NewScenarioHandler(services.NewScenarioService(db, log, scenarioRepo, personaRepo, recordingRepo)),
		PersonaHandler:     httpH.NewPersonaHandler(services.NewPersonaService(db, log, personaRepo)),
		RecordingHandler:   httpH.NewRecordingHandler(log, recordings, services.NewCommentService(db, log, commentRepo, recordingRepo, userRepo, recordingNotifier), services.NewTranscriptReplayService(log, recordings)),
		LeaderboardHandler: httpH.NewLeaderboardHandler(services.NewLeaderboardService(log, recordingRepo, userRepo, teamRepo)),
		LiveHandler:        httpH.NewLiveHandler(log, live, nil),
		AdminHandler:       httpH.NewAdminHandler(services.NewAdminService(db, log, orgRepo, teamRepo, userRepo, recordingRepo)),
	})
	return &testAPI{t: t, engine: engine, password: catalog.DefaultPassword}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode[struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}](t, rec)
	return env.Error.Code
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

func (a *testAPI) login(email string) tokenPair {
	a.t.Helper()
	rec := a.do(stdhttp.MethodPost, "/api/login", "", map[string]string{"email": email, "password": a.password})
	require.Equal(a.t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	return decode[tokenPair](a.t, rec)
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(stdhttp.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, "ok", rec.Body.String())

	rec = api.do(stdhttp.MethodGet, "/api/me", "", nil)
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))

	rec = api.do(stdhttp.MethodPost, "/api/login", "", map[string]string{"email": "agent@cvj.com", "password": "nope"})
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))

	tokens := api.login("agent@cvj.com")
	assert.Equal(t, 900, tokens.ExpiresIn)

	rec = api.do(stdhttp.MethodGet, "/api/me", tokens.AccessToken, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	me := decode[struct {
		Me struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"me"`
	}](t, rec)
	assert.Equal(t, "agent@cvj.com", me.Me.Email)
	assert.Equal(t, "AGENT", me.Me.Role)

	rec = api.do(stdhttp.MethodPost, "/api/refresh", "", map[string]string{"refreshToken": tokens.RefreshToken})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[tokenPair](t, rec)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	rec = api.do(stdhttp.MethodGet, "/api/me", tokens.AccessToken, nil)
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session_revoked", errorCode(t, rec))

	rec = api.do(stdhttp.MethodPost, "/api/logout", rotated.AccessToken, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	rec = api.do(stdhttp.MethodGet, "/api/me", rotated.AccessToken, nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
}

func TestNEPQRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("agent@cvj.com").AccessToken

	rec := api.do(stdhttp.MethodGet, "/api/nepq/stages", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	stages := decode[struct {
		Stages []struct {
			Ordinal int    `json:"ordinal"`
			Name    string `json:"name"`
			Color   string `json:"color"`
		} `json:"stages"`
	}](t, rec)
	require.Len(t, stages.Stages, 8)
	assert.Equal(t, "Connection", stages.Stages[0].Name)
	assert.Equal(t, "emerald", stages.Stages[7].Color)

	rec = api.do(stdhttp.MethodGet, "/api/nepq/stages/6", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	rec = api.do(stdhttp.MethodGet, "/api/nepq/stages/9", token, nil)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "stage_out_of_range", errorCode(t, rec))
	rec = api.do(stdhttp.MethodGet, "/api/nepq/stages/six", token, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	b := nepq.ScoreBreakdown{
		StageProgression: 4.5, TransitionDiscipline: 4.2, DiscoveryDepth: 4,
		ObjectionHandling: 4.3, Tonality: 4.6, ActiveListening: 4.4,
		TalkRatio: 0.45, FillerWords: 12, QuestionRatio: 0.32,
	}
	want, err := nepq.Overall(b)
	require.NoError(t, err)
	rec = api.do(stdhttp.MethodPost, "/api/nepq/score", token, map[string]any{"breakdown": b})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	scored := decode[struct {
		Score nepq.Score     `json:"score"`
		Tier  nepq.ScoreTier `json:"tier"`
	}](t, rec)
	assert.Equal(t, want, scored.Score.Overall)
	assert.Equal(t, nepq.TierOf(want), scored.Tier)

	b.Tonality = 6
	rec = api.do(stdhttp.MethodPost, "/api/nepq/score", token, map[string]any{"breakdown": b})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_score", errorCode(t, rec))
}

func activeScenarioID(t *testing.T, api *testAPI, token string) string {
	t.Helper()
	rec := api.do(stdhttp.MethodGet, "/api/scenarios", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	list := decode[struct {
		Data []struct {
			ID       string `json:"id"`
			IsActive bool   `json:"isActive"`
		} `json:"data"`
	}](t, rec)
	for _, s := range list.Data {
		if s.IsActive {
			return s.ID
		}
	}
	t.Fatalf("no active scenario in %s", rec.Body.String())
	return ""
}

func TestRecordingRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("agent@cvj.com").AccessToken
	scenarioID := activeScenarioID(t, api, token)

	stage := nepq.StageConnection
	body := map[string]any{
		"scenarioId": scenarioID,
		"duration":   20,
		"transcript": nepq.Transcript{Turns: []nepq.TranscriptTurn{
			{ID: "t1", Speaker: nepq.SpeakerAgent, Content: "Hi there. How are things going?", Timestamp: 0, Duration: 4, NEPQStage: &stage},
			{ID: "t2", Speaker: nepq.SpeakerProspect, Content: "Busy, honestly.", Timestamp: 5, Duration: 3, NEPQStage: &stage},
		}},
		"breakdown": map[string]float64{
			"stageProgression": 4, "transitionDiscipline": 3.5, "discoveryDepth": 4,
			"objectionHandling": 3, "tonality": 4.5, "activeListening": 4,
		},
	}
	rec := api.do(stdhttp.MethodPost, "/api/recordings", token, body)
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Recording services.RecordingView `json:"recording"`
	}](t, rec)
	assert.Equal(t, []string{"Connection"}, created.Recording.Tags)
	id := created.Recording.ID.String()

	rec = api.do(stdhttp.MethodGet, "/api/recordings?limit=1", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	page := decode[struct {
		Data       []services.RecordingView `json:"data"`
		Pagination services.Pagination      `json:"pagination"`
	}](t, rec)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.True(t, page.Pagination.HasMore)

	rec = api.do(stdhttp.MethodPost, "/api/recordings/"+id+"/bookmark", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"isBookmarked":true}`, rec.Body.String())

	rec = api.do(stdhttp.MethodPost, "/api/recordings/"+id+"/comments", token, map[string]any{"content": "Slow down in the opener", "type": "coaching", "timestamp": 2})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(stdhttp.MethodGet, "/api/recordings/"+id+"/comments", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	threads := decode[struct {
		Data []json.RawMessage `json:"data"`
	}](t, rec)
	assert.Len(t, threads.Data, 1)

	bad := map[string]any{
		"scenarioId": scenarioID,
		"duration":   20,
		"transcript": nepq.Transcript{Turns: []nepq.TranscriptTurn{
			{ID: "t1", Speaker: nepq.SpeakerAgent, Content: "a", Timestamp: 5, Duration: 4},
			{ID: "t2", Speaker: nepq.SpeakerProspect, Content: "b", Timestamp: 6, Duration: 3},
		}},
	}
	rec = api.do(stdhttp.MethodPost, "/api/recordings", token, bad)
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "malformed_transcript", errorCode(t, rec))

	rec = api.do(stdhttp.MethodGet, "/api/recordings/not-a-uuid", token, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = api.do(stdhttp.MethodGet, "/api/leaderboard?period=all", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	board := decode[struct {
		Leaderboard services.Leaderboard `json:"leaderboard"`
	}](t, rec)
	require.NotEmpty(t, board.Leaderboard.Entries)
	assert.Equal(t, 1, board.Leaderboard.Entries[0].Rank)
	rec = api.do(stdhttp.MethodGet, "/api/leaderboard?period=decade", token, nil)
	assert.Equal(t, "invalid_period", errorCode(t, rec))
}

func TestLiveRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("agent@cvj.com").AccessToken
	scenarioID := activeScenarioID(t, api, token)

	rec := api.do(stdhttp.MethodGet, "/api/live", token, nil)
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, "live_session_not_found", errorCode(t, rec))

	rec = api.do(stdhttp.MethodPost, "/api/live/start", token, map[string]string{"scenarioId": scenarioID})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(stdhttp.MethodPost, "/api/live/start", token, map[string]string{"scenarioId": scenarioID})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "live_session_active", errorCode(t, rec))

	rec = api.do(stdhttp.MethodPost, "/api/live/stage", token, map[string]int{"stage": 2})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	snap := decode[struct {
		Session recorder.Snapshot `json:"session"`
	}](t, rec)
	assert.Equal(t, nepq.StageSituation, snap.Session.CurrentStage)
	assert.Equal(t, []nepq.Stage{nepq.StageConnection}, snap.Session.CompletedStages)

	rec = api.do(stdhttp.MethodPost, "/api/live/stage", token, map[string]int{"stage": 9})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	rec = api.do(stdhttp.MethodPost, "/api/live/stage", token, map[string]any{})
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = api.do(stdhttp.MethodPost, "/api/live/pause", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	rec = api.do(stdhttp.MethodPost, "/api/live/pause", token, nil)
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, rec))

	rec = api.do(stdhttp.MethodDelete, "/api/live", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	rec = api.do(stdhttp.MethodGet, "/api/live", token, nil)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin@cvj.com").AccessToken
	agent := api.login("agent@cvj.com").AccessToken

	for _, path := range []string{"/api/admin/overview", "/api/admin/users", "/api/admin/teams", "/api/admin/organization"} {
		rec := api.do(stdhttp.MethodGet, path, agent, nil)
		assert.Equal(t, stdhttp.StatusForbidden, rec.Code, path)
	}

	rec := api.do(stdhttp.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	users := decode[struct {
		Users []services.AdminUser `json:"users"`
	}](t, rec)
	assert.Len(t, users.Users, 5)

	rec = api.do(stdhttp.MethodGet, "/api/admin/teams", admin, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	teams := decode[struct {
		Teams []services.AdminTeam `json:"teams"`
	}](t, rec)
	assert.Len(t, teams.Teams, 2)

	rec = api.do(stdhttp.MethodPatch, "/api/admin/organization/settings", admin, map[string]int{"retentionDays": 45})
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_retention", errorCode(t, rec))

	rec = api.do(stdhttp.MethodPatch, "/api/admin/organization/settings", agent, map[string]int{"retentionDays": 30})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = api.do(stdhttp.MethodPatch, "/api/admin/organization/settings", admin, map[string]int{"retentionDays": 365})
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	org := decode[struct {
		Organization services.AdminOrganization `json:"organization"`
	}](t, rec)
	assert.Equal(t, 365, org.Organization.Settings.RetentionDays)
	assert.True(t, org.Organization.Settings.AllowRecordingDownload)
	assert.Equal(t, 25, org.Organization.Seats)
}
