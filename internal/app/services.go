package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/nepq"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
	"github.com/yungbote/nepq-coach-backend/internal/recorder"
	"github.com/yungbote/nepq-coach-backend/internal/services"
)

type Services struct {
	// Core
	Avatar  services.AvatarService
	Emitter services.SSEEmitter
	Scorer  nepq.Scorer

	Auth services.AuthService
	User services.UserService

	// Training catalog
	Persona  services.PersonaService
	Scenario services.ScenarioService

	// Recordings + review
	Recording   services.RecordingService
	Comment     services.CommentService
	Replay      services.TranscriptReplayService
	Leaderboard services.LeaderboardService

	Admin services.AdminService

	// Live capture
	Recorders *recorder.Registry
	Live      services.LiveSessionService

	Seed services.SeedService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, sseHub *realtime.SSEHub, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	avatarService, err := services.NewAvatarService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}

	// With a bus every instance's forwarder feeds its own hub; without one
	// events go straight to the local hub.
	emitter := services.NewSSEEmitter(sseHub, clients.SSEBus, log)
	scorer := nepq.DefaultScorer

	authService := services.NewAuthService(
		db, log,
		repos.User,
		repos.UserToken,
		cfg.JWTSecretKey,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	userService := services.NewUserService(db, log, repos.User, avatarService, emitter)

	personaService := services.NewPersonaService(db, log, repos.Persona)
	scenarioService := services.NewScenarioService(db, log, repos.Scenario, repos.Persona, repos.Recording)

	recordingNotifier := services.NewRecordingNotifier(emitter)
	recordingService := services.NewRecordingService(db, log, repos.Recording, repos.Scenario, repos.User, recordingNotifier, scorer)
	commentService := services.NewCommentService(db, log, repos.Comment, repos.Recording, repos.User, recordingNotifier)
	replayService := services.NewTranscriptReplayService(log, recordingService)
	leaderboardService := services.NewLeaderboardService(log, repos.Recording, repos.User, repos.Team)
	adminService := services.NewAdminService(db, log, repos.Organization, repos.Team, repos.User, repos.Recording)

	registry := recorder.NewRegistry(nil)
	liveService := services.NewLiveSessionService(log, registry, repos.Scenario, repos.User, recordingService, services.NewLiveNotifier(emitter))

	catalog, err := services.LoadSeedCatalog(log)
	if err != nil {
		return Services{}, fmt.Errorf("load seed catalog: %w", err)
	}
	seedService := services.NewSeedService(
		db, log, catalog,
		repos.Organization,
		repos.Team,
		repos.User,
		repos.Persona,
		repos.Scenario,
		repos.Recording,
		scorer,
	)

	return Services{
		Avatar:      avatarService,
		Emitter:     emitter,
		Scorer:      scorer,
		Auth:        authService,
		User:        userService,
		Persona:     personaService,
		Scenario:    scenarioService,
		Recording:   recordingService,
		Comment:     commentService,
		Replay:      replayService,
		Leaderboard: leaderboardService,
		Admin:       adminService,
		Recorders:   registry,
		Live:        liveService,
		Seed:        seedService,
	}, nil
}
