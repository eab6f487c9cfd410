package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/http"
	httpH "github.com/yungbote/nepq-coach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/nepq-coach-backend/internal/http/middleware"
	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Auth        *httpH.AuthHandler
	User        *httpH.UserHandler
	Realtime    *httpH.RealtimeHandler
	NEPQ        *httpH.NEPQHandler
	Scenario    *httpH.ScenarioHandler
	Persona     *httpH.PersonaHandler
	Recording   *httpH.RecordingHandler
	Leaderboard *httpH.LeaderboardHandler
	Live        *httpH.LiveHandler
	Admin       *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db *gorm.DB, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(pingDB(db)),
		Auth:        httpH.NewAuthHandler(services.Auth),
		User:        httpH.NewUserHandler(services.User),
		Realtime:    httpH.NewRealtimeHandler(log, sseHub, services.Recording, services.Live),
		NEPQ:        httpH.NewNEPQHandler(services.Scorer),
		Scenario:    httpH.NewScenarioHandler(services.Scenario),
		Persona:     httpH.NewPersonaHandler(services.Persona),
		Recording:   httpH.NewRecordingHandler(log, services.Recording, services.Comment, services.Replay),
		Leaderboard: httpH.NewLeaderboardHandler(services.Leaderboard),
		Live:        httpH.NewLiveHandler(log, services.Live, cfg.AllowedOrigins),
		Admin:       httpH.NewAdminHandler(services.Admin),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.AllowedOrigins,

		HealthHandler:      handlers.Health,
		AuthHandler:        handlers.Auth,
		AuthMiddleware:     middleware.Auth,
		UserHandler:        handlers.User,
		RealtimeHandler:    handlers.Realtime,
		NEPQHandler:        handlers.NEPQ,
		ScenarioHandler:    handlers.Scenario,
		PersonaHandler:     handlers.Persona,
		RecordingHandler:   handlers.Recording,
		LeaderboardHandler: handlers.Leaderboard,
		LiveHandler:        handlers.Live,
		AdminHandler:       handlers.Admin,
	})
}

func pingDB(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
