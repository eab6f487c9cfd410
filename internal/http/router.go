package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/nepq-coach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/nepq-coach-backend/internal/http/middleware"
	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	RealtimeHandler *httpH.RealtimeHandler

	NEPQHandler        *httpH.NEPQHandler
	ScenarioHandler    *httpH.ScenarioHandler
	PersonaHandler     *httpH.PersonaHandler
	RecordingHandler   *httpH.RecordingHandler
	LeaderboardHandler *httpH.LeaderboardHandler
	LiveHandler        *httpH.LiveHandler
	AdminHandler       *httpH.AdminHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Auth (protected)
		if cfg.AuthHandler != nil {
			protected.POST("/logout", cfg.AuthHandler.Logout)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
			protected.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
			protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.PATCH("/user/name", cfg.UserHandler.ChangeName)
			protected.PATCH("/user/avatar_color", cfg.UserHandler.ChangeAvatarColor)
			protected.GET("/users/:id/avatar.png", cfg.UserHandler.Avatar)
		}

		// NEPQ model
		if cfg.NEPQHandler != nil {
			protected.GET("/nepq/stages", cfg.NEPQHandler.ListStages)
			protected.GET("/nepq/stages/:ordinal", cfg.NEPQHandler.GetStage)
			protected.POST("/nepq/score", cfg.NEPQHandler.Score)
		}

		// Scenarios & personas
		if cfg.ScenarioHandler != nil {
			protected.GET("/scenarios", cfg.ScenarioHandler.List)
			protected.POST("/scenarios", cfg.ScenarioHandler.Create)
			protected.GET("/scenarios/:id", cfg.ScenarioHandler.Get)
			protected.PATCH("/scenarios/:id/active", cfg.ScenarioHandler.SetActive)
		}
		if cfg.PersonaHandler != nil {
			protected.GET("/personas", cfg.PersonaHandler.List)
			protected.GET("/personas/:id", cfg.PersonaHandler.Get)
		}

		// Recordings
		if cfg.RecordingHandler != nil {
			protected.GET("/recordings", cfg.RecordingHandler.List)
			protected.POST("/recordings", cfg.RecordingHandler.Create)
			protected.GET("/recordings/:id", cfg.RecordingHandler.Get)
			protected.PUT("/recordings/:id", cfg.RecordingHandler.Revise)
			protected.POST("/recordings/:id/bookmark", cfg.RecordingHandler.ToggleBookmark)
			protected.POST("/recordings/:id/rescore", cfg.RecordingHandler.Rescore)
			protected.GET("/recordings/:id/comments", cfg.RecordingHandler.ListComments)
			protected.POST("/recordings/:id/comments", cfg.RecordingHandler.AddComment)
			protected.GET("/recordings/:id/transcript/stream", cfg.RecordingHandler.StreamTranscript)
			protected.POST("/comments/:id/reactions", cfg.RecordingHandler.React)
		}

		// Leaderboard
		if cfg.LeaderboardHandler != nil {
			protected.GET("/leaderboard", cfg.LeaderboardHandler.Get)
		}

		// Live practice session
		if cfg.LiveHandler != nil {
			protected.GET("/live", cfg.LiveHandler.Snapshot)
			protected.DELETE("/live", cfg.LiveHandler.Discard)
			protected.GET("/live/ws", cfg.LiveHandler.Socket)
			protected.POST("/live/start", cfg.LiveHandler.Start)
			protected.POST("/live/pause", cfg.LiveHandler.Pause)
			protected.POST("/live/resume", cfg.LiveHandler.Resume)
			protected.POST("/live/stop", cfg.LiveHandler.Stop)
			protected.POST("/live/finish", cfg.LiveHandler.Finish)
			protected.POST("/live/stage", cfg.LiveHandler.SetStage)
			protected.POST("/live/turns", cfg.LiveHandler.AddTurn)
			protected.PATCH("/live/turns/:turnId", cfg.LiveHandler.UpdateTurn)
			protected.POST("/live/violations", cfg.LiveHandler.Annotate)
			protected.POST("/live/audio", cfg.LiveHandler.SetAudioLevel)
			protected.POST("/live/device", cfg.LiveHandler.SetDevice)
			protected.GET("/live/:id/watch", cfg.LiveHandler.Watch)
		}

		// Organization admin
		if cfg.AdminHandler != nil {
			protected.GET("/admin/overview", cfg.AdminHandler.Overview)
			protected.GET("/admin/users", cfg.AdminHandler.ListUsers)
			protected.GET("/admin/teams", cfg.AdminHandler.ListTeams)
			protected.GET("/admin/organization", cfg.AdminHandler.Organization)
			protected.PATCH("/admin/organization/settings", cfg.AdminHandler.UpdateSettings)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "route not found", "code": "not_found"}})
	})
	return r
}
