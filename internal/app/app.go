package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/nepq-coach-backend/internal/data/db"
	"github.com/yungbote/nepq-coach-backend/internal/http"
	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/envutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
	"github.com/yungbote/nepq-coach-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbService *db.Service
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// New opens the database and wires every layer. Callers own Close.
func New(log *logger.Logger) (*App, error) {
	envutil.LoadDotEnv(log)

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.NewService(log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = dbService.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	a, err := Assemble(log, cfg, theDB)
	if err != nil {
		_ = dbService.Close()
		return nil, err
	}
	a.dbService = dbService
	return a, nil
}

// Assemble wires repos, services and the HTTP server on an open database.
func Assemble(log *logger.Logger, cfg Config, theDB *gorm.DB) (*App, error) {
	metrics := observability.Init(log)
	ssehub := realtime.NewSSEHub(log)

	clients, err := wireClients(log)
	if err != nil {
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, ssehub, clients)
	if err != nil {
		clients.Close()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, theDB, serviceset, ssehub)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:      log,
		DB:       theDB,
		Server:   server,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Clients:  clients,
		SSEHub:   ssehub,
		Metrics:  metrics,
	}, nil
}

// Run serves HTTP and the background loops until ctx is cancelled or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}

	tracing := a.Cfg.Tracing
	tracing.ServiceName = a.Cfg.ServiceName
	tracing.Environment = a.Cfg.Environment
	tracing.Version = a.Cfg.Version
	shutdownOTel := observability.InitOTel(ctx, a.Log, tracing)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}()

	if a.Cfg.SeedOnStart {
		report, err := a.Services.Seed.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		a.Log.Info("Seeded demo data", "report", report)
	}

	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartDBCollector(gctx, a.Log, a.DB)

	if a.Clients.SSEBus != nil {
		if err := a.Clients.SSEBus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("sse forwarder: %w", err)
		}
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "address", a.Cfg.Address)
		return a.Server.Run(gctx, a.Cfg.Address, a.Cfg.ShutdownTimeout)
	})

	err := g.Wait()
	// Live recorders are process memory; unfinished ones do not survive.
	if n := a.Services.Recorders.Active(); n > 0 {
		a.Log.Warn("Dropping unfinished live sessions", "count", n)
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil && a.Log != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
