package app

import (
	"strings"
	"time"

	"github.com/yungbote/nepq-coach-backend/internal/observability"
	"github.com/yungbote/nepq-coach-backend/internal/platform/envutil"
	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Address         string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	ServiceName string
	Environment string
	Version     string
	Tracing     observability.OtelConfig

	// AutoMigrate runs the schema migration before serving.
	AutoMigrate bool
	// SeedOnStart loads the demo catalog before serving.
	SeedOnStart bool
}

func LoadConfig(log *logger.Logger) Config {
	accessTokenTTLSeconds := envutil.Int("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTLSeconds := envutil.Int("REFRESH_TOKEN_TTL", 86400, log)

	addr := strings.TrimSpace(envutil.String("ADDR", "", log))
	if addr == "" {
		addr = ":" + envutil.String("PORT", "8080", log)
	}

	return Config{
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:  time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTokenTTLSeconds) * time.Second,
		Address:         addr,
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second, log),
		AllowedOrigins:  splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),
		ServiceName:     envutil.String("OTEL_SERVICE_NAME", "nepq-coach-backend", log),
		Environment:     envutil.String("APP_ENV", "development", log),
		Version:         envutil.String("APP_VERSION", "dev", log),
		Tracing:         observability.LoadOtelConfig(log),
		AutoMigrate:     envutil.Bool("DB_AUTOMIGRATE", true, log),
		SeedOnStart:     envutil.Bool("SEED_ON_START", false, log),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
