package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

// LoadDotEnv reads .env-style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(log *logger.Logger, paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if log != nil {
				log.Warn("Failed to load env file", "path", p, "error", err)
			}
			continue
		}
		if log != nil {
			log.Info("Loaded env file", "path", p)
		}
	}
}

func String(key, def string, log *logger.Logger) string {
	val, ok := lookup(key)
	if !ok {
		logDefault(log, key, def)
		return def
	}
	return val
}

func Int(key string, def int, log *logger.Logger) int {
	raw, ok := lookup(key)
	if !ok {
		logDefault(log, key, def)
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		logUnparsable(log, key, raw, def, err)
		return def
	}
	return i
}

func Bool(key string, def bool, log *logger.Logger) bool {
	raw, ok := lookup(key)
	if !ok {
		logDefault(log, key, def)
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	logUnparsable(log, key, raw, def, nil)
	return def
}

// Duration accepts Go duration strings ("90s") or a bare number of seconds.
func Duration(key string, def time.Duration, log *logger.Logger) time.Duration {
	raw, ok := lookup(key)
	if !ok {
		logDefault(log, key, def)
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logUnparsable(log, key, raw, def, err)
		return def
	}
	return d
}

func lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

func logDefault(log *logger.Logger, key string, def any) {
	if log != nil {
		log.Debug("Environment variable not found, using default", "env_var", key, "default", def)
	}
}

func logUnparsable(log *logger.Logger, key, raw string, def any, err error) {
	if log != nil {
		log.Warn("Environment variable could not be parsed, using default", "env_var", key, "provided", raw, "default", def, "error", err)
	}
}
