package app

import (
	"strings"
	"time"

	"github.com/planforge/planforge-backend/internal/platform/envutil"
	"github.com/planforge/planforge-backend/internal/platform/logger"
	"github.com/planforge/planforge-backend/internal/session"
)

type Config struct {
	Port             string
	AllowedOrigins   []string
	DebounceInterval time.Duration

	// SyncEnabled turns the Redis cross-instance bus on. Single-process
	// deployments run fine without it; the local hub still gets every event.
	SyncEnabled bool
}

func LoadConfig(log *logger.Logger) Config {
	port := envutil.GetEnv("PORT", "8080", log)
	origins := envutil.GetEnv("ALLOWED_ORIGINS", "", log)
	debounce := envutil.GetEnvAsDuration("AUTOSAVE_DEBOUNCE", session.DefaultDebounceInterval, log)
	syncEnabled := strings.EqualFold(envutil.GetEnv("SYNC_ENABLED", "true", log), "true")

	cfg := Config{
		Port:             port,
		DebounceInterval: debounce,
		SyncEnabled:      syncEnabled,
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg
}
