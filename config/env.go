package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable, e.g.
// REVIEWKIT_REVIEW_APP_ID or REVIEWKIT_STORAGE_SQL_DSN.
const EnvPrefix = "REVIEWKIT_"

// loadFromEnv overlays environment variables on cfg. Unset variables keep
// the current value. Lists are comma separated and maps use key:value pairs.
func loadFromEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env.local and .env from the working directory. Variables
// already set in the process win. Setting REVIEWKIT_DOTENV=off disables it.
func LoadDotEnv(log *slog.Logger) error {
	if dotEnvDisabled() {
		return nil
	}
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		if log != nil {
			log.Debug("loaded env file", "path", p)
		}
	}
	return nil
}

func dotEnvDisabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvPrefix + "DOTENV"))) {
	case "0", "false", "off", "no":
		return true
	}
	return false
}
