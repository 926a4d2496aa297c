// Package config loads the process environment and the persisted settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Env holds process configuration loaded from environment variables.
type Env struct {
	// Home is the data directory; defaults to ~/.trio.
	Home       string `envconfig:"TRIO_HOME"`
	ConfigPath string `envconfig:"TRIO_CONFIG"`
	DBPath     string `envconfig:"TRIO_DB_PATH"`

	// APIKey overrides the settings file api_key for this process only.
	APIKey string `envconfig:"ANTHROPIC_API_KEY"`

	Environment string `envconfig:"ENVIRONMENT" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`

	TurnTimeout  time.Duration `envconfig:"TRIO_TURN_TIMEOUT" default:"120s"`
	HistoryLimit int           `envconfig:"TRIO_HISTORY_LIMIT" default:"10"`
	LaneDepth    int           `envconfig:"TRIO_LANE_DEPTH" default:"4"`
}

// Development reports whether human-readable console logging should be used.
func (e *Env) Development() bool {
	return e.Environment == "development"
}

// Load reads configuration from environment variables and resolves default paths.
func Load() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := env.resolve(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) resolve() error {
	if e.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		e.Home = filepath.Join(home, ".trio")
	}
	if e.ConfigPath == "" {
		e.ConfigPath = filepath.Join(e.Home, "config.yaml")
	}
	if e.DBPath == "" {
		e.DBPath = filepath.Join(e.Home, "trio.db")
	}
	if e.TurnTimeout <= 0 {
		return fmt.Errorf("TRIO_TURN_TIMEOUT must be positive, got %s", e.TurnTimeout)
	}
	if e.HistoryLimit <= 0 {
		return fmt.Errorf("TRIO_HISTORY_LIMIT must be positive, got %d", e.HistoryLimit)
	}
	if e.LaneDepth <= 0 {
		return fmt.Errorf("TRIO_LANE_DEPTH must be positive, got %d", e.LaneDepth)
	}
	return nil
}
