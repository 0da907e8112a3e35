// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration.
type Config struct {
	DBPath string `env:"CHINGOO_DB_PATH" envDefault:"data/chingoo.db"`

	LogLevel  string `env:"CHINGOO_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CHINGOO_LOG_FORMAT" envDefault:"json"`

	OpenAIAPIKey  string `env:"CHINGOO_OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"CHINGOO_OPENAI_API_BASE"`
	OpenAIModel   string `env:"CHINGOO_OPENAI_MODEL"`

	// MaintenanceSchedule is a cron expression for the retention sweep.
	MaintenanceSchedule string `env:"CHINGOO_MAINTENANCE_SCHEDULE" envDefault:"0 4 * * *"`
	// RelationshipDecayDays is the idle period before scores start decaying.
	RelationshipDecayDays int `env:"CHINGOO_RELATIONSHIP_DECAY_DAYS" envDefault:"14"`
	// RelationshipDecayStep is how many points an idle pair loses per sweep.
	RelationshipDecayStep int `env:"CHINGOO_RELATIONSHIP_DECAY_STEP" envDefault:"1"`
	// PersonaWindowRetentionDays bounds how long window-log rows are kept.
	PersonaWindowRetentionDays int `env:"CHINGOO_PERSONA_WINDOW_RETENTION_DAYS" envDefault:"30"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment config: %w", err)
	}
	if cfg.RelationshipDecayDays < 1 {
		cfg.RelationshipDecayDays = 1
	}
	if cfg.RelationshipDecayStep < 0 {
		cfg.RelationshipDecayStep = 0
	}
	return cfg, nil
}
