// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config is the full runtime configuration.
type Config struct {
	// Telegram
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminUserIDs     []int64 `env:"ADMIN_USERS" envSeparator:":"`

	// Database
	DBType      string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	DataDir     string `env:"DATA_DIR" envDefault:"data"`

	// Card generation
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Feed
	CardsPerBatch int   `env:"CARDS_PER_BATCH" envDefault:"3"`
	BanditSeed    int64 `env:"BANDIT_SEED"` // 0 seeds from the clock

	// Reminders
	RemindersEnabled bool `env:"REMINDERS_ENABLED" envDefault:"true"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
