package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration, loaded from the environment.
type Config struct {
	// Bot settings
	BotToken      string `env:"BOT_TOKEN,notEmpty"`
	BotName       string `env:"BOT_NAME" envDefault:"tacobot"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"%"`

	// Object storage (playlist files)
	AWSAccessKey string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Bucket     string `env:"S3_BUCKET" envDefault:"tacobot"`

	// Optional Postgres-backed playlist storage
	UseDatabase bool   `env:"USE_DATABASE" envDefault:"false"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Scratch space for playlist file transfers
	TempDir string `env:"TEMP_DIR" envDefault:"./tmp"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from a .env file (if present) and the
// environment.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if len(cfg.BotToken) < 50 {
		return nil, fmt.Errorf("invalid BOT_TOKEN format (too short)")
	}
	if cfg.UseDatabase && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("USE_DATABASE is set but DATABASE_URL is empty")
	}

	return cfg, nil
}

// SafeToken returns a masked version of the token for logging.
func (c *Config) SafeToken() string {
	if len(c.BotToken) < 15 {
		return "***"
	}
	return c.BotToken[:10] + "..." + c.BotToken[len(c.BotToken)-4:]
}
