package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/PabloGalante/arcana/internal/domain"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

var storageBackends = []string{"memory", "sqlite", "firestore"}

type Config struct {
	Mode Mode `env:"ARCANA_MODE" envDefault:"local"`

	Port           int           `env:"ARCANA_PORT" envDefault:"8080"`
	LogLevel       string        `env:"ARCANA_LOG_LEVEL" envDefault:"info"`
	HandlerTimeout time.Duration `env:"ARCANA_HANDLER_TIMEOUT" envDefault:"540s"`
	CommandPrefix  string        `env:"ARCANA_COMMAND_PREFIX" envDefault:"?"`

	Deck      string `env:"ARCANA_DECK" envDefault:"major"`
	DeckFile  string `env:"ARCANA_DECK_FILE"`
	AssetsDir string `env:"ARCANA_ASSETS_DIR"`

	StorageBackend  string        `env:"ARCANA_STORAGE_BACKEND" envDefault:"memory"`
	SQLiteDSN       string        `env:"ARCANA_SQLITE_DSN" envDefault:"file:arcana.db"`
	SessionTTL      time.Duration `env:"ARCANA_SESSION_TTL" envDefault:"24h"`
	CleanupInterval time.Duration `env:"ARCANA_CLEANUP_INTERVAL" envDefault:"10m"`

	GCPProjectID string `env:"ARCANA_GCP_PROJECT"`
	GCPLocation  string `env:"ARCANA_GCP_LOCATION" envDefault:"us-central1"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	ModelName    string `env:"ARCANA_MODEL_NAME" envDefault:"gemini-2.5-flash"`

	// UseMockLLM defaults to true in local mode when unset.
	UseMockLLM *bool `env:"ARCANA_USE_MOCK_LLM"`

	OTelEndpoint string `env:"ARCANA_OTEL_ENDPOINT"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse env: %w", domain.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MockLLM reports whether the scripted local model should be used.
func (c *Config) MockLLM() bool {
	if c.UseMockLLM != nil {
		return *c.UseMockLLM
	}
	return c.Mode == ModeLocal
}

// Addr is the listen address for the webhook server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	var problems []string

	if c.Mode != ModeLocal && c.Mode != ModeGCP {
		problems = append(problems, fmt.Sprintf("ARCANA_MODE must be local or gcp, got %q", c.Mode))
	}
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("ARCANA_PORT out of range: %d", c.Port))
	}
	if strings.TrimSpace(c.CommandPrefix) == "" {
		problems = append(problems, "ARCANA_COMMAND_PREFIX must not be empty")
	}
	if c.HandlerTimeout <= 0 {
		problems = append(problems, "ARCANA_HANDLER_TIMEOUT must be positive")
	}
	if c.DeckFile == "" && c.Deck == "" {
		problems = append(problems, "one of ARCANA_DECK or ARCANA_DECK_FILE must be set")
	}
	if c.SessionTTL < 0 {
		problems = append(problems, "ARCANA_SESSION_TTL must not be negative")
	}
	if c.SessionTTL > 0 && c.CleanupInterval <= 0 {
		problems = append(problems, "ARCANA_CLEANUP_INTERVAL must be positive when sessions expire")
	}

	if !slices.Contains(storageBackends, c.StorageBackend) {
		problems = append(problems, fmt.Sprintf("ARCANA_STORAGE_BACKEND must be one of %s, got %q",
			strings.Join(storageBackends, ", "), c.StorageBackend))
	}
	if c.StorageBackend == "sqlite" && c.SQLiteDSN == "" {
		problems = append(problems, "ARCANA_SQLITE_DSN is required for the sqlite backend")
	}
	if c.StorageBackend == "firestore" && c.GCPProjectID == "" {
		problems = append(problems, "ARCANA_GCP_PROJECT is required for the firestore backend")
	}
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		problems = append(problems, "ARCANA_GCP_PROJECT must be set in gcp mode")
	}
	if !c.MockLLM() && c.GeminiAPIKey == "" && c.GCPProjectID == "" {
		problems = append(problems, "GEMINI_API_KEY or ARCANA_GCP_PROJECT is required unless ARCANA_USE_MOCK_LLM is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}
