// Package config reads the chatbot's settings from the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc matches os.LookupEnv so tests can pass a map-backed lookup.
type LookupFunc func(string) (string, bool)

// Config is the full runtime configuration.
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Agent    AgentConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

// DatabaseConfig holds connection settings. Either DSN or the four Azure SQL
// credentials must be present.
type DatabaseConfig struct {
	Driver   string
	DSN      string
	Server   string
	Name     string
	Username string
	Password string
}

// LLMConfig selects and authenticates the completion provider.
type LLMConfig struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	Model    string
	BaseURL  string
}

// AgentConfig tunes the question-answering loop.
type AgentConfig struct {
	MaxSteps   int
	Timeout    time.Duration // 0 means no timeout
	PromptFile string
}

// HTTPConfig configures the page surface.
type HTTPConfig struct {
	Address    string
	SessionTTL time.Duration // idle time after which a chat session is dropped
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string
	Format string // "console" or "json"
}

// LoadFromEnv reads the configuration from the process environment.
func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load builds a Config from lookup. It fails only on values that do not parse;
// required settings are checked by ValidateDatabase and ValidateLLM.
func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := defaults()

	applyString(lookup, "DB_DRIVER", &cfg.Database.Driver)
	applyString(lookup, "DB_DSN", &cfg.Database.DSN)
	applyString(lookup, "AZURE_SQL_SERVER", &cfg.Database.Server)
	applyString(lookup, "AZURE_SQL_DATABASE", &cfg.Database.Name)
	applyString(lookup, "AZURE_SQL_USERNAME", &cfg.Database.Username)
	applyRaw(lookup, "AZURE_SQL_PASSWORD", &cfg.Database.Password)

	applyString(lookup, "LLM_PROVIDER", &cfg.LLM.Provider)
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	applyString(lookup, "LLM_MODEL", &cfg.LLM.Model)
	applyString(lookup, "LLM_BASE_URL", &cfg.LLM.BaseURL)
	applyRaw(lookup, "LLM_API_KEY", &cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		// The provider SDKs conventionally read these.
		switch cfg.LLM.Provider {
		case "anthropic":
			applyRaw(lookup, "ANTHROPIC_API_KEY", &cfg.LLM.APIKey)
		default:
			applyRaw(lookup, "OPENAI_API_KEY", &cfg.LLM.APIKey)
		}
	}

	if err := applyInt(lookup, "AGENT_MAX_STEPS", &cfg.Agent.MaxSteps); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "AGENT_TIMEOUT", &cfg.Agent.Timeout); err != nil {
		return Config{}, err
	}
	applyString(lookup, "PROMPT_FILE", &cfg.Agent.PromptFile)

	applyString(lookup, "ADDR", &cfg.HTTP.Address)
	if err := applyDuration(lookup, "SESSION_TTL", &cfg.HTTP.SessionTTL); err != nil {
		return Config{}, err
	}
	applyString(lookup, "LOG_LEVEL", &cfg.Log.Level)
	applyString(lookup, "LOG_FORMAT", &cfg.Log.Format)

	return cfg, nil
}

// ValidateDatabase reports every missing database variable at once.
func (c Config) ValidateDatabase() error {
	if c.Database.DSN != "" {
		return nil
	}
	var missing []string
	if c.Database.Server == "" {
		missing = append(missing, "AZURE_SQL_SERVER")
	}
	if c.Database.Name == "" {
		missing = append(missing, "AZURE_SQL_DATABASE")
	}
	if c.Database.Username == "" {
		missing = append(missing, "AZURE_SQL_USERNAME")
	}
	if c.Database.Password == "" {
		missing = append(missing, "AZURE_SQL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s (or set DB_DSN)", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateLLM checks that a credential is available for the chosen provider.
func (c Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	return nil
}

func defaults() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlserver"},
		LLM:      LLMConfig{Provider: "openai"},
		Agent:    AgentConfig{MaxSteps: 15},
		HTTP:     HTTPConfig{Address: ":8501", SessionTTL: 2 * time.Hour},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

func applyString(lookup LookupFunc, key string, dst *string) {
	if raw, ok := lookup(key); ok && strings.TrimSpace(raw) != "" {
		*dst = strings.TrimSpace(raw)
	}
}

// applyRaw keeps surrounding whitespace; secrets are taken verbatim.
func applyRaw(lookup LookupFunc, key string, dst *string) {
	if raw, ok := lookup(key); ok && raw != "" {
		*dst = raw
	}
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}
