package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", cfg.Database.Driver)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.Agent.MaxSteps)
	assert.Zero(t, cfg.Agent.Timeout)
	assert.Equal(t, ":8501", cfg.HTTP.Address)
	assert.Equal(t, 2*time.Hour, cfg.HTTP.SessionTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{
		"DB_DRIVER":          "postgres",
		"AZURE_SQL_SERVER":   " db.example.net ",
		"AZURE_SQL_DATABASE": "bank",
		"AZURE_SQL_USERNAME": "reader",
		"AZURE_SQL_PASSWORD": " p@ss ",
		"LLM_PROVIDER":       "Anthropic",
		"ANTHROPIC_API_KEY":  "sk-ant",
		"AGENT_MAX_STEPS":    "7",
		"AGENT_TIMEOUT":      "90s",
		"ADDR":               ":9000",
		"SESSION_TTL":        "30m",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.example.net", cfg.Database.Server)
	assert.Equal(t, " p@ss ", cfg.Database.Password)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	assert.Equal(t, 7, cfg.Agent.MaxSteps)
	assert.Equal(t, 90*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Minute, cfg.HTTP.SessionTTL)
}

func TestLoadPrefersExplicitLLMKey(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{
		"LLM_API_KEY":    "explicit",
		"OPENAI_API_KEY": "implicit",
	}))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoadFallsBackToOpenAIKey(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{"OPENAI_API_KEY": "implicit"}))
	require.NoError(t, err)
	assert.Equal(t, "implicit", cfg.LLM.APIKey)
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	_, err := Load(lookupFrom(map[string]string{"AGENT_MAX_STEPS": "many"}))
	require.ErrorContains(t, err, "invalid AGENT_MAX_STEPS")

	_, err = Load(lookupFrom(map[string]string{"AGENT_TIMEOUT": "soon"}))
	require.ErrorContains(t, err, "invalid AGENT_TIMEOUT")
}

func TestValidateDatabaseListsMissing(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{"AZURE_SQL_SERVER": "srv"}))
	require.NoError(t, err)

	err = cfg.ValidateDatabase()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_SQL_DATABASE")
	assert.Contains(t, err.Error(), "AZURE_SQL_USERNAME")
	assert.Contains(t, err.Error(), "AZURE_SQL_PASSWORD")
	assert.NotContains(t, err.Error(), "AZURE_SQL_SERVER,")
}

func TestValidateDatabaseAcceptsDSN(t *testing.T) {
	cfg, err := Load(lookupFrom(map[string]string{"DB_DSN": "file::memory:"}))
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateDatabase())
}

func TestValidateLLM(t *testing.T) {
	cfg, err := Load(lookupFrom(nil))
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateLLM())

	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.ValidateLLM())
}
