package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddress)
	assert.Equal(t, "purchase", cfg.StreakMode)
	assert.Equal(t, "dev", cfg.LogMode)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.DatabaseURI)
}

func TestParseEnvOverridesFlags(t *testing.T) {
	cfg, err := Parse(
		[]string{"-a", ":9000", "-d", "postgres://flag", "-streak", "purchase"},
		env(map[string]string{
			"DATABASE_URI":  "postgres://env",
			"STREAK_MODE":   "daily",
			"STORE_TIMEOUT": "1500ms",
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.RunAddress)
	assert.Equal(t, "postgres://env", cfg.DatabaseURI)
	assert.Equal(t, "daily", cfg.StreakMode)
	assert.Equal(t, 1500*time.Millisecond, cfg.StoreTimeout)
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse(nil, env(map[string]string{"POLL_INTERVAL": "soon"}))
	assert.ErrorContains(t, err, "POLL_INTERVAL")
}
