package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Service.Address)
	assert.Empty(t, cfg.Service.APIKey)
	assert.Equal(t, 5, cfg.Limits.Count)
	assert.Equal(t, time.Hour, cfg.RateWindow())
	assert.Equal(t, 3, cfg.Limits.Concurrent)
	assert.Equal(t, time.Minute, cfg.Janitor.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Janitor.Retention)
	assert.Equal(t, 500*time.Millisecond, cfg.Transport.EventsPollInterval)
	assert.False(t, cfg.Engine.AutoUpdate)
	assert.Equal(t, time.Hour, cfg.UpdateInterval())
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("INSTAWEB_API_KEY", "secret")
	t.Setenv("RATE_LIMIT_COUNT", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "60")
	t.Setenv("YTDLP_AUTO_UPDATE", "true")
	t.Setenv("YTDLP_UPDATE_INTERVAL_MIN", "0")
	t.Setenv("JANITOR_RETENTION", "5m")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Service.APIKey)
	assert.Equal(t, 10, cfg.Limits.Count)
	assert.Equal(t, time.Minute, cfg.RateWindow())
	assert.True(t, cfg.Engine.AutoUpdate)
	assert.Equal(t, time.Minute, cfg.UpdateInterval())
	assert.Equal(t, 5*time.Minute, cfg.Janitor.Retention)
	assert.NotContains(t, cfg.String(), "secret")
}

func TestNew_Invalid(t *testing.T) {
	t.Setenv("RATE_LIMIT_CONCURRENT", "0")
	_, err := New()
	assert.Error(t, err)
}
