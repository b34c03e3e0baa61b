package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAFKTimeout, cfg.AFKTimeout)
	assert.Equal(t, DefaultRejoinWindow, cfg.RejoinWindow)
	assert.Equal(t, DefaultHeartbeatInterval, cfg.HeartbeatInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LUDO_AFK_TIMEOUT", "45s")
	t.Setenv("LUDO_REDIS_ADDR", "redis.internal:6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AFKTimeout)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("LUDO_REJOIN_WINDOW", "sixty seconds")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LUDO_REJOIN_WINDOW")
}

func TestLoadRejectsNonPositiveDuration(t *testing.T) {
	t.Setenv("LUDO_HEARTBEAT_INTERVAL", "-2s")
	_, err := Load()
	require.Error(t, err)
}
