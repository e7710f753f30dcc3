package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 5556, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "heartbeat", cfg.HeartbeatTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.RelayEnabled())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "127.0.0.1:8085", cfg.APIAddr())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOLT_PORT", "7000")
	t.Setenv("HEARTBEAT_INTERVAL", "250ms")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("GO_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.HeartbeatInterval)
	assert.True(t, cfg.RelayEnabled())
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfig_BadValue(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOLT_PORT", "not-a-port")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Port = 70000
	cfg.HeartbeatInterval = 0
	cfg.LogLevel = "fatal"
	cfg.LogFormat = "xml"
	cfg.HeartbeatTopic = "a\nb"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"BOLT_PORT", "HEARTBEAT_INTERVAL", "LOG_LEVEL", "LOG_FORMAT", "HEARTBEAT_TOPIC"} {
		assert.Contains(t, err.Error(), want)
	}
}
