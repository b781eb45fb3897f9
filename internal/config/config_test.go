package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"RELAY_HOST", "RELAY_PORT", "LOG_LEVEL", "LOG_FILE", "WEAPONS_FILE", "DEFAULT_WEAPON",
	"DAMAGE_POLICY", "COUNTER_STORE", "REDIS_URL", "MESSAGE_RATE", "MESSAGE_BURST",
	"ENFORCE_FIRE_RATE", "FIRE_RATE_TOLERANCE", "SUSPICION_THRESHOLD", "CLEANUP_INTERVAL",
	"SEND_BUFFER", "ALLOWED_ORIGINS",
}

// clearEnv blanks every relay variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "fixed-random", cfg.DamagePolicy)
	assert.Equal(t, CounterStoreMemory, cfg.CounterStore)
	assert.Equal(t, 30.0, cfg.MessageRate)
	assert.Equal(t, 60, cfg.MessageBurst)
	assert.True(t, cfg.EnforceFireRate)
	assert.Equal(t, 0.8, cfg.FireRateTolerance)
	assert.Equal(t, 10, cfg.SuspicionThreshold)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_HOST", "127.0.0.1")
	t.Setenv("RELAY_PORT", "8080")
	t.Setenv("DAMAGE_POLICY", "weapon-stats")
	t.Setenv("COUNTER_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ENFORCE_FIRE_RATE", "false")
	t.Setenv("CLEANUP_INTERVAL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "weapon-stats", cfg.DamagePolicy)
	assert.Equal(t, CounterStoreRedis, cfg.CounterStore)
	assert.False(t, cfg.EnforceFireRate)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_UnparseableValuesFail(t *testing.T) {
	clearEnv(t)
	t.Setenv("RELAY_PORT", "abc")
	t.Setenv("MESSAGE_RATE", "fast")
	t.Setenv("CLEANUP_INTERVAL", "soon")
	t.Setenv("ENFORCE_FIRE_RATE", "maybe")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	for _, key := range []string{"RELAY_PORT", "MESSAGE_RATE", "CLEANUP_INTERVAL", "ENFORCE_FIRE_RATE"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoad_ZeroBurstWithRate(t *testing.T) {
	clearEnv(t)
	t.Setenv("MESSAGE_BURST", "0")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MESSAGE_BURST")

	t.Setenv("MESSAGE_RATE", "0")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err, "an unlimited rate needs no burst")
	assert.Equal(t, 0, cfg.MessageBurst)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills variables that are unset, not ones set to ""
	require.NoError(t, os.Unsetenv("RELAY_PORT"))
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))
	t.Cleanup(func() {
		_ = os.Unsetenv("RELAY_PORT")
		_ = os.Unsetenv("LOG_LEVEL")
	})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RELAY_PORT=4000\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              3001,
			CounterStore:      CounterStoreMemory,
			FireRateTolerance: 0.8,
			SendBuffer:        256,
			CleanupInterval:   time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "redis without url", mutate: func(c *Config) { c.CounterStore = CounterStoreRedis }, wantErr: "REDIS_URL"},
		{name: "unknown store", mutate: func(c *Config) { c.CounterStore = "etcd" }, wantErr: "COUNTER_STORE"},
		{name: "port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "RELAY_PORT"},
		{name: "tolerance", mutate: func(c *Config) { c.FireRateTolerance = 1.5 }, wantErr: "FIRE_RATE_TOLERANCE"},
		{name: "send buffer", mutate: func(c *Config) { c.SendBuffer = 0 }, wantErr: "SEND_BUFFER"},
		{name: "cleanup", mutate: func(c *Config) { c.CleanupInterval = 0 }, wantErr: "CLEANUP_INTERVAL"},
		{name: "burst", mutate: func(c *Config) { c.MessageRate = 10 }, wantErr: "MESSAGE_BURST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
