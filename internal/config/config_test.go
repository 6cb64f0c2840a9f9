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

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "2025-10-30", cfg.Dashboard.ReferenceDate)
	assert.Equal(t, 160.0, cfg.Dashboard.AssumedOperatingHours)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DASHBOARD_REFERENCE_DATE", "2026-01-15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "2026-01-15", cfg.Dashboard.ReferenceDate)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("OEE_TEST_KEY", "value")
	assert.Equal(t, "value", GetEnvOrDefault("OEE_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("OEE_TEST_MISSING_KEY", "fallback"))
}
