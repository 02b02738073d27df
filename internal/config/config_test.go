package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "Asia/Kolkata", cfg.Timezone)
	require.Equal(t, 5*time.Minute, cfg.SweepInterval)
	require.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestFileThenEnv(t *testing.T) {
	path := writeFile(t, `
http_addr: ":9090"
redis_addr: "localhost:6379"
timezone: "UTC"
sweep_interval: "2m"
log_level: "debug"
`)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("SWEEP_INTERVAL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTPAddr)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, "UTC", cfg.Timezone)
	require.Equal(t, 30*time.Second, cfg.SweepInterval)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalid(t *testing.T) {
	_, err := Load(writeFile(t, `sweep_interval: "soon"`))
	require.Error(t, err)

	_, err = Load(writeFile(t, `timezone: "Mars/Olympus"`))
	require.Error(t, err)

	t.Setenv("GCAL_CREDENTIALS", "/etc/gcal.json")
	_, err = Load("")
	require.ErrorContains(t, err, "gcal calendar id")
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
