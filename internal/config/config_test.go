package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".peerline"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".peerline", "config.yaml"), []byte(body), 0644))
}

// isolate points HOME at an empty directory and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvActor, "")
	t.Setenv(EnvStoreDSN, "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Path())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_WorkingDirectory(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeConfig(t, dir, `
actor: alice
log_level: debug
store:
  driver: postgres
  dsn: postgres://localhost/peerline
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Actor)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/peerline", cfg.Store.DSN)
	assert.Equal(t, filepath.Join(dir, ".peerline", "config.yaml"), cfg.Path())
}

func TestLoad_HomeFallback(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "actor: bob\n")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Actor)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeConfig(t, dir, "actor: alice\nstore:\n  dsn: /tmp/a.db\n")
	t.Setenv(EnvActor, "carol")
	t.Setenv(EnvStoreDSN, "/tmp/b.db")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.Actor)
	assert.Equal(t, "/tmp/b.db", cfg.Store.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "store: [\n"},
		{"unknown driver", "store:\n  driver: mysql\n"},
		{"postgres without dsn", "store:\n  driver: postgres\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestSlogLevel_Unknown(t *testing.T) {
	cfg := &Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	require.NoError(t, SaveConfig(dir, &Config{Actor: "dana", Store: StoreConfig{DSN: "/tmp/x.db"}}))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "dana", cfg.Actor)
	assert.Equal(t, "/tmp/x.db", cfg.Store.DSN)
}
