package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's real token file and config out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(TokenEnv, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.ErrorIs(t, cfg.RequireToken(), ErrMissingToken)

	require.Equal(t, "en", cfg.Content.Language)
	require.Equal(t, 10*time.Second, cfg.Content.Timeout)
	require.Equal(t, 128, cfg.Cache.Capacity)
	require.Equal(t, time.Hour, cfg.Redis.TTL)
	require.Equal(t, 2000, cfg.Pagination.PageSize)
	require.Equal(t, 60*time.Second, cfg.Pagination.IdleTimeout)
	require.Equal(t, 30*time.Second, cfg.Pagination.ReplyTimeout)
	require.Equal(t, BackendSQLite, cfg.Registry.Backend)
	require.Equal(t, "data/registry.db", cfg.Registry.Path)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Control.Addr)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
content:
  language: de
pagination:
  page_size: 1500
  idle_timeout: 2m
registry:
  backend: YAML
  path: data/registry.yaml
`), 0o644))

	t.Setenv("WIKIGUIDE_PAGINATION_PAGE_SIZE", "1000")
	t.Setenv(TokenEnv, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.RequireToken())

	require.Equal(t, "de", cfg.Content.Language)
	require.Equal(t, 1000, cfg.Pagination.PageSize)
	require.Equal(t, 2*time.Minute, cfg.Pagination.IdleTimeout)
	require.Equal(t, BackendYAML, cfg.Registry.Backend)
	require.Equal(t, "from-env", cfg.DiscordToken)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wikiguide.yaml"), []byte("cache:\n  capacity: 7\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Cache.Capacity)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
}

func TestTokenFallbackFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".local", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".local", "bin", ".env"), []byte(TokenEnv+"=from-file\n"), 0o600))
	require.NoError(t, os.Unsetenv(TokenEnv))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.DiscordToken)
}

func TestValidateRejectsBadValues(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	bad := *cfg
	bad.Pagination.PageSize = 5000
	require.ErrorContains(t, bad.Validate(), "PageSize")

	bad = *cfg
	bad.Registry.Backend = "json"
	require.ErrorContains(t, bad.Validate(), "Backend")

	bad = *cfg
	bad.Control.Addr = "not an addr"
	require.ErrorContains(t, bad.Validate(), "Addr")
}
