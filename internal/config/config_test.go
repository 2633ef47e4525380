package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agonx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Point at an empty directory so no agonx.yaml is found.
	t.Setenv("HOME", t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000/api/v1", cfg.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, "incremental", cfg.DeltaPolicy)
	require.Equal(t, "detach", cfg.SwitchPolicy)
	require.Equal(t, 20, cfg.PageSize)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 256, cfg.SearchCacheSize)
	require.Equal(t, 2, cfg.SearchRetries)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
base_url: https://agonx.example.com/api/v1
timeout: 5s
delta_policy: cumulative
switch_policy: cancel
page_size: 50
default_collection: kb-main
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://agonx.example.com/api/v1", cfg.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, "cumulative", cfg.DeltaPolicy)
	require.Equal(t, "cancel", cfg.SwitchPolicy)
	require.Equal(t, 50, cfg.PageSize)
	require.Equal(t, "kb-main", cfg.DefaultCollection)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "base_url: https://file.example.com\n")
	t.Setenv("AGONX_BASE_URL", "https://env.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.BaseURL)
}

func TestInvalidDeltaPolicyRejected(t *testing.T) {
	path := writeConfig(t, "delta_policy: sideways\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "delta_policy")
}

func TestInvalidSwitchPolicyRejected(t *testing.T) {
	path := writeConfig(t, "switch_policy: pause\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "switch_policy")
}

func TestNegativeSearchRetriesRejected(t *testing.T) {
	path := writeConfig(t, "search_retries: -1\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "search_retries")
}

func TestExplicitMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
