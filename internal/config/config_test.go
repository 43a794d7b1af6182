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
	path := filepath.Join(t.TempDir(), "sitewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api_base_url: https://api.example.com/report
api_token: sekrit
interval: 5s
max_workers: 4
development: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/report", cfg.APIBaseURL)
	require.Equal(t, "sekrit", cfg.APIToken)
	require.Equal(t, 5*time.Second, cfg.Interval)
	require.Equal(t, 4, cfg.MaxWorkers)
	require.True(t, cfg.Development)

	// Untouched fields keep their defaults.
	require.Equal(t, 30*time.Second, cfg.FetchTimeout)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.NotEmpty(t, cfg.Rules.ExcludedKeywords)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("SITEWATCH_API_TOKEN", "from-env")

	path := writeConfig(t, `
api_base_url: https://api.example.com/report
api_token: from-file
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.APIToken)
}

func TestLoadRequiresAPISettings(t *testing.T) {
	path := writeConfig(t, `
interval: 2s
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "api_base_url is required")
}

func TestLoadRuleOverridePartial(t *testing.T) {
	path := writeConfig(t, `
api_base_url: https://api.example.com/report
api_token: sekrit
rules:
  excluded_keywords: ["사장"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"사장"}, cfg.Rules.ExcludedKeywords)
	// Lists not named in the file fall back to defaults.
	require.NotEmpty(t, cfg.Rules.ExcludedNamePatterns)
	require.NotEmpty(t, cfg.Rules.TitleDenyNames)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
