package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.BindTo)
	assert.False(t, cfg.Server.Debug)
	assert.Equal(t, "github.com", cfg.GitHub.Hostname)
	assert.Equal(t, "gitlab.com", cfg.GitLab.Hostname)
	assert.ElementsMatch(t, []string{FeatureExternalPR, FeatureCommands}, cfg.Features)
	assert.ElementsMatch(t, []string{CommandRetry}, cfg.EnabledCommands)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestHubConfig_APIHost(t *testing.T) {
	assert.Equal(t, "api.github.com", (&HubConfig{}).APIHost())
	assert.Equal(t, "api.hub.example.com", (&HubConfig{Hostname: "hub.example.com"}).APIHost())
}

func TestLabConfig_BaseURL(t *testing.T) {
	assert.Equal(t, "https://gitlab.com", (&LabConfig{}).BaseURL())
	assert.Equal(t, "https://lab.example.com", (&LabConfig{Hostname: "lab.example.com"}).BaseURL())
}

func TestConfig_HasFeature(t *testing.T) {
	cfg := &Config{Features: []string{FeatureExternalPR}}
	assert.True(t, cfg.HasFeature(FeatureExternalPR))
	assert.False(t, cfg.HasFeature(FeatureCommands))
}

func TestConfig_HandlesAction(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.HandlesAction("opened"))
	assert.True(t, cfg.HandlesAction("closed"))
	assert.False(t, cfg.HandlesAction("labeled"))

	cfg.EnabledActions = []string{"synchronize"}
	assert.False(t, cfg.HandlesAction("opened"))
	assert.True(t, cfg.HandlesAction("synchronize"))
}

func TestConfig_CommandEnabled(t *testing.T) {
	cfg := &Config{EnabledCommands: []string{CommandRetry}}
	assert.True(t, cfg.CommandEnabled(CommandRetry))
	assert.False(t, cfg.CommandEnabled("Rerun"))
}

func TestLoad_ParsesYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("HUB_TOKEN", "secret-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  bindto: "127.0.0.1:9000"
  debug: true
github:
  hostname: github.example.com
  api_token: ${HUB_TOKEN}
  webhook_secret: ${WEBHOOK_SECRET:-dev-secret}
gitlab:
  hostname: gitlab.example.com
features:
  - ExternalPr
enabled_commands:
  - Retry
hub_to_lab:
  acme/widgets: acme-mirror/widgets
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.BindTo)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "github.example.com", cfg.GitHub.Hostname)
	assert.Equal(t, "secret-token", cfg.GitHub.APIToken)
	assert.Equal(t, "dev-secret", cfg.GitHub.WebhookSecret)
	assert.Equal(t, "acme-mirror/widgets", cfg.HubToLab["acme/widgets"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandEnvVars_UsesDefaultWhenUnset(t *testing.T) {
	os.Unsetenv("LABHUB_TEST_UNSET_VAR")
	result := expandEnvVars("value: ${LABHUB_TEST_UNSET_VAR:-fallback}")
	assert.Equal(t, "value: fallback", result)
}

func TestExpandEnvVars_PrefersEnvValue(t *testing.T) {
	t.Setenv("LABHUB_TEST_SET_VAR", "from-env")
	result := expandEnvVars("value: ${LABHUB_TEST_SET_VAR:-fallback}")
	assert.Equal(t, "value: from-env", result)
}
