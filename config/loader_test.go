package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "keyword", cfg.Router.Classifier)
	assert.Equal(t, "agentTeamFiles", cfg.Teams.Dir)
	assert.False(t, cfg.Auth.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teamflow.yaml")
	yamlBody := `
server:
  http_port: 9000
  read_timeout: 45s
teams:
  dir: /etc/teamflow/teams
store:
  type: redis
  redis:
    addr: redis.internal:6379
router:
  classifier: llm
reasoning:
  base_url: https://llm.internal/v1
log:
  level: debug
  output_paths: [stdout, /var/log/teamflow.log]
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/etc/teamflow/teams", cfg.Teams.Dir)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "llm", cfg.Router.Classifier)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/var/log/teamflow.log"}, cfg.Log.OutputPaths)

	// Untouched sections keep their defaults.
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, 5, cfg.Orchestrator.MaxToolIterations)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teamflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o644))

	t.Setenv("TEAMFLOW_SERVER_HTTP_PORT", "9100")
	t.Setenv("TEAMFLOW_SERVER_WRITE_TIMEOUT", "2m")
	t.Setenv("TEAMFLOW_STORE_TYPE", "sqlite")
	t.Setenv("TEAMFLOW_STORE_SQLITE_PATH", filepath.Join(dir, "sessions.db"))
	t.Setenv("TEAMFLOW_ORCHESTRATOR_TEMPERATURE", "0.2")
	t.Setenv("TEAMFLOW_TEAMS_WATCH", "true")
	t.Setenv("TEAMFLOW_LOG_OUTPUT_PATHS", "stdout, stderr")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.InDelta(t, 0.2, cfg.Orchestrator.Temperature, 1e-9)
	assert.True(t, cfg.Teams.Watch)
	assert.Equal(t, []string{"stdout", "stderr"}, cfg.Log.OutputPaths)
}

func TestLoader_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("TF_SERVER_HTTP_PORT", "7777")

	cfg, err := NewLoader().WithEnvPrefix("TF").Load()
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
}

func TestLoader_ExtraValidator(t *testing.T) {
	called := false
	_, err := NewLoader().WithValidator(func(c *Config) error {
		called = true
		return nil
	}).Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad http port", func(c *Config) { c.Server.HTTPPort = 0 }, "invalid HTTP port"},
		{"missing teams dir", func(c *Config) { c.Teams.Dir = "" }, "teams dir is required"},
		{"unknown store", func(c *Config) { c.Store.Type = "dynamo" }, `unknown store type "dynamo"`},
		{"redis without addr", func(c *Config) {
			c.Store.Type = "redis"
			c.Store.Redis.Addr = ""
		}, "redis store requires an addr"},
		{"unknown classifier", func(c *Config) { c.Router.Classifier = "oracle" }, `unknown classifier "oracle"`},
		{"llm classifier without backend", func(c *Config) { c.Router.Classifier = "llm" }, "llm classifier requires a reasoning base_url"},
		{"zero tool iterations", func(c *Config) { c.Orchestrator.MaxToolIterations = 0 }, "max_tool_iterations must be positive"},
		{"temperature out of range", func(c *Config) { c.Orchestrator.Temperature = 2.5 }, "temperature must be between 0 and 2"},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }, "jwt_secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
