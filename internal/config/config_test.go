package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad_LocalDefaults(t *testing.T) {
	_ = os.Unsetenv("VOICE_AGENT_BUILD_TARGET")
	_ = os.Unsetenv("VOICE_AGENT_REDIS_ADDR")
	_ = os.Unsetenv("VOICE_AGENT_SUMMARY_TIMEOUT_SECONDS")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.BuildTarget)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "log", cfg.NotifyDriver)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 15, cfg.SummaryTimeoutSeconds)
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("VOICE_AGENT_SUMMARY_TIMEOUT_SECONDS", "3")
	t.Setenv("VOICE_AGENT_REDIS_ADDR", "localhost:6379")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.SummaryTimeoutSeconds)
	assert.Equal(t, "redis", cfg.NotifyDriver)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestResolveDefaults(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantDB  string
		wantErr bool
	}{
		{name: "local picks sqlite", mutate: func(c *Config) {}, wantDB: "sqlite"},
		{name: "cloud picks postgres", mutate: func(c *Config) { c.BuildTarget = "cloud"; c.PostgresDSN = "postgres://x" }, wantDB: "postgres"},
		{name: "cloud without dsn", mutate: func(c *Config) { c.BuildTarget = "cloud" }, wantErr: true},
		{name: "unknown target", mutate: func(c *Config) { c.BuildTarget = "moon" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.NotifyDriver = "redis" }, wantErr: true},
		{name: "zero summary timeout", mutate: func(c *Config) { c.SummaryTimeoutSeconds = 0 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewForTesting()
			c.DBDriver = "auto"
			c.NotifyDriver = "auto"
			tc.mutate(c)
			err := c.ResolveDefaults()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantDB, c.DBDriver)
		})
	}
}
