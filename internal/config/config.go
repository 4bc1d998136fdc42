package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the voice agent backend.
// Environment variables are parsed with the VOICE_AGENT_ prefix.
type Config struct {
	// Build target selects high-level environment: local or cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// Derived or override drivers
	DBDriver     string `envconfig:"DB_DRIVER" default:"auto"`
	NotifyDriver string `envconfig:"NOTIFY_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`
	MCPPort  int `envconfig:"MCP_PORT" default:"8081"`

	// Store Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/voice-agent.db"`

	// Front-end notifications
	RedisAddr          string `envconfig:"REDIS_ADDR" default:""`
	RedisChannelPrefix string `envconfig:"REDIS_CHANNEL_PREFIX" default:"agent_events"`

	// Language model collaborator (OpenAI-compatible chat completions)
	LLMBaseURL        string `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMAPIKey         string `envconfig:"LLM_API_KEY" default:""`
	LLMModel          string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeoutSeconds int    `envconfig:"LLM_TIMEOUT_SECONDS" default:"30"`

	// Session close-out
	SummaryTimeoutSeconds int `envconfig:"SUMMARY_TIMEOUT_SECONDS" default:"15"`

	// Idempotent read retry
	RetryInitialMillis int `envconfig:"RETRY_INITIAL_MILLIS" default:"150"`

	// Health
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver and NotifyDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}
	allowedDB := map[string]bool{"postgres": true, "sqlite": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("VOICE_AGENT_POSTGRES_DSN is required when DB_DRIVER=postgres")
	}
	if c.DBDriver == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("VOICE_AGENT_SQLITE_PATH is required when DB_DRIVER=sqlite")
	}

	if c.NotifyDriver == "" || c.NotifyDriver == "auto" {
		c.NotifyDriver = "log"
		if c.RedisAddr != "" {
			c.NotifyDriver = "redis"
		}
	}
	allowedNotify := map[string]bool{"redis": true, "log": true}
	if !allowedNotify[c.NotifyDriver] {
		return fmt.Errorf("unsupported NOTIFY_DRIVER: %s", c.NotifyDriver)
	}
	if c.NotifyDriver == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("VOICE_AGENT_REDIS_ADDR is required when NOTIFY_DRIVER=redis")
	}

	if c.SummaryTimeoutSeconds <= 0 {
		return fmt.Errorf("SUMMARY_TIMEOUT_SECONDS must be positive, got %d", c.SummaryTimeoutSeconds)
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: VOICE_AGENT_DB_DRIVER, VOICE_AGENT_HTTP_PORT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("VOICE_AGENT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("notify_driver", cfg.NotifyDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("llm_model", cfg.LLMModel).
		Bool("llm_key_present", cfg.LLMAPIKey != "").
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Int("summary_timeout_seconds", cfg.SummaryTimeoutSeconds).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		BuildTarget:               "local",
		DBDriver:                  "sqlite",
		NotifyDriver:              "log",
		Environment:               EnvTesting,
		LogLevel:                  "debug",
		HTTPPort:                  8080,
		MCPPort:                   8081,
		SQLitePath:                ":memory:",
		RedisChannelPrefix:        "agent_events",
		LLMBaseURL:                "http://localhost:0",
		LLMModel:                  "test-model",
		LLMTimeoutSeconds:         5,
		SummaryTimeoutSeconds:     1,
		RetryInitialMillis:        1,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetMCPAddr returns the streamable MCP server address
func (c *Config) GetMCPAddr() string {
	return fmt.Sprintf(":%d", c.MCPPort)
}

func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.SummaryTimeoutSeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) RetryInitialInterval() time.Duration {
	return time.Duration(c.RetryInitialMillis) * time.Millisecond
}
