// Package config loads the service configuration from a YAML file with
// environment-variable fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	// Provider selects the completion backend: openai, gemini, or bedrock.
	Provider string `yaml:"provider"`

	// API keys, falling back to the usual environment variables.
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`

	// AWSRegion applies to the bedrock provider.
	AWSRegion string `yaml:"aws_region"`

	// Model configuration.
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// Policy selects progression: keyword or assisted.
	Policy PolicyConfig `yaml:"policy"`

	// Store selects where sessions live.
	Store StoreConfig `yaml:"store"`

	// Server holds the HTTP listen addresses.
	Server ServerConfig `yaml:"server"`

	// RateLimit throttles upstream completion calls.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Tracing configures span export.
	Tracing TracingConfig `yaml:"tracing"`
}

// PolicyConfig selects and tunes the progression policy.
type PolicyConfig struct {
	Kind          string `yaml:"kind"`           // keyword or assisted
	AnalysisModel string `yaml:"analysis_model"` // assisted only; empty = provider default
	HistoryWindow int    `yaml:"history_window"`
}

// StoreConfig selects and tunes the session store.
type StoreConfig struct {
	Kind string `yaml:"kind"` // memory, redis, or firestore

	// Memory store knobs.
	MaxIdle       time.Duration `yaml:"max_idle"`
	MaxSessions   int           `yaml:"max_sessions"`
	SweepSchedule string        `yaml:"sweep_schedule"`

	// Redis store knobs.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	SessionTTL    time.Duration `yaml:"session_ttl"`

	// Firestore store knobs.
	FirestoreProject    string `yaml:"firestore_project"`
	FirestoreCollection string `yaml:"firestore_collection"`
	CredentialsFile     string `yaml:"credentials_file"`
}

// ServerConfig holds listen addresses for the API and ops servers.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	OpsAddr string `yaml:"ops_addr"`
}

// RateLimitConfig throttles completion calls.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ExporterType string `yaml:"exporter_type"` // otlp, stdout, or none
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPHeaders  string `yaml:"otlp_headers"` // "key1=value1,key2=value2"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads configuration from a YAML file, then applies defaults and
// environment fallbacks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
	if c.Policy.Kind == "" {
		c.Policy.Kind = "assisted"
	}
	if c.Policy.HistoryWindow == 0 {
		c.Policy.HistoryWindow = 6
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "memory"
	}
	if c.Store.MaxIdle == 0 {
		c.Store.MaxIdle = 2 * time.Hour
	}
	if c.Store.SessionTTL == 0 {
		c.Store.SessionTTL = 24 * time.Hour
	}
	if c.Store.RedisAddr == "" {
		c.Store.RedisAddr = "localhost:6379"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.OpsAddr == "" {
		c.Server.OpsAddr = ":9090"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.Tracing.ExporterType == "" {
		c.Tracing.ExporterType = "none"
	}
}

func (c *Config) applyEnv() {
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.GeminiKey == "" {
		c.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AWSRegion == "" {
		c.AWSRegion = os.Getenv("AWS_REGION")
	}
	if c.Store.FirestoreProject == "" {
		c.Store.FirestoreProject = os.Getenv("GCP_PROJECT")
	}
	if c.Store.CredentialsFile == "" {
		c.Store.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

// Validate checks the configuration for contradictions before startup.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("openai provider requires openai_key or OPENAI_API_KEY")
		}
	case "gemini":
		if c.GeminiKey == "" {
			return fmt.Errorf("gemini provider requires gemini_key or GEMINI_API_KEY")
		}
	case "bedrock":
		// The AWS credential chain validates itself at client build time.
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Policy.Kind {
	case "keyword", "assisted":
	default:
		return fmt.Errorf("unknown policy %q", c.Policy.Kind)
	}

	switch c.Store.Kind {
	case "memory", "redis":
	case "firestore":
		if c.Store.FirestoreProject == "" {
			return fmt.Errorf("firestore store requires firestore_project or GCP_PROJECT")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store.Kind)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %v out of range [0, 2]", c.Temperature)
	}

	return nil
}
