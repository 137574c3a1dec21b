package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfig(t, `
provider: gemini
gemini_key: test-key
model: gemini-2.0-flash
temperature: 0.5
policy:
  kind: keyword
store:
  kind: redis
  redis_addr: redis.internal:6379
  session_ttl: 1h
server:
  addr: ":8888"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Temperature != 0.5 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.Policy.Kind != "keyword" {
		t.Errorf("Policy.Kind = %q", cfg.Policy.Kind)
	}
	if cfg.Store.RedisAddr != "redis.internal:6379" {
		t.Errorf("Store.RedisAddr = %q", cfg.Store.RedisAddr)
	}
	if cfg.Store.SessionTTL != time.Hour {
		t.Errorf("Store.SessionTTL = %v", cfg.Store.SessionTTL)
	}
	if cfg.Server.Addr != ":8888" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, "openai_key: test-key\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("default Provider = %q", cfg.Provider)
	}
	if cfg.Policy.Kind != "assisted" {
		t.Errorf("default Policy.Kind = %q", cfg.Policy.Kind)
	}
	if cfg.Policy.HistoryWindow != 6 {
		t.Errorf("default HistoryWindow = %d", cfg.Policy.HistoryWindow)
	}
	if cfg.Store.Kind != "memory" {
		t.Errorf("default Store.Kind = %q", cfg.Store.Kind)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.OpsAddr != ":9090" {
		t.Errorf("default addrs = %q, %q", cfg.Server.Addr, cfg.Server.OpsAddr)
	}
	if cfg.RateLimit.RequestsPerSecond != 5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("default rate limit = %v/%d", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	path := writeConfig(t, "provider: openai\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenAIKey != "env-key" {
		t.Errorf("OpenAIKey = %q, want env-key", cfg.OpenAIKey)
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "provider: openai\ninvalid yaml: [[[\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults with key",
			mutate:  func(c *Config) { c.OpenAIKey = "k" },
			wantErr: false,
		},
		{
			name:    "missing openai key",
			mutate:  func(c *Config) { c.OpenAIKey = "" },
			wantErr: true,
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.Provider = "mystery"
			},
			wantErr: true,
		},
		{
			name: "unknown policy",
			mutate: func(c *Config) {
				c.OpenAIKey = "k"
				c.Policy.Kind = "coin-flip"
			},
			wantErr: true,
		},
		{
			name: "firestore without project",
			mutate: func(c *Config) {
				c.OpenAIKey = "k"
				c.Store.Kind = "firestore"
				c.Store.FirestoreProject = ""
			},
			wantErr: true,
		},
		{
			name: "temperature out of range",
			mutate: func(c *Config) {
				c.OpenAIKey = "k"
				c.Temperature = 3.5
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
