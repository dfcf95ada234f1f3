package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	// Set environment variables
	os.Setenv("AGW_PORT", "9090")
	os.Setenv("AGW_LOG_LEVEL", "debug")
	os.Setenv("AGW_ROUTER_CONFIDENCE_THRESHOLD", "0.9")
	defer func() {
		os.Unsetenv("AGW_PORT")
		os.Unsetenv("AGW_LOG_LEVEL")
		os.Unsetenv("AGW_ROUTER_CONFIDENCE_THRESHOLD")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Router.ConfidenceThreshold != 0.9 {
		t.Errorf("Router.ConfidenceThreshold = %f, want 0.9", cfg.Router.ConfidenceThreshold)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
router:
  confidence_threshold: 0.8
  tie_threshold: 2.5
llm:
  model: gpt-4o
services:
  rag_pdf:
    url: "http://rag:9004"
    timeout_sec: 90
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}

	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if cfg.Router.ConfidenceThreshold != 0.8 {
		t.Errorf("Router.ConfidenceThreshold = %f, want 0.8", cfg.Router.ConfidenceThreshold)
	}

	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("LLM.Model = %s, want gpt-4o", cfg.LLM.Model)
	}

	if cfg.Services.RAGPDF.URL != "http://rag:9004" {
		t.Errorf("Services.RAGPDF.URL = %s, want http://rag:9004", cfg.Services.RAGPDF.URL)
	}

	// Defaults survive partial files
	if cfg.Services.Search.URL != "http://127.0.0.1:8001" {
		t.Errorf("Services.Search.URL = %s, want default", cfg.Services.Search.URL)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "confidence threshold out of range",
			modify: func(c *Config) {
				c.Router.ConfidenceThreshold = 1.5
			},
			wantErr: true,
		},
		{
			name: "zero confidence divisor",
			modify: func(c *Config) {
				c.Router.ConfidenceDivisor = 0
			},
			wantErr: true,
		},
		{
			name: "empty llm model when enabled",
			modify: func(c *Config) {
				c.LLM.Model = ""
			},
			wantErr: true,
		},
		{
			name: "empty llm model when disabled is fine",
			modify: func(c *Config) {
				c.LLM.Enabled = false
				c.LLM.Model = ""
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid cache type",
			modify: func(c *Config) {
				c.Cache.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "redis cache without url",
			modify: func(c *Config) {
				c.Cache.Type = "redis"
				c.Cache.RedisURL = ""
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "kafka bus without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "empty service url",
			modify: func(c *Config) {
				c.Services.Drive.URL = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{
		Host: "localhost",
		Port: 8080,
	}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}

func TestKafkaBrokerList(t *testing.T) {
	cfg := &Config{}
	cfg.Bus.KafkaBrokers = "broker1:9092, broker2:9092,,broker3:9092"

	got := cfg.KafkaBrokerList()
	want := []string{"broker1:9092", "broker2:9092", "broker3:9092"}

	if len(got) != len(want) {
		t.Fatalf("KafkaBrokerList() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("KafkaBrokerList()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
