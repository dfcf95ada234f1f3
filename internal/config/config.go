// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"AGW_HOST" yaml:"host"`
	Port int    `envconfig:"AGW_PORT" yaml:"port"`

	// Router configuration
	Router RouterConfig `yaml:"router"`

	// LLM fallback configuration
	LLM LLMConfig `yaml:"llm"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Upstream MCP service configuration
	Services ServicesConfig `yaml:"services"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Agent-facing MCP server configuration
	MCP MCPConfig `yaml:"mcp"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// RouterConfig holds dispatch policy settings.
type RouterConfig struct {
	ConfidenceThreshold float64 `envconfig:"AGW_ROUTER_CONFIDENCE_THRESHOLD" yaml:"confidence_threshold"`
	TieThreshold        float64 `envconfig:"AGW_ROUTER_TIE_THRESHOLD" yaml:"tie_threshold"`
	PhraseWeight        float64 `envconfig:"AGW_ROUTER_PHRASE_WEIGHT" yaml:"phrase_weight"`
	KeywordWeight       float64 `envconfig:"AGW_ROUTER_KEYWORD_WEIGHT" yaml:"keyword_weight"`
	NegativePenalty     float64 `envconfig:"AGW_ROUTER_NEGATIVE_PENALTY" yaml:"negative_penalty"`
	ConfidenceDivisor   float64 `envconfig:"AGW_ROUTER_CONFIDENCE_DIVISOR" yaml:"confidence_divisor"`
	MinScore            float64 `envconfig:"AGW_ROUTER_MIN_SCORE" yaml:"min_score"`
	SecondaryThreshold  float64 `envconfig:"AGW_ROUTER_SECONDARY_THRESHOLD" yaml:"secondary_threshold"`

	// AmbiguousPatterns overrides the built-in ambiguity regexes.
	AmbiguousPatterns []string `envconfig:"AGW_ROUTER_AMBIGUOUS_PATTERNS" yaml:"ambiguous_patterns"`

	// PatternsFile points to a YAML file of per-service keyword
	// tables overriding the built-in registry.
	PatternsFile string `envconfig:"AGW_ROUTER_PATTERNS_FILE" yaml:"patterns_file"`
}

// LLMConfig holds LLM classifier settings.
type LLMConfig struct {
	Enabled     bool    `envconfig:"AGW_LLM_ENABLED" yaml:"enabled"`
	Model       string  `envconfig:"AGW_LLM_MODEL" yaml:"model"`
	Temperature float64 `envconfig:"AGW_LLM_TEMPERATURE" yaml:"temperature"`
	MaxTokens   int     `envconfig:"AGW_LLM_MAX_TOKENS" yaml:"max_tokens"`
	TimeoutSec  int     `envconfig:"AGW_LLM_TIMEOUT" yaml:"timeout_sec"`
}

// CacheConfig holds decision cache settings.
type CacheConfig struct {
	Type     string `envconfig:"AGW_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"AGW_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"AGW_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"AGW_REDIS_URL" yaml:"redis_url"`
}

// ServiceConfig holds the address of one upstream MCP service.
type ServiceConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Timeout returns the request timeout for the service.
func (s ServiceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// ServicesConfig holds all upstream MCP service addresses.
type ServicesConfig struct {
	Search   ServiceConfig `yaml:"search"`
	Drive    ServiceConfig `yaml:"drive"`
	Database ServiceConfig `yaml:"database"`
	RAGPDF   ServiceConfig `yaml:"rag_pdf"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"AGW_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"AGW_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"AGW_KAFKA_GROUP" yaml:"kafka_group"`
	EventLog     string `envconfig:"AGW_BUS_EVENT_LOG" yaml:"event_log"`
}

// MCPConfig holds the agent-facing MCP server settings. When enabled,
// the gateway exposes its routing tools over JSON-RPC on a unix socket
// (default) or a TCP address.
type MCPConfig struct {
	Enabled bool   `envconfig:"AGW_MCP_ENABLED" yaml:"enabled"`
	Socket  string `envconfig:"AGW_MCP_SOCKET" yaml:"socket"`
	TCPAddr string `envconfig:"AGW_MCP_TCP" yaml:"tcp_addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"AGW_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"AGW_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey      string `envconfig:"AGW_API_KEY" yaml:"api_key"`
	RateLimit   int    `envconfig:"AGW_RATE_LIMIT" yaml:"rate_limit"` // requests/sec per client, 0 = disabled
	CORSOrigins string `envconfig:"AGW_CORS_ORIGINS" yaml:"cors_origins"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"AGW_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath    string `envconfig:"AGW_METRICS_PATH" yaml:"metrics_path"`
	MetricsRedis   string `envconfig:"AGW_METRICS_REDIS_URL" yaml:"metrics_redis_url"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Router = RouterConfig{
		ConfidenceThreshold: 0.75,
		TieThreshold:        3.0,
		PhraseWeight:        6.0,
		KeywordWeight:       2.5,
		NegativePenalty:     8.0,
		ConfidenceDivisor:   5.0,
		MinScore:            1.0,
		SecondaryThreshold:  2.0,
	}

	cfg.LLM = LLMConfig{
		Enabled:     true,
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
		MaxTokens:   200,
		TimeoutSec:  15,
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     200,
		TTL:      0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Services = ServicesConfig{
		Search:   ServiceConfig{URL: "http://127.0.0.1:8001", TimeoutSec: 30},
		Drive:    ServiceConfig{URL: "http://127.0.0.1:8002", TimeoutSec: 60},
		Database: ServiceConfig{URL: "http://127.0.0.1:8003", TimeoutSec: 30},
		RAGPDF:   ServiceConfig{URL: "http://127.0.0.1:8004", TimeoutSec: 120},
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "agent-gateway",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Router validation
	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		errs = append(errs, "router confidence_threshold must be between 0 and 1")
	}

	if c.Router.TieThreshold < 0 {
		errs = append(errs, "router tie_threshold must not be negative")
	}

	if c.Router.ConfidenceDivisor <= 0 {
		errs = append(errs, "router confidence_divisor must be positive")
	}

	if c.Router.MinScore < 0 {
		errs = append(errs, "router min_score must not be negative")
	}

	// LLM validation
	if c.LLM.Enabled {
		if c.LLM.Model == "" {
			errs = append(errs, "llm model must not be empty when llm is enabled")
		}
		if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
			errs = append(errs, "llm temperature must be between 0 and 2")
		}
		if c.LLM.MaxTokens < 1 {
			errs = append(errs, "llm max_tokens must be positive")
		}
		if c.LLM.TimeoutSec < 1 {
			errs = append(errs, "llm timeout_sec must be positive")
		}
	}

	// Cache validation
	validCacheTypes := map[string]bool{"memory": true, "redis": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory or redis)", c.Cache.Type))
	}

	if c.Cache.Size < 1 {
		errs = append(errs, "cache size must be positive")
	}

	if c.Cache.Type == "redis" && c.Cache.RedisURL == "" {
		errs = append(errs, "redis_url must not be empty when cache type is redis")
	}

	// Service validation
	for name, svc := range map[string]ServiceConfig{
		"search":   c.Services.Search,
		"drive":    c.Services.Drive,
		"database": c.Services.Database,
		"rag_pdf":  c.Services.RAGPDF,
	} {
		if svc.URL == "" {
			errs = append(errs, fmt.Sprintf("service %s url must not be empty", name))
		}
		if svc.TimeoutSec < 1 {
			errs = append(errs, fmt.Sprintf("service %s timeout_sec must be positive", name))
		}
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers must not be empty when bus type is kafka")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheTTL returns the decision cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// LLMTimeout returns the LLM request timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSec) * time.Second
}

// KafkaBrokerList splits the configured broker string.
func (c *Config) KafkaBrokerList() []string {
	if c.Bus.KafkaBrokers == "" {
		return nil
	}

	parts := strings.Split(c.Bus.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
