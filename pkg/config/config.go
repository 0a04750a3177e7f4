package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the promptvault server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Security  SecurityConfig  `yaml:"security"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Events    EventsConfig    `yaml:"events"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	HotReload HotReloadConfig `yaml:"hot_reload"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig configures prompt storage
type DatabaseConfig struct {
	Type string `yaml:"type"` // "sqlite", "postgres"
	Path string `yaml:"path"` // For SQLite
	DSN  string `yaml:"dsn"`  // For Postgres
	Seed bool   `yaml:"seed"` // Load example prompts on first start
}

// CacheConfig configures response caching
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Backend    string        `yaml:"backend"` // "memory" or "redis"
	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxSize    int           `yaml:"max_size"`
	RedisURL   string        `yaml:"redis_url,omitempty"`
}

// SecurityConfig configures authentication and CORS
type SecurityConfig struct {
	EnableAuth     bool          `yaml:"enable_auth"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	APIKeys        []string      `yaml:"api_keys,omitempty"`
	AllowedOrigins []string      `yaml:"allowed_origins"` // CORS
	Users          []UserConfig  `yaml:"users,omitempty"`
}

// UserConfig is a statically configured login. PasswordHash is a bcrypt
// hash, never a plaintext password.
type UserConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// EvaluatorConfig configures the AI evaluation pipeline
type EvaluatorConfig struct {
	Provider    string        `yaml:"provider"` // "anthropic" or "heuristic"
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// EventsConfig configures the mutation event bus
type EventsConfig struct {
	NATSEnabled bool   `yaml:"nats_enabled"`
	NATSURL     string `yaml:"nats_url"`
}

// TelemetryConfig configures OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// HotReloadConfig configures config file watching
type HotReloadConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoadConfigFromFile loads configuration from a YAML file at the
// specified path. Environment variables (e.g. ${ANTHROPIC_API_KEY})
// are expanded before parsing. Fields absent from the file keep their
// defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./promptvault.db",
		},
		Cache: CacheConfig{
			Enabled:    true,
			Backend:    "memory",
			DefaultTTL: 5 * time.Minute,
			MaxSize:    10000,
		},
		Security: SecurityConfig{
			EnableAuth:     false,
			TokenTTL:       24 * time.Hour,
			AllowedOrigins: []string{"*"},
		},
		Evaluator: EvaluatorConfig{
			Provider:    "heuristic",
			Model:       "claude-sonnet-4-20250514",
			Concurrency: 3,
			Timeout:     2 * time.Minute,
		},
		Events: EventsConfig{
			NATSEnabled: false,
			NATSURL:     "nats://localhost:4222",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "promptvault",
		},
	}
}
