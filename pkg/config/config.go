// Package config loads the kernel's runtime configuration from config.yaml
// with environment variable overrides, using cleanenv.
package config

import (
	"fmt"
	"net/url"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the kernel.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Auth configuration for caller-identity verification
	Auth AuthConfig `yaml:"auth"`

	// Persistence configuration for the snapshot/restore bridge
	Persistence PersistenceConfig `yaml:"persistence"`

	// Inference configuration (loaded, but not passed to the inference path)
	Inference InferenceConfig `yaml:"inference"`
}

// AuthConfig holds caller-identity verification configuration.
type AuthConfig struct {
	// EnableVerification controls whether bearer tokens are validated.
	// Set to false for local development without a signing key.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// SigningKey is the HMAC secret used to validate bearer tokens that
	// carry the caller's principal id. Secret - not in YAML.
	SigningKey string `yaml:"-" env:"AUTH_SIGNING_KEY"`
}

// PersistenceConfig holds the snapshot/restore bridge's PostgreSQL settings.
type PersistenceConfig struct {
	Driver          string `yaml:"driver" env:"PERSISTENCE_DRIVER" env-default:"postgres"`
	DSN             string `yaml:"-" env:"PERSISTENCE_DSN"` // Secret - not in YAML
	MaxConnections  int32  `yaml:"max_connections" env:"PERSISTENCE_MAX_CONNECTIONS" env-default:"10"`
	MaxConnLifetime string `yaml:"max_conn_lifetime" env:"PERSISTENCE_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime string `yaml:"max_conn_idle_time" env:"PERSISTENCE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrationsPath  string `yaml:"migrations_path" env:"PERSISTENCE_MIGRATIONS_PATH" env-default:"pkg/persistence/migrations"`
}

// InferenceConfig holds inference defaults read from config.yaml and the
// environment. Nothing passes these values to the inference path: a query
// that omits its bound or type gets the engine's own defaults (unbounded
// depth, the IS-A type).
type InferenceConfig struct {
	// DefaultMaxDepth is a traversal depth bound for queries that specify
	// none. Zero means unbounded.
	DefaultMaxDepth int `yaml:"default_max_depth" env:"INFERENCE_DEFAULT_MAX_DEPTH" env-default:"0"`

	// DefaultType is a relationship type id for queries that specify
	// none; its default is the bootstrap IS-A id.
	DefaultType int64 `yaml:"default_type" env:"INFERENCE_DEFAULT_TYPE" env-default:"0"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PERSISTENCE_DSN,
// AUTH_SIGNING_KEY) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set.
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}
	cfg.BaseURL = ResolveURLForDocker(cfg.BaseURL)

	return cfg, nil
}
