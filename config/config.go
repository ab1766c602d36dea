// Package config loads the eventsd configuration from defaults, an optional
// YAML file and EVENTS__-prefixed environment variables.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable; nested keys are joined
// with "__", e.g. EVENTS__DATABASE__URL.
const EnvPrefix = "EVENTS__"

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Ingestion pass guards.
const (
	SerializeNone  = "none"
	SerializeLocal = "local"
	SerializeRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port          int            `mapstructure:"port" yaml:"port"`
	Database      DatabaseConfig `mapstructure:"database" yaml:"database"`
	EventProvider ProviderConfig `mapstructure:"event_provider" yaml:"event_provider"`
	API           APIConfig      `mapstructure:"api" yaml:"api"`
	Ingest        IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Redis         RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Metrics       MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Notify        NotifyConfig   `mapstructure:"notify" yaml:"notify"`
	Log           LogConfig      `mapstructure:"log" yaml:"log"`
}

type DatabaseConfig struct {
	Driver         string `mapstructure:"driver" yaml:"driver"`
	URL            string `mapstructure:"url" yaml:"url"` // SQLite path or Postgres DSN
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
	ViaBouncer     bool   `mapstructure:"via_bouncer" yaml:"via_bouncer"` // postgres behind pgbouncer
	Seed           bool   `mapstructure:"seed" yaml:"seed"`
}

type ProviderConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	APIPath     string `mapstructure:"api_path" yaml:"api_path"`
	TimeoutSecs int    `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

type APIConfig struct {
	RequestTimeoutSecs int `mapstructure:"request_timeout_secs" yaml:"request_timeout_secs"`
}

type IngestConfig struct {
	Schedule  string `mapstructure:"schedule" yaml:"schedule"` // cron expression, empty disables
	Serialize string `mapstructure:"serialize" yaml:"serialize"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // empty disables
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

var defaults = map[string]any{
	"port":                        8080,
	"database.driver":             DriverMemory,
	"database.url":                "data/events.db",
	"database.max_connections":    5,
	"database.via_bouncer":        false,
	"database.seed":               false,
	"event_provider.url":          "http://localhost:9000",
	"event_provider.api_path":     "/api/events",
	"event_provider.timeout_secs": 10,
	"api.request_timeout_secs":    5,
	"ingest.schedule":             "",
	"ingest.serialize":            SerializeNone,
	"redis.addr":                  "localhost:6379",
	"redis.password":              "",
	"metrics.addr":                ":9090",
	"notify.webhook_url":          "",
	"log.level":                   "info",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

// Load reads configuration with defaults < file < environment precedence.
// path may be empty, in which case no file is read.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key, EnvVar(key)); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	if c.Database.Driver != DriverMemory && c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required for driver %q", c.Database.Driver)
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("config: database.max_connections must be positive")
	}
	switch c.Ingest.Serialize {
	case SerializeNone, SerializeLocal, SerializeRedis:
	default:
		return fmt.Errorf("config: unknown ingest.serialize %q", c.Ingest.Serialize)
	}
	if c.EventProvider.URL == "" {
		return fmt.Errorf("config: event_provider.url is required")
	}
	return nil
}

// ProviderTimeout is the provider HTTP client timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.EventProvider.TimeoutSecs) * time.Second
}

// RequestTimeout bounds the search path.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSecs) * time.Second
}

// Dump writes the effective configuration as YAML with secrets masked.
func (c *Config) Dump(w io.Writer) error {
	redacted := *c
	if redacted.Redis.Password != "" {
		redacted.Redis.Password = "****"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}
