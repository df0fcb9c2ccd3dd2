// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // postgres, memory
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig defines PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		p.Host, p.Port, p.Name, p.User, p.Password, p.SSLMode,
	)
}

// MonitorConfig defines polling and fetch behavior.
type MonitorConfig struct {
	DefaultInterval time.Duration      `yaml:"default_interval"`
	MinInterval     time.Duration      `yaml:"min_interval"`
	ErrorBackoff    time.Duration      `yaml:"error_backoff"`
	MaxConcurrent   int                `yaml:"max_concurrent"`
	RequestTimeout  time.Duration      `yaml:"request_timeout"`
	AntiDetection   AntiDetectionConfig `yaml:"anti_detection"`
	RateLimit       RateLimitConfig    `yaml:"rate_limit"`
}

// AntiDetectionConfig defines header rotation and pre-request delays.
type AntiDetectionConfig struct {
	MinDelay     time.Duration `yaml:"min_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	CacheBusting bool          `yaml:"cache_busting"`
}

// RateLimitConfig defines per-domain request rate limiting.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// NotificationsConfig defines delivery behavior and transports.
type NotificationsConfig struct {
	MaxRetries       int           `yaml:"max_retries"`
	RetryBase        time.Duration `yaml:"retry_base"`
	RetryMax         time.Duration `yaml:"retry_max"`
	BatchWindow      time.Duration `yaml:"batch_window"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
	Discord          DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord REST transport settings. The token comes
// from the environment via ${POKEALERT_DISCORD_TOKEN} expansion.
type DiscordConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	APIURL  string `yaml:"api_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	ApplyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with all defaults applied and the
// in-memory store selected. Used by tests and the dev mode.
func Default() *Config {
	cfg := &Config{}
	cfg.Store.Backend = "memory"
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyMonitorDefaults(&cfg.Monitor)
	applyNotificationsDefaults(&cfg.Notifications)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyStoreDefaults(s *StoreConfig) {
	if s.Backend == "" {
		s.Backend = "postgres"
	}
	if s.Postgres.Port == 0 {
		s.Postgres.Port = 5432
	}
	if s.Postgres.SSLMode == "" {
		s.Postgres.SSLMode = "disable"
	}
	if s.Postgres.PoolSize == 0 {
		s.Postgres.PoolSize = 10
	}
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.DefaultInterval == 0 {
		m.DefaultInterval = 60 * time.Second
	}
	if m.MinInterval == 0 {
		m.MinInterval = 30 * time.Second
	}
	if m.ErrorBackoff == 0 {
		m.ErrorBackoff = 2 * m.DefaultInterval
	}
	if m.MaxConcurrent == 0 {
		m.MaxConcurrent = 10
	}
	if m.RequestTimeout == 0 {
		m.RequestTimeout = 30 * time.Second
	}
	if m.AntiDetection.MinDelay == 0 {
		m.AntiDetection.MinDelay = 100 * time.Millisecond
	}
	if m.AntiDetection.MaxDelay == 0 {
		m.AntiDetection.MaxDelay = 500 * time.Millisecond
	}
	if m.RateLimit.PerSecond == 0 {
		m.RateLimit.PerSecond = 2.0
	}
	if m.RateLimit.Burst == 0 {
		m.RateLimit.Burst = 5
	}
}

func applyNotificationsDefaults(n *NotificationsConfig) {
	if n.MaxRetries == 0 {
		n.MaxRetries = 3
	}
	if n.RetryBase == 0 {
		n.RetryBase = time.Second
	}
	if n.RetryMax == 0 {
		n.RetryMax = 30 * time.Second
	}
	if n.BatchWindow == 0 {
		n.BatchWindow = 60 * time.Second
	}
	if n.DispatchInterval == 0 {
		n.DispatchInterval = time.Second
	}
	if n.SweepInterval == 0 {
		n.SweepInterval = 30 * time.Second
	}
	if n.Discord.APIURL == "" {
		n.Discord.APIURL = "https://discord.com/api/v10"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Store.Postgres.Host == "" {
			errs = append(errs, fmt.Errorf("store.postgres.host is required"))
		}
		if cfg.Store.Postgres.Name == "" {
			errs = append(errs, fmt.Errorf("store.postgres.name is required"))
		}
		if cfg.Store.Postgres.User == "" {
			errs = append(errs, fmt.Errorf("store.postgres.user is required"))
		}
	case "memory":
		// No settings required.
	default:
		errs = append(errs, fmt.Errorf(
			"store.backend must be one of: postgres, memory (got %q)",
			cfg.Store.Backend,
		))
	}

	if cfg.Monitor.MinInterval > cfg.Monitor.DefaultInterval {
		errs = append(errs, fmt.Errorf(
			"monitor.min_interval (%s) must not exceed monitor.default_interval (%s)",
			cfg.Monitor.MinInterval, cfg.Monitor.DefaultInterval,
		))
	}

	if cfg.Monitor.AntiDetection.MinDelay > cfg.Monitor.AntiDetection.MaxDelay {
		errs = append(errs, fmt.Errorf(
			"monitor.anti_detection.min_delay must not exceed max_delay",
		))
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.Token == "" {
		errs = append(errs, fmt.Errorf(
			"notifications.discord.token is required when discord is enabled",
		))
	}

	return errors.Join(errs...)
}
