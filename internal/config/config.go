// Package config loads service configuration from YAML with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default timeouts and scheduler knobs.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 60 * time.Second

	DefaultScanInterval        = 5 * time.Minute
	DefaultInactivityWindow    = 30 * time.Minute
	DefaultMaxRecoveryAttempts = 3
	DefaultTaskExpiry          = time.Hour
	DefaultDispatchTimeout     = 10 * time.Second
	DefaultScanBatchSize       = 100

	defaultServerAddress = ":8085"
	defaultEmailTimeout  = 30 * time.Second
	defaultEmailRate     = 5.0
	defaultContextRadius = 50
)

// Config is the root service configuration.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Citation  CitationConfig  `yaml:"citation"`
	Email     EmailConfig     `yaml:"email"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig holds the recovery scan and dispatch knobs.
type SchedulerConfig struct {
	ScanInterval        time.Duration `yaml:"scan_interval"`
	InactivityWindow    time.Duration `yaml:"inactivity_window"`
	MaxRecoveryAttempts int           `yaml:"max_recovery_attempts"`
	TaskExpiry          time.Duration `yaml:"task_expiry"`
	DispatchTimeout     time.Duration `yaml:"dispatch_timeout"`
	ScanBatchSize       int           `yaml:"scan_batch_size"`
}

// WebhookConfig holds webhook ingestion settings.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// CitationConfig holds brand tracking and recommendation thresholds.
type CitationConfig struct {
	BrandName            string   `yaml:"brand_name"`
	Competitors          []string `yaml:"competitors"`
	ContextRadius        int      `yaml:"context_radius"`
	MentionRateThreshold float64  `yaml:"mention_rate_threshold"`
	PositionThreshold    float64  `yaml:"position_threshold"`
}

// EmailConfig holds the recovery email collaborator settings.
type EmailConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	TemplateID string        `yaml:"template_id"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
}

// Load reads, defaults, env-overrides, and validates configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Postgres.Host == "" {
		return errors.New("postgres.host is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Webhook.Secret == "" {
		return errors.New("webhook.secret is required")
	}
	if c.Citation.BrandName == "" {
		return errors.New("citation.brand_name is required")
	}
	if c.Email.URL == "" {
		return errors.New("email.url is required")
	}
	if c.Scheduler.ScanInterval <= 0 {
		return fmt.Errorf("scheduler.scan_interval must be positive, got %v", c.Scheduler.ScanInterval)
	}
	if c.Scheduler.InactivityWindow <= 0 {
		return fmt.Errorf("scheduler.inactivity_window must be positive, got %v", c.Scheduler.InactivityWindow)
	}
	if c.Scheduler.MaxRecoveryAttempts <= 0 {
		return fmt.Errorf("scheduler.max_recovery_attempts must be positive, got %d", c.Scheduler.MaxRecoveryAttempts)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Postgres.Port == "" {
		cfg.Postgres.Port = "5432"
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Scheduler.ScanInterval == 0 {
		cfg.Scheduler.ScanInterval = DefaultScanInterval
	}
	if cfg.Scheduler.InactivityWindow == 0 {
		cfg.Scheduler.InactivityWindow = DefaultInactivityWindow
	}
	if cfg.Scheduler.MaxRecoveryAttempts == 0 {
		cfg.Scheduler.MaxRecoveryAttempts = DefaultMaxRecoveryAttempts
	}
	if cfg.Scheduler.TaskExpiry == 0 {
		cfg.Scheduler.TaskExpiry = DefaultTaskExpiry
	}
	if cfg.Scheduler.DispatchTimeout == 0 {
		cfg.Scheduler.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.Scheduler.ScanBatchSize == 0 {
		cfg.Scheduler.ScanBatchSize = DefaultScanBatchSize
	}
	if cfg.Citation.ContextRadius == 0 {
		cfg.Citation.ContextRadius = defaultContextRadius
	}
	if cfg.Citation.MentionRateThreshold == 0 {
		cfg.Citation.MentionRateThreshold = 0.5
	}
	if cfg.Citation.PositionThreshold == 0 {
		cfg.Citation.PositionThreshold = 3.0
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = defaultEmailTimeout
	}
	if cfg.Email.RatePerSec == 0 {
		cfg.Email.RatePerSec = defaultEmailRate
	}
}

func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("BRANDOPS_PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		cfg.Postgres.Port = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Postgres.DBName = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("EMAIL_SERVICE_URL"); v != "" {
		cfg.Email.URL = v
	}
	if v := os.Getenv("EMAIL_SERVICE_API_KEY"); v != "" {
		cfg.Email.APIKey = v
	}
	if v := os.Getenv("MAX_RECOVERY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scheduler.MaxRecoveryAttempts = n
		}
	}
}

// parseBool accepts the common truthy string forms.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
