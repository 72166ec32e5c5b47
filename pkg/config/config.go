package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the Plata bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis" validate:"required"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Gateway    GatewayConfig    `mapstructure:"gateway" validate:"required"`
	Classifier ClassifierConfig `mapstructure:"classifier" validate:"required"`
	Advice     AdviceConfig     `mapstructure:"advice"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Bot        BotConfig        `mapstructure:"bot"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

// RedisConfig configures the Redis connection used for pending actions,
// per-user locks and the job queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables rotating file output when non-empty.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// GatewayConfig configures the inbound webhook contract and the outbound
// message gateway.
type GatewayConfig struct {
	// WebhookSecret signs inbound webhook bodies (HMAC-SHA256).
	WebhookSecret string `mapstructure:"webhook_secret" validate:"required"`
	// SendURL is the outbound delivery endpoint of the message gateway.
	SendURL string        `mapstructure:"send_url" validate:"required"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClassifierConfig configures the external intent classifier.
type ClassifierConfig struct {
	URL     string        `mapstructure:"url" validate:"required"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AdviceConfig configures the external advice-generation service.
type AdviceConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig authenticates the external reminder trigger.
type SchedulerConfig struct {
	// Secret authenticates POST /internal/reminders/run. Distinct from the
	// webhook secret on purpose.
	Secret string `mapstructure:"secret" validate:"required"`
	// Cron is the asynq scheduler entry for the daily reminder batch.
	Cron string `mapstructure:"cron"`
}

// BotConfig holds conversational behavior knobs.
type BotConfig struct {
	// OperatorPhone is the designated admin phone number.
	OperatorPhone string `mapstructure:"operator_phone"`
	// SuggestionDelay is how long after a matching transaction the
	// "is this recurring?" prompt is sent.
	SuggestionDelay time.Duration `mapstructure:"suggestion_delay"`
	DefaultLanguage string        `mapstructure:"default_language"`
}

// JobsConfig configures the asynq worker.
type JobsConfig struct {
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// RateLimitRule is one limit over a time window, e.g. 20 per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig throttles inbound webhook traffic.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Global    RateLimitRule `mapstructure:"global"`
	PerSender RateLimitRule `mapstructure:"per_sender"`
	// Whitelist lists phone numbers exempt from throttling.
	Whitelist []string `mapstructure:"whitelist"`
}
