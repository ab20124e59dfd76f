// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"5000"`

	// SecretKey keys the hash applied to client addresses before they are used as cache keys.
	SecretKey string `env:"SECRET_KEY"`

	// Database. sqlite: and file: select the embedded store, postgres:// selects PostgreSQL.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:///instance/visitors.db"`

	// Cache (Redis). Empty disables notification throttling.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// StoreTimeout bounds every event store call. Zero disables the bound.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`

	// TrustProxyHeaders rewrites the remote address from X-Real-IP / X-Forwarded-For.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// FrontendURL is echoed in Access-Control-Allow-Origin.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"*"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	Mail Mail

	// AdminEmail receives every notification.
	AdminEmail string `env:"ADMIN_EMAIL"`

	// Notifications
	NotifyOnVisit       bool `env:"NOTIFY_ON_VISIT" envDefault:"false"`
	NotifyRatePerMinute int  `env:"NOTIFY_RATE_PER_MINUTE" envDefault:"6"`
	NotifyBurst         int  `env:"NOTIFY_BURST" envDefault:"3"`
}

// Mail holds the outbound SMTP transport settings.
type Mail struct {
	Server        string        `env:"MAIL_SERVER" envDefault:"smtp.gmail.com"`
	Port          int           `env:"MAIL_PORT" envDefault:"587"`
	UseTLS        bool          `env:"MAIL_USE_TLS" envDefault:"true"`
	UseSSL        bool          `env:"MAIL_USE_SSL" envDefault:"false"`
	Username      string        `env:"MAIL_USERNAME"`
	Password      string        `env:"MAIL_PASSWORD"`
	DefaultSender string        `env:"MAIL_DEFAULT_SENDER"`
	SuppressSend  bool          `env:"MAIL_SUPPRESS_SEND" envDefault:"false"`
	Timeout       time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`
}

// Sender returns the From address, falling back to the SMTP username.
func (m Mail) Sender() string {
	if m.DefaultSender != "" {
		return m.DefaultSender
	}
	return m.Username
}

// TLSMode names the transport security mode for logs.
func (m Mail) TLSMode() string {
	switch {
	case m.UseSSL:
		return "ssl"
	case m.UseTLS:
		return "starttls"
	default:
		return "none"
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesSQLite reports whether DatabaseURL points at the embedded SQLite store.
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite:") || strings.HasPrefix(c.DatabaseURL, "file:")
}

// Load reads an optional .env file, then parses environment variables into a Config.
// Variables already present in the environment win over .env values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
