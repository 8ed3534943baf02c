// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// devSecretKey keeps local development working without a .env file.
const devSecretKey = "dev-secret-key-do-not-use-in-production!!"

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string `env:"ENV" envDefault:"development"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	// TrustedProxies are the CIDRs whose X-Real-IP / X-Forwarded-For
	// headers are believed. Rate limits and the audit key on the result.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,fd00::/8"`

	Backend  BackendConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Auth     AuthConfig
	PIN      PINConfig
	UI       UIConfig
}

// BackendConfig points at the KidsTube REST API.
type BackendConfig struct {
	// URL is the API base URL, without a trailing slash.
	URL string `env:"API_URL" envDefault:"http://localhost:3000"`

	// Timeout bounds every backend request.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
}

// RedisConfig holds Redis connection parameters. Redis backs the token store.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
}

// DatabaseConfig holds MariaDB connection parameters for the access audit
// log. Individual fields are read from separate env vars; DATABASE_URL, if
// set, takes precedence over them.
type DatabaseConfig struct {
	// Enabled turns the access audit log (and the MariaDB connection) on.
	Enabled bool `env:"AUDIT_ENABLED" envDefault:"true"`

	// Host is the MariaDB address in host:port format. If no port is
	// specified, 3306 is appended automatically.
	Host     string `env:"DB_HOST" envDefault:"localhost:3306"`
	User     string `env:"DB_USER" envDefault:"kidstube"`
	Password string `env:"DB_PASSWORD" envDefault:"kidstube"`
	Name     string `env:"DB_NAME" envDefault:"kidstube"`

	// URL overrides the individual fields when set.
	URL string `env:"DATABASE_URL"`

	// MigrationsPath is the directory holding *.up.sql / *.down.sql files.
	MigrationsPath string `env:"DB_MIGRATIONS_PATH" envDefault:"db/migrations"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built with the driver's
// Config.FormatDSN() so special characters in passwords are escaped.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// AuthConfig holds token store settings.
type AuthConfig struct {
	// SecretKey seals values in the token store. Must be 32+ characters in
	// production.
	SecretKey string `env:"SECRET_KEY"`

	// StoreTTL is how long an idle browser session's stored state survives.
	StoreTTL time.Duration `env:"STORE_TTL" envDefault:"720h"`
}

// PINConfig holds PIN challenge timings.
type PINConfig struct {
	// SubmitDelay is the pause between the sixth digit and verification,
	// long enough for the last indicator to render as filled.
	SubmitDelay time.Duration `env:"PIN_SUBMIT_DELAY" envDefault:"300ms"`

	// LockoutCloseDelay is how long the lockout message stays up before the
	// challenge closes itself.
	LockoutCloseDelay time.Duration `env:"PIN_LOCKOUT_CLOSE_DELAY" envDefault:"2s"`

	// VerifyTimeout bounds a single verification call.
	VerifyTimeout time.Duration `env:"PIN_VERIFY_TIMEOUT" envDefault:"10s"`

	// ChallengeIdle is how long an untouched keypad stays open in memory.
	ChallengeIdle time.Duration `env:"PIN_CHALLENGE_IDLE" envDefault:"10m"`
}

// UIConfig holds presentation timings.
type UIConfig struct {
	// RedirectDelay is how long a notice stays on screen before the browser
	// is forwarded.
	RedirectDelay time.Duration `env:"UI_REDIRECT_DELAY" envDefault:"2s"`

	// AcceptedDelay is how long "PIN accepted" shows before navigating.
	AcceptedDelay time.Duration `env:"UI_ACCEPTED_DELAY" envDefault:"800ms"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", slog.Any("error", err))
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.Backend.URL = strings.TrimRight(cfg.Backend.URL, "/")
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("API_URL must not be empty")
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	if cfg.IsProduction() {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = devSecretKey
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// SlogLevel maps LogLevel onto a slog level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
