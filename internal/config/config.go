// Package config loads the server configuration.
//
// Values come from environment variables first and are then overridden by
// command-line flags. The result is validated once at startup; an invalid
// configuration is fatal.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLen is the minimum length of a signing secret in bytes
const MinSecretLen = 32

// Storage backends
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	TokenStoreDatabase = "database"
	TokenStoreRedis    = "redis"
)

// Config holds runtime settings for the server
type Config struct {
	CORSOrigins     []string      `env:"CORS_ORIGINS"      envDefault:"http://localhost:3000" envSeparator:","`
	Addr            string        `env:"SERVER_ADDR"       envDefault:":8080"`
	AccessSecret    string        `env:"ACCESS_SECRET"`
	RefreshSecret   string        `env:"REFRESH_SECRET"`
	DatabaseDriver  string        `env:"DATABASE_DRIVER"   envDefault:"sqlite"`
	DatabaseDSN     string        `env:"DATABASE_DSN"      envDefault:"edulearn.db"`
	TokenStore      string        `env:"TOKEN_STORE"       envDefault:"database"`
	RedisAddr       string        `env:"REDIS_ADDR"        envDefault:"localhost:6379"`
	LogLevel        string        `env:"LOG_LEVEL"         envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"        envDefault:"text"`
	AccessTTL       time.Duration `env:"ACCESS_TTL"        envDefault:"24h"`
	RefreshTTL      time.Duration `env:"REFRESH_TTL"       envDefault:"168h"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"10s"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT"  envDefault:"10"`
}

// Load parses the environment and then args (without the program name)
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	return cfg, nil
}

// RegisterFlags binds the overridable fields to fs using current values as defaults
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "a", c.Addr, "address and port to run server")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "access token signing secret")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "refresh token signing secret")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "refresh token lifetime")
	fs.StringVar(&c.DatabaseDriver, "db-driver", c.DatabaseDriver, "database driver: sqlite or postgres")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN or sqlite file path")
	fs.StringVar(&c.TokenStore, "token-store", c.TokenStore, "refresh token store: database or redis")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis address for the redis token store")
}

// Validate reports every problem found in the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" {
		errs = append(errs, errors.New("ACCESS_SECRET is required"))
	} else if len(c.AccessSecret) < MinSecretLen {
		errs = append(errs, fmt.Errorf("ACCESS_SECRET must be at least %d bytes", MinSecretLen))
	}

	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("REFRESH_SECRET is required"))
	} else if len(c.RefreshSecret) < MinSecretLen {
		errs = append(errs, fmt.Errorf("REFRESH_SECRET must be at least %d bytes", MinSecretLen))
	}

	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_SECRET and REFRESH_SECRET must differ"))
	}

	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TTL must be positive"))
	}
	if c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TTL must be positive"))
	}

	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}

	switch c.TokenStore {
	case TokenStoreDatabase:
	case TokenStoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis token store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOKEN_STORE %q", c.TokenStore))
	}

	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive"))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// NewLogger builds the slog logger described by LogLevel and LogFormat
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown LOG_LEVEL %q", s)
	}
	return level, nil
}
