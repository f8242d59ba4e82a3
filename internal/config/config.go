// Package config loads the service configuration from the environment.
//
// Variables are read with github.com/caarlos0/env after an optional
// configs/.env file has been applied by godotenv.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const devJWTSecret = "default_super_secret_key" // Development fallback only

type Config struct {
	HTTP    HTTPConfig
	DB      DBConfig `envPrefix:"DB_"`
	Auth    AuthConfig
	Log     LogConfig `envPrefix:"LOG_"`
	Booking BookingConfig
}

// HTTPConfig contains HTTP server settings
type HTTPConfig struct {
	Port        string   `env:"PORT"         envDefault:"8080"`
	GinMode     string   `env:"GIN_MODE"     envDefault:"debug"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
}

// Release reports whether gin runs in release mode
func (h HTTPConfig) Release() bool {
	return h.GinMode == "release"
}

// DBConfig selects and configures the relational store
type DBConfig struct {
	Driver     string `env:"DRIVER"      envDefault:"postgres"` // postgres or sqlite
	Host       string `env:"HOST"        envDefault:"localhost"`
	Port       int    `env:"PORT"        envDefault:"5432"`
	User       string `env:"USER"        envDefault:"postgres"`
	Password   string `env:"PASSWORD"    envDefault:"postgres"`
	Name       string `env:"NAME"        envDefault:"postgres"`
	SSLMode    string `env:"SSLMODE"     envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"cinema.db"`
}

// DSN returns the connection string for the configured driver
func (d DBConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// AuthConfig contains token and bootstrap account settings
type AuthConfig struct {
	JWTSecret            string        `env:"JWT_SECRET"`
	TokenTTL             time.Duration `env:"JWT_TTL"                envDefault:"24h"`
	DefaultAdminUsername string        `env:"DEFAULT_ADMIN_USERNAME" envDefault:"crea"`
	DefaultAdminPassword string        `env:"DEFAULT_ADMIN_PASSWORD"`
}

type LogConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"` // text or json
}

// BookingConfig tunes ticket allocation
type BookingConfig struct {
	AllocationMaxRetries int `env:"ALLOCATION_MAX_RETRIES" envDefault:"3"`
}

// Load reads configs/.env when present and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		slog.Debug("no configs/.env file loaded", "error", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize applies defaults that depend on other values
func (c *Config) Sanitize() {
	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	if c.Auth.JWTSecret == "" && !c.HTTP.Release() {
		c.Auth.JWTSecret = devJWTSecret
	}
	if c.Booking.AllocationMaxRetries < 1 {
		c.Booking.AllocationMaxRetries = 1
	}
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required in release mode")
	}
	if c.DB.Driver != "postgres" && c.DB.Driver != "sqlite" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	return nil
}
