// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPass     string `env:"DB_PASS" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"chatapp"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"chatapp.db"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"your-secret-key"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	MaxMessageLength int      `env:"MAX_MESSAGE_LENGTH" envDefault:"4000"`
	SendBuffer       int      `env:"SEND_BUFFER" envDefault:"256"`
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env (when present) into the process environment and parses it.
// The returned bool reports whether a .env file was found.
func Load() (Config, bool, error) {
	found := godotenv.Load() == nil

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, found, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, found, err
	}
	return cfg, found, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive")
	}
	return nil
}

// PostgresDSN builds the connection string used by the postgres driver.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort)
}
