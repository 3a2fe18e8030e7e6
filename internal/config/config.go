package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration, populated from the environment.
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"bazaar"`
	Env     string `envconfig:"APP_ENV" default:"development"`
	Host    string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	Port    int    `envconfig:"HTTP_PORT" default:"8000"`

	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"bazaar.db"`

	JWTSecret          string `envconfig:"JWT_SECRET"`
	AccessTokenMinutes int    `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"1440"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	Debug       bool     `envconfig:"DEBUG" default:"false"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	return &cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
