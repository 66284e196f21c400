package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name        string `envconfig:"APP_NAME" default:"guppy-consumer"`
		Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
		Port        int    `envconfig:"PORT" default:"8080"`
		Environment string `envconfig:"ENVIRONMENT" default:"development"`
		LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		URL             string        `envconfig:"DATABASE_URL"`
		Host            string        `envconfig:"DB_HOST" default:"localhost"`
		Port            int           `envconfig:"DB_PORT" default:"5432"`
		User            string        `envconfig:"DB_USER" default:"postgres"`
		Password        string        `envconfig:"DB_PASSWORD" default:""`
		Name            string        `envconfig:"DB_NAME" default:"guppy"`
		SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
		MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"25"`
		MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"2"`
		MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
		AmexTable       string        `envconfig:"AMEX_TABLE" default:"amex_raw"`
		WellsTable      string        `envconfig:"WELLS_TABLE" default:"wells_raw"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		UploadMaxBytes int64         `envconfig:"UPLOAD_MAX_BYTES" default:"52428800"`
		CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`
	}

	Breaker struct {
		MaxRequests         uint32        `envconfig:"BREAKER_MAX_REQUESTS" default:"1"`
		Interval            time.Duration `envconfig:"BREAKER_INTERVAL" default:"0s"`
		Timeout             time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
		ConsecutiveFailures uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
		CallTimeout         time.Duration `envconfig:"BREAKER_CALL_TIMEOUT" default:"10s"`
	}
}

// ConnectionString returns DATABASE_URL when set, otherwise a URL built from
// the DB_* fields.
func (c *Config) ConnectionString() string {
	if c.DB.URL != "" {
		return c.DB.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
