// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Port     string     `env:"PORT" envDefault:"8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	Database Database
	Redis    Redis
	Sweep    Sweep
	// CrewManagers receive an alert when a crew member cancels.
	CrewManagers []string `env:"CREW_MANAGER_KEYS" envSeparator:","`
}

// Database configures the Postgres pool. An empty URL selects the in-memory
// store.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
}

// Redis configures the notification queue and the sweep lock. An empty URL
// logs notifications in-process and locks locally.
type Redis struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	// WorkerConcurrency is the number of notification deliveries in flight.
	WorkerConcurrency int `env:"NOTIFICATION_WORKERS" envDefault:"4"`
}

// Sweep configures the confirmation sweep.
type Sweep struct {
	Schedule string        `env:"CONFIRMATION_SWEEP_SCHEDULE" envDefault:"0 7 * * *"`
	LockTTL  time.Duration `env:"SWEEP_LOCK_TTL" envDefault:"10m"`
	Timezone string        `env:"SWEEP_TIMEZONE" envDefault:"UTC"`
}

// FromEnv parses the configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Sweep.LockTTL <= 0 {
		return Config{}, fmt.Errorf("SWEEP_LOCK_TTL must be positive")
	}
	return cfg, nil
}
