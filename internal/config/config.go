// Vitrine - Marketplace Product Recommendations
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrinehq/vitrine

// Package config defines the Vitrine configuration tree and its loader.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables. See koanf.go for the loading mechanics.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// Config is the root configuration for the Vitrine server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Recommend RecommendConfig `koanf:"recommend"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host" validate:"required"`

	// Port is the listen port. Default: 8080
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// ReadTimeout bounds reading the full request, including body.
	ReadTimeout time.Duration `koanf:"read_timeout" validate:"min=1s"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"min=1s"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level. Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`

	// Format is json or console. Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes the caller file:line in log lines.
	Caller bool `koanf:"caller"`
}

// DatabaseConfig holds settings for the externally owned marketplace
// database that interaction logs and product counters are read from.
type DatabaseConfig struct {
	// Enabled controls whether a database connection is opened. When
	// disabled the server runs on in-memory stores (dev/test mode).
	Enabled bool `koanf:"enabled"`

	// DSN is the Postgres connection string.
	DSN string `koanf:"dsn"`

	// MaxOpenConns caps the connection pool. Default: 10
	MaxOpenConns int `koanf:"max_open_conns" validate:"min=1"`

	// MaxIdleConns caps idle pooled connections. Default: 5
	MaxIdleConns int `koanf:"max_idle_conns" validate:"min=0"`

	// ConnMaxLifetime recycles connections older than this. Default: 30m
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig holds settings for the recommendation cache backend.
type RedisConfig struct {
	// Enabled selects Redis as the cache backend. When disabled an
	// in-process TTL cache is used instead.
	Enabled bool `koanf:"enabled"`

	// Addr is the host:port of the Redis server.
	Addr string `koanf:"addr"`

	// Password is the optional Redis AUTH password.
	Password string `koanf:"password"`

	// DB is the Redis logical database number.
	DB int `koanf:"db" validate:"min=0"`
}

// RecommendConfig holds recommendation core settings.
type RecommendConfig struct {
	// DataDir is where model artifacts are persisted. Default: /data/vitrine
	DataDir string `koanf:"data_dir" validate:"required"`

	// DefaultLimit is the list length served when the caller omits one.
	// Default: 10
	DefaultLimit int `koanf:"default_limit" validate:"min=1"`

	// MaxLimit caps the requested list length. Default: 100
	MaxLimit int `koanf:"max_limit" validate:"min=1"`

	// CacheTTL is the per-user recommendation cache lifetime. Default: 1h
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=1s"`

	// KeepVersions is how many artifact versions Prune retains. Default: 3
	KeepVersions int `koanf:"keep_versions" validate:"min=1"`

	// TrainSchedule is a standard 5-field cron expression for the periodic
	// training job. Empty disables scheduled training. Default: "0 3 * * *"
	TrainSchedule string `koanf:"train_schedule"`

	// TrainTimeout bounds a single training run. Default: 30m
	TrainTimeout time.Duration `koanf:"train_timeout" validate:"min=1m"`

	// TrainOnStartup runs one training pass as soon as the server starts.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// Seed fixes the RNG used for weight init and dataset shuffling.
	// If zero, a fixed default seed is used.
	Seed int64 `koanf:"seed"`
}

// APIConfig holds HTTP API behavior settings.
type APIConfig struct {
	// RateLimitRequests is the per-IP request budget per window. Default: 300
	RateLimitRequests int `koanf:"rate_limit_requests" validate:"min=1"`

	// RateLimitWindow is the rate limit window. Default: 1m
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=1s"`

	// TrainTriggerEvery is the minimum spacing between accepted manual
	// training triggers. Default: 1m
	TrainTriggerEvery time.Duration `koanf:"train_trigger_every" validate:"min=1s"`

	// CORSOrigins lists allowed origins. Default: ["*"]
	CORSOrigins []string `koanf:"cors_origins"`
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.enabled=true")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled=true")
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("recommend.max_limit (%d) must be >= recommend.default_limit (%d)",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}
	if c.Recommend.TrainSchedule != "" {
		if _, err := cron.ParseStandard(c.Recommend.TrainSchedule); err != nil {
			return fmt.Errorf("recommend.train_schedule is not a valid cron expression: %w", err)
		}
	}

	return nil
}
