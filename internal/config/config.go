package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

type Config struct {
	// HTTP Server
	Port        string
	RateLimit   string // ulule/limiter format, e.g. "120-M"
	CORSOrigins []string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string

	// Recurring worker
	RecurringSchedule string // standard 5-field cron spec
	WorkerConcurrency int

	// Dashboard cache
	CacheSize int
	CacheTTL  time.Duration

	LogLevel string
	Timezone string
}

var (
	validBackends  = []string{"memory", "sqlite", "postgres"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATA_BACKEND", "memory")
	v.SetDefault("SQLITE_DB_PATH", "./data/tracker.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "tracker.events")
	v.SetDefault("RECURRING_SCHEDULE", "5 0 * * *")
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("CACHE_SIZE", 1000)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TIMEZONE", "Local")
}

// Load reads the configuration from the environment. A .env file, if any,
// must already have been loaded into the environment.
func Load() *Config {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	return &Config{
		Port:        v.GetString("PORT"),
		RateLimit:   v.GetString("RATE_LIMIT"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		DataBackend:  strings.ToLower(v.GetString("DATA_BACKEND")),
		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		DatabaseURL:  v.GetString("DATABASE_URL"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),

		RecurringSchedule: v.GetString("RECURRING_SCHEDULE"),
		WorkerConcurrency: v.GetInt("WORKER_CONCURRENCY"),

		CacheSize: v.GetInt("CACHE_SIZE"),
		CacheTTL:  v.GetDuration("CACHE_TTL"),

		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		Timezone: v.GetString("TIMEZONE"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate limit '%s': %v", c.RateLimit, err))
		}
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "postgres" {
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid database URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid database URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}

	if c.WorkerConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at least 1", c.WorkerConcurrency))
	} else if c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at most 64", c.WorkerConcurrency))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location returns the zone used to derive "today". Falls back to UTC for
// an unknown zone; Validate reports it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
