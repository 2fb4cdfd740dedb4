package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type Config struct {
	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Month bucketing
	TimeZone   string
	EpochMonth string

	// Settings defaults, decimal text
	DefaultMonthlyBudget string
	DefaultSavingGoal    string

	// Totals cache, disabled when size is 0
	TotalsCacheSize      int
	TotalsCacheTTL       time.Duration
	CacheCleanupInterval time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expenses.db"),

		TimeZone:   getEnv("TIME_ZONE", "Local"),
		EpochMonth: getEnv("EPOCH_MONTH", "2023-01"),

		DefaultMonthlyBudget: getEnv("DEFAULT_MONTHLY_BUDGET", "2000"),
		DefaultSavingGoal:    getEnv("DEFAULT_SAVING_GOAL", "0"),

		TotalsCacheSize:      getEnvInt("TOTALS_CACHE_SIZE", 0),
		TotalsCacheTTL:       getEnvDuration("TOTALS_CACHE_TTL", 5*time.Minute),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid time zone '%s': %v", c.TimeZone, err))
	}
	if _, err := c.Epoch(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid epoch month '%s': must be YYYY-MM", c.EpochMonth))
	}

	if _, err := c.MonthlyBudget(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default monthly budget '%s': must be a non-negative amount", c.DefaultMonthlyBudget))
	}
	if _, err := c.SavingGoal(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default saving goal '%s': must be a non-negative amount", c.DefaultSavingGoal))
	}

	// Validate cache configuration
	if c.TotalsCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid totals cache size %d: must be at least 0", c.TotalsCacheSize))
	}
	if c.TotalsCacheSize > 0 {
		if c.TotalsCacheTTL <= 0 {
			errors = append(errors, fmt.Sprintf("invalid totals cache TTL %v: must be positive", c.TotalsCacheTTL))
		}
		if c.CacheCleanupInterval < time.Second {
			errors = append(errors, fmt.Sprintf("invalid cache cleanup interval %v: must be at least 1 second", c.CacheCleanupInterval))
		}
	}

	if _, err := c.Level(); err != nil {
		errors = append(errors, err.Error())
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) Location() (*time.Location, error) {
	return core.LoadZone(c.TimeZone)
}

func (c *Config) Epoch() (core.Month, error) {
	return core.ParseMonth(c.EpochMonth)
}

func (c *Config) MonthlyBudget() (core.Money, error) {
	return core.ParseMoney(c.DefaultMonthlyBudget)
}

func (c *Config) SavingGoal() (core.Money, error) {
	return core.ParseMoney(c.DefaultSavingGoal)
}

func (c *Config) Level() (slog.Level, error) {
	return log.ParseLevel(c.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
