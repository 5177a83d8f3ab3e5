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

	"golang.org/x/text/currency"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	minJWTSecretLen = 16
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Persistence
	DataBackend  string
	SQLiteDBPath string

	// AMQP change events; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Identity: bearer tokens when JWTSecret is set, a single owner otherwise
	JWTSecret string
	OwnerID   string

	// Display
	Currency         string
	CurrencyDecimals int

	// Per-owner store cache
	StoreCacheSize        int
	StoreCacheTTL         time.Duration
	SeedDefaultCategories bool

	// Worker
	SyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/smartspend.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "smartspend"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "smartspend_changes"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		OwnerID:   getEnv("OWNER_ID", ""),

		Currency: strings.ToUpper(getEnv("CURRENCY", "RWF")),

		StoreCacheSize:        getEnvInt("STORE_CACHE_SIZE", 100),
		StoreCacheTTL:         getEnvDuration("STORE_CACHE_TTL", 30*time.Minute),
		SeedDefaultCategories: getEnvBool("SEED_DEFAULT_CATEGORIES", true),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	cfg.CurrencyDecimals = getEnvInt("CURRENCY_DECIMALS", defaultDecimals(cfg.Currency))
	return cfg
}

// defaultDecimals is 0 for francs and 2 for everything else.
func defaultDecimals(code string) int {
	if code == "RWF" {
		return 0
	}
	return 2
}

// UsesJWT reports whether requests are authenticated with bearer tokens.
func (c *Config) UsesJWT() bool {
	return c.JWTSecret != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch {
	case c.JWTSecret == "" && strings.TrimSpace(c.OwnerID) == "":
		errors = append(errors, "either JWT_SECRET or OWNER_ID must be set")
	case c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLen:
		errors = append(errors, fmt.Sprintf("JWT secret must be at least %d bytes", minJWTSecretLen))
	}

	if _, err := currency.ParseISO(c.Currency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be an ISO 4217 code", c.Currency))
	}
	if c.CurrencyDecimals < 0 || c.CurrencyDecimals > 4 {
		errors = append(errors, fmt.Sprintf("invalid currency decimals %d: must be between 0 and 4", c.CurrencyDecimals))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if c.StoreCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid store cache size %d: must be at least 1", c.StoreCacheSize))
	}
	if c.StoreCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid store cache TTL %v: must be at least 1 second", c.StoreCacheTTL))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the requirements of the sync worker: it reads the
// shared SQLite database and consumes change events.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}
	if c.DataBackend != BackendSQLite {
		errors = append(errors, "worker requires DATA_BACKEND=sqlite")
	}
	if c.AMQPURL == "" {
		errors = append(errors, "worker requires AMQP_URL")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
