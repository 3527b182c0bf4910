package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID string
	LedgerSheetName     string
	UsersSheetName      string

	// Gemini extraction
	GeminiAPIKey string
	GeminiModel  string

	// AMQP maintenance queue
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Read caches
	LedgerCacheTTL time.Duration
	UsersCacheTTL  time.Duration
	CacheMaxSize   int

	// Accounts
	AdminUsername string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/receiptbook.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		LedgerSheetName:     getEnv("LEDGER_SHEET_NAME", "Ledger"),
		UsersSheetName:      getEnv("USERS_SHEET_NAME", "Users"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "receiptbook"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_maintenance"),

		LedgerCacheTTL: getEnvDuration("LEDGER_CACHE_TTL", 10*time.Minute),
		UsersCacheTTL:  getEnvDuration("USERS_CACHE_TTL", time.Minute),
		CacheMaxSize:   getEnvInt("CACHE_MAX_SIZE", 100),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
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

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.LedgerSheetName == "" {
			errors = append(errors, "ledger sheet name cannot be empty when using sheets backend")
		}
		if c.UsersSheetName == "" {
			errors = append(errors, "users sheet name cannot be empty when using sheets backend")
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

	if c.LedgerCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid ledger cache TTL %v: must be at least 1 second", c.LedgerCacheTTL))
	}
	if c.UsersCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid users cache TTL %v: must be at least 1 second", c.UsersCacheTTL))
	}
	if c.CacheMaxSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache max size %d: must be at least 1", c.CacheMaxSize))
	}

	if strings.TrimSpace(c.AdminUsername) == "" {
		errors = append(errors, "admin username cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
