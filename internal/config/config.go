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
)

// Backends lists the supported values of DATA_BACKEND.
var Backends = []string{"memory", "sheets", "sqlite", "bolt"}

type Config struct {
	// HTTP Server
	Port            string
	WritesPerMinute int

	// Backend selection
	DataBackend string

	// Local stores
	SQLiteDBPath string
	BoltDBPath   string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID        string
	GoogleCardsSheetName       string
	GooglePurchasesSheetName   string
	GoogleServiceAccountJSON   string
	GoogleServiceAccountFile   string
	GoogleOAuthClientFile      string
	GoogleOAuthTokenFile       string
	GoogleOAuthClientJSON      string
	GoogleOAuthTokenJSON       string
	SheetsServiceTTL           time.Duration
	SheetsCacheCleanupInterval time.Duration

	// Mirror worker
	SyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		WritesPerMinute: getEnvInt("WRITES_PER_MINUTE", 60),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashback.db"),
		BoltDBPath:   getEnv("BOLT_DB_PATH", "./data/cashback.bolt"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashback"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_tables"),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCardsSheetName:       getEnv("GOOGLE_CARDS_SHEET_NAME", "Cards"),
		GooglePurchasesSheetName:   getEnv("GOOGLE_PURCHASES_SHEET_NAME", "Purchases"),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleOAuthClientFile:      getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:       getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON:      getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:       getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		SheetsServiceTTL:           getEnvDuration("SHEETS_SERVICE_TTL", 30*time.Minute),
		SheetsCacheCleanupInterval: getEnvDuration("SHEETS_CACHE_CLEANUP_INTERVAL", 10*time.Minute),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// AMQPEnabled reports whether change notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// HasGoogleCredentials reports whether any Google credential source is set.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != "" ||
		c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "sqlite":
		errors = append(errors, checkLocalPath("SQLite database", c.SQLiteDBPath)...)
	case "bolt":
		errors = append(errors, checkLocalPath("Bolt database", c.BoltDBPath)...)
	case "sheets":
		errors = append(errors, c.validateSheets()...)
	}

	if c.AMQPEnabled() {
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

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SheetsServiceTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sheets service TTL %v: must be at least 1 minute", c.SheetsServiceTTL))
	}

	if c.SheetsCacheCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sheets cache cleanup interval %v: must be at least 1 second", c.SheetsCacheCleanupInterval))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateMirror checks the settings the mirror worker needs on top of
// Validate: a Google spreadsheet target and a primary store that is not it.
func (c *Config) ValidateMirror() error {
	var errors []string
	if c.DataBackend == "sheets" || c.DataBackend == "memory" {
		errors = append(errors, fmt.Sprintf("mirror needs a persistent local primary store, got data backend '%s'", c.DataBackend))
	}
	errors = append(errors, c.validateSheets()...)
	if len(errors) > 0 {
		return fmt.Errorf("mirror configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets")
	}
	if c.GoogleCardsSheetName == "" || c.GooglePurchasesSheetName == "" {
		errors = append(errors, "Google cards and purchases sheet names cannot be empty")
	} else if strings.EqualFold(c.GoogleCardsSheetName, c.GooglePurchasesSheetName) {
		errors = append(errors, "Google cards and purchases sheets must be different")
	}
	if !c.HasGoogleCredentials() {
		errors = append(errors, "either a service account (GOOGLE_SERVICE_ACCOUNT_JSON/FILE) or an OAuth client (GOOGLE_OAUTH_CLIENT_JSON/FILE) must be provided for sheets")
	}

	oauth := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
	serviceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
	if oauth && !serviceAccount && c.GoogleOAuthTokenJSON == "" && c.GoogleOAuthTokenFile == "" {
		errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided with an OAuth client")
	}

	for label, path := range map[string]string{
		"service account": c.GoogleServiceAccountFile,
		"OAuth client":    c.GoogleOAuthClientFile,
		"OAuth token":     c.GoogleOAuthTokenFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google %s file does not exist: %s", label, path))
		}
	}
	slices.Sort(errors)
	return errors
}

func checkLocalPath(label, path string) []string {
	if path == "" {
		return []string{fmt.Sprintf("%s path cannot be empty", label)}
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return []string{fmt.Sprintf("cannot create %s directory '%s': %v", label, dir, err)}
		}
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
