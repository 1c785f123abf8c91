package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	PostgresDSN  string
	BackupDir    string

	// AMQP; an empty URL disables ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror (worker)
	MirrorBackend       string
	MirrorResyncOnStart bool

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Advisor
	AdvisorProvider string
	AdvisorEndpoint string
	AdvisorModel    string
	AdvisorAPIKey   string

	// Limits
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// TrustedProxies are CIDRs whose X-Forwarded-For is honoured, on top of
	// loopback and private ranges.
	TrustedProxies []string
}

var (
	validBackends       = []string{"memory", "sqlite", "postgres"}
	validMirrorBackends = []string{"memory", "sheets"}
	validProviders      = []string{"gemini", "openai"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bilancio.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		BackupDir:    getEnv("BACKUP_DIR", "./data/backups"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bilancio"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		MirrorBackend:       getEnv("MIRROR_BACKEND", "memory"),
		MirrorResyncOnStart: getEnvBool("MIRROR_RESYNC_ON_START", false),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		AdvisorProvider: strings.ToLower(getEnv("ADVISOR_PROVIDER", "gemini")),
		AdvisorEndpoint: getEnv("ADVISOR_ENDPOINT", ""),
		AdvisorModel:    getEnv("ADVISOR_MODEL", ""),
		AdvisorAPIKey:   getEnv("ADVISOR_API_KEY", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}
}

// Validate checks the settings shared by every binary and reports all
// problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	}

	if c.BackupDir == "" {
		errors = append(errors, "backup directory cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
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

	if !slices.Contains(validProviders, c.AdvisorProvider) {
		errors = append(errors, fmt.Sprintf("invalid advisor provider '%s': must be one of %v", c.AdvisorProvider, validProviders))
	}
	if c.AdvisorEndpoint != "" {
		if u, err := url.Parse(c.AdvisorEndpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid advisor endpoint '%s': must be an http(s) URL", c.AdvisorEndpoint))
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 203.0.113.0/24", cidr))
		}
	}

	return combine(errors)
}

// ValidateWorker adds the checks the mirror worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if !slices.Contains(validMirrorBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validMirrorBackends))
	}
	if c.MirrorBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets mirror")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets mirror")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	return combine(errors)
}

func combine(errors []string) error {
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

// getEnvList splits a comma separated value, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
