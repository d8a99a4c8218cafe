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

// Config carries everything the binaries need, resolved once at process
// start from the environment. Provider credentials are injected from here
// into the AI gateway constructors; nothing reads the environment at call
// time.
type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AI providers
	GeminiAPIKey    string
	GeminiModel     string
	GeminiEndpoint  string // override for tests; empty means the public API
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIEndpoint  string // override for tests; empty means the public API
	DefaultProvider string
	InsightTimeout  time.Duration

	// Worker
	AuditBatchSize int
	AuditInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/outlay.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "outlay"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEndpoint:  getEnv("GEMINI_ENDPOINT", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIEndpoint:  getEnv("OPENAI_ENDPOINT", ""),
		DefaultProvider: getEnv("DEFAULT_AI_PROVIDER", "gemini"),
		InsightTimeout:  getEnvDuration("INSIGHT_TIMEOUT", 25*time.Second),

		AuditBatchSize: getEnvInt("AUDIT_BATCH_SIZE", 50),
		AuditInterval:  getEnvDuration("AUDIT_INTERVAL", 30*time.Second),
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

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	switch c.DefaultProvider {
	case "gemini", "openai":
	default:
		errors = append(errors, fmt.Sprintf("invalid default AI provider '%s': must be 'gemini' or 'openai'", c.DefaultProvider))
	}

	if c.InsightTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid insight timeout %v: must be at least 1 second", c.InsightTimeout))
	} else if c.InsightTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid insight timeout %v: must be at most 2 minutes", c.InsightTimeout))
	}

	if c.AuditBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid audit batch size %d: must be at least 1", c.AuditBatchSize))
	} else if c.AuditBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid audit batch size %d: must be at most 1000", c.AuditBatchSize))
	}

	if c.AuditInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at least 1 second", c.AuditInterval))
	} else if c.AuditInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at most 24 hours", c.AuditInterval))
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
