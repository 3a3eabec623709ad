package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Ledger backend: memory, sqlite, or firestore
	LedgerBackend string
	SQLiteDBPath  string

	// Firestore / Firebase
	GoogleProjectID       string
	GoogleCredentialsFile string

	// Auth mode: firebase, or static for local development
	AuthMode     string
	StaticUserID string

	// Event bus. Empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Periodic materialization in the server process. Zero disables the
	// loop; the worker or the process endpoint take over.
	MaterializeInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		AuthMode:     getEnv("AUTH_MODE", "static"),
		StaticUserID: getEnv("STATIC_USER_ID", "local-dev"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		MaterializeInterval: getEnvDuration("MATERIALIZE_INTERVAL", time.Hour),
	}
}

// Validate collects every configuration problem into one error so a
// misconfigured deployment fails fast with the full list.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LedgerBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLITE_DB_PATH cannot be empty with the sqlite backend")
		}
	case "firestore":
		if c.GoogleProjectID == "" {
			problems = append(problems, "GOOGLE_PROJECT_ID is required with the firestore backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid ledger backend %q: must be memory, sqlite, or firestore", c.LedgerBackend))
	}

	switch c.AuthMode {
	case "firebase":
		if c.GoogleProjectID == "" {
			problems = append(problems, "GOOGLE_PROJECT_ID is required with firebase auth")
		}
	case "static":
		if c.StaticUserID == "" {
			problems = append(problems, "STATIC_USER_ID cannot be empty with static auth")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid auth mode %q: must be firebase or static", c.AuthMode))
	}

	if c.GoogleCredentialsFile != "" {
		if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE cannot be empty when AMQP_URL is set")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP_QUEUE cannot be empty when AMQP_URL is set")
		}
	}

	if c.MaterializeInterval < 0 {
		problems = append(problems, fmt.Sprintf("invalid materialize interval %v: must not be negative", c.MaterializeInterval))
	} else if c.MaterializeInterval > 0 && c.MaterializeInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid materialize interval %v: must be at least 1 minute", c.MaterializeInterval))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
