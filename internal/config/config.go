package config

import (
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // embedded zone database for RECURRENCE_TIMEZONE

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Recurrence job
	RecurrenceEnabled  bool
	RecurrenceCron     string
	RecurrenceLocation *time.Location
	// RecurrenceTriggerKey guards the manual trigger; empty disables it.
	RecurrenceTriggerKey string

	// StrictBudgetGate serializes gate checks and writes per user within
	// this process. Off by default: the gate is best-effort check-then-act.
	StrictBudgetGate bool

	// Events (optional; empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "expenses"),
		DBPassword: getEnv("DB_PASSWORD", "expenses"),
		DBName:     getEnv("DB_NAME", "expenses"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "expenses.db"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// Recurrence job: daily at 01:00
		RecurrenceEnabled: getEnvBool("RECURRENCE_ENABLED", true),
		RecurrenceCron:    getEnv("RECURRENCE_CRON", "0 1 * * *"),

		RecurrenceTriggerKey: getEnv("RECURRENCE_TRIGGER_KEY", ""),

		StrictBudgetGate: getEnvBool("STRICT_BUDGET_GATE", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	tz := getEnv("RECURRENCE_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Warning: invalid RECURRENCE_TIMEZONE value '%s', falling back to UTC\n", tz)
		loc = time.UTC
	}
	config.RecurrenceLocation = loc

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', using %v\n", key, v, defaultValue)
		return defaultValue
	}
	return b
}
