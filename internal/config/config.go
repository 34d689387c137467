// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env  string
	Port string

	StoreDriver     string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBMaxIdleConns  int
	DBMaxOpenConns  int
	DBConnLifetime  time.Duration
	DBConnIdleTime  time.Duration
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	RedisTTL        time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	PublishTimeout  time.Duration
	CORSOrigins     string
	LogLevel        string
	AuditSchedule   string
	StatsSchedule   string
	MaxRetries      int
	PinCost         int
	MaxDeposit      string
	ExchangeRates   string
	IdentitySecret  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the full configuration from the environment.
func Load() *Config {
	return &Config{
		Env:  GetEnv("ENV", "development"),
		Port: GetEnv("PORT", "3000"),

		StoreDriver:    GetEnv("STORE_DRIVER", "postgres"),
		DBHost:         GetEnv("DB_HOST", "localhost"),
		DBPort:         GetEnv("DB_PORT", "5432"),
		DBUser:         GetEnv("DB_USER", "postgres"),
		DBPassword:     GetEnv("DB_PASSWORD", "postgres"),
		DBName:         GetEnv("DB_NAME", "stase"),
		DBMaxIdleConns: GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),

		RedisHost:     GetEnv("REDIS_HOST", ""),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		RedisTTL:      GetDurationEnv("REDIS_TTL", 10*time.Minute),

		KafkaBrokers:   splitList(GetEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     GetEnv("KAFKA_TOPIC", "transaction_completed"),
		PublishTimeout: GetDurationEnv("EVENT_PUBLISH_TIMEOUT", 2*time.Second),

		CORSOrigins:   GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		AuditSchedule: GetEnv("AUDIT_SCHEDULE", "@every 5m"),
		StatsSchedule: GetEnv("DB_STATS_SCHEDULE", "@every 1m"),

		MaxRetries:     GetIntEnv("TX_MAX_RETRIES", 3),
		PinCost:        GetIntEnv("PIN_HASH_COST", 12),
		MaxDeposit:     GetEnv("MAX_DEPOSIT_AMOUNT", "100000"),
		ExchangeRates:  GetEnv("EXCHANGE_RATES", ""),
		IdentitySecret: GetEnv("IDENTITY_JWT_SECRET", ""),

		RateLimitMax:    GetIntEnv("PIN_RATE_LIMIT_MAX", 5),
		RateLimitWindow: GetDurationEnv("PIN_RATE_LIMIT_WINDOW", time.Minute),
	}
}

// ErrMissingIdentitySecret is returned by Validate when production runs
// without a signing secret for identity tokens.
var ErrMissingIdentitySecret = errors.New("IDENTITY_JWT_SECRET is required in production")

// Validate rejects settings that are unsafe for the target environment.
func (c *Config) Validate() error {
	if c.IsProduction() && c.IdentitySecret == "" {
		return ErrMissingIdentitySecret
	}
	return nil
}

// IsProduction reports whether the config targets production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
