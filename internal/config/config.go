package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all environment configuration values for the application.
// These values are loaded from a .env file at startup.
type Config struct {
	// ServerPort is the port the HTTP server listens on.
	ServerPort string

	// CorsOrigins is the set of origins allowed to open the WebSocket/HTTP
	// endpoints from a browser.
	CorsOrigins []string

	// RedisAddr, RedisPassword, RedisDB locate the shared broker and
	// key-value store the Hub is built on.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWTSecret is the HMAC secret the authenticator verifies tokens with.
	JWTSecret string

	// DefaultRoom is the distinguished room every session joins on connect.
	DefaultRoom string

	// HeartbeatInterval/HeartbeatTimeout govern the session loop's ping
	// cadence and disconnect threshold.
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// LogLevel/LogFormat configure the zerolog base logger.
	LogLevel  string
	LogFormat string
}

// Load reads environment variables and returns a populated Config struct.
// It will load from a .env file if present, then read from environment
// variables. Falls back to sensible defaults if values are not set.
func Load() *Config {
	// Attempt to load .env file - not an error if it doesn't exist
	// as we may be running in production with real environment variables.
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg := &Config{
		ServerPort:        getEnv("PORT", "8080"),
		CorsOrigins:       getCorsOrigins(),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		DefaultRoom:       getEnv("DEFAULT_ROOM", "main"),
		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 5*time.Second),
		HeartbeatTimeout:  getEnvDuration("HEARTBEAT_TIMEOUT", 10*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set")
	}

	return cfg
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer env var, using default")
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration env var, using default")
		return defaultValue
	}
	return d
}

// getCorsOrigins returns allowed CORS origins from environment or defaults.
func getCorsOrigins() []string {
	originsEnv := os.Getenv("CORS_ORIGINS")
	if originsEnv == "" {
		return []string{"http://localhost:5173", "http://localhost:3000"}
	}

	origins := strings.Split(originsEnv, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}
