package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all engine configuration
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Tracking TrackingConfig
	Fraud    FraudConfig
}

// ServerConfig holds the loopback daemon configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// StorageConfig selects the key-value backend
type StorageConfig struct {
	Backend string // "memory" or "redis"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// TrackingConfig holds continuous-tracking defaults
type TrackingConfig struct {
	AccuracyTier      string // "high", "balanced" or "low"
	MinIntervalMs     int
	MinDistanceMeters float64
	HistoryCapacity   int
}

// FraudConfig holds scorer thresholds
type FraudConfig struct {
	AuditCapacity                int
	RapidActivityLimit           int
	RapidActivityWindowMinutes   int
	SimilarActivityLimit         int
	SimilarActivityWindowMinutes int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "memory"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Tracking: TrackingConfig{
			AccuracyTier:      getEnv("TRACKING_ACCURACY", "high"),
			MinIntervalMs:     getEnvAsInt("TRACKING_MIN_INTERVAL_MS", 5000),
			MinDistanceMeters: getEnvAsFloat("TRACKING_MIN_DISTANCE_M", 10),
			HistoryCapacity:   getEnvAsInt("TRACKING_HISTORY_CAPACITY", 1000),
		},
		Fraud: FraudConfig{
			AuditCapacity:                getEnvAsInt("FRAUD_AUDIT_CAPACITY", 1000),
			RapidActivityLimit:           getEnvAsInt("FRAUD_RAPID_ACTIVITY_LIMIT", 10),
			RapidActivityWindowMinutes:   getEnvAsInt("FRAUD_RAPID_ACTIVITY_WINDOW_MIN", 60),
			SimilarActivityLimit:         getEnvAsInt("FRAUD_SIMILAR_ACTIVITY_LIMIT", 5),
			SimilarActivityWindowMinutes: getEnvAsInt("FRAUD_SIMILAR_ACTIVITY_WINDOW_MIN", 30),
		},
	}

	return cfg, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
