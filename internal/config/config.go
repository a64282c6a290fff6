package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Kafka    KafkaConfig
	Maps     MapsConfig
	Dispatch DispatchConfig
	Fare     FareConfig
	OTP      OTPConfig
	Notify   NotifyConfig
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// KafkaConfig holds the ride event stream configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// MapsConfig holds the Google Maps geocoding configuration.
type MapsConfig struct {
	APIKey string
}

// DispatchConfig holds broadcast tuning parameters.
type DispatchConfig struct {
	// RadiusKm is the captain search radius around the pickup point.
	RadiusKm float64
	// NotifyLosers controls whether captains whose offer expired after
	// another captain confirmed receive a ride-taken event.
	NotifyLosers bool
}

// FareConfig holds pricing toggles.
type FareConfig struct {
	// SurgeEnabled applies the supply/demand multiplier to fare estimates.
	// Off by default: with surge off, a quote and the fare stored at
	// creation always agree for the same inputs.
	SurgeEnabled bool
}

// OTPConfig holds one-time code policy parameters.
type OTPConfig struct {
	Length int
}

// NotifyConfig holds optional notification toggles.
type NotifyConfig struct {
	// RideEnded enables the rider notification on ride completion.
	RideEnded bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "hail"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "hail-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Kafka: KafkaConfig{
			Brokers: getSliceEnv("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "ride-events"),
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
		},
		Maps: MapsConfig{
			APIKey: getEnv("MAPS_API_KEY", ""),
		},
		Dispatch: DispatchConfig{
			RadiusKm:     getFloatEnv("DISPATCH_RADIUS_KM", 2.0),
			NotifyLosers: getBoolEnv("DISPATCH_NOTIFY_LOSERS", false),
		},
		Fare: FareConfig{
			SurgeEnabled: getBoolEnv("SURGE_ENABLED", false),
		},
		OTP: OTPConfig{
			Length: getIntEnv("OTP_LENGTH", 6),
		},
		Notify: NotifyConfig{
			RideEnded: getBoolEnv("NOTIFY_RIDE_ENDED", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
