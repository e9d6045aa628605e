package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration. Pipeline policy values
// (lease TTL, sweep and fullness-check intervals) are deliberately not
// here: they are fixed constants in their packages.
type Config struct {
	ServiceName string
	HTTPPort    int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	CORS        CORSConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds broker connection and topology settings.
type RabbitMQConfig struct {
	URL string

	// Outbound lot-full notifications.
	NotifyExchange   string
	NotifyRoutingKey string

	// Inbound raw sensor readings.
	SensorExchange   string
	SensorQueue      string
	SensorRoutingKey string
	SensorDLQQueue   string
	PrefetchCount    int
}

// CORSConfig holds allowed origins for the browser-facing endpoints.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "occupancy-service"),
		HTTPPort:    getEnvAsInt("HTTP_PORT", 8080),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			NotifyExchange:   getEnv("RABBITMQ_NOTIFY_EXCHANGE", "parking-exchange"),
			NotifyRoutingKey: getEnv("RABBITMQ_NOTIFY_ROUTING_KEY", "parking.full"),
			SensorExchange:   getEnv("RABBITMQ_SENSOR_EXCHANGE", "parking.sensor.exchange"),
			SensorQueue:      getEnv("RABBITMQ_SENSOR_QUEUE", "parking.sensor.queue"),
			SensorRoutingKey: getEnv("RABBITMQ_SENSOR_ROUTING_KEY", "parking.sensor.raw"),
			SensorDLQQueue:   getEnv("RABBITMQ_SENSOR_DLQ_QUEUE", "parking.sensor.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
