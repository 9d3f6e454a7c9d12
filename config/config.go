package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the inspection pipeline service.
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Anthropic configuration
	AnthropicAPIKey  string
	AnthropicModel   string
	AnalysisTimeout  time.Duration
	AnalysisMaxToken int

	// Capture configuration
	CaptureSource   string // camera index or video device/file path
	CaptureRegion   [4]int // top, left, width, height
	CaptureLength   time.Duration
	CaptureInterval time.Duration
	DataDir         string
	DetectorModel   string

	// Filter configuration
	ConfidenceThreshold float64

	// RabbitMQ configuration (optional; empty URL disables the subscriber)
	AMQPURL   string
	AMQPQueue string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. A .env file is
// loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "inspections"),

		// Server defaults
		Port: getEnv("PORT", "8000"),

		// Anthropic defaults
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		AnalysisTimeout:  getDurationEnv("ANALYSIS_TIMEOUT", 60*time.Second),
		AnalysisMaxToken: getIntEnv("ANALYSIS_MAX_TOKENS", 3500),

		// Capture defaults
		CaptureSource:   getEnv("CAPTURE_SOURCE", "0"),
		CaptureRegion:   getRegionEnv("CAPTURE_REGION", [4]int{205, 400, 465, 820}),
		CaptureLength:   getDurationEnv("CAPTURE_LENGTH", 120*time.Second),
		CaptureInterval: getDurationEnv("CAPTURE_INTERVAL", 0),
		DataDir:         getEnv("DATA_DIR", "./data"),
		DetectorModel:   getEnv("DETECTOR_MODEL", "./model/final.onnx"),

		// Filter defaults
		ConfidenceThreshold: getFloatEnv("CONFIDENCE_THRESHOLD", 0.25),

		// RabbitMQ defaults
		AMQPURL:   getEnv("AMQP_URL", ""),
		AMQPQueue: getEnv("AMQP_QUEUE", "cleaned-frames"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getRegionEnv parses a "top,left,width,height" capture region
func getRegionEnv(key string, defaultValue [4]int) [4]int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return defaultValue
	}
	var region [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		region[i] = n
	}
	return region
}
