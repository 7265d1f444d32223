package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Upstream transit feed configuration
	Feed FeedConfig

	// Disruption matching configuration
	Matching MatchingConfig

	// Route/subscription shape limits
	Routes RouteConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// FeedConfig holds upstream transit feed configuration
type FeedConfig struct {
	BaseURL            string
	Timeout            time.Duration
	TransportModes     []string // e.g. "tube", "overground"
	TopologyCacheTTL   time.Duration
	DisruptionCacheTTL time.Duration
}

// MatchingConfig holds disruption matching configuration
type MatchingConfig struct {
	PollInterval time.Duration
	Workers      int
}

// RouteConfig holds route shape limits
type RouteConfig struct {
	MinLegs int
	MaxLegs int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Feed: FeedConfig{
			BaseURL:            getEnv("FEED_BASE_URL", "https://api.tfl.gov.uk"),
			Timeout:            time.Duration(getEnvAsInt("FEED_TIMEOUT_SECONDS", 30)) * time.Second,
			TransportModes:     getEnvAsSlice("TRANSPORT_MODES", []string{"tube"}),
			TopologyCacheTTL:   time.Duration(getEnvAsInt("TOPOLOGY_CACHE_TTL_SECONDS", 86400)) * time.Second,
			DisruptionCacheTTL: time.Duration(getEnvAsInt("DISRUPTION_CACHE_TTL_SECONDS", 120)) * time.Second,
		},
		Matching: MatchingConfig{
			PollInterval: time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 300)) * time.Second,
			Workers:      getEnvAsInt("MATCH_WORKERS", 8),
		},
		Routes: RouteConfig{
			MinLegs: getEnvAsInt("MIN_ROUTE_LEGS", 2),
			MaxLegs: getEnvAsInt("MAX_ROUTE_LEGS", 20),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Feed.BaseURL == "" {
		return fmt.Errorf("FEED_BASE_URL is required")
	}

	if len(c.Feed.TransportModes) == 0 {
		return fmt.Errorf("TRANSPORT_MODES must name at least one mode")
	}

	if c.Matching.Workers < 1 {
		return fmt.Errorf("MATCH_WORKERS must be at least 1")
	}

	if c.Routes.MinLegs < 2 || c.Routes.MaxLegs < c.Routes.MinLegs {
		return fmt.Errorf("invalid route leg bounds: min %d, max %d", c.Routes.MinLegs, c.Routes.MaxLegs)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
