// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for user-facing control bounds. The UI offers these as slider
// limits; handlers clamp anything outside them.
const (
	MinForecastPeriods = 7
	MaxForecastPeriods = 90

	MinAnomalyWindow = 3
	MaxAnomalyWindow = 60

	MinAnomalyThreshold = 1.0
	MaxAnomalyThreshold = 5.0
)

// Config holds application configuration
type Config struct {
	DataDir       string        // Base directory holding the CSV datasets
	SalesFile     string        // Sales dataset file name inside DataDir
	CustomersFile string        // Customer dataset file name inside DataDir
	CacheTTL      time.Duration // How long a loaded dataset stays fresh
	RefreshSpec   string        // Cron spec for the background dataset refresh
	LogLevel      string
	Port          int
	DevMode       bool

	// Optional S3 dataset source. When Bucket is set the loader downloads
	// the two CSV objects into DataDir before parsing.
	S3Bucket       string
	S3SalesKey     string
	S3CustomersKey string
	S3Region       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BEACON_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		SalesFile:      getEnv("BEACON_SALES_FILE", "sales_data.csv"),
		CustomersFile:  getEnv("BEACON_CUSTOMERS_FILE", "customer_data.csv"),
		CacheTTL:       getEnvAsDuration("BEACON_CACHE_TTL", time.Hour),
		RefreshSpec:    getEnv("BEACON_REFRESH_SPEC", "@hourly"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("BEACON_PORT", 8080),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		S3Bucket:       getEnv("BEACON_S3_BUCKET", ""),
		S3SalesKey:     getEnv("BEACON_S3_SALES_KEY", "sales_data.csv"),
		S3CustomersKey: getEnv("BEACON_S3_CUSTOMERS_KEY", "customer_data.csv"),
		S3Region:       getEnv("BEACON_S3_REGION", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL)
	}
	return nil
}

// SalesPath returns the absolute path of the sales dataset file.
func (c *Config) SalesPath() string {
	return filepath.Join(c.DataDir, c.SalesFile)
}

// CustomersPath returns the absolute path of the customer dataset file.
func (c *Config) CustomersPath() string {
	return filepath.Join(c.DataDir, c.CustomersFile)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
