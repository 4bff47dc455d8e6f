package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Destination CMS
	CMS CMSConfig

	// Synchronization behavior
	Sync SyncConfig

	// Source material
	Source SourceConfig

	// Asset rehosting
	Assets AssetConfig

	// Logging configuration
	Log LogConfig
}

// CMSConfig holds the destination store connection settings
type CMSConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// SyncConfig holds synchronization settings
type SyncConfig struct {
	Concurrency int
}

// SourceConfig holds the legacy export settings
type SourceConfig struct {
	Format                string // "xml" or "html"
	Path                  string
	DefaultCollectionName string
	DefaultCollectionSlug string
}

// AssetConfig holds asset migration settings
type AssetConfig struct {
	CacheDir    string
	LegacyHosts []string
	Timeout     time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		CMS: CMSConfig{
			BaseURL: getEnv("CMS_BASE_URL", ""),
			Token:   getEnv("CMS_TOKEN", ""),
			Timeout: getDurationEnv("CMS_TIMEOUT", 30*time.Second),
		},
		Sync: SyncConfig{
			Concurrency: getIntEnv("SYNC_CONCURRENCY", 8),
		},
		Source: SourceConfig{
			Format:                getEnv("SOURCE_FORMAT", "xml"),
			Path:                  getEnv("SOURCE_PATH", ""),
			DefaultCollectionName: getEnv("DEFAULT_COLLECTION_NAME", "Fotoblog"),
			DefaultCollectionSlug: getEnv("DEFAULT_COLLECTION_SLUG", "fotoblog"),
		},
		Assets: AssetConfig{
			CacheDir:    getEnv("ASSET_CACHE_DIR", "./data/asset-cache"),
			LegacyHosts: getListEnv("ASSET_LEGACY_HOSTS"),
			Timeout:     getDurationEnv("ASSET_TIMEOUT", 60*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CMS.BaseURL == "" {
		return fmt.Errorf("CMS_BASE_URL is required")
	}
	if c.CMS.Token == "" {
		return fmt.Errorf("CMS_TOKEN is required")
	}
	if c.Source.Format != "xml" && c.Source.Format != "html" {
		return fmt.Errorf("SOURCE_FORMAT must be \"xml\" or \"html\", got %q", c.Source.Format)
	}
	return nil
}

// Helper functions for environment variable parsing

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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
