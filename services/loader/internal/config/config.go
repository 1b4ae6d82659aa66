package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
)

const defaultRequestTimeout = 30 * time.Second

// Config holds runtime configuration for the inventory loader.
type Config struct {
	DatabaseURL    string
	InventoryURL   string
	InventoryPath  string
	RequestTimeout time.Duration
	EnsureSchema   bool
	DryRun         bool
	LogLevel       string
	LogFormat      string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       "info",
		LogFormat:      "json",
	}

	cfg.DryRun = truthy(os.Getenv("DRY_RUN"))
	cfg.EnsureSchema = truthy(os.Getenv("LOADER_ENSURE_SCHEMA"))

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" && !cfg.DryRun {
		return cfg, eris.New("DATABASE_URL is required")
	}

	cfg.InventoryURL = strings.TrimSpace(os.Getenv("INVENTORY_URL"))
	cfg.InventoryPath = strings.TrimSpace(os.Getenv("INVENTORY_PATH"))
	if cfg.InventoryURL == "" && cfg.InventoryPath == "" {
		return cfg, eris.New("INVENTORY_URL or INVENTORY_PATH is required")
	}

	if v := strings.TrimSpace(os.Getenv("LOADER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, eris.Errorf("invalid LOADER_REQUEST_TIMEOUT: %s", v)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	return cfg, nil
}

// Source names where the inventory is read from; the URL wins.
func (c Config) Source() string {
	if c.InventoryURL != "" {
		return c.InventoryURL
	}
	return c.InventoryPath
}

func truthy(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}
