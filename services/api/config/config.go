package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"

	"github.com/elofiber/viabilidade-ftth/internal/observability"
	"github.com/elofiber/viabilidade-ftth/internal/ratelimit"
	"github.com/elofiber/viabilidade-ftth/internal/warehouse"
)

// Config holds environment-driven settings for the viability API.
type Config struct {
	Port        int
	FrontendURL string
	BearerToken string

	Warehouse    warehouse.Config
	QueryTimeout time.Duration

	RateLimitEnabled bool
	RateLimitWindow  time.Duration
	RateLimitMax     int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	LogLevel  string
	LogFormat string
	Tracing   observability.TracingConfig
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:             3001,
		FrontendURL:      "http://localhost:3000",
		QueryTimeout:     30 * time.Second,
		RateLimitEnabled: true,
		RateLimitWindow:  ratelimit.DefaultWindow,
		RateLimitMax:     ratelimit.DefaultMax,
		LogLevel:         "info",
		LogFormat:        "json",
		Tracing: observability.TracingConfig{
			ServiceName: "viabilidade-api",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, eris.Errorf("invalid PORT: %s", portStr)
		}
	}

	if origin := os.Getenv("FRONTEND_URL"); origin != "" {
		cfg.FrontendURL = origin
	}
	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	cfg.Warehouse = warehouse.Config{
		Driver:          strings.ToLower(os.Getenv("WAREHOUSE_DRIVER")),
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		Dataset:         os.Getenv("BIGQUERY_DATASET"),
		Location:        os.Getenv("BIGQUERY_REGION"),
		CTOView:         os.Getenv("BIGQUERY_CTO_VIEW"),
		POPView:         os.Getenv("BIGQUERY_POP_VIEW"),
		CredentialsJSON: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		InventoryPath:   os.Getenv("INVENTORY_PATH"),
	}
	switch cfg.Warehouse.Driver {
	case "", warehouse.DriverBigQuery, warehouse.DriverMemory:
	case warehouse.DriverPostgres, "postgis":
		if cfg.Warehouse.DatabaseURL == "" {
			return cfg, eris.New("DATABASE_URL is required when WAREHOUSE_DRIVER is postgres")
		}
	default:
		return cfg, eris.Errorf("invalid WAREHOUSE_DRIVER: %s", cfg.Warehouse.Driver)
	}

	if err := durationEnv("QUERY_TIMEOUT", &cfg.QueryTimeout); err != nil {
		return cfg, err
	}

	if err := boolEnv("RATE_LIMIT_ENABLED", &cfg.RateLimitEnabled); err != nil {
		return cfg, err
	}
	if err := durationEnv("RATE_LIMIT_WINDOW", &cfg.RateLimitWindow); err != nil {
		return cfg, err
	}
	if err := positiveIntEnv("RATE_LIMIT_MAX", &cfg.RateLimitMax); err != nil {
		return cfg, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil && db >= 0 {
			cfg.RedisDB = db
		} else {
			return cfg, eris.Errorf("invalid REDIS_DB: %s", dbStr)
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		format = strings.ToLower(format)
		if format != "json" && format != "console" {
			return cfg, eris.Errorf("invalid LOG_FORMAT: %s", format)
		}
		cfg.LogFormat = format
	}

	if err := boolEnv("TRACING_ENABLED", &cfg.Tracing.Enabled); err != nil {
		return cfg, err
	}
	if exporter := os.Getenv("TRACING_EXPORTER"); exporter != "" {
		cfg.Tracing.Exporter = strings.ToLower(exporter)
	}
	cfg.Tracing.Endpoint = os.Getenv("OTLP_ENDPOINT")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func durationEnv(key string, dst *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return eris.Errorf("invalid %s: %s", key, raw)
	}
	*dst = d
	return nil
}

func positiveIntEnv(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return eris.Errorf("invalid %s: %s", key, raw)
	}
	*dst = n
	return nil
}

func boolEnv(key string, dst *bool) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return eris.Errorf("invalid %s: %s", key, raw)
	}
	*dst = b
	return nil
}
