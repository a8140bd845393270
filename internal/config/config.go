// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/quantfold/sectorscope/internal/views"
)

// DefaultUniverse is the fixed set of GICS sector ETFs tracked per run.
var DefaultUniverse = []string{
	"XLK", "XLF", "XLE", "XLI", "XLP", "XLU", "XLV", "XLY", "XLB", "XLRE", "XLC",
}

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the SQLite caches (always absolute)
	OutputDir string // Directory for CSV/PNG artifacts (always absolute)
	LogLevel  string
	Port      int
	DevMode   bool

	Universe      []string
	LookbackDays  int // calendar days of price history to request
	Views         []string
	RollingWindow int
	YoYLag        int
	TopN          int

	FetchConcurrency    int
	FetchRequestsPerMin int
	FetchTimeoutSec     int

	RenderHeatmaps bool
	CronSchedule   string // refresh schedule for serve mode

	Backup *BackupConfig
}

// BackupConfig holds optional S3-compatible artifact backup settings.
// Backup is disabled when Bucket is empty.
type BackupConfig struct {
	Bucket   string
	Prefix   string
	Endpoint string // custom endpoint for S3-compatible stores, empty for AWS
	Region   string
}

// ViewParams returns the view parameters carried by this configuration.
func (c *Config) ViewParams() views.Params {
	return views.Params{RollingWindow: c.RollingWindow, YoYLag: c.YoYLag}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SECTORSCOPE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	outputDir := getEnv("SECTORSCOPE_OUTPUT_DIR", filepath.Join(absDataDir, "output"))
	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		OutputDir: absOutputDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Port:      getEnvAsInt("SECTORSCOPE_PORT", 8080),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		Universe:      getEnvAsList("SECTORSCOPE_UNIVERSE", DefaultUniverse),
		LookbackDays:  getEnvAsInt("SECTORSCOPE_LOOKBACK_DAYS", 3650),
		Views:         getEnvAsList("SECTORSCOPE_VIEWS", views.All),
		RollingWindow: getEnvAsInt("SECTORSCOPE_ROLLING_WINDOW", 60),
		YoYLag:        getEnvAsInt("SECTORSCOPE_YOY_LAG", 252),
		TopN:          getEnvAsInt("SECTORSCOPE_TOP_N", 5),

		FetchConcurrency:    getEnvAsInt("SECTORSCOPE_FETCH_CONCURRENCY", 4),
		FetchRequestsPerMin: getEnvAsInt("SECTORSCOPE_FETCH_RPM", 60),
		FetchTimeoutSec:     getEnvAsInt("SECTORSCOPE_FETCH_TIMEOUT_SEC", 30),

		RenderHeatmaps: getEnvAsBool("SECTORSCOPE_RENDER", true),
		// Weekday evenings after the US close.
		CronSchedule: getEnv("SECTORSCOPE_CRON", "30 22 * * 1-5"),
	}

	if bucket := getEnv("SECTORSCOPE_S3_BUCKET", ""); bucket != "" {
		cfg.Backup = &BackupConfig{
			Bucket:   bucket,
			Prefix:   getEnv("SECTORSCOPE_S3_PREFIX", "sectorscope"),
			Endpoint: getEnv("SECTORSCOPE_S3_ENDPOINT", ""),
			Region:   getEnv("SECTORSCOPE_S3_REGION", "auto"),
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
