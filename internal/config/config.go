// Package config loads runtime settings from the environment, with a .env
// file picked up when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Port the HTTP API listens on.
	Port string
	// SnapshotDir holds per-company snapshot JSON when Postgres is not used.
	SnapshotDir string
	// DatabaseURL, when set, switches the snapshot store to Postgres.
	DatabaseURL string
	// ReportDir is where batch runs write their briefing files.
	ReportDir string
	// UserAgent identifies the crawler to the sites it fetches.
	UserAgent string
	// CompanyTimeout bounds how long one competitor's analysis may take.
	CompanyTimeout time.Duration
	// MonthsBack is the default pricing-archive lookback.
	MonthsBack int
}

// Load reads the environment. A missing .env is fine; explicit environment
// variables always win since godotenv never overwrites them.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:           getenv("PORT", "8080"),
		SnapshotDir:    getenv("SNAPSHOT_DIR", "snapshots"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ReportDir:      getenv("REPORT_DIR", "reports"),
		UserAgent:      getenv("SENTINEL_USER_AGENT", "sentinel-probe/1.0"),
		CompanyTimeout: getDuration("COMPANY_TIMEOUT", 3*time.Minute),
		MonthsBack:     getInt("PRICING_MONTHS_BACK", 6),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
