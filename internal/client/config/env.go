package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from environment variables, loading a
// .env file from the working directory first if one exists. Unset or
// malformed variables leave the current value in place.
//
// Recognized variables:
//
//	PLATEFUL_SERVER_URL       base URL of the remote store
//	PLATEFUL_DATABASE_DSN     path of the local SQLite database
//	PLATEFUL_SYNC_INTERVAL    background sync cadence ("30s", "5m")
//	PLATEFUL_ONLINE_INTERVAL  reachability probe cadence
//	PLATEFUL_MAX_BATCH        per-pass record cap (0 = unbounded)
func parseEnv(cfg *Config) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	if v := os.Getenv("PLATEFUL_SERVER_URL"); v != "" {
		cfg.ServerBaseURL = v
	}
	if v := os.Getenv("PLATEFUL_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("PLATEFUL_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SyncInterval = d
		}
	}
	if v := os.Getenv("PLATEFUL_ONLINE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OnlineCheckInterval = d
		}
	}
	if v := os.Getenv("PLATEFUL_MAX_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxBatch = n
		}
	}
}
