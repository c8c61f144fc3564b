package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {
	t.Setenv("PLATEFUL_SERVER_URL", "https://env.plateful.example")
	t.Setenv("PLATEFUL_SYNC_INTERVAL", "90s")
	t.Setenv("PLATEFUL_MAX_BATCH", "13")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "https://env.plateful.example", cfg.ServerBaseURL)
	assert.Equal(t, 90*time.Second, cfg.SyncInterval)
	assert.Equal(t, 13, cfg.MaxBatch)
	// Unset vars keep their defaults.
	assert.Equal(t, "plateful.db", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func Test_parseEnv_MalformedValuesIgnored(t *testing.T) {
	t.Setenv("PLATEFUL_SYNC_INTERVAL", "soon")
	t.Setenv("PLATEFUL_MAX_BATCH", "many")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 100, cfg.MaxBatch)
}
