package config

import "time"

// Config holds runtime settings for the Plateful client.
//
// Units: intervals are time.Duration values (e.g. 30*time.Second). MaxBatch
// bounds how many records one sync pass submits; zero or negative means
// unbounded.
type Config struct {
	ServerBaseURL       string
	DatabaseDSN         string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	MaxBatch            int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "plateful.db"
	c.SyncInterval = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.MaxBatch = 100
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment (including a .env file, if present), a JSON file (if
// present) and command-line flags. Later sources take precedence over
// earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
