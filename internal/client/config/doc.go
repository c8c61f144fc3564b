// Package config loads runtime configuration for the Plateful client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables, including an optional .env file (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the remote store
//	-d string   path of the local SQLite database
//	-s int      background sync interval (seconds)
//	-i int      online status check interval (seconds)
//	-b int      max records per sync pass (0 = unbounded)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "https://api.plateful.example",
//	  "database_dsn": "plateful.db",
//	  "sync_interval": "30s",
//	  "online_check_interval": "3s",
//	  "max_batch": 100
//	}
package config
