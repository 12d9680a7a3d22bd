package config

import (
	"strings"

	"github.com/marmos91/tokenmig/pkg/catalog/spacemanager"
	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/marmos91/tokenmig/pkg/resolver"
)

// defaultMaxConnections caps each database pool. A migration is a single
// sequential loop, so a handful of connections is plenty.
const defaultMaxConnections = 3

// exampleOwner is the uid and gid written to the sample configuration.
const exampleOwner = 1000

// ID returns a pointer to a uid or gid, for filling MigrationConfig.
func ID(v uint32) *uint32 {
	return &v
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Source and destination never get a default
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMigrationDefaults(&cfg.Migration)
	applyNamespaceDefaults(&cfg.Namespace)
	applyCatalogDefaults(&cfg.Catalog)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
//
// Logs go to stderr by default: stdout carries the progress report.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyMigrationDefaults sets migration defaults and normalizes values.
func applyMigrationDefaults(cfg *MigrationConfig) {
	if cfg.DirMode == 0 {
		cfg.DirMode = namespace.DirMode
	}
	if cfg.Direction == "" {
		cfg.Direction = "forward"
	}
	cfg.Direction = strings.ToLower(strings.TrimSpace(cfg.Direction))

	if cfg.CacheSize == 0 {
		cfg.CacheSize = resolver.DefaultCapacity
	}
	if cfg.Tokens == nil {
		cfg.Tokens = []string{}
	}
}

// applyNamespaceDefaults sets namespace store defaults.
func applyNamespaceDefaults(cfg *NamespaceConfig) {
	if cfg.Type == "" {
		cfg.Type = "chimera"
	}

	// Initialize maps if nil
	if cfg.Chimera == nil {
		cfg.Chimera = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}

	if _, ok := cfg.Chimera["max_connections"]; !ok {
		cfg.Chimera["max_connections"] = defaultMaxConnections
	}
}

// applyCatalogDefaults sets token catalog defaults.
func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.Type == "" {
		cfg.Type = "postgres"
	}

	if cfg.Postgres == nil {
		cfg.Postgres = make(map[string]any)
	}
	if cfg.SQLite == nil {
		cfg.SQLite = make(map[string]any)
	}

	if _, ok := cfg.Postgres["max_connections"]; !ok {
		cfg.Postgres["max_connections"] = defaultMaxConnections
	}
	if _, ok := cfg.Postgres["fetch_size"]; !ok {
		cfg.Postgres["fetch_size"] = spacemanager.DefaultFetchSize
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// Source, destination, ownership and the database credentials are filled
// with example values so the result validates and serves as a sample
// configuration file.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Migration: MigrationConfig{
			Source:      "/pnfs/example.org/data",
			Destination: "/pnfs/example.org/tokens",
			Owner:       ID(exampleOwner),
			Group:       ID(exampleOwner),
		},
		Namespace: NamespaceConfig{
			Chimera: map[string]any{
				"url":      "jdbc:postgresql://localhost/chimera",
				"user":     "dcache",
				"password": "changeme",
			},
			Badger: map[string]any{
				"db_path": "/var/lib/tokenmig/namespace",
			},
		},
		Catalog: CatalogConfig{
			Postgres: map[string]any{
				"url":      "jdbc:postgresql://localhost/spacemanager",
				"user":     "dcache",
				"password": "changeme",
			},
			SQLite: map[string]any{
				"path": "/var/lib/tokenmig/spacemanager.db",
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
