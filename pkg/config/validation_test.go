package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "InvalidLogLevel",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "INVALID" },
			wantErr: "oneof",
		},
		{
			name:    "InvalidLogFormat",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "MissingSource",
			mutate:  func(cfg *Config) { cfg.Migration.Source = "" },
			wantErr: "migration.source: setting not specified or empty",
		},
		{
			name:    "MissingOwner",
			mutate:  func(cfg *Config) { cfg.Migration.Owner = nil },
			wantErr: "migration.owner: setting not specified",
		},
		{
			name:    "MissingGroup",
			mutate:  func(cfg *Config) { cfg.Migration.Group = nil },
			wantErr: "migration.group: setting not specified",
		},
		{
			name:    "RelativeDestination",
			mutate:  func(cfg *Config) { cfg.Migration.Destination = "pnfs/tokens" },
			wantErr: "startswith",
		},
		{
			name: "SameSourceAndDestination",
			mutate: func(cfg *Config) {
				cfg.Migration.Source = "/pnfs/example.org/data/"
				cfg.Migration.Destination = "/pnfs/example.org//data"
			},
			wantErr: "source and destination are both",
		},
		{
			name:    "InvalidDirection",
			mutate:  func(cfg *Config) { cfg.Migration.Direction = "sideways" },
			wantErr: "migration.direction",
		},
		{
			name:    "DirModeTooLarge",
			mutate:  func(cfg *Config) { cfg.Migration.DirMode = 01777 },
			wantErr: "lte",
		},
		{
			name:    "NegativeCacheSize",
			mutate:  func(cfg *Config) { cfg.Migration.CacheSize = -1 },
			wantErr: "migration.cache_size",
		},
		{
			name:    "InvalidNamespaceType",
			mutate:  func(cfg *Config) { cfg.Namespace.Type = "nfs" },
			wantErr: "namespace.type",
		},
		{
			name:    "InvalidCatalogType",
			mutate:  func(cfg *Config) { cfg.Catalog.Type = "mysql" },
			wantErr: "catalog.type",
		},
		{
			name:    "MissingChimeraURL",
			mutate:  func(cfg *Config) { delete(cfg.Namespace.Chimera, "url") },
			wantErr: "namespace.chimera.url: setting not specified",
		},
		{
			name:    "MissingChimeraUser",
			mutate:  func(cfg *Config) { delete(cfg.Namespace.Chimera, "user") },
			wantErr: "namespace.chimera.user: setting not specified",
		},
		{
			name:    "EmptyChimeraPassword",
			mutate:  func(cfg *Config) { cfg.Namespace.Chimera["password"] = "" },
			wantErr: "namespace.chimera.password: setting is empty",
		},
		{
			name:    "MissingPostgresUser",
			mutate:  func(cfg *Config) { delete(cfg.Catalog.Postgres, "user") },
			wantErr: "catalog.postgres.user: setting not specified",
		},
		{
			name:    "MissingPostgresPassword",
			mutate:  func(cfg *Config) { delete(cfg.Catalog.Postgres, "password") },
			wantErr: "catalog.postgres.password: setting not specified",
		},
		{
			name:    "EmptyPostgresURL",
			mutate:  func(cfg *Config) { cfg.Catalog.Postgres["url"] = "  " },
			wantErr: "catalog.postgres.url: setting is empty",
		},
		{
			name: "MissingSQLitePath",
			mutate: func(cfg *Config) {
				cfg.Catalog.Type = "sqlite"
				cfg.Catalog.SQLite = map[string]any{}
			},
			wantErr: "catalog.sqlite.path",
		},
		{
			name: "MissingBadgerPath",
			mutate: func(cfg *Config) {
				cfg.Namespace.Type = "badger"
				cfg.Namespace.Badger = map[string]any{}
			},
			wantErr: "namespace.badger.db_path",
		},
		{
			name:    "InvalidMetricsPort",
			mutate:  func(cfg *Config) { cfg.Metrics.Port = 70000 },
			wantErr: "metrics.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_MemoryNamespaceNeedsNoSection(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Namespace.Type = "memory"
	cfg.Namespace.Chimera = nil

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected memory namespace to validate, got: %v", err)
	}
}

func TestValidate_RootOwnerAllowedWhenExplicit(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Migration.Owner = ID(0)
	cfg.Migration.Group = ID(0)

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected explicit root ownership to validate, got: %v", err)
	}
}

func TestValidate_CredentialsOnlyForSelectedBackends(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Namespace.Type = "memory"
	cfg.Catalog.Type = "sqlite"
	cfg.Namespace.Chimera = map[string]any{}
	cfg.Catalog.Postgres = map[string]any{}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected unused sections to be ignored, got: %v", err)
	}
}
