package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/tokenmig/pkg/catalog/spacemanager"
)

func TestCreateNamespaceStore_Memory(t *testing.T) {
	store, err := CreateNamespaceStore(context.Background(), &NamespaceConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory namespace store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Healthcheck(context.Background()); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestCreateNamespaceStore_Badger(t *testing.T) {
	cfg := &NamespaceConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path": filepath.Join(t.TempDir(), "namespace"),
		},
	}

	store, err := CreateNamespaceStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger namespace store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.PathToHandle(context.Background(), "/"); err != nil {
		t.Errorf("Expected root to exist: %v", err)
	}
}

func TestCreateNamespaceStore_BadgerMissingPath(t *testing.T) {
	cfg := &NamespaceConfig{Type: "badger", Badger: map[string]any{}}

	_, err := CreateNamespaceStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for missing db_path")
	}
	if !strings.Contains(err.Error(), "db_path is required") {
		t.Errorf("Expected 'db_path is required' error, got: %v", err)
	}
}

func TestCreateNamespaceStore_ChimeraInvalidURL(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		wantErr string
	}{
		{"MissingURL", map[string]any{"user": "dcache"}, "url is required"},
		{"UnsupportedScheme", map[string]any{"url": "jdbc:mysql://localhost/chimera"}, "unsupported database url scheme"},
		{"BadMaxConnections", map[string]any{"url": "postgres://localhost/chimera", "max_connections": "many"}, "failed to decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateNamespaceStore(context.Background(), &NamespaceConfig{Type: "chimera", Chimera: tt.options})
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateNamespaceStore_UnknownType(t *testing.T) {
	if _, err := CreateNamespaceStore(context.Background(), &NamespaceConfig{Type: "nfs"}); err == nil {
		t.Fatal("Expected error for unknown namespace type")
	}
}

func TestCreateCatalog_SQLite(t *testing.T) {
	// An empty file is a valid, empty SQLite database
	dbPath := filepath.Join(t.TempDir(), "spacemanager.db")
	if err := os.WriteFile(dbPath, nil, 0644); err != nil {
		t.Fatalf("Failed to create database file: %v", err)
	}

	cat, err := CreateCatalog(context.Background(), &CatalogConfig{
		Type:   "sqlite",
		SQLite: map[string]any{"path": dbPath},
	})
	if err != nil {
		t.Fatalf("Failed to create sqlite catalog: %v", err)
	}
	sm, ok := cat.(*spacemanager.SpaceManagerCatalog)
	if !ok {
		t.Fatalf("Expected a space manager catalog, got %T", cat)
	}
	if sm.Dialect() != spacemanager.SQLite {
		t.Errorf("Expected sqlite dialect, got %s", sm.Dialect())
	}
	if err := cat.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateCatalog_SQLiteMissingFile(t *testing.T) {
	_, err := CreateCatalog(context.Background(), &CatalogConfig{
		Type:   "sqlite",
		SQLite: map[string]any{"path": filepath.Join(t.TempDir(), "missing.db")},
	})
	if err == nil {
		t.Fatal("Expected error for a missing snapshot")
	}
}

func TestCreateCatalog_PostgresMissingURL(t *testing.T) {
	_, err := CreateCatalog(context.Background(), &CatalogConfig{Type: "postgres", Postgres: map[string]any{}})
	if err == nil {
		t.Fatal("Expected error for missing url")
	}
	if !strings.Contains(err.Error(), "url is required") {
		t.Errorf("Expected 'url is required' error, got: %v", err)
	}
}

func TestCreateCatalog_UnknownType(t *testing.T) {
	if _, err := CreateCatalog(context.Background(), &CatalogConfig{Type: "mysql"}); err == nil {
		t.Fatal("Expected error for unknown catalog type")
	}
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()

	result := InitializeMetrics(cfg)
	if result.Server != nil {
		t.Error("Expected no metrics server when disabled")
	}
	if result.Migration == nil || result.Store == nil {
		t.Error("Expected no-op metrics, got nil")
	}
}
