package config

import (
	"context"
	"fmt"

	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/catalog"
	"github.com/marmos91/tokenmig/pkg/catalog/spacemanager"
	"github.com/marmos91/tokenmig/pkg/migration"
	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/marmos91/tokenmig/pkg/namespace/badger"
	"github.com/marmos91/tokenmig/pkg/namespace/chimera"
	"github.com/marmos91/tokenmig/pkg/namespace/memory"
	"github.com/mitchellh/mapstructure"
)

// databaseOptions is the shape shared by the chimera and postgres sections.
type databaseOptions struct {
	URL            string `mapstructure:"url"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	FetchSize      int    `mapstructure:"fetch_size"`
}

// decodeOptions decodes a backend section. Values coming from environment
// variables or properties files are strings, so decoding is weakly typed.
func decodeOptions(options map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// CreateNamespaceStore creates a namespace store based on configuration.
//
// Supported types:
//   - "chimera": Uses pkg/namespace/chimera (dCache Chimera database)
//   - "badger": Uses pkg/namespace/badger (BadgerDB, persistent)
//   - "memory": Uses pkg/namespace/memory (ephemeral, for rehearsals)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Namespace store configuration
//
// Returns:
//   - namespace.Store: Initialized store
//   - error: Configuration or initialization error
func CreateNamespaceStore(ctx context.Context, cfg *NamespaceConfig) (namespace.Store, error) {
	switch cfg.Type {
	case "chimera":
		return createChimeraNamespaceStore(ctx, cfg.Chimera)
	case "badger":
		return createBadgerNamespaceStore(ctx, cfg.Badger)
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return memory.NewMemoryNamespaceStore(), nil
	default:
		return nil, fmt.Errorf("unknown namespace store type: %q (supported: chimera, badger, memory)", cfg.Type)
	}
}

// createChimeraNamespaceStore connects to a Chimera database.
func createChimeraNamespaceStore(ctx context.Context, options map[string]any) (namespace.Store, error) {
	var opts databaseOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode chimera namespace store config: %w", err)
	}

	if opts.URL == "" {
		return nil, fmt.Errorf("chimera namespace store: url is required")
	}

	store, err := chimera.NewChimeraNamespaceStore(ctx, chimera.Config{
		URL:            opts.URL,
		User:           opts.User,
		Password:       opts.Password,
		MaxConnections: opts.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chimera namespace store: %w", err)
	}

	logger.Info("Chimera namespace store initialized: max_connections=%d", opts.MaxConnections)
	return store, nil
}

// createBadgerNamespaceStore opens a BadgerDB namespace.
func createBadgerNamespaceStore(ctx context.Context, options map[string]any) (namespace.Store, error) {
	type BadgerNamespaceStoreOptions struct {
		DBPath   string `mapstructure:"db_path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var opts BadgerNamespaceStoreOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode badger namespace store config: %w", err)
	}

	if opts.DBPath == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger namespace store: db_path is required")
	}

	store, err := badger.NewBadgerNamespaceStore(ctx, badger.BadgerNamespaceStoreConfig{
		DBPath:   opts.DBPath,
		InMemory: opts.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger namespace store: %w", err)
	}

	logger.Info("Badger namespace store initialized: db_path=%s", opts.DBPath)
	return store, nil
}

// CreateCatalog creates a token catalog based on configuration.
//
// Supported types:
//   - "postgres": the live space manager database
//   - "sqlite": an exported copy of the space manager tables
func CreateCatalog(ctx context.Context, cfg *CatalogConfig) (catalog.Catalog, error) {
	switch cfg.Type {
	case "postgres":
		return createPostgresCatalog(ctx, cfg.Postgres)
	case "sqlite":
		return createSQLiteCatalog(ctx, cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown catalog type: %q (supported: postgres, sqlite)", cfg.Type)
	}
}

func createPostgresCatalog(ctx context.Context, options map[string]any) (catalog.Catalog, error) {
	var opts databaseOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode postgres catalog config: %w", err)
	}

	if opts.URL == "" {
		return nil, fmt.Errorf("postgres catalog: url is required")
	}

	cat, err := spacemanager.NewPostgresCatalog(ctx, spacemanager.PostgresConfig{
		URL:            opts.URL,
		User:           opts.User,
		Password:       opts.Password,
		FetchSize:      opts.FetchSize,
		MaxConnections: opts.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres catalog: %w", err)
	}

	logger.Info("Space manager catalog initialized: dialect=%s, fetch_size=%d, max_connections=%d",
		cat.Dialect(), opts.FetchSize, opts.MaxConnections)
	return cat, nil
}

func createSQLiteCatalog(ctx context.Context, options map[string]any) (catalog.Catalog, error) {
	var opts struct {
		Path string `mapstructure:"path"`
	}
	if err := decodeOptions(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode sqlite catalog config: %w", err)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite catalog: path is required")
	}

	cat, err := spacemanager.NewSQLiteCatalog(ctx, spacemanager.SQLiteConfig{Path: opts.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite catalog: %w", err)
	}

	logger.Info("Space manager snapshot opened: %s (dialect=%s)", opts.Path, cat.Dialect())
	return cat, nil
}

// EngineConfig converts the migration section into an engine
// configuration.
func (c *MigrationConfig) EngineConfig() (migration.Config, error) {
	if c.Owner == nil || c.Group == nil {
		return migration.Config{}, fmt.Errorf("migration: owner and group must be set")
	}
	direction, err := migration.ParseDirection(c.Direction)
	if err != nil {
		return migration.Config{}, err
	}

	return migration.Config{
		Source:      c.Source,
		Destination: c.Destination,
		Owner:       *c.Owner,
		Group:       *c.Group,
		DirMode:     c.DirMode,
		Direction:   direction,
		CacheSize:   c.CacheSize,
		MaxRate:     c.MaxRate,
	}, nil
}

// Selection returns the configured token allow-list.
func (c *MigrationConfig) Selection() catalog.Selection {
	return catalog.ParseSelection(c.Tokens...)
}
