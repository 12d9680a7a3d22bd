package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/namespace"
)

// BadgerNamespaceStore implements namespace.Store on top of BadgerDB.
//
// It persists a namespace tree in an embedded key-value store so that a
// migration can be rehearsed against a snapshot of a production namespace,
// inspected afterwards, and resumed across process restarts.
//
// Handles are entry identifiers as bytes and stay stable across renames.
// Mutations run inside badger transactions, so a failed Mkdir or Move leaves
// no partial state behind.
type BadgerNamespaceStore struct {
	db *badger.DB
}

// BadgerNamespaceStoreConfig contains configuration for creating a store.
type BadgerNamespaceStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string

	// InMemory keeps everything in memory (DBPath is ignored)
	InMemory bool

	// BadgerOptions allows full customization of BadgerDB behavior.
	// If nil, defaults tuned for small metadata values are used.
	BadgerOptions *badger.Options
}

// NewBadgerNamespaceStore opens (or creates) a BadgerDB namespace.
//
// The root directory is created on first open.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and options
//
// Returns:
//   - *BadgerNamespaceStore: Store ready for use
//   - error: Error if the database cannot be opened or initialized
func NewBadgerNamespaceStore(ctx context.Context, config BadgerNamespaceStoreConfig) (*BadgerNamespaceStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.DBPath)
		}
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerNamespaceStore{db: db}
	if err := store.ensureRoot(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("Opened badger namespace at %s", config.DBPath)
	return store, nil
}

func (s *BadgerNamespaceStore) ensureRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyEntry(namespace.RootID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to read root entry: %w", err)
		}

		now := time.Now()
		return putEntry(txn, &entryData{
			ID:    namespace.RootID,
			Type:  namespace.FileTypeDirectory,
			Mode:  0755,
			Mtime: now,
			Ctime: now,
		})
	})
}

// PathToHandle walks the tree from the root one component at a time.
func (s *BadgerNamespaceStore) PathToHandle(ctx context.Context, path string) (namespace.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := namespace.CleanPath(path)
	if err != nil {
		return nil, err
	}

	var handle namespace.FileHandle
	err = s.db.View(func(txn *badger.Txn) error {
		current := namespace.RootID
		for _, name := range namespace.Components(clean) {
			data, err := getEntry(txn, current)
			if err != nil {
				return err
			}
			if data.Type != namespace.FileTypeDirectory {
				return &namespace.StoreError{
					Code:    namespace.ErrNotDirectory,
					Message: "path component is not a directory",
					Path:    clean,
				}
			}

			child, found, err := getChild(txn, current, name)
			if err != nil {
				return err
			}
			if !found {
				return namespace.NotFound("no such entry", clean)
			}
			current = child
		}
		handle = namespace.FileHandle(current)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// HandleToPath walks parent links from handle up to root.
func (s *BadgerNamespaceStore) HandleToPath(ctx context.Context, handle namespace.FileHandle, root namespace.FileHandle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var rel string
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getEntry(txn, string(root)); err != nil {
			return err
		}

		var names []string
		current := string(handle)
		for current != string(root) {
			if current == namespace.RootID {
				return namespace.NotFound("entry is not below root", string(handle))
			}
			data, err := getEntry(txn, current)
			if err != nil {
				return err
			}
			names = append(names, data.Name)
			current = data.Parent
		}
		rel = namespace.RelativePath(names)
		return nil
	})
	if err != nil {
		return "", err
	}
	return rel, nil
}

// IDToHandle checks that an entry with identifier id exists.
func (s *BadgerNamespaceStore) IDToHandle(ctx context.Context, id string) (namespace.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getEntry(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return namespace.FileHandle(id), nil
}

// Mkdir creates a directory below parent.
func (s *BadgerNamespaceStore) Mkdir(ctx context.Context, parent namespace.FileHandle, name string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	return s.create(ctx, parent, name, namespace.NewID(), namespace.FileTypeDirectory, uid, gid, mode)
}

// CreateFile creates a regular file below parent carrying identifier id.
func (s *BadgerNamespaceStore) CreateFile(ctx context.Context, parent namespace.FileHandle, name string, id string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	return s.create(ctx, parent, name, id, namespace.FileTypeRegular, uid, gid, mode)
}

func (s *BadgerNamespaceStore) create(
	ctx context.Context,
	parent namespace.FileHandle,
	name string,
	id string,
	fileType namespace.FileType,
	uid, gid, mode uint32,
) (namespace.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := namespace.ValidateName(name); err != nil {
		return nil, err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		parentData, err := getDirectory(txn, string(parent))
		if err != nil {
			return err
		}

		_, exists, err := getChild(txn, parentData.ID, name)
		if err != nil {
			return err
		}
		if exists {
			return &namespace.StoreError{
				Code:    namespace.ErrAlreadyExists,
				Message: "entry already exists",
				Path:    name,
			}
		}

		if _, err := txn.Get(keyEntry(id)); err == nil {
			return &namespace.StoreError{
				Code:    namespace.ErrAlreadyExists,
				Message: "identifier already in use",
				Path:    id,
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check identifier: %w", err)
		}

		now := time.Now()
		if err := putEntry(txn, &entryData{
			ID:     id,
			Type:   fileType,
			Mode:   mode,
			UID:    uid,
			GID:    gid,
			Parent: parentData.ID,
			Name:   name,
			Mtime:  now,
			Ctime:  now,
		}); err != nil {
			return err
		}
		if err := txn.Set(keyChild(parentData.ID, name), []byte(id)); err != nil {
			return fmt.Errorf("failed to link child: %w", err)
		}

		parentData.Mtime = now
		parentData.Ctime = now
		return putEntry(txn, parentData)
	})
	if err != nil {
		return nil, err
	}
	return namespace.FileHandle(id), nil
}

// Move re-links handle from fromDir/fromName to toDir/toName.
func (s *BadgerNamespaceStore) Move(
	ctx context.Context,
	handle namespace.FileHandle,
	fromDir namespace.FileHandle,
	fromName string,
	toDir namespace.FileHandle,
	toName string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := namespace.ValidateName(fromName); err != nil {
		return err
	}
	if err := namespace.ValidateName(toName); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		fromData, err := getDirectory(txn, string(fromDir))
		if err != nil {
			return err
		}
		toData, err := getDirectory(txn, string(toDir))
		if err != nil {
			return err
		}

		sourceID, found, err := getChild(txn, fromData.ID, fromName)
		if err != nil {
			return err
		}
		if !found || sourceID != string(handle) {
			return namespace.NotFound("source not found", fromName)
		}

		if fromData.ID == toData.ID && fromName == toName {
			return nil
		}

		_, exists, err := getChild(txn, toData.ID, toName)
		if err != nil {
			return err
		}
		if exists {
			return &namespace.StoreError{
				Code:    namespace.ErrAlreadyExists,
				Message: "destination already exists",
				Path:    toName,
			}
		}

		source, err := getEntry(txn, sourceID)
		if err != nil {
			return err
		}

		if err := txn.Delete(keyChild(fromData.ID, fromName)); err != nil {
			return fmt.Errorf("failed to unlink source: %w", err)
		}
		if err := txn.Set(keyChild(toData.ID, toName), []byte(sourceID)); err != nil {
			return fmt.Errorf("failed to link destination: %w", err)
		}

		now := time.Now()
		source.Parent = toData.ID
		source.Name = toName
		source.Ctime = now
		if err := putEntry(txn, source); err != nil {
			return err
		}

		fromData.Mtime = now
		if err := putEntry(txn, fromData); err != nil {
			return err
		}
		if toData.ID != fromData.ID {
			toData.Mtime = now
			return putEntry(txn, toData)
		}
		return nil
	})
}

// EntryType returns the type of the entry behind handle.
func (s *BadgerNamespaceStore) EntryType(ctx context.Context, handle namespace.FileHandle) (namespace.FileType, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var fileType namespace.FileType
	err := s.db.View(func(txn *badger.Txn) error {
		data, err := getEntry(txn, string(handle))
		if err != nil {
			return err
		}
		fileType = data.Type
		return nil
	})
	return fileType, err
}

// Healthcheck verifies the root entry is readable.
func (s *BadgerNamespaceStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := getEntry(txn, namespace.RootID)
		return err
	})
}

// Close closes the underlying database.
func (s *BadgerNamespaceStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getEntry(txn *badger.Txn, id string) (*entryData, error) {
	item, err := txn.Get(keyEntry(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, namespace.NotFound("entry not found", id)
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var data *entryData
	err = item.Value(func(val []byte) error {
		decoded, err := decodeEntryData(val)
		if err != nil {
			return err
		}
		data = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func getDirectory(txn *badger.Txn, id string) (*entryData, error) {
	data, err := getEntry(txn, id)
	if err != nil {
		return nil, err
	}
	if data.Type != namespace.FileTypeDirectory {
		return nil, &namespace.StoreError{
			Code:    namespace.ErrNotDirectory,
			Message: "not a directory",
			Path:    data.Name,
		}
	}
	return data, nil
}

func putEntry(txn *badger.Txn, data *entryData) error {
	bytes, err := encodeEntryData(data)
	if err != nil {
		return err
	}
	if err := txn.Set(keyEntry(data.ID), bytes); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

func getChild(txn *badger.Txn, parentID, name string) (string, bool, error) {
	item, err := txn.Get(keyChild(parentID, name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get child: %w", err)
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to read child: %w", err)
	}
	return string(value), true, nil
}

var (
	_ namespace.Store       = (*BadgerNamespaceStore)(nil)
	_ namespace.FileCreator = (*BadgerNamespaceStore)(nil)
)
