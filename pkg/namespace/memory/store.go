package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/tokenmig/pkg/namespace"
)

// entry is the in-memory representation of one namespace entry.
type entry struct {
	ID     string
	Type   namespace.FileType
	Mode   uint32
	UID    uint32
	GID    uint32
	Parent string
	Name   string
	Mtime  time.Time
	Ctime  time.Time
}

// MemoryNamespaceStore implements namespace.Store using in-memory maps.
//
// It is suitable for tests and for rehearsing a migration against a synthetic
// tree. Nothing survives the process.
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu), making the
// store safe for concurrent access from multiple goroutines.
//
// Storage Model:
//
//  1. Entries (entries):
//     Maps entry identifiers to attributes, parent identifier and name.
//
//  2. Directory Hierarchy (children):
//     Maps each directory identifier to its child entries (name -> identifier).
//
// Handles are the entry identifiers as bytes. The root directory always has
// identifier namespace.RootID.
type MemoryNamespaceStore struct {
	mu sync.RWMutex

	entries  map[string]*entry
	children map[string]map[string]string
}

// NewMemoryNamespaceStore creates a store holding only the root directory.
func NewMemoryNamespaceStore() *MemoryNamespaceStore {
	now := time.Now()
	store := &MemoryNamespaceStore{
		entries:  make(map[string]*entry),
		children: make(map[string]map[string]string),
	}
	store.entries[namespace.RootID] = &entry{
		ID:    namespace.RootID,
		Type:  namespace.FileTypeDirectory,
		Mode:  0755,
		Mtime: now,
		Ctime: now,
	}
	store.children[namespace.RootID] = make(map[string]string)
	return store
}

// PathToHandle walks the tree from the root one component at a time.
func (store *MemoryNamespaceStore) PathToHandle(ctx context.Context, path string) (namespace.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := namespace.CleanPath(path)
	if err != nil {
		return nil, err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	current := namespace.RootID
	for _, name := range namespace.Components(clean) {
		if store.entries[current].Type != namespace.FileTypeDirectory {
			return nil, &namespace.StoreError{
				Code:    namespace.ErrNotDirectory,
				Message: "path component is not a directory",
				Path:    clean,
			}
		}
		child, ok := store.children[current][name]
		if !ok {
			return nil, namespace.NotFound("no such entry", clean)
		}
		current = child
	}

	return namespace.FileHandle(current), nil
}

// HandleToPath walks parent links from handle up to root.
func (store *MemoryNamespaceStore) HandleToPath(ctx context.Context, handle namespace.FileHandle, root namespace.FileHandle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	if _, ok := store.entries[string(root)]; !ok {
		return "", namespace.NotFound("root not found", string(root))
	}

	var names []string
	current := string(handle)
	for current != string(root) {
		e, ok := store.entries[current]
		if !ok {
			return "", namespace.NotFound("entry not found", string(handle))
		}
		if current == namespace.RootID {
			return "", namespace.NotFound("entry is not below root", string(handle))
		}
		names = append(names, e.Name)
		current = e.Parent
	}

	return namespace.RelativePath(names), nil
}

// IDToHandle checks that an entry with identifier id exists.
func (store *MemoryNamespaceStore) IDToHandle(ctx context.Context, id string) (namespace.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	if _, ok := store.entries[id]; !ok {
		return nil, namespace.NotFound("no entry with identifier", id)
	}
	return namespace.FileHandle(id), nil
}

// Mkdir creates a directory below parent.
func (store *MemoryNamespaceStore) Mkdir(ctx context.Context, parent namespace.FileHandle, name string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	return store.create(ctx, parent, name, namespace.NewID(), namespace.FileTypeDirectory, uid, gid, mode)
}

// CreateFile creates a regular file below parent carrying identifier id.
func (store *MemoryNamespaceStore) CreateFile(ctx context.Context, parent namespace.FileHandle, name string, id string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	return store.create(ctx, parent, name, id, namespace.FileTypeRegular, uid, gid, mode)
}

func (store *MemoryNamespaceStore) create(
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

	store.mu.Lock()
	defer store.mu.Unlock()

	parentData, err := store.directoryLocked(string(parent))
	if err != nil {
		return nil, err
	}

	if _, exists := store.children[parentData.ID][name]; exists {
		return nil, &namespace.StoreError{
			Code:    namespace.ErrAlreadyExists,
			Message: "entry already exists",
			Path:    name,
		}
	}
	if _, exists := store.entries[id]; exists {
		return nil, &namespace.StoreError{
			Code:    namespace.ErrAlreadyExists,
			Message: "identifier already in use",
			Path:    id,
		}
	}

	now := time.Now()
	store.entries[id] = &entry{
		ID:     id,
		Type:   fileType,
		Mode:   mode,
		UID:    uid,
		GID:    gid,
		Parent: parentData.ID,
		Name:   name,
		Mtime:  now,
		Ctime:  now,
	}
	if fileType == namespace.FileTypeDirectory {
		store.children[id] = make(map[string]string)
	}
	store.children[parentData.ID][name] = id
	parentData.Mtime = now
	parentData.Ctime = now

	return namespace.FileHandle(id), nil
}

// Move re-links handle from fromDir/fromName to toDir/toName.
func (store *MemoryNamespaceStore) Move(
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

	store.mu.Lock()
	defer store.mu.Unlock()

	fromData, err := store.directoryLocked(string(fromDir))
	if err != nil {
		return err
	}
	toData, err := store.directoryLocked(string(toDir))
	if err != nil {
		return err
	}

	sourceID, exists := store.children[fromData.ID][fromName]
	if !exists || sourceID != string(handle) {
		return namespace.NotFound("source not found", fromName)
	}

	if fromData.ID == toData.ID && fromName == toName {
		return nil
	}

	if _, exists := store.children[toData.ID][toName]; exists {
		return &namespace.StoreError{
			Code:    namespace.ErrAlreadyExists,
			Message: "destination already exists",
			Path:    toName,
		}
	}

	delete(store.children[fromData.ID], fromName)
	store.children[toData.ID][toName] = sourceID

	now := time.Now()
	source := store.entries[sourceID]
	source.Parent = toData.ID
	source.Name = toName
	source.Ctime = now
	fromData.Mtime = now
	toData.Mtime = now

	return nil
}

// EntryType returns the type of the entry behind handle.
func (store *MemoryNamespaceStore) EntryType(ctx context.Context, handle namespace.FileHandle) (namespace.FileType, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	data, ok := store.entries[string(handle)]
	if !ok {
		return 0, namespace.NotFound("entry not found", handle.String())
	}
	return data.Type, nil
}

// Healthcheck always succeeds for the in-memory store.
func (store *MemoryNamespaceStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (store *MemoryNamespaceStore) Close() error {
	return nil
}

// directoryLocked returns the entry for id, requiring it to be a directory.
// Caller must hold mu.
func (store *MemoryNamespaceStore) directoryLocked(id string) (*entry, error) {
	data, ok := store.entries[id]
	if !ok {
		return nil, namespace.NotFound("directory not found", id)
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

var (
	_ namespace.Store       = (*MemoryNamespaceStore)(nil)
	_ namespace.FileCreator = (*MemoryNamespaceStore)(nil)
)
