// Package resolver translates directory paths into namespace handles through a
// bounded LRU cache, optionally creating missing directories on the way.
package resolver

import (
	"context"

	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/namespace"
)

// DefaultCapacity is the number of directories a resolver caches when no
// capacity is configured.
const DefaultCapacity = 100000

// Mode selects what a resolver does on a cache miss for a missing directory.
type Mode int

const (
	// Strict fails with ErrNotFound and never mutates the namespace.
	Strict Mode = iota

	// Creating creates the missing directory, and recursively its missing
	// ancestors below the boundary.
	Creating
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Creating:
		return "creating"
	default:
		return "unknown"
	}
}

// Config describes one resolver.
type Config struct {
	// Mode is Strict or Creating
	Mode Mode

	// Capacity bounds the cache (DefaultCapacity when <= 0)
	Capacity int

	// Boundary limits creation to paths strictly below it.
	// Empty means "/" (anything may be created). Only used in Creating mode.
	Boundary string

	// Owner, Group and DirMode are applied to created directories
	Owner   uint32
	Group   uint32
	DirMode uint32
}

// Stats counts resolver activity since creation.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Creates uint64
}

// Sub returns the activity between prev and s.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		Hits:    s.Hits - prev.Hits,
		Misses:  s.Misses - prev.Misses,
		Creates: s.Creates - prev.Creates,
	}
}

// Resolver maps directory paths to handles.
//
// Once a path is resolved its handle is served from the cache until evicted,
// so resolving the same missing directory twice creates it once. Entries are
// never invalidated: external changes to the namespace during a run are not
// noticed.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	store namespace.Store
	cfg   Config
	cache *lruCache
	stats Stats
}

// New creates a resolver over store.
func New(store namespace.Store, cfg Config) *Resolver {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Boundary == "" {
		cfg.Boundary = "/"
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = namespace.DirMode
	}

	return &Resolver{
		store: store,
		cfg:   cfg,
		cache: newLRUCache(cfg.Capacity),
	}
}

// Resolve returns the handle of the directory at path.
//
// Errors are *Error values wrapping ErrNotFound, ErrCreateConflict or
// ErrParentUnresolvable. A Creating resolver never reports ErrNotFound: an
// entry that is in the way (a file at path or at one of its ancestors) or a
// failed lookup is a conflict. Only directories are ever cached.
func (r *Resolver) Resolve(ctx context.Context, path string) (namespace.FileHandle, error) {
	clean, err := namespace.CleanPath(path)
	if err != nil {
		return nil, r.lookupFailure(path, err)
	}

	if handle, ok := r.cache.get(clean); ok {
		r.stats.Hits++
		return handle, nil
	}
	r.stats.Misses++

	handle, err := r.store.PathToHandle(ctx, clean)
	if err == nil {
		if err := r.requireDirectory(ctx, clean, handle); err != nil {
			return nil, err
		}
		r.cache.put(clean, handle)
		return handle, nil
	}
	if r.cfg.Mode != Creating || !namespace.IsNotFound(err) {
		return nil, r.lookupFailure(clean, err)
	}

	return r.create(ctx, clean)
}

// requireDirectory checks that the entry found at path is a directory.
func (r *Resolver) requireDirectory(ctx context.Context, path string, handle namespace.FileHandle) error {
	fileType, err := r.store.EntryType(ctx, handle)
	if err != nil {
		return r.lookupFailure(path, err)
	}
	if fileType != namespace.FileTypeDirectory {
		return r.lookupFailure(path, &namespace.StoreError{
			Code:    namespace.ErrNotDirectory,
			Message: "entry is a " + fileType.String(),
			Path:    path,
		})
	}
	return nil
}

func (r *Resolver) create(ctx context.Context, path string) (namespace.FileHandle, error) {
	parent, name, ok := namespace.Split(path)
	if !ok || !namespace.IsBelow(path, r.cfg.Boundary) {
		return nil, &Error{Path: path, Err: ErrParentUnresolvable}
	}

	parentHandle, err := r.Resolve(ctx, parent)
	if err != nil {
		return nil, err
	}

	handle, err := r.store.Mkdir(ctx, parentHandle, name, r.cfg.Owner, r.cfg.Group, r.cfg.DirMode)
	if err != nil {
		return nil, &Error{Path: path, Err: ErrCreateConflict, Cause: err}
	}

	r.stats.Creates++
	logger.Debug("Created directory %s", path)

	r.cache.put(path, handle)
	return handle, nil
}

// lookupFailure classifies a failed lookup of path. Creating resolvers only
// get here when the entry exists but cannot be used, or the lookup itself
// failed.
func (r *Resolver) lookupFailure(path string, err error) error {
	sentinel := ErrNotFound
	if r.cfg.Mode == Creating {
		sentinel = ErrCreateConflict
	}
	if namespace.IsNotFound(err) && sentinel == ErrNotFound {
		return &Error{Path: path, Err: sentinel}
	}
	return &Error{Path: path, Err: sentinel, Cause: err}
}

// Len returns the number of cached directories.
func (r *Resolver) Len() int {
	return r.cache.len()
}

// Capacity returns the maximum number of cached directories.
func (r *Resolver) Capacity() int {
	return r.cfg.Capacity
}

// Mode returns the resolver mode.
func (r *Resolver) Mode() Mode {
	return r.cfg.Mode
}

// Stats returns cumulative hit, miss and create counts.
func (r *Resolver) Stats() Stats {
	return r.stats
}
