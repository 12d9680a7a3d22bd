// Package namespace defines the contract between tokenmig and the hierarchical
// namespace it reorganizes.
//
// The namespace provider owns the authoritative directory tree. tokenmig only
// needs five primitives from it: absolute path resolution, path reconstruction
// from a handle, identifier resolution, directory creation and an atomic move of
// a directory entry. Everything else (durability, atomicity, consistency) is the
// provider's business.
//
// Store implementations live in subpackages:
//   - pkg/namespace/chimera - dCache Chimera schema on PostgreSQL
//   - pkg/namespace/badger  - embedded BadgerDB namespace
//   - pkg/namespace/memory  - in-process namespace (tests, rehearsals)
package namespace

import (
	"context"
)

// DirMode is the permission mode used for directories created on demand.
const DirMode uint32 = 0775

// Store provides the namespace operations the migration needs.
//
// Paths passed to and returned from a Store are slash separated. Absolute paths
// start with "/" and are clean (see CleanPath).
//
// Error Handling:
// Business errors (missing entries, name collisions, type mismatches) are
// returned as *StoreError so callers can branch on the code with IsNotFound,
// IsAlreadyExists and friends. Infrastructure errors (connection loss, disk
// errors) are returned wrapped with context.
type Store interface {
	// PathToHandle resolves an absolute path to the handle of the entry it names.
	//
	// Returns:
	//   - FileHandle: handle of the entry (file or directory)
	//   - error: ErrNotFound if any component is missing, ErrNotDirectory if an
	//     intermediate component is not a directory
	PathToHandle(ctx context.Context, path string) (FileHandle, error)

	// HandleToPath reconstructs the path of handle relative to root.
	//
	// The returned path starts with "/" and does not include root itself:
	// with root "/pnfs/src" and an entry at "/pnfs/src/a/b/file.dat" the result
	// is "/a/b/file.dat".
	//
	// Returns:
	//   - string: relative path
	//   - error: ErrNotFound if the entry does not exist or is not below root
	HandleToPath(ctx context.Context, handle FileHandle, root FileHandle) (string, error)

	// EntryType reports whether handle is a directory, a regular file or
	// something else.
	//
	// Returns:
	//   - error: ErrNotFound if the entry does not exist
	EntryType(ctx context.Context, handle FileHandle) (FileType, error)

	// IDToHandle resolves a stable entry identifier (pnfsid in Chimera) to a handle.
	//
	// Returns:
	//   - error: ErrNotFound if no entry carries the identifier
	IDToHandle(ctx context.Context, id string) (FileHandle, error)

	// Mkdir creates the directory name under parent with the given ownership
	// and permission bits.
	//
	// Returns:
	//   - FileHandle: handle of the new directory
	//   - error: ErrAlreadyExists if name is taken (by any entry type),
	//     ErrNotDirectory if parent is not a directory, ErrNotFound if parent
	//     does not exist, ErrInvalidArgument for an invalid name
	Mkdir(ctx context.Context, parent FileHandle, name string, uid, gid, mode uint32) (FileHandle, error)

	// Move atomically moves the entry handle from fromDir/fromName to
	// toDir/toName. The rename either happens completely or not at all.
	//
	// Existing destinations are never replaced.
	//
	// Returns:
	//   - error: ErrNotFound if fromDir/fromName does not exist or does not
	//     reference handle, ErrAlreadyExists if toDir/toName is taken,
	//     ErrNotDirectory if either parent is not a directory
	Move(ctx context.Context, handle FileHandle, fromDir FileHandle, fromName string, toDir FileHandle, toName string) error

	// Healthcheck verifies the store is reachable and usable.
	Healthcheck(ctx context.Context) error

	// Close releases the resources held by the store.
	Close() error
}

// FileCreator is implemented by stores that can be seeded with regular files.
//
// The migration never creates files; this exists for rehearsal namespaces and
// for tests that need a populated tree.
type FileCreator interface {
	// CreateFile creates a regular file carrying the stable identifier id.
	CreateFile(ctx context.Context, parent FileHandle, name string, id string, uid, gid, mode uint32) (FileHandle, error)
}
