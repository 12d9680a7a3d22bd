package namespace

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// FileHandle is an opaque reference to a namespace entry, analogous to an
// inode reference.
//
// Each store chooses its own encoding (Chimera uses the decimal inode number,
// the badger and memory stores use the entry identifier). Callers must treat
// handles as opaque byte strings and only hand them back to the store that
// produced them.
type FileHandle []byte

// String returns the handle bytes as a string, for logging and map keys.
func (h FileHandle) String() string {
	return string(h)
}

// Equal reports whether h and other reference the same entry.
func (h FileHandle) Equal(other FileHandle) bool {
	return string(h) == string(other)
}

// FileType is the type of a namespace entry.
type FileType uint32

const (
	// FileTypeRegular is a regular file
	FileTypeRegular FileType = iota + 1

	// FileTypeDirectory is a directory
	FileTypeDirectory

	// FileTypeOther covers symlinks, devices and anything else the migration
	// never touches
	FileTypeOther
)

// String returns a short name for the type.
func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "file"
	case FileTypeDirectory:
		return "directory"
	default:
		return "other"
	}
}

// RootID is the identifier of the namespace root directory.
const RootID = "000000000000000000000000000000000000"

// NewID returns a fresh 36 character upper-case hexadecimal identifier in the
// pnfsid format: a four digit zero prefix followed by a random UUID.
func NewID() string {
	id := uuid.New()
	return "0000" + strings.ToUpper(hex.EncodeToString(id[:]))
}
