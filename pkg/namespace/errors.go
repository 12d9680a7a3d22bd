package namespace

import "errors"

// StoreError represents a business error from a namespace store.
//
// These are logical errors (entry not found, name collision, ...) as opposed to
// infrastructure errors (network failure, disk error).
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the path or name related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates an entry with the name already exists
	ErrAlreadyExists

	// ErrNotDirectory indicates operation expected a directory but got a file
	ErrNotDirectory

	// ErrIsDirectory indicates operation expected a file but got a directory
	ErrIsDirectory

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty name, relative path, name containing "/"
	ErrInvalidArgument

	// ErrInvalidHandle indicates the handle is malformed
	ErrInvalidHandle

	// ErrIOError indicates the backing storage failed
	ErrIOError
)

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrIsDirectory:
		return "IsDirectory"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrInvalidHandle:
		return "InvalidHandle"
	case ErrIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// CodeOf extracts the ErrorCode carried by err.
//
// The boolean is false when err does not wrap a *StoreError.
func CodeOf(err error) (ErrorCode, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is a StoreError with code ErrNotFound.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}

// IsAlreadyExists reports whether err is a StoreError with code ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrAlreadyExists
}

// IsNotDirectory reports whether err is a StoreError with code ErrNotDirectory.
func IsNotDirectory(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotDirectory
}

// NotFound returns an ErrNotFound StoreError.
func NotFound(message, path string) error {
	return &StoreError{Code: ErrNotFound, Message: message, Path: path}
}
