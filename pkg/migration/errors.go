package migration

import (
	"fmt"
)

// Stage names the step of a file migration that failed.
type Stage int

const (
	// StageDiscovery covers identifier lookup and path discovery
	StageDiscovery Stage = iota + 1

	// StageResolve covers resolving the source and destination parents
	StageResolve

	// StageRename covers the final move
	StageRename
)

func (s Stage) String() string {
	switch s {
	case StageDiscovery:
		return "discovery"
	case StageResolve:
		return "resolve"
	case StageRename:
		return "rename"
	default:
		return "unknown"
	}
}

// RecordError is the failure of a single file.
type RecordError struct {
	Stage Stage

	// ID is the file identifier from the catalog
	ID string

	// Path is the path being processed when the failure happened, if known
	Path string

	Err error
}

func (e *RecordError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s failed for %s (%s): %v", e.Stage, e.ID, e.Path, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// CatalogError is a failure to read the token catalog.
//
// TokenID and TokenName are zero when listing the tokens failed.
type CatalogError struct {
	TokenID   int64
	TokenName string
	Err       error
}

func (e *CatalogError) Error() string {
	if e.TokenName == "" && e.TokenID == 0 {
		return fmt.Sprintf("list space tokens: %v", e.Err)
	}
	return fmt.Sprintf("read files of token %s (%d): %v", e.TokenName, e.TokenID, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}
