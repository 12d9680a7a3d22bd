package testing

import (
	"context"
	"testing"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/stretchr/testify/require"
)

// Store is what the suite needs from an implementation: the namespace
// operations plus the ability to seed regular files.
type Store interface {
	namespace.Store
	namespace.FileCreator
}

// StoreTestSuite is a conformance test suite for namespace.Store
// implementations. It tests the interface contract, not implementation
// details, so the same tests run against memory, badger and chimera.
type StoreTestSuite struct {
	// NewStore creates a fresh store holding only the root directory.
	// It is called once per test to keep tests isolated.
	NewStore func(t *testing.T) Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Lookup", suite.RunLookupTests)
	t.Run("Mkdir", suite.RunMkdirTests)
	t.Run("Move", suite.RunMoveTests)
	t.Run("Healthcheck", suite.testHealthcheck)
}

func (suite *StoreTestSuite) newStore(t *testing.T) Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (suite *StoreTestSuite) testHealthcheck(t *testing.T) {
	store := suite.newStore(t)
	require.NoError(t, store.Healthcheck(context.Background()))
}

// ============================================================================
// Helpers
// ============================================================================

// MustMkdirAll creates every missing directory along path and returns the
// handle of the last one.
func MustMkdirAll(t *testing.T, store namespace.Store, path string) namespace.FileHandle {
	t.Helper()
	ctx := context.Background()

	current, err := store.PathToHandle(ctx, "/")
	require.NoError(t, err)

	for _, name := range namespace.Components(path) {
		parent := current
		current, err = store.Mkdir(ctx, parent, name, 0, 0, namespace.DirMode)
		if namespace.IsAlreadyExists(err) {
			current, err = store.PathToHandle(ctx, namespace.Join(pathOf(t, store, parent), name))
		}
		require.NoError(t, err)
	}
	return current
}

// MustCreateFile creates the parents of path and a regular file at path
// carrying identifier id.
func MustCreateFile(t *testing.T, store Store, path string, id string) namespace.FileHandle {
	t.Helper()

	parentPath, name, ok := namespace.Split(path)
	require.True(t, ok, "path %q has no parent", path)

	parent := MustMkdirAll(t, store, parentPath)
	handle, err := store.CreateFile(context.Background(), parent, name, id, 0, 0, 0644)
	require.NoError(t, err)
	return handle
}

// AssertErrorCode asserts that err carries the expected StoreError code.
func AssertErrorCode(t *testing.T, expected namespace.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := namespace.CodeOf(err)
	require.True(t, ok, "expected StoreError, got %T: %v", err, err)
	require.Equal(t, expected, code, "unexpected error code: %v", err)
}

func pathOf(t *testing.T, store namespace.Store, handle namespace.FileHandle) string {
	t.Helper()
	ctx := context.Background()
	root, err := store.PathToHandle(ctx, "/")
	require.NoError(t, err)
	p, err := store.HandleToPath(ctx, handle, root)
	require.NoError(t, err)
	return p
}
