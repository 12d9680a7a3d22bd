package testing

import (
	"context"
	"testing"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMoveTests executes all rename tests.
func (suite *StoreTestSuite) RunMoveTests(t *testing.T) {
	t.Run("MoveFileToAnotherDirectory", suite.testMoveFileToAnotherDirectory)
	t.Run("RenameInSameDirectory", suite.testMoveRenameInSameDirectory)
	t.Run("NoOpSameNameSameDirectory", suite.testMoveNoOpSameNameSameDirectory)
	t.Run("ErrorDestinationExists", suite.testMoveErrorDestinationExists)
	t.Run("ErrorSourceNotFound", suite.testMoveErrorSourceNotFound)
	t.Run("ErrorHandleMismatch", suite.testMoveErrorHandleMismatch)
}

func (suite *StoreTestSuite) testMoveFileToAnotherDirectory(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	id := namespace.NewID()
	file := MustCreateFile(t, store, "/pnfs/src/a/file.dat", id)
	from := MustMkdirAll(t, store, "/pnfs/src/a")
	to := MustMkdirAll(t, store, "/pnfs/dst/T1/a")

	err := store.Move(ctx, file, from, "file.dat", to, "file.dat")
	require.NoError(t, err)

	_, err = store.PathToHandle(ctx, "/pnfs/src/a/file.dat")
	AssertErrorCode(t, namespace.ErrNotFound, err)

	moved, err := store.PathToHandle(ctx, "/pnfs/dst/T1/a/file.dat")
	require.NoError(t, err)
	assert.True(t, file.Equal(moved))

	// Identity survives the move
	byID, err := store.IDToHandle(ctx, id)
	require.NoError(t, err)
	assert.True(t, file.Equal(byID))

	dstRoot, err := store.PathToHandle(ctx, "/pnfs/dst")
	require.NoError(t, err)
	rel, err := store.HandleToPath(ctx, byID, dstRoot)
	require.NoError(t, err)
	assert.Equal(t, "/T1/a/file.dat", rel)
}

func (suite *StoreTestSuite) testMoveRenameInSameDirectory(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	file := MustCreateFile(t, store, "/pnfs/old.dat", namespace.NewID())
	dir := MustMkdirAll(t, store, "/pnfs")

	require.NoError(t, store.Move(ctx, file, dir, "old.dat", dir, "new.dat"))

	_, err := store.PathToHandle(ctx, "/pnfs/old.dat")
	AssertErrorCode(t, namespace.ErrNotFound, err)

	renamed, err := store.PathToHandle(ctx, "/pnfs/new.dat")
	require.NoError(t, err)
	assert.True(t, file.Equal(renamed))
}

func (suite *StoreTestSuite) testMoveNoOpSameNameSameDirectory(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	file := MustCreateFile(t, store, "/pnfs/file.dat", namespace.NewID())
	dir := MustMkdirAll(t, store, "/pnfs")

	require.NoError(t, store.Move(ctx, file, dir, "file.dat", dir, "file.dat"))

	still, err := store.PathToHandle(ctx, "/pnfs/file.dat")
	require.NoError(t, err)
	assert.True(t, file.Equal(still))
}

func (suite *StoreTestSuite) testMoveErrorDestinationExists(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	file := MustCreateFile(t, store, "/pnfs/src/file.dat", namespace.NewID())
	other := MustCreateFile(t, store, "/pnfs/dst/file.dat", namespace.NewID())
	from := MustMkdirAll(t, store, "/pnfs/src")
	to := MustMkdirAll(t, store, "/pnfs/dst")

	err := store.Move(ctx, file, from, "file.dat", to, "file.dat")
	AssertErrorCode(t, namespace.ErrAlreadyExists, err)

	// Neither entry changed
	stayed, err := store.PathToHandle(ctx, "/pnfs/src/file.dat")
	require.NoError(t, err)
	assert.True(t, file.Equal(stayed))
	kept, err := store.PathToHandle(ctx, "/pnfs/dst/file.dat")
	require.NoError(t, err)
	assert.True(t, other.Equal(kept))
}

func (suite *StoreTestSuite) testMoveErrorSourceNotFound(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	file := MustCreateFile(t, store, "/pnfs/src/file.dat", namespace.NewID())
	from := MustMkdirAll(t, store, "/pnfs/src")
	to := MustMkdirAll(t, store, "/pnfs/dst")

	err := store.Move(ctx, file, from, "missing.dat", to, "file.dat")
	AssertErrorCode(t, namespace.ErrNotFound, err)
}

func (suite *StoreTestSuite) testMoveErrorHandleMismatch(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	MustCreateFile(t, store, "/pnfs/src/a.dat", namespace.NewID())
	other := MustCreateFile(t, store, "/pnfs/src/b.dat", namespace.NewID())
	from := MustMkdirAll(t, store, "/pnfs/src")
	to := MustMkdirAll(t, store, "/pnfs/dst")

	err := store.Move(ctx, other, from, "a.dat", to, "a.dat")
	AssertErrorCode(t, namespace.ErrNotFound, err)
}
