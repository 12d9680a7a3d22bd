package testing

import (
	"context"
	"testing"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLookupTests executes the path and identifier translation tests.
func (suite *StoreTestSuite) RunLookupTests(t *testing.T) {
	t.Run("PathToHandleRoot", suite.testPathToHandleRoot)
	t.Run("PathToHandleNested", suite.testPathToHandleNested)
	t.Run("PathToHandleNotFound", suite.testPathToHandleNotFound)
	t.Run("PathToHandleRelative", suite.testPathToHandleRelative)
	t.Run("PathToHandleThroughFile", suite.testPathToHandleThroughFile)
	t.Run("HandleToPathRelativeToRoot", suite.testHandleToPathRelativeToRoot)
	t.Run("HandleToPathOfRootItself", suite.testHandleToPathOfRootItself)
	t.Run("HandleToPathOutsideRoot", suite.testHandleToPathOutsideRoot)
	t.Run("EntryType", suite.testEntryType)
	t.Run("EntryTypeUnknown", suite.testEntryTypeUnknown)
	t.Run("IDToHandle", suite.testIDToHandle)
	t.Run("IDToHandleUnknown", suite.testIDToHandleUnknown)
}

func (suite *StoreTestSuite) testPathToHandleRoot(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	root, err := store.PathToHandle(ctx, "/")
	require.NoError(t, err)
	require.NotEmpty(t, root)

	again, err := store.PathToHandle(ctx, "/")
	require.NoError(t, err)
	assert.True(t, root.Equal(again))
}

func (suite *StoreTestSuite) testPathToHandleNested(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	created := MustMkdirAll(t, store, "/pnfs/src/T1")

	handle, err := store.PathToHandle(ctx, "/pnfs/src/T1")
	require.NoError(t, err)
	assert.True(t, created.Equal(handle))

	// Non-canonical spellings resolve to the same entry
	handle, err = store.PathToHandle(ctx, "/pnfs//src/./T1/")
	require.NoError(t, err)
	assert.True(t, created.Equal(handle))
}

func (suite *StoreTestSuite) testPathToHandleNotFound(t *testing.T) {
	store := suite.newStore(t)
	MustMkdirAll(t, store, "/pnfs")

	_, err := store.PathToHandle(context.Background(), "/pnfs/missing")
	AssertErrorCode(t, namespace.ErrNotFound, err)
}

func (suite *StoreTestSuite) testPathToHandleRelative(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.PathToHandle(context.Background(), "pnfs/src")
	AssertErrorCode(t, namespace.ErrInvalidArgument, err)
}

func (suite *StoreTestSuite) testPathToHandleThroughFile(t *testing.T) {
	store := suite.newStore(t)
	MustCreateFile(t, store, "/pnfs/file.dat", namespace.NewID())

	_, err := store.PathToHandle(context.Background(), "/pnfs/file.dat/child")
	require.Error(t, err)
	code, ok := namespace.CodeOf(err)
	require.True(t, ok)
	assert.Contains(t, []namespace.ErrorCode{namespace.ErrNotFound, namespace.ErrNotDirectory}, code)
}

func (suite *StoreTestSuite) testHandleToPathRelativeToRoot(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	file := MustCreateFile(t, store, "/pnfs/src/a/b/file.dat", namespace.NewID())
	srcRoot, err := store.PathToHandle(ctx, "/pnfs/src")
	require.NoError(t, err)

	rel, err := store.HandleToPath(ctx, file, srcRoot)
	require.NoError(t, err)
	assert.Equal(t, "/a/b/file.dat", rel)

	fsRoot, err := store.PathToHandle(ctx, "/")
	require.NoError(t, err)
	abs, err := store.HandleToPath(ctx, file, fsRoot)
	require.NoError(t, err)
	assert.Equal(t, "/pnfs/src/a/b/file.dat", abs)
}

func (suite *StoreTestSuite) testHandleToPathOfRootItself(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	dir := MustMkdirAll(t, store, "/pnfs/src")
	rel, err := store.HandleToPath(ctx, dir, dir)
	require.NoError(t, err)
	assert.Equal(t, "/", rel)
}

func (suite *StoreTestSuite) testHandleToPathOutsideRoot(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	file := MustCreateFile(t, store, "/pnfs/other/file.dat", namespace.NewID())
	srcRoot := MustMkdirAll(t, store, "/pnfs/src")

	_, err := store.HandleToPath(ctx, file, srcRoot)
	AssertErrorCode(t, namespace.ErrNotFound, err)
}

func (suite *StoreTestSuite) testIDToHandle(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	id := namespace.NewID()
	created := MustCreateFile(t, store, "/pnfs/src/file.dat", id)

	handle, err := store.IDToHandle(ctx, id)
	require.NoError(t, err)
	assert.True(t, created.Equal(handle))

	byPath, err := store.PathToHandle(ctx, "/pnfs/src/file.dat")
	require.NoError(t, err)
	assert.True(t, byPath.Equal(handle))
}

func (suite *StoreTestSuite) testIDToHandleUnknown(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.IDToHandle(context.Background(), namespace.NewID())
	AssertErrorCode(t, namespace.ErrNotFound, err)
}

func (suite *StoreTestSuite) testEntryType(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	dir := MustMkdirAll(t, store, "/pnfs/src")
	file := MustCreateFile(t, store, "/pnfs/src/file.dat", namespace.NewID())

	dirType, err := store.EntryType(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, namespace.FileTypeDirectory, dirType)

	fileType, err := store.EntryType(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, namespace.FileTypeRegular, fileType)
}

func (suite *StoreTestSuite) testEntryTypeUnknown(t *testing.T) {
	store := suite.newStore(t)

	_, err := store.EntryType(context.Background(), namespace.FileHandle("999999999"))
	AssertErrorCode(t, namespace.ErrNotFound, err)
}
