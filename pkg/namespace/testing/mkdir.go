package testing

import (
	"context"
	"testing"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunMkdirTests executes all directory creation tests.
func (suite *StoreTestSuite) RunMkdirTests(t *testing.T) {
	t.Run("CreatesDirectory", suite.testMkdirCreatesDirectory)
	t.Run("ErrorAlreadyExists", suite.testMkdirErrorAlreadyExists)
	t.Run("ErrorParentIsFile", suite.testMkdirErrorParentIsFile)
	t.Run("ErrorInvalidName", suite.testMkdirErrorInvalidName)
}

func (suite *StoreTestSuite) testMkdirCreatesDirectory(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	parent := MustMkdirAll(t, store, "/pnfs/dst")

	handle, err := store.Mkdir(ctx, parent, "T1", 1000, 1000, namespace.DirMode)
	require.NoError(t, err)

	looked, err := store.PathToHandle(ctx, "/pnfs/dst/T1")
	require.NoError(t, err)
	assert.True(t, handle.Equal(looked))

	// The new directory can hold children
	child, err := store.Mkdir(ctx, handle, "a", 1000, 1000, namespace.DirMode)
	require.NoError(t, err)
	rel, err := store.HandleToPath(ctx, child, parent)
	require.NoError(t, err)
	assert.Equal(t, "/T1/a", rel)
}

func (suite *StoreTestSuite) testMkdirErrorAlreadyExists(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	parent := MustMkdirAll(t, store, "/pnfs/dst")
	_, err := store.Mkdir(ctx, parent, "T1", 0, 0, namespace.DirMode)
	require.NoError(t, err)

	_, err = store.Mkdir(ctx, parent, "T1", 0, 0, namespace.DirMode)
	AssertErrorCode(t, namespace.ErrAlreadyExists, err)

	MustCreateFile(t, store, "/pnfs/dst/file.dat", namespace.NewID())
	_, err = store.Mkdir(ctx, parent, "file.dat", 0, 0, namespace.DirMode)
	AssertErrorCode(t, namespace.ErrAlreadyExists, err)
}

func (suite *StoreTestSuite) testMkdirErrorParentIsFile(t *testing.T) {
	store := suite.newStore(t)

	file := MustCreateFile(t, store, "/pnfs/file.dat", namespace.NewID())

	_, err := store.Mkdir(context.Background(), file, "child", 0, 0, namespace.DirMode)
	AssertErrorCode(t, namespace.ErrNotDirectory, err)
}

func (suite *StoreTestSuite) testMkdirErrorInvalidName(t *testing.T) {
	store := suite.newStore(t)
	parent := MustMkdirAll(t, store, "/pnfs")

	for _, name := range []string{"", ".", "..", "a/b"} {
		_, err := store.Mkdir(context.Background(), parent, name, 0, 0, namespace.DirMode)
		AssertErrorCode(t, namespace.ErrInvalidArgument, err)
	}
}
