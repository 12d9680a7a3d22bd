package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/tokenmig/pkg/namespace"
	"github.com/marmos91/tokenmig/pkg/namespace/memory"
	namespacetesting "github.com/marmos91/tokenmig/pkg/namespace/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records the calls the resolver makes.
type countingStore struct {
	namespace.Store

	lookups   int
	mkdirs    []string
	mkdirErrs map[string]error
}

func (s *countingStore) PathToHandle(ctx context.Context, path string) (namespace.FileHandle, error) {
	s.lookups++
	return s.Store.PathToHandle(ctx, path)
}

func (s *countingStore) Mkdir(ctx context.Context, parent namespace.FileHandle, name string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	if err, ok := s.mkdirErrs[name]; ok {
		return nil, err
	}
	s.mkdirs = append(s.mkdirs, name)
	return s.Store.Mkdir(ctx, parent, name, uid, gid, mode)
}

func newFixture(t *testing.T, dirs ...string) (*memory.MemoryNamespaceStore, *countingStore) {
	t.Helper()
	base := memory.NewMemoryNamespaceStore()
	for _, dir := range dirs {
		namespacetesting.MustMkdirAll(t, base, dir)
	}
	return base, &countingStore{Store: base}
}

func TestResolve_CreatingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, store := newFixture(t, "/pnfs/dst")
	r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst"})

	first, err := r.Resolve(ctx, "/pnfs/dst/T1/a")
	require.NoError(t, err)
	assert.Len(t, store.mkdirs, 2)

	lookups := store.lookups
	second, err := r.Resolve(ctx, "/pnfs/dst/T1/a")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Len(t, store.mkdirs, 2)
	assert.Equal(t, lookups, store.lookups, "cache hit must not touch the store")

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.Creates)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestResolve_CreatesParentsFirst(t *testing.T) {
	ctx := context.Background()
	base, store := newFixture(t, "/pnfs/dst")
	r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst", Owner: 1000, Group: 1000})

	handle, err := r.Resolve(ctx, "/pnfs/dst/T1/a/b")
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "a", "b"}, store.mkdirs)

	looked, err := base.PathToHandle(ctx, "/pnfs/dst/T1/a/b")
	require.NoError(t, err)
	assert.True(t, handle.Equal(looked))

	// Sibling under an already created parent only creates the leaf
	_, err = r.Resolve(ctx, "/pnfs/dst/T1/a/c")
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "a", "b", "c"}, store.mkdirs)
}

func TestResolve_StrictNeverCreates(t *testing.T) {
	ctx := context.Background()
	_, store := newFixture(t, "/pnfs/src")
	r := New(store, Config{Mode: Strict})

	_, err := r.Resolve(ctx, "/pnfs/src/missing/dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.mkdirs)

	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, "/pnfs/src/missing/dir", resolveErr.Path)

	handle, err := r.Resolve(ctx, "/pnfs/src")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.Equal(t, 1, r.Len())
}

func TestResolve_ParentUnresolvable(t *testing.T) {
	ctx := context.Background()

	t.Run("OutsideBoundary", func(t *testing.T) {
		_, store := newFixture(t, "/pnfs/dst")
		r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst"})

		_, err := r.Resolve(ctx, "/pnfs/other/x")
		assert.ErrorIs(t, err, ErrParentUnresolvable)
		assert.Empty(t, store.mkdirs)
	})

	t.Run("BoundaryMissing", func(t *testing.T) {
		_, store := newFixture(t, "/pnfs")
		r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst"})

		_, err := r.Resolve(ctx, "/pnfs/dst/T1")
		assert.ErrorIs(t, err, ErrParentUnresolvable)

		var resolveErr *Error
		require.ErrorAs(t, err, &resolveErr)
		assert.Equal(t, "/pnfs/dst", resolveErr.Path)
		assert.Empty(t, store.mkdirs)
	})
}

func TestResolve_CreateConflict(t *testing.T) {
	ctx := context.Background()
	_, store := newFixture(t, "/pnfs/dst")
	refused := &namespace.StoreError{Code: namespace.ErrIOError, Message: "refused"}
	store.mkdirErrs = map[string]error{"T1": refused}

	r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst"})

	_, err := r.Resolve(ctx, "/pnfs/dst/T1/a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreateConflict)
	assert.True(t, errors.Is(err, refused))
	assert.Equal(t, 1, r.Len(), "only the boundary is cached")
}

func TestResolve_FileInTheWay(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatingAtFile", func(t *testing.T) {
		base, store := newFixture(t, "/pnfs/dst")
		namespacetesting.MustCreateFile(t, base, "/pnfs/dst/T1", namespace.NewID())
		r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst"})

		_, err := r.Resolve(ctx, "/pnfs/dst/T1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCreateConflict)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.True(t, namespace.IsNotDirectory(err))
		assert.Equal(t, 0, r.Len(), "a file must never be cached as a directory")

		// A second attempt still reaches the store and still conflicts
		lookups := store.lookups
		_, err = r.Resolve(ctx, "/pnfs/dst/T1")
		assert.ErrorIs(t, err, ErrCreateConflict)
		assert.Greater(t, store.lookups, lookups)
	})

	t.Run("CreatingBelowFile", func(t *testing.T) {
		base, store := newFixture(t, "/pnfs/dst")
		namespacetesting.MustCreateFile(t, base, "/pnfs/dst/T1", namespace.NewID())
		r := New(store, Config{Mode: Creating, Boundary: "/pnfs/dst"})

		_, err := r.Resolve(ctx, "/pnfs/dst/T1/a")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCreateConflict)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Empty(t, store.mkdirs)

		var resolveErr *Error
		require.ErrorAs(t, err, &resolveErr)
		assert.Equal(t, "/pnfs/dst/T1/a", resolveErr.Path)
	})

	t.Run("StrictAtFile", func(t *testing.T) {
		base, store := newFixture(t, "/pnfs/src")
		namespacetesting.MustCreateFile(t, base, "/pnfs/src/f", namespace.NewID())
		r := New(store, Config{Mode: Strict})

		_, err := r.Resolve(ctx, "/pnfs/src/f")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, namespace.IsNotDirectory(err))
		assert.Equal(t, 0, r.Len())
	})
}

func TestResolve_BoundedCache(t *testing.T) {
	ctx := context.Background()
	_, store := newFixture(t, "/d1", "/d2", "/d3")
	r := New(store, Config{Mode: Strict, Capacity: 2})

	for _, p := range []string{"/d1", "/d2", "/d3"} {
		_, err := r.Resolve(ctx, p)
		require.NoError(t, err)
		assert.LessOrEqual(t, r.Len(), 2)
	}
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.Capacity())

	// d1 was evicted, so it costs another lookup; d3 is still cached
	lookups := store.lookups
	_, err := r.Resolve(ctx, "/d3")
	require.NoError(t, err)
	assert.Equal(t, lookups, store.lookups)

	_, err = r.Resolve(ctx, "/d1")
	require.NoError(t, err)
	assert.Equal(t, lookups+1, store.lookups)
}

func TestResolve_CleansPaths(t *testing.T) {
	ctx := context.Background()
	_, store := newFixture(t, "/pnfs/src")
	r := New(store, Config{Mode: Strict})

	a, err := r.Resolve(ctx, "/pnfs/src/")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, "/pnfs//src")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.Equal(t, 1, r.Len())

	_, err = r.Resolve(ctx, "pnfs/src")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Defaults(t *testing.T) {
	r := New(memory.NewMemoryNamespaceStore(), Config{})
	assert.Equal(t, DefaultCapacity, r.Capacity())
	assert.Equal(t, Strict, r.Mode())
	assert.Equal(t, "strict", r.Mode().String())
	assert.Equal(t, "creating", Creating.String())
}

func TestStats_Sub(t *testing.T) {
	now := Stats{Hits: 10, Misses: 4, Creates: 2}
	prev := Stats{Hits: 7, Misses: 1, Creates: 2}
	assert.Equal(t, Stats{Hits: 3, Misses: 3}, now.Sub(prev))
}
