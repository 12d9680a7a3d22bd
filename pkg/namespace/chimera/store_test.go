package chimera

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/marmos91/tokenmig/pkg/namespace"
	namespacetesting "github.com/marmos91/tokenmig/pkg/namespace/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chimeraSchema is the subset of the Chimera schema the store touches,
// written in the SQLite dialect.
const chimeraSchema = `
CREATE TABLE t_inodes (
	inumber     INTEGER PRIMARY KEY AUTOINCREMENT,
	ipnfsid     VARCHAR(36) NOT NULL UNIQUE,
	itype       INTEGER NOT NULL,
	imode       INTEGER NOT NULL,
	inlink      INTEGER NOT NULL,
	iuid        INTEGER NOT NULL,
	igid        INTEGER NOT NULL,
	isize       BIGINT NOT NULL,
	iio         INTEGER NOT NULL,
	ictime      TIMESTAMP NOT NULL,
	iatime      TIMESTAMP NOT NULL,
	imtime      TIMESTAMP NOT NULL,
	icrtime     TIMESTAMP NOT NULL,
	igeneration BIGINT NOT NULL
);
CREATE TABLE t_dirs (
	iparent BIGINT NOT NULL,
	ichild  BIGINT NOT NULL,
	iname   VARCHAR(255) NOT NULL,
	PRIMARY KEY (iparent, iname)
);
CREATE INDEX i_dirs_ichild ON t_dirs (ichild);
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "chimera.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(chimeraSchema)
	require.NoError(t, err)

	now := time.Now()
	_, err = db.Exec(
		`INSERT INTO t_inodes (ipnfsid, itype, imode, inlink, iuid, igid, isize, iio, ictime, iatime, imtime, icrtime, igeneration)
		 VALUES (?, ?, 493, 2, 0, 0, 512, 0, ?, ?, ?, ?, 0)`,
		namespace.RootID, typeDirectory, now, now, now, now,
	)
	require.NoError(t, err)
	return db
}

// TestChimeraNamespaceStore runs the complete namespace.Store test suite
// against the Chimera store on an SQLite rendition of the schema.
func TestChimeraNamespaceStore(t *testing.T) {
	suite := &namespacetesting.StoreTestSuite{
		NewStore: func(t *testing.T) namespacetesting.Store {
			return NewChimeraNamespaceStoreFromDB(newTestDB(t))
		},
	}

	suite.Run(t)
}

func TestChimeraNamespaceStore_LinkCounts(t *testing.T) {
	db := newTestDB(t)
	store := NewChimeraNamespaceStoreFromDB(db)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	src := namespacetesting.MustMkdirAll(t, store, "/pnfs/src")
	dst := namespacetesting.MustMkdirAll(t, store, "/pnfs/dst")
	sub, err := store.Mkdir(ctx, src, "a", 0, 0, namespace.DirMode)
	require.NoError(t, err)

	nlink := func(h namespace.FileHandle) int {
		var n int
		require.NoError(t, db.QueryRow(`SELECT inlink FROM t_inodes WHERE inumber = ?`, h.String()).Scan(&n))
		return n
	}

	assert.Equal(t, 3, nlink(src))
	assert.Equal(t, 2, nlink(dst))

	require.NoError(t, store.Move(ctx, sub, src, "a", dst, "a"))
	assert.Equal(t, 2, nlink(src))
	assert.Equal(t, 3, nlink(dst))

	var mode int
	require.NoError(t, db.QueryRow(`SELECT imode FROM t_inodes WHERE inumber = ?`, sub.String()).Scan(&mode))
	assert.Equal(t, 0775, mode)
}

func TestChimeraNamespaceStore_InvalidHandle(t *testing.T) {
	store := NewChimeraNamespaceStoreFromDB(newTestDB(t))
	defer func() { _ = store.Close() }()

	_, err := store.Mkdir(context.Background(), namespace.FileHandle("not-a-number"), "x", 0, 0, namespace.DirMode)
	namespacetesting.AssertErrorCode(t, namespace.ErrInvalidHandle, err)
}
