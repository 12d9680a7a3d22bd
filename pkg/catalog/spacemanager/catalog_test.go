package spacemanager

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/marmos91/tokenmig/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spaceManagerSchema = `
CREATE TABLE srmspace (
	id          INTEGER PRIMARY KEY,
	description TEXT
);
CREATE TABLE srmspacefile (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	spacereservationid INTEGER NOT NULL,
	pnfsid             TEXT
);
`

func newSnapshot(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "spacemanager.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(spaceManagerSchema)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO srmspace (id, description) VALUES (3, 'T3'), (1, 'T1'), (2, NULL)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO srmspacefile (spacereservationid, pnfsid) VALUES
		(1, '0000AAA1'), (1, ''), (1, NULL), (1, '0000AAA2'), (1, '   '), (1, '0000AAA3'),
		(3, '0000CCC1')`)
	require.NoError(t, err)
	return path
}

func openSnapshot(t *testing.T) *SpaceManagerCatalog {
	t.Helper()
	c, err := NewSQLiteCatalog(context.Background(), SQLiteConfig{Path: newSnapshot(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func collect(t *testing.T, seq func(func(catalog.FileRecord, error) bool)) []string {
	t.Helper()
	var ids []string
	for rec, err := range seq {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestListTokens(t *testing.T) {
	c := openSnapshot(t)

	tokens, err := c.ListTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Token{
		{ID: 1, Name: "T1"},
		{ID: 2, Name: ""},
		{ID: 3, Name: "T3"},
	}, tokens)
}

func TestFilesForToken_SkipsBlankIDs(t *testing.T) {
	c := openSnapshot(t)

	ids := collect(t, c.FilesForToken(context.Background(), 1))
	assert.Equal(t, []string{"0000AAA1", "0000AAA2", "0000AAA3"}, ids)

	assert.Empty(t, collect(t, c.FilesForToken(context.Background(), 2)))
	assert.Empty(t, collect(t, c.FilesForToken(context.Background(), 42)))
}

func TestFilesForToken_EarlyBreak(t *testing.T) {
	c := openSnapshot(t)
	ctx := context.Background()

	for rec, err := range c.FilesForToken(ctx, 1) {
		require.NoError(t, err)
		assert.Equal(t, "0000AAA1", rec.ID)
		break
	}

	// The connection was released and the catalog is still usable
	assert.Equal(t, []string{"0000CCC1"}, collect(t, c.FilesForToken(ctx, 3)))
}

func TestFilesForToken_CancelledContext(t *testing.T) {
	c := openSnapshot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range c.FilesForToken(ctx, 1) {
		if err != nil {
			gotErr = err
			break
		}
	}
	assert.Error(t, gotErr)
}

func TestNewSQLiteCatalog_MissingFile(t *testing.T) {
	_, err := NewSQLiteCatalog(context.Background(), SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "missing.db"),
	})
	assert.Error(t, err)
}

func TestDeclareCursorSQL(t *testing.T) {
	assert.Equal(t,
		"DECLARE tokenmig_files NO SCROLL CURSOR FOR SELECT pnfsid FROM srmspacefile WHERE spacereservationid = 42",
		declareCursorSQL(42))
}

func TestNewCatalogFromDB_Defaults(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	c := NewCatalogFromDB(db, Postgres, 0)
	defer c.Close()
	assert.Equal(t, DefaultFetchSize, c.fetchSize)
	assert.Equal(t, "postgres", c.Dialect().String())
}
