// Package spacemanager reads tokens and their files from the dCache space
// manager tables (srmspace, srmspacefile).
package spacemanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/marmos91/tokenmig/internal/dbutil"
	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/catalog"
)

// DefaultFetchSize is the number of rows fetched per cursor round trip.
const DefaultFetchSize = 1000

const cursorName = "tokenmig_files"

// Dialect selects how file listings are streamed.
type Dialect int

const (
	// Postgres streams through a server-side NO SCROLL cursor
	Postgres Dialect = iota

	// SQLite streams database/sql rows (used for exported snapshots)
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// PostgresConfig contains the connection settings for the space manager
// database.
type PostgresConfig struct {
	URL            string
	User           string
	Password       string
	FetchSize      int
	MaxConnections int
}

// SQLiteConfig points at an SQLite copy of the space manager tables.
type SQLiteConfig struct {
	Path string
}

// SpaceManagerCatalog implements catalog.Catalog over the space manager
// schema.
type SpaceManagerCatalog struct {
	db        *sql.DB
	dialect   Dialect
	fetchSize int
}

// NewPostgresCatalog connects to the space manager database.
func NewPostgresCatalog(ctx context.Context, cfg PostgresConfig) (*SpaceManagerCatalog, error) {
	dsn, err := dbutil.BuildPostgresDSN(cfg.URL, cfg.User, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open space manager database: %w", err)
	}
	dbutil.ConfigurePool(db, cfg.MaxConnections)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping space manager database: %w", err)
	}

	logger.Debug("Connected to space manager database (fetch_size=%d)", cfg.FetchSize)
	return NewCatalogFromDB(db, Postgres, cfg.FetchSize), nil
}

// NewSQLiteCatalog opens an existing SQLite file holding the space manager
// tables. The file is never created.
func NewSQLiteCatalog(ctx context.Context, cfg SQLiteConfig) (*SpaceManagerCatalog, error) {
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("space manager snapshot: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open space manager snapshot: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply pragma: %w", err)
	}

	return NewCatalogFromDB(db, SQLite, 0), nil
}

// NewCatalogFromDB wraps an open connection pool. The catalog takes
// ownership of db.
func NewCatalogFromDB(db *sql.DB, dialect Dialect, fetchSize int) *SpaceManagerCatalog {
	if fetchSize <= 0 {
		fetchSize = DefaultFetchSize
	}
	return &SpaceManagerCatalog{db: db, dialect: dialect, fetchSize: fetchSize}
}

// ListTokens returns all reservations ordered by id. A NULL description
// yields an empty name.
func (c *SpaceManagerCatalog) ListTokens(ctx context.Context) ([]catalog.Token, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, description FROM srmspace ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list space tokens: %w", err)
	}
	defer rows.Close()

	var tokens []catalog.Token
	for rows.Next() {
		var id int64
		var description sql.NullString
		if err := rows.Scan(&id, &description); err != nil {
			return nil, fmt.Errorf("scan space token: %w", err)
		}
		tokens = append(tokens, catalog.Token{ID: id, Name: description.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list space tokens: %w", err)
	}
	return tokens, nil
}

// FilesForToken streams the pnfsids reserved in tokenID.
func (c *SpaceManagerCatalog) FilesForToken(ctx context.Context, tokenID int64) iter.Seq2[catalog.FileRecord, error] {
	if c.dialect == Postgres {
		return c.cursorFiles(ctx, tokenID)
	}
	return c.rowFiles(ctx, tokenID)
}

// cursorFiles declares a server-side cursor in a read-only transaction and
// fetches it in batches of fetchSize rows.
func (c *SpaceManagerCatalog) cursorFiles(ctx context.Context, tokenID int64) iter.Seq2[catalog.FileRecord, error] {
	return func(yield func(catalog.FileRecord, error) bool) {
		tx, err := c.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			yield(catalog.FileRecord{}, fmt.Errorf("begin cursor transaction: %w", err))
			return
		}
		// Rolling back also closes the cursor when the caller stops early.
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, declareCursorSQL(tokenID)); err != nil {
			yield(catalog.FileRecord{}, fmt.Errorf("declare cursor: %w", err))
			return
		}

		fetch := fmt.Sprintf("FETCH FORWARD %d FROM %s", c.fetchSize, cursorName)
		for {
			ids, err := fetchBatch(ctx, tx, fetch)
			if err != nil {
				yield(catalog.FileRecord{}, err)
				return
			}
			if len(ids) == 0 {
				break
			}
			for _, id := range ids {
				if !yield(catalog.FileRecord{ID: id}, nil) {
					return
				}
			}
		}

		if _, err := tx.ExecContext(ctx, "CLOSE "+cursorName); err != nil {
			yield(catalog.FileRecord{}, fmt.Errorf("close cursor: %w", err))
			return
		}
		if err := tx.Commit(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			yield(catalog.FileRecord{}, fmt.Errorf("commit cursor transaction: %w", err))
		}
	}
}

// declareCursorSQL builds the DECLARE statement. The token id is an integer,
// so formatting it into the statement cannot inject SQL.
func declareCursorSQL(tokenID int64) string {
	return "DECLARE " + cursorName +
		" NO SCROLL CURSOR FOR SELECT pnfsid FROM srmspacefile WHERE spacereservationid = " +
		strconv.FormatInt(tokenID, 10)
}

// fetchBatch runs one FETCH and returns the non-blank identifiers. The
// returned slice is empty only when the cursor is exhausted.
func fetchBatch(ctx context.Context, tx *sql.Tx, fetch string) ([]string, error) {
	for {
		rows, err := tx.QueryContext(ctx, fetch)
		if err != nil {
			return nil, fmt.Errorf("fetch files: %w", err)
		}

		var ids []string
		fetched := 0
		for rows.Next() {
			fetched++
			var id sql.NullString
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan file: %w", err)
			}
			if !isBlank(id) {
				ids = append(ids, id.String)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("fetch files: %w", err)
		}

		// A batch made only of blank ids is not the end of the cursor
		if fetched == 0 || len(ids) > 0 {
			return ids, nil
		}
	}
}

func (c *SpaceManagerCatalog) rowFiles(ctx context.Context, tokenID int64) iter.Seq2[catalog.FileRecord, error] {
	return func(yield func(catalog.FileRecord, error) bool) {
		rows, err := c.db.QueryContext(ctx,
			`SELECT pnfsid FROM srmspacefile WHERE spacereservationid = ?`, tokenID)
		if err != nil {
			yield(catalog.FileRecord{}, fmt.Errorf("list files: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id sql.NullString
			if err := rows.Scan(&id); err != nil {
				yield(catalog.FileRecord{}, fmt.Errorf("scan file: %w", err))
				return
			}
			if isBlank(id) {
				continue
			}
			if !yield(catalog.FileRecord{ID: id.String}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(catalog.FileRecord{}, fmt.Errorf("list files: %w", err))
		}
	}
}

func isBlank(id sql.NullString) bool {
	return !id.Valid || strings.TrimSpace(id.String) == ""
}

// Dialect returns how this catalog streams files.
func (c *SpaceManagerCatalog) Dialect() Dialect {
	return c.dialect
}

// Close closes the connection pool.
func (c *SpaceManagerCatalog) Close() error {
	return c.db.Close()
}

var _ catalog.Catalog = (*SpaceManagerCatalog)(nil)
