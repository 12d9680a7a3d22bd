package chimera

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/marmos91/tokenmig/internal/dbutil"
	"github.com/marmos91/tokenmig/internal/logger"
	"github.com/marmos91/tokenmig/pkg/namespace"
)

// Chimera stores the type bits of st_mode in t_inodes.itype.
const (
	typeDirectory = 0040000
	typeRegular   = 0100000
)

// maxDepth bounds the upward walk in HandleToPath.
const maxDepth = 4096

// Config contains the connection settings for a Chimera database.
type Config struct {
	// URL is a postgres URL or a JDBC URL ("jdbc:postgresql://host/chimera")
	URL string

	User     string
	Password string

	// MaxConnections caps the connection pool (0 means unlimited)
	MaxConnections int
}

// ChimeraNamespaceStore implements namespace.Store directly on the dCache
// Chimera schema.
//
// Entries live in t_inodes (keyed by inumber, identified by ipnfsid) and the
// directory hierarchy in t_dirs (iparent, iname) -> ichild. Handles are the
// decimal inumber.
//
// Every mutation runs in its own database transaction. Queries only use
// numbered placeholders in ascending order of first use, so the same
// statements run unchanged against SQLite in tests.
type ChimeraNamespaceStore struct {
	db *sql.DB

	// rootInumber is resolved lazily from namespace.RootID
	rootInumber int64
}

// NewChimeraNamespaceStore opens a connection pool to the Chimera database and
// verifies it is reachable.
//
// Parameters:
//   - ctx: Context for cancellation of the initial ping
//   - cfg: Connection settings
//
// Returns:
//   - *ChimeraNamespaceStore: Store ready for use
//   - error: Invalid URL, or the database is unreachable
func NewChimeraNamespaceStore(ctx context.Context, cfg Config) (*ChimeraNamespaceStore, error) {
	dsn, err := dbutil.BuildPostgresDSN(cfg.URL, cfg.User, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chimera database: %w", err)
	}

	dbutil.ConfigurePool(db, cfg.MaxConnections)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping chimera database: %w", err)
	}

	logger.Debug("Connected to chimera database (max_connections=%d)", cfg.MaxConnections)
	return NewChimeraNamespaceStoreFromDB(db), nil
}

// NewChimeraNamespaceStoreFromDB wraps an existing connection pool. The store
// takes ownership of db and closes it in Close.
func NewChimeraNamespaceStoreFromDB(db *sql.DB) *ChimeraNamespaceStore {
	return &ChimeraNamespaceStore{db: db}
}

// PathToHandle walks t_dirs from the root one component at a time.
func (s *ChimeraNamespaceStore) PathToHandle(ctx context.Context, path string) (namespace.FileHandle, error) {
	clean, err := namespace.CleanPath(path)
	if err != nil {
		return nil, err
	}

	current, err := s.root(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range namespace.Components(clean) {
		child, found, err := lookupChild(ctx, s.db, current, name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, namespace.NotFound("no such entry", clean)
		}
		current = child
	}

	return encodeHandle(current), nil
}

// HandleToPath walks t_dirs upwards from handle until it reaches root.
func (s *ChimeraNamespaceStore) HandleToPath(ctx context.Context, handle namespace.FileHandle, root namespace.FileHandle) (string, error) {
	inumber, err := decodeHandle(handle)
	if err != nil {
		return "", err
	}
	rootInumber, err := decodeHandle(root)
	if err != nil {
		return "", err
	}
	fsRoot, err := s.root(ctx)
	if err != nil {
		return "", err
	}

	if _, err := s.inodeType(ctx, s.db, rootInumber); err != nil {
		return "", err
	}

	var names []string
	current := inumber
	for current != rootInumber {
		if current == fsRoot {
			return "", namespace.NotFound("entry is not below root", handle.String())
		}
		if len(names) >= maxDepth {
			return "", &namespace.StoreError{
				Code:    namespace.ErrIOError,
				Message: "directory chain too deep",
				Path:    handle.String(),
			}
		}

		var parent int64
		var name string
		err := s.db.QueryRowContext(ctx,
			`SELECT iparent, iname FROM t_dirs WHERE ichild = $1 AND iname <> '.' AND iname <> '..' LIMIT 1`,
			current,
		).Scan(&parent, &name)
		if errors.Is(err, sql.ErrNoRows) {
			return "", namespace.NotFound("entry not found", handle.String())
		}
		if err != nil {
			return "", ioError("failed to read parent link", err)
		}

		names = append(names, name)
		current = parent
	}

	return namespace.RelativePath(names), nil
}

// IDToHandle looks up the inode carrying pnfsid id.
func (s *ChimeraNamespaceStore) IDToHandle(ctx context.Context, id string) (namespace.FileHandle, error) {
	inumber, err := s.inumberOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return encodeHandle(inumber), nil
}

// Mkdir creates a directory below parent.
func (s *ChimeraNamespaceStore) Mkdir(ctx context.Context, parent namespace.FileHandle, name string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	return s.create(ctx, parent, name, namespace.NewID(), typeDirectory, uid, gid, mode)
}

// CreateFile creates a regular file below parent carrying pnfsid id.
func (s *ChimeraNamespaceStore) CreateFile(ctx context.Context, parent namespace.FileHandle, name string, id string, uid, gid, mode uint32) (namespace.FileHandle, error) {
	return s.create(ctx, parent, name, id, typeRegular, uid, gid, mode)
}

func (s *ChimeraNamespaceStore) create(
	ctx context.Context,
	parent namespace.FileHandle,
	name string,
	id string,
	itype int,
	uid, gid, mode uint32,
) (namespace.FileHandle, error) {
	if err := namespace.ValidateName(name); err != nil {
		return nil, err
	}
	parentInumber, err := decodeHandle(parent)
	if err != nil {
		return nil, err
	}

	var inumber int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireDirectory(ctx, tx, parentInumber); err != nil {
			return err
		}

		_, exists, err := lookupChild(ctx, tx, parentInumber, name)
		if err != nil {
			return err
		}
		if exists {
			return &namespace.StoreError{
				Code:    namespace.ErrAlreadyExists,
				Message: "entry already exists",
				Path:    name,
			}
		}

		nlink := 1
		if itype == typeDirectory {
			nlink = 2
		}

		now := time.Now()
		err = tx.QueryRowContext(ctx,
			`INSERT INTO t_inodes (ipnfsid, itype, imode, inlink, iuid, igid, isize, iio, ictime, iatime, imtime, icrtime, igeneration)
			 VALUES ($1, $2, $3, $4, $5, $6, 512, 0, $7, $7, $7, $7, 0)
			 RETURNING inumber`,
			id, itype, mode&07777, nlink, uid, gid, now,
		).Scan(&inumber)
		if err != nil {
			return mapWriteError("failed to insert inode", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO t_dirs (iparent, ichild, iname) VALUES ($1, $2, $3)`,
			parentInumber, inumber, name,
		); err != nil {
			return mapWriteError("failed to link entry", name, err)
		}

		linkDelta := 0
		if itype == typeDirectory {
			linkDelta = 1
		}
		return touchDirectory(ctx, tx, parentInumber, linkDelta, now)
	})
	if err != nil {
		return nil, err
	}
	return encodeHandle(inumber), nil
}

// Move re-links handle from fromDir/fromName to toDir/toName in one
// transaction. An existing destination is never replaced.
func (s *ChimeraNamespaceStore) Move(
	ctx context.Context,
	handle namespace.FileHandle,
	fromDir namespace.FileHandle,
	fromName string,
	toDir namespace.FileHandle,
	toName string,
) error {
	if err := namespace.ValidateName(fromName); err != nil {
		return err
	}
	if err := namespace.ValidateName(toName); err != nil {
		return err
	}
	inumber, err := decodeHandle(handle)
	if err != nil {
		return err
	}
	from, err := decodeHandle(fromDir)
	if err != nil {
		return err
	}
	to, err := decodeHandle(toDir)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireDirectory(ctx, tx, from); err != nil {
			return err
		}
		if err := s.requireDirectory(ctx, tx, to); err != nil {
			return err
		}

		source, found, err := lookupChild(ctx, tx, from, fromName)
		if err != nil {
			return err
		}
		if !found || source != inumber {
			return namespace.NotFound("source not found", fromName)
		}

		if from == to && fromName == toName {
			return nil
		}

		_, exists, err := lookupChild(ctx, tx, to, toName)
		if err != nil {
			return err
		}
		if exists {
			return &namespace.StoreError{
				Code:    namespace.ErrAlreadyExists,
				Message: "destination already exists",
				Path:    toName,
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE t_dirs SET iparent = $1, iname = $2 WHERE iparent = $3 AND iname = $4 AND ichild = $5`,
			to, toName, from, fromName, inumber,
		)
		if err != nil {
			return mapWriteError("failed to rename entry", toName, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return ioError("failed to rename entry", err)
		}
		if affected != 1 {
			return namespace.NotFound("source not found", fromName)
		}

		itype, err := s.inodeType(ctx, tx, inumber)
		if err != nil {
			return err
		}

		now := time.Now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE t_inodes SET ictime = $1 WHERE inumber = $2`,
			now, inumber,
		); err != nil {
			return ioError("failed to update inode", err)
		}

		if from == to {
			return touchDirectory(ctx, tx, from, 0, now)
		}

		linkDelta := 0
		if itype == typeDirectory {
			linkDelta = 1
		}
		if err := touchDirectory(ctx, tx, from, -linkDelta, now); err != nil {
			return err
		}
		return touchDirectory(ctx, tx, to, linkDelta, now)
	})
}

// EntryType maps the inode's itype onto a namespace.FileType.
func (s *ChimeraNamespaceStore) EntryType(ctx context.Context, handle namespace.FileHandle) (namespace.FileType, error) {
	inumber, err := decodeHandle(handle)
	if err != nil {
		return 0, err
	}
	itype, err := s.inodeType(ctx, s.db, inumber)
	if err != nil {
		return 0, err
	}

	switch itype & 0170000 {
	case typeDirectory:
		return namespace.FileTypeDirectory, nil
	case typeRegular:
		return namespace.FileTypeRegular, nil
	default:
		return namespace.FileTypeOther, nil
	}
}

// Healthcheck pings the database and checks the root inode is present.
func (s *ChimeraNamespaceStore) Healthcheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return ioError("chimera database unreachable", err)
	}
	_, err := s.root(ctx)
	return err
}

// Close closes the connection pool.
func (s *ChimeraNamespaceStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Query helpers
// ============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *ChimeraNamespaceStore) root(ctx context.Context) (int64, error) {
	if s.rootInumber != 0 {
		return s.rootInumber, nil
	}
	inumber, err := s.inumberOf(ctx, namespace.RootID)
	if err != nil {
		return 0, err
	}
	s.rootInumber = inumber
	return inumber, nil
}

func (s *ChimeraNamespaceStore) inumberOf(ctx context.Context, id string) (int64, error) {
	var inumber int64
	err := s.db.QueryRowContext(ctx,
		`SELECT inumber FROM t_inodes WHERE ipnfsid = $1`, id,
	).Scan(&inumber)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, namespace.NotFound("no entry with identifier", id)
	}
	if err != nil {
		return 0, ioError("failed to look up identifier", err)
	}
	return inumber, nil
}

func (s *ChimeraNamespaceStore) inodeType(ctx context.Context, q querier, inumber int64) (int, error) {
	var itype int
	err := q.QueryRowContext(ctx,
		`SELECT itype FROM t_inodes WHERE inumber = $1`, inumber,
	).Scan(&itype)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, namespace.NotFound("inode not found", strconv.FormatInt(inumber, 10))
	}
	if err != nil {
		return 0, ioError("failed to read inode", err)
	}
	return itype, nil
}

func (s *ChimeraNamespaceStore) requireDirectory(ctx context.Context, q querier, inumber int64) error {
	itype, err := s.inodeType(ctx, q, inumber)
	if err != nil {
		return err
	}
	if itype&0170000 != typeDirectory {
		return &namespace.StoreError{
			Code:    namespace.ErrNotDirectory,
			Message: "not a directory",
			Path:    strconv.FormatInt(inumber, 10),
		}
	}
	return nil
}

func lookupChild(ctx context.Context, q querier, parent int64, name string) (int64, bool, error) {
	var child int64
	err := q.QueryRowContext(ctx,
		`SELECT ichild FROM t_dirs WHERE iparent = $1 AND iname = $2`,
		parent, name,
	).Scan(&child)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, ioError("failed to look up directory entry", err)
	}
	return child, true, nil
}

func touchDirectory(ctx context.Context, tx *sql.Tx, inumber int64, linkDelta int, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE t_inodes SET inlink = inlink + $1, imtime = $2, ictime = $2, igeneration = igeneration + 1 WHERE inumber = $3`,
		linkDelta, now, inumber,
	)
	if err != nil {
		return ioError("failed to update directory", err)
	}
	return nil
}

func (s *ChimeraNamespaceStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioError("failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapWriteError("failed to commit transaction", "", err)
	}
	return nil
}

func encodeHandle(inumber int64) namespace.FileHandle {
	return namespace.FileHandle(strconv.FormatInt(inumber, 10))
}

func decodeHandle(handle namespace.FileHandle) (int64, error) {
	inumber, err := strconv.ParseInt(string(handle), 10, 64)
	if err != nil || inumber <= 0 {
		return 0, &namespace.StoreError{
			Code:    namespace.ErrInvalidHandle,
			Message: "malformed chimera handle",
			Path:    handle.String(),
		}
	}
	return inumber, nil
}

// mapWriteError turns a unique violation into ErrAlreadyExists. Concurrent
// writers outside this process can race the existence checks.
func mapWriteError(message, path string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &namespace.StoreError{
			Code:    namespace.ErrAlreadyExists,
			Message: "entry already exists",
			Path:    path,
		}
	}
	return ioError(message, err)
}

func ioError(message string, err error) error {
	return fmt.Errorf("%w: %v", &namespace.StoreError{Code: namespace.ErrIOError, Message: message}, err)
}

var (
	_ namespace.Store       = (*ChimeraNamespaceStore)(nil)
	_ namespace.FileCreator = (*ChimeraNamespaceStore)(nil)
)
