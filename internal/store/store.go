package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZSmain/ordo/internal/event"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// StorageUnavailableError means the store's on-disk database could not be
// provisioned. Fatal to this store instance; not retried automatically.
type StorageUnavailableError struct {
	Path string
	Err  error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable at %s: %v", e.Path, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// IsStorageUnavailable reports whether err is (or wraps) a
// StorageUnavailableError.
func IsStorageUnavailable(err error) bool {
	var su *StorageUnavailableError
	return errors.As(err, &su)
}

// Store owns the event log and materialized tables for one user's
// partition. All mutations funnel through the serialized apply step
// (Commit, ApplyRemote, Replay); no caller writes tables directly.
type Store struct {
	db      *sql.DB
	userID  string
	storeID string

	// mu serializes log appends and materialization so no two events are
	// ever applied concurrently against the same tables.
	mu sync.Mutex

	queriesMu sync.Mutex
	queries   map[string]refresher

	commits chan struct{}
}

// Open creates or opens the partition database for userID at path.
// Applies required pragmas and migrations; idempotent.
func Open(path, userID string) (*Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("open store: user id is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageUnavailableError{Path: path, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageUnavailableError{Path: path, Err: err}
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent commits.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, &StorageUnavailableError{Path: path, Err: err}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, &StorageUnavailableError{Path: path, Err: err}
	}

	return &Store{
		db:      db,
		userID:  userID,
		storeID: event.StoreID(userID),
		queries: make(map[string]refresher),
		commits: make(chan struct{}, 1),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UserID returns the owning user of this partition.
func (s *Store) UserID() string { return s.userID }

// StoreID returns the partition id ("user-<userID>").
func (s *Store) StoreID() string { return s.storeID }

// CommitNotify returns a channel that receives a signal after every
// commit of a syncable event. The sync engine uses it to wake its push
// loop; signals are coalesced, never queued.
func (s *Store) CommitNotify() <-chan struct{} {
	return s.commits
}

func (s *Store) notifyCommit() {
	select {
	case s.commits <- struct{}{}:
	default:
	}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// No incremental migrations yet; schema.sql creates version 1.

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// execer abstracts *sql.Tx for the materializer.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
