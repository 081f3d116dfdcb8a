// Package store implements the content-addressed SQLite-backed data
// store: a volatile cache database and a persistent
// definitions database, opened with the same pragmas and transaction
// discipline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	// Pure-Go/WASM SQLite driver; no cgo required.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/rohitkatta517/azdevcache/internal/errs"
)

// CurrentCacheSchemaVersion is the version recreated from DDL on mismatch.
const CurrentCacheSchemaVersion = 1

// CurrentPersistentSchemaVersion is the version migrated additively on
// mismatch; a bump here never drops a user's saved search definitions.
const CurrentPersistentSchemaVersion = 1

// Store wraps one SQLite database plus the schema-version bootstrap
// logic. Cache and Persistent stores share this type but differ in how
// a version mismatch is resolved (rebuild vs. migrate).
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

// DB exposes the underlying *sql.DB for callers that need raw access
// (repositories, updaters). Never call Close on it directly; use
// Store.Close so bookkeeping stays consistent.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the backing file path ("" / ":memory:" for in-memory stores).
func (s *Store) Path() string { return s.path }

// IsConnected reports whether the store can still be pinged.
func (s *Store) IsConnected() bool {
	if s.closed.Load() {
		return false
	}
	return s.db.Ping() == nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}

func openConn(path string, busyTimeout time.Duration) (*sql.DB, error) {
	timeoutMs := busyTimeout.Milliseconds()

	var connStr string
	if path == ":memory:" {
		connStr = fmt.Sprintf(
			"file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
			timeoutMs)
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		connStr = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", path, timeoutMs)
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return db, nil
}

// openWithSchema opens path, applies ddl if the file is fresh (or after a
// rebuild), and reconciles schema_version. rebuildOnMismatch controls
// whether a stale version wipes the file (cache store) or just runs
// migrate (persistent store).
func openWithSchema(ctx context.Context, path string, ddl string, wantVersion int, rebuildOnMismatch bool, migrate func(*sql.DB, int) error) (*Store, error) {
	db, err := openConn(path, 30*time.Second)
	if err != nil {
		return nil, errs.DataStoreInaccessible("open "+path, err)
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, errs.DataStoreInaccessible("initialize schema", err)
	}
	if _, err := db.ExecContext(ctx, metadataDDL); err != nil {
		_ = db.Close()
		return nil, errs.DataStoreInaccessible("initialize metadata table", err)
	}

	gotVersion, err := readSchemaVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, errs.DataStoreInaccessible("read schema version", err)
	}

	switch {
	case gotVersion == 0:
		if err := writeSchemaVersion(ctx, db, wantVersion); err != nil {
			_ = db.Close()
			return nil, errs.DataStoreInaccessible("write schema version", err)
		}
	case gotVersion != wantVersion && rebuildOnMismatch && path != ":memory:":
		_ = db.Close()
		if err := removeDBFiles(path); err != nil {
			return nil, errs.DataStoreInaccessible("rebuild after version mismatch", err)
		}
		return openWithSchema(ctx, path, ddl, wantVersion, rebuildOnMismatch, migrate)
	case gotVersion != wantVersion && !rebuildOnMismatch:
		if migrate != nil {
			if err := migrate(db, gotVersion); err != nil {
				_ = db.Close()
				return nil, errs.DataStoreInaccessible("migrate persistent store", err)
			}
		}
		if err := writeSchemaVersion(ctx, db, wantVersion); err != nil {
			_ = db.Close()
			return nil, errs.DataStoreInaccessible("write schema version", err)
		}
	case gotVersion != wantVersion && rebuildOnMismatch && path == ":memory:":
		// In-memory stores can't be "deleted"; just reset in place.
		if _, err := db.ExecContext(ctx, dropAllCacheTablesSQL); err != nil {
			_ = db.Close()
			return nil, errs.DataStoreInaccessible("reset in-memory cache", err)
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, errs.DataStoreInaccessible("reinitialize in-memory cache schema", err)
		}
		if err := writeSchemaVersion(ctx, db, wantVersion); err != nil {
			_ = db.Close()
			return nil, errs.DataStoreInaccessible("write schema version", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

func removeDBFiles(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
