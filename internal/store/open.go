package store

import (
	"context"
	"database/sql"

	"github.com/rohitkatta517/azdevcache/internal/store/migrations"
)

// CacheStore wraps the volatile, schema-version-rebuilt cache database.
type CacheStore struct{ *Store }

// PersistentStore wraps the durable, schema-version-migrated definitions
// database.
type PersistentStore struct{ *Store }

// OpenCache opens (creating if needed) the cache database at path. On a
// schema_version mismatch the file is deleted and recreated from DDL.
func OpenCache(ctx context.Context, path string) (*CacheStore, error) {
	s, err := openWithSchema(ctx, path, cacheDDL, CurrentCacheSchemaVersion, true, nil)
	if err != nil {
		return nil, err
	}
	return &CacheStore{s}, nil
}

// OpenPersistent opens (creating if needed) the persistent database at
// path. On a schema_version mismatch the additive migration list runs
// forward; user definitions are never dropped.
func OpenPersistent(ctx context.Context, path string) (*PersistentStore, error) {
	migrate := func(db *sql.DB, from int) error {
		return migrations.RunPersistent(db, from, CurrentPersistentSchemaVersion)
	}
	s, err := openWithSchema(ctx, path, persistentDDL, CurrentPersistentSchemaVersion, false, migrate)
	if err != nil {
		return nil, err
	}
	return &PersistentStore{s}, nil
}

// Purge drops and recreates the cache schema in place, per
// DataUpdateService.PurgeAllData.
func (c *CacheStore) Purge(ctx context.Context) error {
	if _, err := c.DB().ExecContext(ctx, dropAllCacheTablesSQL); err != nil {
		return err
	}
	if _, err := c.DB().ExecContext(ctx, cacheDDL); err != nil {
		return err
	}
	return writeSchemaVersion(ctx, c.DB(), CurrentCacheSchemaVersion)
}
