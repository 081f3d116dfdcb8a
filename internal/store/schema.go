package store

import (
	"context"
	"database/sql"
	"strconv"
)

// metadataDDL backs the key/value Metadata table used by DataUpdateService
// to persist lastUpdated per update kind and by both stores
// for schema_version bookkeeping.
const metadataDDL = `
CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// cacheDDL is the full cache-store schema. No cross-table
// foreign keys: referential integrity is enforced at the entity layer so
// the two stores (and, within the cache store, independently-pruned
// tables) can evolve without migration coupling.
const cacheDDL = `
CREATE TABLE IF NOT EXISTS organizations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	connection     TEXT NOT NULL UNIQUE,
	time_updated   INTEGER NOT NULL,
	time_last_sync INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS projects (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	external_id     TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	organization_id INTEGER NOT NULL,
	time_updated    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS identities (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	external_id  TEXT NOT NULL UNIQUE,
	avatar_blob  BLOB,
	login_id     TEXT NOT NULL DEFAULT '',
	time_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS repositories (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	external_id  TEXT NOT NULL,
	project_id   INTEGER NOT NULL,
	clone_url    TEXT NOT NULL DEFAULT '',
	is_private   INTEGER NOT NULL DEFAULT 0,
	time_updated INTEGER NOT NULL,
	UNIQUE(external_id, project_id)
);

CREATE TABLE IF NOT EXISTS queries (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id  TEXT NOT NULL,
	display_name TEXT NOT NULL,
	username     TEXT NOT NULL,
	project_id   INTEGER NOT NULL,
	time_updated INTEGER NOT NULL,
	UNIQUE(external_id, username)
);

CREATE TABLE IF NOT EXISTS work_item_types (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	icon        TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	project_id  INTEGER NOT NULL,
	UNIQUE(name, project_id)
);

CREATE TABLE IF NOT EXISTS work_items (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id       INTEGER NOT NULL UNIQUE,
	title             TEXT NOT NULL,
	html_url          TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	reason            TEXT NOT NULL DEFAULT '',
	assigned_to_id    INTEGER NOT NULL DEFAULT 0,
	created_date      INTEGER NOT NULL,
	created_by_id     INTEGER NOT NULL DEFAULT 0,
	changed_date      INTEGER NOT NULL,
	changed_by_id     INTEGER NOT NULL DEFAULT 0,
	work_item_type_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_work_items (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query_id     INTEGER NOT NULL,
	work_item_id INTEGER NOT NULL,
	time_updated INTEGER NOT NULL,
	UNIQUE(query_id, work_item_id)
);
CREATE INDEX IF NOT EXISTS idx_qwi_time_updated ON query_work_items(time_updated);
CREATE INDEX IF NOT EXISTS idx_qwi_work_item ON query_work_items(work_item_id);

CREATE TABLE IF NOT EXISTS pull_request_searches (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	repository_id INTEGER NOT NULL,
	username     TEXT NOT NULL,
	project_id   INTEGER NOT NULL,
	view_id      TEXT NOT NULL,
	time_updated INTEGER NOT NULL,
	UNIQUE(project_id, repository_id, username, view_id)
);

CREATE TABLE IF NOT EXISTS pull_requests (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id           INTEGER NOT NULL UNIQUE,
	title                 TEXT NOT NULL,
	url                   TEXT NOT NULL DEFAULT '',
	repository_id         INTEGER NOT NULL,
	creator_id            INTEGER NOT NULL DEFAULT 0,
	status                TEXT NOT NULL DEFAULT '',
	policy_status         INTEGER NOT NULL DEFAULT 0,
	policy_status_reason  TEXT NOT NULL DEFAULT '',
	target_branch         TEXT NOT NULL DEFAULT '',
	creation_date         INTEGER NOT NULL,
	html_url              TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pull_request_search_pull_requests (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	search_id       INTEGER NOT NULL,
	pull_request_id INTEGER NOT NULL,
	time_updated    INTEGER NOT NULL,
	UNIQUE(search_id, pull_request_id)
);
CREATE INDEX IF NOT EXISTS idx_prspr_time_updated ON pull_request_search_pull_requests(time_updated);
CREATE INDEX IF NOT EXISTS idx_prspr_pr ON pull_request_search_pull_requests(pull_request_id);

CREATE TABLE IF NOT EXISTS definitions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id   INTEGER NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	project_id    INTEGER NOT NULL,
	creation_date INTEGER NOT NULL,
	html_url      TEXT NOT NULL DEFAULT '',
	time_updated  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS builds (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id     INTEGER NOT NULL UNIQUE,
	build_number    TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	result          TEXT NOT NULL DEFAULT '',
	queue_time      INTEGER NOT NULL,
	start_time      INTEGER NOT NULL DEFAULT 0,
	finish_time     INTEGER NOT NULL DEFAULT 0,
	url             TEXT NOT NULL DEFAULT '',
	definition_id   INTEGER NOT NULL,
	source_branch   TEXT NOT NULL DEFAULT '',
	trigger_message TEXT NOT NULL DEFAULT '',
	requester_id    INTEGER NOT NULL DEFAULT 0,
	time_updated    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_time_updated ON builds(time_updated);
CREATE INDEX IF NOT EXISTS idx_builds_definition ON builds(definition_id);
`

// dropAllCacheTablesSQL drops every cache table in place. CacheStore.Purge
// uses it to empty the cache, and an in-memory store, which has no
// backing file to delete, uses it for a rebuild.
const dropAllCacheTablesSQL = `
DROP TABLE IF EXISTS organizations;
DROP TABLE IF EXISTS projects;
DROP TABLE IF EXISTS identities;
DROP TABLE IF EXISTS repositories;
DROP TABLE IF EXISTS queries;
DROP TABLE IF EXISTS work_item_types;
DROP TABLE IF EXISTS work_items;
DROP TABLE IF EXISTS query_work_items;
DROP TABLE IF EXISTS pull_request_searches;
DROP TABLE IF EXISTS pull_requests;
DROP TABLE IF EXISTS pull_request_search_pull_requests;
DROP TABLE IF EXISTS definitions;
DROP TABLE IF EXISTS builds;
`

// persistentDDL is the persistent-store schema: user-defined
// search definitions, retained across sign-out and reinstall.
const persistentDDL = `
CREATE TABLE IF NOT EXISTS query_defs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	url          TEXT NOT NULL UNIQUE,
	is_top_level INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pull_request_search_defs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	url          TEXT NOT NULL,
	name         TEXT NOT NULL,
	view         TEXT NOT NULL,
	is_top_level INTEGER NOT NULL DEFAULT 0,
	UNIQUE(url, view)
);

CREATE TABLE IF NOT EXISTS definition_search_defs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL,
	external_id  INTEGER NOT NULL,
	url          TEXT NOT NULL,
	is_top_level INTEGER NOT NULL DEFAULT 0,
	UNIQUE(url, external_id)
);

CREATE TABLE IF NOT EXISTS project_settings (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	organization_url TEXT NOT NULL,
	project_name     TEXT NOT NULL,
	UNIQUE(organization_url, project_name)
);
`

func readSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func writeSchemaVersion(ctx context.Context, db *sql.DB, version int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO metadata(key, value) VALUES('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(version))
	return err
}
