// Package migrations holds the additive migration steps applied to the
// persistent store when its schema_version lags the code's, one function
// per version bump.
package migrations

import "database/sql"

// step upgrades a database from one persistent-store schema version to
// the next. Steps must be idempotent (safe to re-run if a prior attempt
// partially applied and the process crashed before schema_version was
// bumped).
type step func(db *sql.DB) error

// steps is indexed by the version it upgrades *to*: steps[2] takes a
// version-1 database to version 2. There are none yet because
// CurrentPersistentSchemaVersion is still 1; this is where future
// additive columns/tables land without ever deleting a user's saved
// searches.
var steps = map[int]step{}

// RunPersistent runs every step needed to go from `from` to `to`,
// in order, stopping at the first error.
func RunPersistent(db *sql.DB, from, to int) error {
	for v := from + 1; v <= to; v++ {
		fn, ok := steps[v]
		if !ok {
			continue
		}
		if err := fn(db); err != nil {
			return err
		}
	}
	return nil
}
