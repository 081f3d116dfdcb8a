package store

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/rohitkatta517/azdevcache/internal/model"
)

// lastUpdatedKey returns the metadata key DataUpdateService persists
// lastUpdated under for a given update kind.
func lastUpdatedKey(kind string) string { return "last_updated:" + kind }

// GetLastUpdated returns the wall-clock of the last successful dispatch
// for kind, or the zero Ticks if none has run yet.
func (c *CacheStore) GetLastUpdated(ctx context.Context, kind string) (model.Ticks, error) {
	var raw string
	err := c.DB().QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, lastUpdatedKey(kind)).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return model.Ticks(v), nil
}

// SetLastUpdated records the wall-clock of a successful dispatch for kind.
func (c *CacheStore) SetLastUpdated(ctx context.Context, kind string, t model.Ticks) error {
	_, err := c.DB().ExecContext(ctx, `
		INSERT INTO metadata(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastUpdatedKey(kind), strconv.FormatInt(int64(t), 10))
	return err
}
