package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Sync state keys written by the import step
const (
	StateLastImport       = "last_import"
	StateActivitiesSource = "activities_source"
	StateStreamsSource    = "streams_source"
)

// GetSyncState retrieves a sync state value by key
// Returns empty string if key doesn't exist
func (db *DB) GetSyncState(key string) (string, error) {
	var value string
	err := db.QueryRow(`
		SELECT value FROM sync_state WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value
func (db *DB) SetSyncState(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// LastImport returns when the import step last completed; ok is false if never
func (db *DB) LastImport() (t time.Time, ok bool, err error) {
	v, err := db.GetSyncState(StateLastImport)
	if err != nil || v == "" {
		return time.Time{}, false, err
	}
	t, err = parseTime(v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing %s: %w", StateLastImport, err)
	}
	return t, true, nil
}
