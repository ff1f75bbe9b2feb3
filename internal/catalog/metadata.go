package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const lastScanKey = "last_scan"

// GetMetadata retrieves a metadata value by key.
// Returns ErrNotFound if the key doesn't exist.
func (c *Catalog) GetMetadata(ctx context.Context, key string) (string, error) {
	start := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := c.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_metadata", start, nil)
		return "", ErrNotFound
	}
	recordQuery("get_metadata", start, err)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (c *Catalog) SetMetadata(ctx context.Context, key, value string) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	recordQuery("set_metadata", start, err)
	return err
}

// LastScan returns the time of the last completed library scan.
// Returns zero time if no scan has completed.
func (c *Catalog) LastScan(ctx context.Context) (time.Time, error) {
	value, err := c.GetMetadata(ctx, lastScanKey)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastScan stores the time of the last completed library scan.
func (c *Catalog) SetLastScan(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return c.SetMetadata(ctx, lastScanKey, "")
	}
	return c.SetMetadata(ctx, lastScanKey, t.UTC().Format(time.RFC3339))
}
