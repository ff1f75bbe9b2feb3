package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"photo-browser/internal/logging"
	"photo-browser/internal/metrics"
	"photo-browser/internal/record"
)

// FileName is the database file created inside the catalog directory.
const FileName = "catalog.db"

// Default timeout for catalog operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when a metadata key has no value.
var ErrNotFound = errors.New("catalog: not found")

// Catalog wraps the SQLite database.
type Catalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	log    logging.Logger
}

// Open creates dir if needed and opens (or creates) the catalog inside it.
func Open(ctx context.Context, dir string) (*Catalog, error) {
	log := logging.For("catalog")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	dbPath := filepath.Join(dir, FileName)
	log.Info("Catalog path: %s", dbPath)

	if err := checkWritable(dir); err != nil {
		log.Warn("Catalog permission diagnostics: %v", err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close catalog after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	// a single writer keeps SQLite from returning "database is locked"
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	c := &Catalog{db: db, dbPath: dbPath, log: log}

	if err := c.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close catalog after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	log.Info("Catalog initialized at %s", dbPath)
	return c, nil
}

func (c *Catalog) initialize(ctx context.Context) error {
	start := time.Now()
	schema := `
	CREATE TABLE IF NOT EXISTS check_states (
		path TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, schema)
	recordQuery("initialize_schema", start, err)
	return err
}

// Path returns the database file path.
func (c *Catalog) Path() string { return c.dbPath }

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// CheckState returns the stored mark for path, Unchecked when none is
// stored.
func (c *Catalog) CheckState(ctx context.Context, path string) (record.CheckState, error) {
	start := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := c.db.QueryRowContext(ctx, "SELECT state FROM check_states WHERE path = ?", path).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_check_state", start, nil)
		return record.Unchecked, nil
	}
	recordQuery("get_check_state", start, err)
	if err != nil {
		return record.Unchecked, err
	}
	return record.ParseCheckState(value)
}

// SetCheckState stores the mark for path. Storing Unchecked removes the
// row.
func (c *Catalog) SetCheckState(ctx context.Context, path string, state record.CheckState) error {
	if state == record.Unchecked {
		return c.ForgetCheckState(ctx, path)
	}

	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO check_states (path, state) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET
			state = excluded.state,
			updated_at = strftime('%s', 'now')
	`, path, state.String())
	recordQuery("set_check_state", start, err)
	return err
}

// ForgetCheckState removes the stored mark for path.
func (c *Catalog) ForgetCheckState(ctx context.Context, path string) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx, "DELETE FROM check_states WHERE path = ?", path)
	recordQuery("forget_check_state", start, err)
	return err
}

// LoadCheckStates returns every stored mark keyed by path. Rows with an
// unreadable state are skipped.
func (c *Catalog) LoadCheckStates(ctx context.Context) (map[string]record.CheckState, error) {
	start := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, "SELECT path, state FROM check_states")
	if err != nil {
		recordQuery("load_check_states", start, err)
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			c.log.Warn("failed to close rows: %v", closeErr)
		}
	}()

	states := make(map[string]record.CheckState)
	for rows.Next() {
		var path, value string
		if err := rows.Scan(&path, &value); err != nil {
			recordQuery("load_check_states", start, err)
			return nil, err
		}
		state, err := record.ParseCheckState(value)
		if err != nil {
			c.log.Warn("skipping %s: %v", path, err)
			continue
		}
		states[path] = state
	}
	err = rows.Err()
	recordQuery("load_check_states", start, err)
	return states, err
}

// recordQuery records catalog query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.CatalogQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.CatalogQueryDuration.WithLabelValues(operation).Observe(duration)
}

// checkWritable verifies the catalog directory accepts new files.
func checkWritable(dir string) error {
	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("catalog directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}
