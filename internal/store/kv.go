package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"omnichat/internal/logging"
)

// KV is the durable local key-value surface the session store persists to.
// Implementations must treat a missing key as (nil, false, nil), not an error.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Close() error
}

// SQLiteKV implements KV on a single-table SQLite database.
type SQLiteKV struct {
	db   *sql.DB
	path string
}

// OpenSQLiteKV initializes the SQLite database at the given path, creating
// parent directories as needed.
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	// NORMAL is safe with WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS kv_state (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("opened kv store at %s", path)
	return &SQLiteKV{db: db, path: path}, nil
}

// Get returns the value for key, with found=false when the key is absent.
func (s *SQLiteKV) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

// Put writes value under key, replacing any previous value.
func (s *SQLiteKV) Put(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("kv put %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
