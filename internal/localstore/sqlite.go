// Package localstore persists small opaque values (key material, encrypted
// conversation blobs) under namespaced string keys.
package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoValue is returned when no value is stored under a key.
var ErrNoValue = errors.New("localstore: no value")

// KV is the persistence surface the keyring and conversation store use.
// Values are opaque strings with no schema guarantees.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// SQLite is a KV backed by a single-file sqlite database.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// sqlite behaves best with a single writer connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &SQLite{conn: conn}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// Get returns the value stored under key, or ErrNoValue.
func (s *SQLite) Get(key string) (string, error) {
	var v string
	err := s.conn.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoValue
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return v, nil
}

// Set stores value under key, overwriting any previous value.
func (s *SQLite) Set(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
