package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS gcj_data (
	md5_value TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	file_name TEXT NOT NULL
)`

// SQLiteStore keeps hashes in the gcj_data table of a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) AlreadySeen(ctx context.Context, hash string) (bool, error) {
	_, ok, err := s.Lookup(ctx, hash)
	return ok, err
}

func (s *SQLiteStore) Record(ctx context.Context, hash, user, file string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO gcj_data (md5_value, username, file_name) VALUES (?, ?, ?) ON CONFLICT(md5_value) DO NOTHING",
		hash, user, file)
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording %s: %w", hash, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, hash string) (Entry, bool, error) {
	e := Entry{Hash: hash}
	err := s.db.QueryRowContext(ctx,
		"SELECT username, file_name FROM gcj_data WHERE md5_value = ?", hash).Scan(&e.User, &e.File)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up %s: %w", hash, err)
	}
	return e, true, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
