package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a SQLite table keyed by position.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	size int
}

// OpenSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("metadata path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps positions dense.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath, size: count}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		position INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Append inserts records in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, records ...string) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insert(ctx, s.size, records, false); err != nil {
		return err
	}
	s.size += len(records)
	return nil
}

func (s *SQLiteStore) insert(ctx context.Context, start int, records []string, replace bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (position, content) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, start+i, r); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", start+i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// Get returns the record at pos.
func (s *SQLiteStore) Get(ctx context.Context, pos int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 0 || pos >= s.size {
		return "", outOfRange(pos, s.size)
	}
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM records WHERE position = ?`, pos).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", outOfRange(pos, s.size)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// Size returns the number of records.
func (s *SQLiteStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// All returns every record in position order.
func (s *SQLiteStore) All(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT content FROM records ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, s.size)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		out = append(out, content)
	}
	return out, rows.Err()
}

// Truncate deletes records at positions >= n.
func (s *SQLiteStore) Truncate(ctx context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n > s.size {
		return outOfRange(n, s.size)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE position >= ?`, n); err != nil {
		return fmt.Errorf("failed to truncate records: %w", err)
	}
	s.size = n
	return nil
}

// Rewrite replaces all records in one transaction.
func (s *SQLiteStore) Rewrite(ctx context.Context, records []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.insert(ctx, 0, records, true); err != nil {
		return err
	}
	s.size = len(records)
	return nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
