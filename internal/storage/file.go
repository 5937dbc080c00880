package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps one record per line in a text file. Backslash, newline and carriage
// return are escaped so a record never spans lines.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	records []string
}

// OpenFileStore reads the records at path. A missing file yields an empty store; the file
// is created on the first Append.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("metadata path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	return &FileStore{path: path, records: parseLines(data)}, nil
}

func parseLines(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = unescapeRecord(strings.TrimSuffix(l, "\r"))
	}
	return out
}

func escapeRecord(s string) string {
	if !strings.ContainsAny(s, "\\\n\r") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescapeRecord(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			// Unknown escapes are kept verbatim.
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}

func encodeLines(records []string) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.WriteString(escapeRecord(r))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Append writes all records with a single write and fsyncs before returning.
// On failure the file is truncated back to its previous length.
func (s *FileStore) Append(ctx context.Context, records ...string) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metadata directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat metadata file: %w", err)
	}
	prev := info.Size()

	if _, err := f.Write(encodeLines(records)); err != nil {
		_ = f.Truncate(prev)
		return fmt.Errorf("failed to append metadata: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Truncate(prev)
		return fmt.Errorf("failed to sync metadata: %w", err)
	}
	s.records = append(s.records, records...)
	return nil
}

// Get returns the record at pos.
func (s *FileStore) Get(_ context.Context, pos int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos < 0 || pos >= len(s.records) {
		return "", outOfRange(pos, len(s.records))
	}
	return s.records[pos], nil
}

// Size returns the number of records.
func (s *FileStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of every record.
func (s *FileStore) All(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Truncate keeps the first n records and rewrites the file.
func (s *FileStore) Truncate(_ context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n > len(s.records) {
		return outOfRange(n, len(s.records))
	}
	if n == len(s.records) {
		return nil
	}
	kept := s.records[:n:n]
	if err := s.writeAll(kept); err != nil {
		return err
	}
	s.records = kept
	return nil
}

// Rewrite atomically replaces the file with records.
func (s *FileStore) Rewrite(_ context.Context, records []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]string, len(records))
	copy(next, records)
	if err := s.writeAll(next); err != nil {
		return err
	}
	s.records = next
	return nil
}

func (s *FileStore) writeAll(records []string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(encodeLines(records)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metadata file: %w", err)
	}
	_ = os.Chmod(tmpName, 0644)
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Close is a no-op; every Append closes its file handle.
func (s *FileStore) Close() error { return nil }
