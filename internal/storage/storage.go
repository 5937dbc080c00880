// Package storage keeps the metadata rows that sit alongside index vectors.
// Row i belongs to the vector at index position i.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned by Get for a position outside 0..Size()-1.
var ErrIndexOutOfRange = errors.New("metadata index out of range")

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// MetadataStore is an append-only, position-addressed sequence of text records.
type MetadataStore interface {
	// Append durably adds records in order. Either all are stored or none are.
	Append(ctx context.Context, records ...string) error
	Get(ctx context.Context, pos int) (string, error)
	Size() int
	// All returns a copy of every record in position order.
	All(ctx context.Context) ([]string, error)
	// Truncate keeps the first n records.
	Truncate(ctx context.Context, n int) error
	// Rewrite replaces the whole store. Used by compaction.
	Rewrite(ctx context.Context, records []string) error
	Path() string
	Close() error
}

// Open opens the store for backend at path. An empty backend means the line file.
func Open(backend, path string) (MetadataStore, error) {
	switch backend {
	case "", BackendFile:
		s, err := OpenFileStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown metadata backend: %s (supported: file, sqlite)", backend)
	}
}

func outOfRange(pos, size int) error {
	return fmt.Errorf("%w: position %d, size %d", ErrIndexOutOfRange, pos, size)
}
