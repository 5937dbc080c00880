package watcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/fileid"
	"github.com/olegasics/VectorScan/internal/models"
)

// Index is the part of the coordinator the reindexer drives.
type Index interface {
	DeleteBySource(ctx context.Context, source string) (int, error)
	IndexRecords(ctx context.Context, records []models.MetadataRecord) error
	Save() error
}

// FileScanner extracts records from one file. *scanner.Scanner satisfies it.
type FileScanner interface {
	ScanFile(ctx context.Context, root, path string) ([]models.MetadataRecord, error)
}

// Reindexer is a Handler that replaces a file's rows whenever the file changes.
// Old rows are tombstoned, not removed; compaction reclaims them.
type Reindexer struct {
	root    string
	scanner FileScanner
	index   Index
	logger  *zap.Logger
	dirty   bool
}

// NewReindexer returns a Reindexer for files under root.
func NewReindexer(root string, scanner FileScanner, index Index, logger *zap.Logger) *Reindexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reindexer{root: root, scanner: scanner, index: index, logger: logger}
}

// Changed rescans path and swaps its previous rows for the new ones.
func (r *Reindexer) Changed(ctx context.Context, path string) error {
	source, err := fileid.SourceKey(r.root, path)
	if err != nil {
		return err
	}
	recs, err := r.scanner.ScanFile(ctx, r.root, path)
	if err != nil {
		return fmt.Errorf("scan %s: %w", source, err)
	}
	removed, err := r.index.DeleteBySource(ctx, source)
	if err != nil {
		return fmt.Errorf("delete rows of %s: %w", source, err)
	}
	if removed > 0 {
		r.dirty = true
	}
	if len(recs) > 0 {
		if err := r.index.IndexRecords(ctx, recs); err != nil {
			return fmt.Errorf("index %s: %w", source, err)
		}
		r.dirty = true
	}
	r.logger.Info("file reindexed",
		zap.String("source", source),
		zap.Int("removed", removed),
		zap.Int("added", len(recs)))
	return nil
}

// Removed tombstones every row that came from path.
func (r *Reindexer) Removed(ctx context.Context, path string) error {
	source, err := fileid.SourceKey(r.root, path)
	if err != nil {
		return err
	}
	removed, err := r.index.DeleteBySource(ctx, source)
	if err != nil {
		return fmt.Errorf("delete rows of %s: %w", source, err)
	}
	if removed > 0 {
		r.dirty = true
		r.logger.Info("file removed from index", zap.String("source", source), zap.Int("removed", removed))
	}
	return nil
}

// Flush saves the index if anything changed since the last flush.
func (r *Reindexer) Flush(context.Context) error {
	if !r.dirty {
		return nil
	}
	if err := r.index.Save(); err != nil {
		return err
	}
	r.dirty = false
	return nil
}
