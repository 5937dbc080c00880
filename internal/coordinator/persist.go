package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/models"
	"github.com/olegasics/VectorScan/internal/vector"
)

// SaveIndex writes the index and its tombstone sidecar to path, creating directories.
func (c *Coordinator) SaveIndex(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(path)
}

// LoadIndex replaces the in-memory index with the one stored at path. On failure the
// current state is kept.
func (c *Coordinator) LoadIndex(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(path)
}

// Save writes the index to the configured path.
func (c *Coordinator) Save() error {
	if c.opts.IndexPath == "" {
		return ErrNoIndexPath
	}
	return c.SaveIndex(c.opts.IndexPath)
}

// Load reads the index from the configured path.
func (c *Coordinator) Load() error {
	if c.opts.IndexPath == "" {
		return ErrNoIndexPath
	}
	return c.LoadIndex(c.opts.IndexPath)
}

func (c *Coordinator) saveLocked(path string) error {
	if path == "" {
		return ErrNoIndexPath
	}
	if err := c.index.Save(path); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := c.tombstones.Save(vector.TombstonePath(path)); err != nil {
		return fmt.Errorf("save tombstones: %w", err)
	}
	c.logger.Info("index saved", zap.String("path", path), zap.Int("size", c.index.Size()))
	return nil
}

func (c *Coordinator) loadLocked(path string) error {
	if path == "" {
		return ErrNoIndexPath
	}
	// Tombstones first so a bad sidecar leaves the index untouched.
	tombs, err := vector.LoadTombstones(vector.TombstonePath(path))
	if err != nil {
		return err
	}
	if err := c.index.Load(path); err != nil {
		return err
	}
	tombs.RemoveFrom(c.index.Size())
	c.tombstones = tombs
	c.dropKeyword()
	c.logger.Info("index loaded", zap.String("path", path), zap.Int("size", c.index.Size()))
	return c.dropOrphanRowsLocked(context.Background())
}

// dropOrphanRowsLocked truncates metadata rows past the last vector. Their vectors were
// never saved, so no search can reach them and they would block every later append.
func (c *Coordinator) dropOrphanRowsLocked(ctx context.Context) error {
	size, rows := c.index.Size(), c.store.Size()
	if rows <= size {
		return nil
	}
	if err := c.store.Truncate(ctx, size); err != nil {
		return fmt.Errorf("drop metadata rows of unsaved vectors: %w", err)
	}
	c.dropKeyword()
	c.logger.Warn("dropped metadata rows of unsaved vectors",
		zap.Int("rows", rows-size), zap.Int("size", size))
	return nil
}

// Delete marks positions as deleted. Searches skip them until Compact removes them.
// The change is persisted by the next save.
func (c *Coordinator) Delete(ctx context.Context, positions ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	size := c.index.Size()
	for _, p := range positions {
		if p < 0 || p >= size {
			return fmt.Errorf("%w: %d (index size %d)", vector.ErrInvalidPosition, p, size)
		}
	}
	for _, p := range positions {
		c.tombstones.Add(p)
	}
	if len(positions) > 0 {
		c.dropKeyword()
		c.logger.Info("positions deleted", zap.Ints("positions", positions), zap.Int("tombstones", c.tombstones.Len()))
	}
	return nil
}

// DeleteBySource deletes every live row whose record came from source and returns the
// number of rows deleted.
func (c *Coordinator) DeleteBySource(ctx context.Context, source string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.store.All(ctx)
	if err != nil {
		return 0, err
	}
	size := c.index.Size()
	n := 0
	for pos, row := range rows {
		if pos >= size || c.tombstones.Contains(pos) {
			continue
		}
		rec, ok := models.DecodeRecord(row)
		if !ok || rec.Source != source {
			continue
		}
		c.tombstones.Add(pos)
		n++
	}
	if n > 0 {
		c.dropKeyword()
		c.logger.Info("source deleted", zap.String("source", source), zap.Int("rows", n))
	}
	return n, nil
}

// Sources returns the distinct source files of live record rows, sorted.
func (c *Coordinator) Sources(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for pos, row := range rows {
		if pos >= c.index.Size() || c.tombstones.Contains(pos) {
			continue
		}
		rec, ok := models.DecodeRecord(row)
		if !ok || rec.Source == "" || seen[rec.Source] {
			continue
		}
		seen[rec.Source] = true
		out = append(out, rec.Source)
	}
	sort.Strings(out)
	return out, nil
}

// Compact rewrites the index and metadata without deleted positions, clears the tombstones
// and saves the index to the configured path. Surviving items are renumbered in order.
// It returns the number of removed items.
//
// The compacted index is staged next to the configured path before the metadata is
// rewritten, and renamed into place afterwards. A failure before the rename leaves both
// files and the in-memory state as they were.
func (c *Coordinator) Compact(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.tombstones.Len()
	if removed == 0 {
		return 0, nil
	}
	if err := c.alignmentLocked(); err != nil {
		return 0, fmt.Errorf("refusing to compact: %w", err)
	}

	rows, err := c.store.All(ctx)
	if err != nil {
		return 0, err
	}
	size := c.index.Size()
	allVecs := make([][]float32, 0, size)
	liveVecs := make([][]float32, 0, size-removed)
	liveRows := make([]string, 0, size-removed)
	for pos := 0; pos < size; pos++ {
		v, err := c.index.Vector(pos)
		if err != nil {
			return 0, err
		}
		allVecs = append(allVecs, v)
		if c.tombstones.Contains(pos) {
			continue
		}
		liveVecs = append(liveVecs, v)
		liveRows = append(liveRows, rows[pos])
	}

	oldTombs := c.tombstones
	restore := func() {
		c.tombstones = oldTombs
		if err := c.rebuildLocked(allVecs); err != nil {
			c.logger.Error("restoring index after failed compaction", zap.Error(err))
		}
	}
	if err := c.rebuildLocked(liveVecs); err != nil {
		restore()
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	c.tombstones = vector.NewTombstones()

	staged := ""
	if c.opts.IndexPath != "" {
		staged = c.opts.IndexPath + ".compact"
		if err := c.saveLocked(staged); err != nil {
			removeStaged(staged)
			restore()
			return 0, err
		}
	}
	if err := c.store.Rewrite(ctx, liveRows); err != nil {
		removeStaged(staged)
		restore()
		return 0, fmt.Errorf("rewrite metadata: %w", err)
	}
	c.dropKeyword()
	if staged != "" {
		if err := promoteStaged(staged, c.opts.IndexPath); err != nil {
			c.logger.Error("compacted metadata written but index file not replaced; save the index to realign",
				zap.String("path", c.opts.IndexPath), zap.Error(err))
			return removed, err
		}
	}
	c.logger.Info("index compacted", zap.Int("removed", removed), zap.Int("size", c.index.Size()))
	return removed, nil
}

// rebuildLocked replaces the index contents with vecs.
func (c *Coordinator) rebuildLocked(vecs [][]float32) error {
	if err := c.index.Truncate(0); err != nil {
		return err
	}
	return c.index.Add(context.Background(), vecs)
}

func removeStaged(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

// promoteStaged renames a staged compacted index over dst. A compacted index has no
// tombstones, so dst's sidecar goes too.
func promoteStaged(staged, dst string) error {
	if err := os.Rename(staged, dst); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	if err := os.Remove(vector.TombstonePath(dst)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove tombstone file: %w", err)
	}
	return nil
}
