package vector

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
)

// TombstoneSuffix is appended to an index path to name its tombstone sidecar file.
const TombstoneSuffix = ".tomb"

// Tombstones is the set of deleted positions. Deleted vectors stay in the index until
// compaction; search skips them.
type Tombstones struct {
	rb *roaring.Bitmap
}

// NewTombstones returns an empty tombstone set.
func NewTombstones() *Tombstones {
	return &Tombstones{rb: roaring.New()}
}

// TombstonePath returns the sidecar path for an index file.
func TombstonePath(indexPath string) string {
	return indexPath + TombstoneSuffix
}

// Add marks pos as deleted.
func (t *Tombstones) Add(pos int) {
	t.rb.Add(uint32(pos))
}

// Contains reports whether pos is deleted.
func (t *Tombstones) Contains(pos int) bool {
	if pos < 0 {
		return false
	}
	return t.rb.Contains(uint32(pos))
}

// Len returns the number of deleted positions.
func (t *Tombstones) Len() int {
	return int(t.rb.GetCardinality())
}

// Positions returns the deleted positions in ascending order.
func (t *Tombstones) Positions() []int {
	arr := t.rb.ToArray()
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}

// Clear removes all tombstones.
func (t *Tombstones) Clear() {
	t.rb.Clear()
}

// RemoveFrom drops tombstones at positions >= n.
func (t *Tombstones) RemoveFrom(n int) {
	if n < 0 {
		n = 0
	}
	t.rb.RemoveRange(uint64(n), uint64(1)<<32)
}

// Filter returns a search filter that skips deleted positions, or nil when nothing is deleted.
func (t *Tombstones) Filter() Filter {
	if t.rb.IsEmpty() {
		return nil
	}
	return t.Contains
}

// Save writes the set to path. An empty set removes the file.
func (t *Tombstones) Save(path string) error {
	if t.rb.IsEmpty() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove tombstones: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create tombstone dir: %w", err)
	}
	var buf bytes.Buffer
	if _, err := t.rb.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode tombstones: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write tombstones: %w", err)
	}
	return nil
}

// LoadTombstones reads a tombstone set from path. A missing file yields an empty set.
func LoadTombstones(path string) (*Tombstones, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewTombstones(), nil
		}
		return nil, fmt.Errorf("read tombstones: %w", err)
	}
	rb := roaring.New()
	if _, err := rb.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, corrupt(path, "decode tombstones", err)
	}
	return &Tombstones{rb: rb}, nil
}
