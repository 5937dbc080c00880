package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FlatIndex is an exact brute-force index over squared L2 distance. Vectors are kept in one
// contiguous slice in insertion order; each search is O(N*dimension).
type FlatIndex struct {
	dimension   int
	compression Compression
	data        []float32
	mu          sync.RWMutex
}

// Option configures an index created by NewFlatIndex or NewIndex.
type Option func(*options)

type options struct {
	compression Compression
}

// WithCompression sets how Save stores the vector payload.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimension int, opts ...Option) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &FlatIndex{
		dimension:   dimension,
		compression: o.compression,
		data:        make([]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Dimension returns the configured vector length.
func (f *FlatIndex) Dimension() int {
	return f.dimension
}

// Add appends vectors in order. Every vector is checked before any is stored.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dimension {
			return &DimensionMismatchError{Expected: f.dimension, Actual: len(v), Index: i}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search returns the k nearest stored vectors to query.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	return f.SearchFiltered(ctx, query, k, nil)
}

// SearchFiltered returns the k nearest stored vectors to query, ignoring positions for which
// skip returns true. k larger than the number of candidates is clamped; k <= 0 or an empty
// index yields an empty result.
func (f *FlatIndex) SearchFiltered(ctx context.Context, query []float32, k int, skip Filter) ([]Neighbor, error) {
	if len(query) != f.dimension {
		return nil, &DimensionMismatchError{Expected: f.dimension, Actual: len(query), Index: -1}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.data) / f.dimension
	if k <= 0 || n == 0 {
		return []Neighbor{}, nil
	}

	type scored struct {
		pos  int
		dist float64
	}
	candidates := make([]scored, 0, n)
	for pos := 0; pos < n; pos++ {
		if skip != nil && skip(pos) {
			continue
		}
		vec := f.data[pos*f.dimension : (pos+1)*f.dimension]
		candidates = append(candidates, scored{pos: pos, dist: SquaredL2(query, vec)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return lessNeighbor(candidates[i].dist, candidates[i].pos, candidates[j].dist, candidates[j].pos)
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	result := make([]Neighbor, k)
	for i := 0; i < k; i++ {
		result[i] = Neighbor{Position: candidates[i].pos, Distance: float32(candidates[i].dist)}
	}
	return result, nil
}

// Vector returns a copy of the vector at pos.
func (f *FlatIndex) Vector(pos int) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pos < 0 || pos >= len(f.data)/f.dimension {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}
	out := make([]float32, f.dimension)
	copy(out, f.data[pos*f.dimension:(pos+1)*f.dimension])
	return out, nil
}

// Truncate keeps only the first n vectors.
func (f *FlatIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	size := len(f.data) / f.dimension
	if n < 0 || n > size {
		return fmt.Errorf("%w: truncate to %d, size is %d", ErrInvalidPosition, n, size)
	}
	f.data = f.data[:n*f.dimension]
	return nil
}

// Save writes all vectors and the dimension to path, replacing any existing file.
func (f *FlatIndex) Save(path string) error {
	if path == "" {
		return fmt.Errorf("save index: empty path")
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return writeIndexFile(path, f.dimension, f.data, f.compression)
}

// Load replaces the in-memory vectors with the contents of path. On any error the current
// contents are left untouched.
func (f *FlatIndex) Load(path string) error {
	if path == "" {
		return fmt.Errorf("load index: empty path")
	}
	data, err := readIndexFile(path, f.dimension)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = data
	return nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimension
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
