//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unsafe"
)

// FAISSIndex runs searches through a FAISS IndexFlatL2. A copy of the vectors is kept on the
// Go side so Save/Load use the same file format as FlatIndex.
type FAISSIndex struct {
	index       *C.FaissIndexFlatL2
	dimension   int
	compression Compression
	data        []float32
	mu          sync.RWMutex
}

// NewFAISSIndex creates a FAISS L2 index with the given dimension.
func NewFAISSIndex(dimension int, opts ...Option) (*FAISSIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var index *C.FaissIndexFlatL2
	if ret := C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimension)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{
		index:       index,
		dimension:   dimension,
		compression: o.compression,
	}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}

// Dimension returns the configured vector length.
func (f *FAISSIndex) Dimension() int {
	return f.dimension
}

// Add appends vectors in order.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	flat := make([]float32, 0, len(vectors)*f.dimension)
	for i, v := range vectors {
		if len(v) != f.dimension {
			return &DimensionMismatchError{Expected: f.dimension, Actual: len(v), Index: i}
		}
		flat = append(flat, v...)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addLocked(flat); err != nil {
		return err
	}
	f.data = append(f.data, flat...)
	return nil
}

func (f *FAISSIndex) addLocked(flat []float32) error {
	if len(flat) == 0 {
		return nil
	}
	n := len(flat) / f.dimension
	ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

func (f *FAISSIndex) rebuildLocked(data []float32) error {
	if ret := C.faiss_Index_reset(f.index); ret != 0 {
		return fmt.Errorf("failed to reset FAISS index: %s", faissLastError())
	}
	return f.addLocked(data)
}

// Search returns the k nearest stored vectors to query.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	return f.SearchFiltered(ctx, query, k, nil)
}

// SearchFiltered returns the k nearest stored vectors, skipping filtered positions. With a
// filter every vector is ranked so filtering never shortens the result. Without one the
// request widens until every vector tied with the k-th distance is in hand, so re-sorting by
// (distance, position) picks the lowest positions among ties.
func (f *FAISSIndex) SearchFiltered(ctx context.Context, query []float32, k int, skip Filter) ([]Neighbor, error) {
	if len(query) != f.dimension {
		return nil, &DimensionMismatchError{Expected: f.dimension, Actual: len(query), Index: -1}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	ntotal := int(C.faiss_Index_ntotal(f.index))
	if k <= 0 || ntotal == 0 {
		return []Neighbor{}, nil
	}
	want := min(k, ntotal)
	if skip != nil {
		want = ntotal
	}
	var (
		distances []float32
		labels    []int64
		err       error
	)
	for {
		distances, labels, err = f.searchLocked(query, want)
		if err != nil {
			return nil, err
		}
		if want == ntotal || distances[want-1] > distances[k-1] {
			break
		}
		want = min(2*want, ntotal)
	}

	results := make([]Neighbor, 0, want)
	for i := 0; i < want; i++ {
		pos := int(labels[i])
		if pos < 0 || (skip != nil && skip(pos)) {
			continue
		}
		results = append(results, Neighbor{Position: pos, Distance: distances[i]})
	}
	sort.Slice(results, func(i, j int) bool {
		return lessNeighbor(float64(results[i].Distance), results[i].Position, float64(results[j].Distance), results[j].Position)
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (f *FAISSIndex) searchLocked(query []float32, n int) ([]float32, []int64, error) {
	distances := make([]float32, n)
	labels := make([]int64, n)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}
	return distances, labels, nil
}

// Vector returns a copy of the vector at pos.
func (f *FAISSIndex) Vector(pos int) ([]float32, error) {
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
func (f *FAISSIndex) Truncate(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	size := len(f.data) / f.dimension
	if n < 0 || n > size {
		return fmt.Errorf("%w: truncate to %d, size is %d", ErrInvalidPosition, n, size)
	}
	kept := f.data[:n*f.dimension]
	if err := f.rebuildLocked(kept); err != nil {
		return err
	}
	f.data = kept
	return nil
}

// Save writes all vectors to path in the shared index file format.
func (f *FAISSIndex) Save(path string) error {
	if path == "" {
		return fmt.Errorf("save index: empty path")
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return writeIndexFile(path, f.dimension, f.data, f.compression)
}

// Load replaces the index contents with the vectors stored at path.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return fmt.Errorf("load index: empty path")
	}
	data, err := readIndexFile(path, f.dimension)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.rebuildLocked(data); err != nil {
		// Restore the previous contents so a failed load leaves the index unchanged.
		_ = f.rebuildLocked(f.data)
		return err
	}
	f.data = data
	return nil
}

// Size returns the number of vectors in the index.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimension
}

// Close frees the FAISS index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
