// Package vector provides fixed-dimension vector indexes with exact nearest-neighbor search.
package vector

import "context"

// Index stores vectors by insertion position and answers k-nearest-neighbor queries.
// Positions are 0..Size()-1 and never reused; vectors are never mutated once added.
type Index interface {
	// Add appends vectors in order. Either all vectors are added or none are.
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns up to k neighbors ordered by ascending distance, ties by position.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	// SearchFiltered is Search with positions for which skip returns true excluded
	// before k is applied.
	SearchFiltered(ctx context.Context, query []float32, k int, skip Filter) ([]Neighbor, error)
	// Vector returns a copy of the vector stored at pos.
	Vector(pos int) ([]float32, error)
	// Truncate drops every vector at position >= n.
	Truncate(n int) error
	Save(path string) error
	Load(path string) error
	Size() int
	Dimension() int
	Type() string
	Close() error
}

// Neighbor is a single search hit: the stored vector's position and its squared L2 distance
// to the query.
type Neighbor struct {
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
}

// Filter reports whether a position should be excluded from search results.
type Filter func(position int) bool
