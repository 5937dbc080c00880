package vector

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatIndex_AddSearch(t *testing.T) {
	idx, err := NewFlatIndex(4)
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{5, 5, 5, 5},
	}))
	assert.Equal(t, 3, idx.Size())

	results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Neighbor{
		{Position: 0, Distance: 0},
		{Position: 1, Distance: 2},
	}, results)
}

func TestFlatIndex_SearchEmpty(t *testing.T) {
	idx, err := NewFlatIndex(3)
	require.NoError(t, err)

	for _, k := range []int{0, 1, 10} {
		results, err := idx.Search(context.Background(), []float32{1, 0, 0}, k)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
}

func TestFlatIndex_KClamped(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{{1, 0}, {0, 1}, {1, 1}}))

	results, err := idx.Search(ctx, []float32{0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = idx.Search(ctx, []float32{0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFlatIndex_TiesBrokenByPosition(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	// Positions 1, 2 and 3 are all at distance 1 from the origin.
	require.NoError(t, idx.Add(ctx, [][]float32{{3, 3}, {0, 1}, {1, 0}, {0, -1}, {0, 0}}))

	results, err := idx.Search(ctx, []float32{0, 0}, 4)
	require.NoError(t, err)
	positions := make([]int, len(results))
	for i, r := range results {
		positions[i] = r.Position
	}
	assert.Equal(t, []int{4, 1, 2, 3}, positions)
}

func TestFlatIndex_OrderingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	idx, _ := NewFlatIndex(8)
	ctx := context.Background()
	vecs := make([][]float32, 200)
	for i := range vecs {
		vecs[i] = make([]float32, 8)
		for j := range vecs[i] {
			// Small integer grid so duplicate distances actually occur.
			vecs[i][j] = float32(rng.Intn(3))
		}
	}
	require.NoError(t, idx.Add(ctx, vecs))

	query := []float32{1, 1, 1, 1, 1, 1, 1, 1}
	results, err := idx.Search(ctx, query, 200)
	require.NoError(t, err)
	require.Len(t, results, 200)
	for i := 1; i < len(results); i++ {
		prev, cur := results[i-1], results[i]
		require.LessOrEqual(t, prev.Distance, cur.Distance)
		if prev.Distance == cur.Distance {
			require.Less(t, prev.Position, cur.Position)
		}
	}
}

func TestFlatIndex_SearchFiltered(t *testing.T) {
	idx, _ := NewFlatIndex(1)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{{0}, {1}, {2}, {3}}))

	skipEven := func(pos int) bool { return pos%2 == 0 }
	results, err := idx.SearchFiltered(ctx, []float32{0}, 2, skipEven)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Position)
	assert.Equal(t, 3, results[1].Position)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{{1, 2, 3}}))

	err := idx.Add(ctx, [][]float32{{1, 1, 1}, {1, 0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
	assert.Equal(t, 1, dm.Index)
	assert.Equal(t, 1, idx.Size(), "no partial add")

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_InvalidDimension(t *testing.T) {
	_, err := NewFlatIndex(0)
	assert.Error(t, err)
	_, err = NewFlatIndex(-1)
	assert.Error(t, err)
}

func TestFlatIndex_AddCopiesInput(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	v := []float32{1, 2}
	require.NoError(t, idx.Add(context.Background(), [][]float32{v}))
	v[0] = 99

	got, err := idx.Vector(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)
}

func TestFlatIndex_Truncate(t *testing.T) {
	idx, _ := NewFlatIndex(1)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, [][]float32{{0}, {1}, {2}}))

	require.NoError(t, idx.Truncate(1))
	assert.Equal(t, 1, idx.Size())
	assert.ErrorIs(t, idx.Truncate(5), ErrInvalidPosition)
	_, err := idx.Vector(1)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestFlatIndex_SaveLoadRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "dir", "index.vsx")
			idx, _ := NewFlatIndex(3, WithCompression(c))
			ctx := context.Background()
			vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.5, -0.25, 3.75}, {0, 0, 0}, {0, 0, 0}}
			require.NoError(t, idx.Add(ctx, vecs))
			require.NoError(t, idx.Save(path))

			idx2, _ := NewFlatIndex(3)
			require.NoError(t, idx2.Load(path))
			require.Equal(t, len(vecs), idx2.Size())
			for i, want := range vecs {
				got, err := idx2.Vector(i)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestFlatIndex_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.vsx")
	ctx := context.Background()
	idx, _ := NewFlatIndex(2)
	require.NoError(t, idx.Add(ctx, [][]float32{{1, 1}, {2, 2}}))
	require.NoError(t, idx.Save(path))

	small, _ := NewFlatIndex(2)
	require.NoError(t, small.Add(ctx, [][]float32{{3, 3}}))
	require.NoError(t, small.Save(path))

	loaded, _ := NewFlatIndex(2)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 1, loaded.Size())
}

func TestFlatIndex_LoadMissingFile(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	require.NoError(t, idx.Add(context.Background(), [][]float32{{1, 1}}))

	err := idx.Load(filepath.Join(t.TempDir(), "missing.vsx"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, idx.Size(), "failed load leaves index unchanged")
}

func TestFlatIndex_LoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.vsx")
	idx, _ := NewFlatIndex(3)
	require.NoError(t, idx.Add(context.Background(), [][]float32{{1, 2, 3}}))
	require.NoError(t, idx.Save(path))

	other, _ := NewFlatIndex(4)
	require.NoError(t, other.Add(context.Background(), [][]float32{{9, 9, 9, 9}}))
	err := other.Load(path)
	assert.ErrorIs(t, err, ErrCorruptIndex)
	assert.Equal(t, 1, other.Size())
}

func TestFlatIndex_SaveEmptyPath(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	assert.Error(t, idx.Save(""))
	assert.Error(t, idx.Load(""))
}

func TestFlatIndex_Type(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	assert.Equal(t, "flat", idx.Type())
	assert.Equal(t, 2, idx.Dimension())
}
