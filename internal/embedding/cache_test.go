package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	v, ok := c.Get("a")
	assert.False(t, ok)
	assert.Nil(t, v)

	c.Set("a", []float32{1, 2, 3})
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	c.Set("b", []float32{4, 5})
	_, _ = c.Get("a")        // a is now most recent
	c.Set("c", []float32{6}) // evicts b
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

type countingEmbedder struct {
	*HashEmbedder
	batches [][]string
	short   bool
	err     error
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches = append(e.batches, texts)
	if e.err != nil {
		return nil, e.err
	}
	out, err := e.HashEmbedder.EmbedBatch(ctx, texts)
	if e.short {
		out = out[:len(out)-1]
	}
	return out, err
}

func TestCachedEmbedder_EmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := e.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	second, err := e.EmbedBatch(ctx, []string{"b", "c", "a"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, inner.batches)
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, 8, e.Dimensions())

	_, err = e.EmbedBatch(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Len(t, inner.batches, 2, "all hits, no inner call")
}

func TestCachedEmbedder_Errors(t *testing.T) {
	ctx := context.Background()
	failing := &countingEmbedder{HashEmbedder: NewHashEmbedder(4), err: errors.New("model offline")}
	_, err := NewCachedEmbedder(failing, 4).EmbedBatch(ctx, []string{"x"})
	assert.EqualError(t, err, "model offline")

	short := &countingEmbedder{HashEmbedder: NewHashEmbedder(4), short: true}
	_, err = NewCachedEmbedder(short, 4).EmbedBatch(ctx, []string{"x", "y"})
	assert.Error(t, err)
}

func TestCachedEmbedder_Embed(t *testing.T) {
	e := NewCachedEmbedder(NewHashEmbedder(4), 4)
	a, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, e.cache.Len())
}
