package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaServer(t *testing.T, dims int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Prompt == "fail" {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		emb := make([]float64, dims)
		emb[len(req.Prompt)%dims] = 1
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: emb})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, 4, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL + "/", Dimensions: 4})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1, 0, 0}, {0, 0, 1, 0}}, vecs)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, DefaultOllamaModel, e.Model())
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, 4, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL})

	_, err := e.EmbedBatch(context.Background(), []string{"ok", "fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaEmbedder_DimensionCheck(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, 3, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, Dimensions: 4})

	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 3 dimensions, expected 4")
}

func TestOllamaEmbedder_RateLimitHonorsContext(t *testing.T) {
	var calls atomic.Int32
	srv := ollamaServer(t, 2, &calls)
	e := NewOllamaEmbedder(OllamaConfig{BaseURL: srv.URL, RequestsPerSecond: 0.01})

	_, err := e.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = e.Embed(ctx, "second")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
