// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"fmt"
	"time"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Provider names accepted by New.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOllama = "ollama"
)

// Options configures New.
type Options struct {
	Provider   string
	Dimensions int
	// CacheSize > 0 wraps the embedder in an LRU cache.
	CacheSize int

	// ONNX
	ModelPath string
	MaxTokens int

	// Ollama
	OllamaURL         string
	Model             string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// New builds the embedder selected by opts.Provider ("" means hash).
func New(opts Options) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch opts.Provider {
	case "", ProviderHash:
		e = NewHashEmbedder(opts.Dimensions)
	case ProviderONNX:
		if opts.ModelPath == "" {
			return nil, fmt.Errorf("onnx provider requires model_path")
		}
		var onnx *ONNXEmbedder
		onnx, err = NewONNXEmbedder(opts.ModelPath, opts.Dimensions, opts.MaxTokens)
		if err != nil {
			return nil, err
		}
		e = onnx
	case ProviderOllama:
		e = NewOllamaEmbedder(OllamaConfig{
			BaseURL:           opts.OllamaURL,
			Model:             opts.Model,
			Dimensions:        opts.Dimensions,
			RequestsPerSecond: opts.RequestsPerSecond,
			Timeout:           opts.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx, ollama)", opts.Provider)
	}
	if opts.CacheSize > 0 {
		e = NewCachedEmbedder(e, opts.CacheSize)
	}
	return e, nil
}
