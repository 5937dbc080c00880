// Package coordinator keeps a vector index and its metadata store aligned: it embeds text,
// appends vectors and metadata rows together, persists the index and answers searches by
// joining neighbor positions with their rows.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/embedding"
	"github.com/olegasics/VectorScan/internal/keyword"
	"github.com/olegasics/VectorScan/internal/models"
	"github.com/olegasics/VectorScan/internal/storage"
	"github.com/olegasics/VectorScan/internal/vector"
)

// Mode selects where a search reads vectors from.
type Mode string

const (
	// ModeSnapshot reloads the index from its file before searching.
	ModeSnapshot Mode = models.ModeSnapshot
	// ModeLive searches the in-memory index, including unsaved vectors.
	ModeLive Mode = models.ModeLive
	// ModeKeyword runs a lexical search over the metadata rows.
	ModeKeyword Mode = models.ModeKeyword
)

// ParseMode maps a config or request value to a Mode. Empty means snapshot.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSnapshot:
		return ModeSnapshot, nil
	case ModeLive:
		return ModeLive, nil
	case ModeKeyword:
		return ModeKeyword, nil
	default:
		return "", fmt.Errorf("unknown search mode: %s (supported: snapshot, live, keyword)", s)
	}
}

// Options configures a Coordinator.
type Options struct {
	// IndexPath is where Save, Load and snapshot searches read and write the index.
	IndexPath string
	// DefaultMode is used by SearchWithMode when mode is empty.
	DefaultMode Mode
}

// Option configures optional Coordinator dependencies.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator owns an Embedder, a vector Index and a MetadataStore and keeps the invariant
// that position i of the index and row i of the store describe the same item.
//
// Methods are serialized with a mutex so one instance can back an HTTP server; mutations
// are still expected to come from a single writer.
type Coordinator struct {
	mu         sync.Mutex
	opts       Options
	embedder   embedding.Embedder
	index      vector.Index
	store      storage.MetadataStore
	tombstones *vector.Tombstones
	keyword    *keyword.BleveIndex
	logger     *zap.Logger
}

// New creates a Coordinator over already opened components.
func New(opts Options, embedder embedding.Embedder, index vector.Index, store storage.MetadataStore, options ...Option) (*Coordinator, error) {
	if embedder == nil || index == nil || store == nil {
		return nil, errors.New("coordinator: embedder, index and store are required")
	}
	if d := embedder.Dimensions(); d > 0 && d != index.Dimension() {
		return nil, fmt.Errorf("coordinator: embedder dimension %d does not match index dimension %d", d, index.Dimension())
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = ModeSnapshot
	}
	c := &Coordinator{
		opts:       opts,
		embedder:   embedder,
		index:      index,
		store:      store,
		tombstones: vector.NewTombstones(),
		logger:     zap.NewNop(),
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// Config describes the files behind a Coordinator opened with Open.
type Config struct {
	IndexType       string
	Dimension       int
	IndexPath       string
	Compression     vector.Compression
	MetadataBackend string
	MetadataPath    string
	DefaultMode     Mode
}

// Open creates the index and opens the metadata store described by cfg. An existing index
// file is loaded; a missing one yields an empty index, like a missing metadata file.
func Open(cfg Config, embedder embedding.Embedder, options ...Option) (*Coordinator, error) {
	idx, err := vector.NewIndex(cfg.IndexType, cfg.Dimension, vector.WithCompression(cfg.Compression))
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.MetadataBackend, cfg.MetadataPath)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	c, err := New(Options{IndexPath: cfg.IndexPath, DefaultMode: cfg.DefaultMode}, embedder, idx, store, options...)
	if err != nil {
		_ = idx.Close()
		_ = store.Close()
		return nil, err
	}
	if cfg.IndexPath != "" {
		err := c.loadLocked(cfg.IndexPath)
		if errors.Is(err, vector.ErrNotFound) {
			err = c.dropOrphanRowsLocked(context.Background())
		}
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	if err := c.CheckAlignment(); err != nil {
		c.logger.Warn("index and metadata are not aligned", zap.Error(err))
	}
	return c, nil
}

// Close closes the index, the metadata store and any keyword index. The embedder is owned by
// the caller.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropKeyword()
	return errors.Join(c.index.Close(), c.store.Close())
}

// embed runs one batch call and checks that every text got a vector.
func (c *Coordinator) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		c.logger.Warn("embedding failed", zap.Int("texts", len(texts)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	if len(vecs) != len(texts) {
		c.logger.Warn("embedder returned wrong number of vectors",
			zap.Int("texts", len(texts)), zap.Int("vectors", len(vecs)))
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailure, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			c.logger.Warn("embedder returned an empty vector", zap.Int("text", i))
			return nil, fmt.Errorf("%w: empty vector for text %d", ErrEmbeddingFailure, i)
		}
	}
	return vecs, nil
}

func (c *Coordinator) alignmentLocked() error {
	if n, m := c.index.Size(), c.store.Size(); n != m {
		return fmt.Errorf("%w: index has %d vectors, metadata has %d rows", ErrInconsistentIndex, n, m)
	}
	return nil
}

// CheckAlignment reports ErrInconsistentIndex when the index size differs from the number of
// metadata rows.
func (c *Coordinator) CheckAlignment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alignmentLocked()
}

func (c *Coordinator) dropKeyword() {
	if c.keyword != nil {
		_ = c.keyword.Close()
		c.keyword = nil
	}
}

// CurrentSize returns the number of vectors in the index, deleted ones included.
func (c *Coordinator) CurrentSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Size()
}

// Stats summarizes the index and metadata.
func (c *Coordinator) Stats() models.IndexStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	size := c.index.Size()
	dead := c.tombstones.Len()
	return models.IndexStats{
		Size:         size,
		Live:         size - dead,
		Tombstones:   dead,
		MetadataRows: c.store.Size(),
		Dimension:    c.index.Dimension(),
		IndexType:    c.index.Type(),
		IndexPath:    c.opts.IndexPath,
		MetadataPath: c.store.Path(),
		Aligned:      c.alignmentLocked() == nil,
	}
}

// IndexPath returns the configured index path.
func (c *Coordinator) IndexPath() string { return c.opts.IndexPath }

func newBatchID() string { return uuid.NewString() }
