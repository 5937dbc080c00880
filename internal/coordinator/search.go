package coordinator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/keyword"
	"github.com/olegasics/VectorScan/internal/models"
	"github.com/olegasics/VectorScan/internal/storage"
)

// Search reloads the index from indexPath and returns the metadata rows of the k nearest
// neighbors of query, nearest first.
func (c *Coordinator) Search(ctx context.Context, query string, k int, indexPath string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(indexPath); err != nil {
		return nil, err
	}
	hits, err := c.searchLocked(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return records(hits), nil
}

// SearchWithMode is Search against the configured index path in snapshot mode, or against
// in-memory state in live mode. An empty mode uses the configured default.
func (c *Coordinator) SearchWithMode(ctx context.Context, query string, k int, mode Mode) ([]string, error) {
	hits, err := c.SearchHits(ctx, query, k, mode)
	if err != nil {
		return nil, err
	}
	return records(hits), nil
}

// SearchHits returns neighbors with their positions, distances and rows.
func (c *Coordinator) SearchHits(ctx context.Context, query string, k int, mode Mode) ([]models.SearchHit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == "" {
		mode = c.opts.DefaultMode
	}
	switch mode {
	case ModeSnapshot:
		if c.opts.IndexPath == "" {
			return nil, ErrNoIndexPath
		}
		if err := c.loadLocked(c.opts.IndexPath); err != nil {
			return nil, err
		}
		return c.searchLocked(ctx, query, k)
	case ModeLive:
		return c.searchLocked(ctx, query, k)
	case ModeKeyword:
		return c.keywordLocked(ctx, query, k)
	default:
		return nil, fmt.Errorf("unknown search mode: %s", mode)
	}
}

func (c *Coordinator) searchLocked(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	if k <= 0 || c.index.Size() == 0 {
		return []models.SearchHit{}, nil
	}
	vecs, err := c.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	neighbors, err := c.index.SearchFiltered(ctx, vecs[0], k, c.tombstones.Filter())
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		hit, err := c.joinLocked(ctx, n.Position)
		if err != nil {
			return nil, err
		}
		hit.Distance = n.Distance
		hits = append(hits, hit)
	}
	if ce := c.logger.Check(zap.DebugLevel, "search"); ce != nil {
		positions := make([]int, len(hits))
		distances := make([]float32, len(hits))
		for i, h := range hits {
			positions[i] = h.Position
			distances[i] = h.Distance
		}
		ce.Write(zap.String("query", query), zap.Int("k", k),
			zap.Ints("positions", positions), zap.Float32s("distances", distances))
	}
	return hits, nil
}

func (c *Coordinator) joinLocked(ctx context.Context, pos int) (models.SearchHit, error) {
	row, err := c.store.Get(ctx, pos)
	if err != nil {
		if errors.Is(err, storage.ErrIndexOutOfRange) {
			return models.SearchHit{}, fmt.Errorf("%w: position %d has no metadata row: %w", ErrInconsistentIndex, pos, err)
		}
		return models.SearchHit{}, fmt.Errorf("read metadata %d: %w", pos, err)
	}
	hit := models.SearchHit{Position: pos, Record: row}
	if rec, ok := models.DecodeRecord(row); ok {
		hit.Parsed = &rec
	}
	return hit, nil
}

// keywordIndexLocked returns the Bleve index over live rows, building it on first use.
// Every mutation drops it.
func (c *Coordinator) keywordIndexLocked(ctx context.Context) (*keyword.BleveIndex, error) {
	if c.keyword != nil {
		return c.keyword, nil
	}
	rows, err := c.store.All(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := keyword.Build(ctx, rows, c.tombstones.Filter())
	if err != nil {
		return nil, err
	}
	c.keyword = idx
	return idx, nil
}

// keywordLocked searches metadata rows lexically.
func (c *Coordinator) keywordLocked(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	if k <= 0 || c.store.Size() == 0 {
		return []models.SearchHit{}, nil
	}
	kw, err := c.keywordIndexLocked(ctx)
	if err != nil {
		return nil, err
	}
	results, err := kw.Search(ctx, query, k, &keyword.SearchOptions{ClassBoost: 2})
	if err != nil {
		return nil, err
	}
	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		hit, err := c.joinLocked(ctx, r.Position)
		if err != nil {
			return nil, err
		}
		hit.Score = r.Score
		hits = append(hits, hit)
	}
	return hits, nil
}

// Suggest proposes a corrected query built from terms that exist in the metadata rows.
// It returns "" when every term is known or nothing close exists.
func (c *Coordinator) Suggest(ctx context.Context, query string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store.Size() == 0 {
		return "", nil
	}
	kw, err := c.keywordIndexLocked(ctx)
	if err != nil {
		return "", err
	}
	res, err := keyword.NewSpellChecker(kw).Check(query)
	if err != nil {
		return "", err
	}
	if !res.HasCorrections {
		return "", nil
	}
	return res.CorrectedQuery, nil
}

func records(hits []models.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record
	}
	return out
}
