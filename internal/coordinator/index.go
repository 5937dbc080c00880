package coordinator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/models"
)

// IndexTexts embeds texts and stores each text as its own metadata row.
func (c *Coordinator) IndexTexts(ctx context.Context, texts []string) error {
	return c.indexBatch(ctx, texts, texts)
}

// IndexRecord embeds text and stores metadata as the row for the new vector.
func (c *Coordinator) IndexRecord(ctx context.Context, text, metadata string) error {
	return c.indexBatch(ctx, []string{text}, []string{metadata})
}

// IndexRecords embeds each record's text blob and stores the record's JSON as its row.
func (c *Coordinator) IndexRecords(ctx context.Context, records []models.MetadataRecord) error {
	texts := make([]string, len(records))
	rows := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text()
		row, err := r.Encode()
		if err != nil {
			return err
		}
		rows[i] = row
	}
	return c.indexBatch(ctx, texts, rows)
}

// indexBatch appends vectors and rows together. A metadata failure truncates the index
// back so positions stay aligned.
func (c *Coordinator) indexBatch(ctx context.Context, texts, rows []string) error {
	if len(texts) != len(rows) {
		return fmt.Errorf("coordinator: %d texts but %d metadata rows", len(texts), len(rows))
	}
	if len(texts) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	batch := newBatchID()
	if err := c.alignmentLocked(); err != nil {
		return fmt.Errorf("refusing to index: %w", err)
	}
	vecs, err := c.embed(ctx, texts)
	if err != nil {
		return err
	}

	before := c.index.Size()
	if err := c.index.Add(ctx, vecs); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	if err := c.store.Append(ctx, rows...); err != nil {
		if terr := c.index.Truncate(before); terr != nil {
			c.logger.Error("rollback after metadata failure failed",
				zap.String("batch", batch), zap.Int("size", before), zap.Error(terr))
		}
		return fmt.Errorf("append metadata: %w", err)
	}
	c.dropKeyword()
	c.logger.Info("vectors added",
		zap.String("batch", batch),
		zap.Int("count", len(vecs)),
		zap.Int("size", c.index.Size()))
	return nil
}

// AddVectorsOnly embeds texts and appends only their vectors. Callers must follow up with
// AppendMetadata; until then search results past the last row fail with ErrInconsistentIndex.
func (c *Coordinator) AddVectorsOnly(ctx context.Context, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	vecs, err := c.embed(ctx, texts)
	if err != nil {
		return err
	}
	if err := c.index.Add(ctx, vecs); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	c.logger.Info("vectors added without metadata",
		zap.Int("count", len(vecs)),
		zap.Int("size", c.index.Size()),
		zap.Int("metadata_rows", c.store.Size()))
	return nil
}

// AppendMetadata appends rows to the metadata store without touching the index.
func (c *Coordinator) AppendMetadata(ctx context.Context, rows ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Append(ctx, rows...); err != nil {
		return fmt.Errorf("append metadata: %w", err)
	}
	c.dropKeyword()
	return nil
}
