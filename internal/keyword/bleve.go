package keyword

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/olegasics/VectorScan/internal/models"
)

// BleveIndex is an in-memory Bleve index over metadata rows, keyed by position.
// It is rebuilt from the metadata store rather than persisted.
type BleveIndex struct {
	index bleve.Index
	size  int
}

type rowDoc struct {
	ClassName  string `json:"class_name,omitempty"`
	Docstring  string `json:"docstring,omitempty"`
	Attributes string `json:"attributes,omitempty"`
	Methods    string `json:"methods,omitempty"`
	Source     string `json:"source,omitempty"`
	Content    string `json:"content,omitempty"`
}

func toDoc(row string) rowDoc {
	rec, ok := models.DecodeRecord(row)
	if !ok {
		return rowDoc{Content: row}
	}
	return rowDoc{
		ClassName:  rec.ClassName,
		Docstring:  rec.Docstring,
		Attributes: strings.Join(rec.Attributes, " "),
		Methods:    strings.Join(rec.Methods, " "),
		Source:     rec.Source,
	}
}

// Build indexes rows by position. Positions for which skip returns true are left out.
func Build(ctx context.Context, rows []string, skip func(pos int) bool) (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b := &BleveIndex{index: index}

	batch := index.NewBatch()
	for pos, row := range rows {
		if skip != nil && skip(pos) {
			continue
		}
		if err := batch.Index(positionID(pos), toDoc(row)); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index row %d: %w", pos, err)
		}
		b.size++
		if batch.Size() >= 500 {
			if err := b.flush(ctx, batch); err != nil {
				return nil, err
			}
			batch = index.NewBatch()
		}
	}
	if err := b.flush(ctx, batch); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BleveIndex) flush(ctx context.Context, batch *bleve.Batch) error {
	if err := ctx.Err(); err != nil {
		_ = b.index.Close()
		return err
	}
	if batch.Size() == 0 {
		return nil
	}
	if err := b.index.Batch(batch); err != nil {
		_ = b.index.Close()
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

// Search runs the query against every field and returns up to limit positions.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}
	classBoost := 1.0
	fuzzy := false
	fuzziness := 2
	if opts != nil {
		if opts.ClassBoost > 1 {
			classBoost = opts.ClassBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	queries := make([]blevequery.Query, 0, len(textFields))
	for _, field := range textFields {
		var q blevequery.Query
		if fuzzy {
			q = buildFuzzyQuery(query, fuzziness, field)
		} else {
			mq := bleve.NewMatchQuery(query)
			mq.SetField(field)
			q = mq
		}
		if field == fieldClassName && classBoost > 1 {
			if bq, ok := q.(blevequery.BoostableQuery); ok {
				bq.SetBoost(classBoost)
			}
		}
		queries = append(queries, q)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		out = append(out, Result{Position: pos, Score: hit.Score})
	}
	sortResults(out)
	return out, nil
}

// Len returns the number of rows added by Build.
func (b *BleveIndex) Len() int { return b.size }

// DocCount returns the number of indexed rows as reported by Bleve.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Terms returns every distinct term across the text fields.
func (b *BleveIndex) Terms() ([]string, error) {
	seen := make(map[string]struct{})
	terms := make([]string, 0)
	for _, field := range textFields {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				seen[entry.Term] = struct{}{}
				terms = append(terms, entry.Term)
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// TermFrequency returns the number of rows containing term.
func (b *BleveIndex) TermFrequency(term string) (int, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(term))
	req.Size = 0
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
