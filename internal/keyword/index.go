// Package keyword provides lexical search over metadata rows, the non-semantic
// companion to vector search.
package keyword

import (
	"context"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// ClassBoost multiplies matches in the class name field. Values <= 1 disable it.
	ClassBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default is 2.
	Fuzziness int
}

// Result is a single keyword hit.
type Result struct {
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

// Searcher is the keyword search surface used by the coordinator.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error)
	Close() error
}

// TermDictionary provides access to the indexed terms for spell checking.
type TermDictionary interface {
	Terms() ([]string, error)
	TermFrequency(term string) (int, error)
}

// Field names of an indexed row.
const (
	fieldClassName  = "class_name"
	fieldDocstring  = "docstring"
	fieldAttributes = "attributes"
	fieldMethods    = "methods"
	fieldSource     = "source"
	fieldContent    = "content"
)

var textFields = []string{fieldClassName, fieldDocstring, fieldAttributes, fieldMethods, fieldSource, fieldContent}

func positionID(pos int) string { return strconv.Itoa(pos) }

// sortResults orders by score descending, then position ascending.
func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].Position < rs[j].Position
	})
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so identifiers match exactly.
	for _, f := range textFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		docMapping.AddFieldMappingsAt(f, fm)
	}
	im.AddDocumentMapping("row", docMapping)
	im.DefaultType = "row"
	im.DefaultMapping = docMapping
	return im
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}
