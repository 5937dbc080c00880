package keyword

import (
	"sort"
	"strings"
)

// Suggestion is a dictionary term close to a misspelled query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	MisspelledTerms []string
	HasCorrections  bool
}

// SpellChecker suggests indexed terms for query terms the index does not contain.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	terms   []string
	termSet map[string]struct{}
	loaded  bool
}

// SpellCheckerOption configures a SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict. Not safe for concurrent use.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpellChecker) load() error {
	if s.loaded {
		return nil
	}
	terms, err := s.dictionary.Terms()
	if err != nil {
		return err
	}
	s.terms = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	s.loaded = true
	return nil
}

// Check replaces every unknown query term with its best suggestion, when there is one.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	result := &SpellCheckResult{OriginalQuery: query}
	terms := tokenizeQuery(query)
	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := s.termSet[term]; ok {
			corrected = append(corrected, term)
			continue
		}
		sugg := s.suggest(term)
		if len(sugg) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, sugg...)
		corrected = append(corrected, sugg[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns the closest dictionary terms for term, best first.
func (s *SpellChecker) Suggest(term string) ([]Suggestion, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.suggest(strings.ToLower(term)), nil
}

func (s *SpellChecker) suggest(term string) []Suggestion {
	var out []Suggestion
	for _, cand := range s.terms {
		if cand == term {
			continue
		}
		diff := len(cand) - len(term)
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		d := EditDistance(term, cand)
		if d > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.TermFrequency(cand)
		if err != nil || freq < s.minFreq {
			continue
		}
		out = append(out, Suggestion{
			Term:      cand,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}
