package models

import (
	"fmt"
	"strings"
)

// Search modes.
const (
	ModeSnapshot = "snapshot"
	ModeLive     = "live"
	ModeKeyword  = "keyword"
)

const maxK = 1000

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// Validate checks the query and fills in defaults.
// defaultK is used when K is unset; K is capped at 1000.
func (q *SearchQuery) Validate(defaultK int) error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.K < 0 {
		return fmt.Errorf("k must not be negative: %d", q.K)
	}
	if q.K == 0 {
		q.K = defaultK
	}
	if q.K > maxK {
		q.K = maxK
	}
	switch strings.ToLower(q.Mode) {
	case "":
		q.Mode = ModeSnapshot
	case ModeSnapshot, ModeLive, ModeKeyword:
		q.Mode = strings.ToLower(q.Mode)
	default:
		return fmt.Errorf("unknown search mode: %s (supported: snapshot, live, keyword)", q.Mode)
	}
	return nil
}
