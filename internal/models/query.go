package models

import "fmt"

// SearchQuery represents a search request.
type SearchQuery struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	// Threshold overrides the configured similarity threshold when non-nil.
	Threshold *float64 `json:"threshold,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty; otherwise normalizes limit and offset.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Threshold != nil && (*q.Threshold < 0 || *q.Threshold > 1) {
		return fmt.Errorf("threshold must be in [0,1]")
	}
	return nil
}
