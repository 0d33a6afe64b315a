package models

// Search response modes. ModeSemantic means results are ordered by cosine
// similarity; ModeKeywordFallback means the query embedding could not be
// obtained and the default keyword ranking was used instead.
const (
	ModeSemantic        = "semantic"
	ModeKeywordFallback = "keyword_fallback"
)

// SearchResult represents a single search hit.
type SearchResult struct {
	Item  *Item   `json:"item"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SearchResponse is the response for a search request.
//
// NoMatches distinguishes "the semantic ranking ran and nothing cleared the
// threshold" from the fallback mode: a NoMatches response must be rendered as
// a definite empty state, never replaced with default ordering.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	Query     string          `json:"query"`
	QueryTime int64           `json:"query_time_ms"`
	Mode      string          `json:"mode"`
	NoMatches bool            `json:"no_matches,omitempty"`
}
