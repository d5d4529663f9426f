package model

import "time"

// RawResult is a single web search hit before scoring.
type RawResult struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Snippet     string     `json:"snippet"`
	Relevance   float64    `json:"relevance"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ScoredSource is a retrieval hit with trust, recency, and composite scores
// attached. Slices of ScoredSource are always ordered by CompositeScore
// descending (ties broken by TrustScore, then retrieval order).
type ScoredSource struct {
	RawResult
	Domain         string  `json:"domain"`
	SourceName     string  `json:"source_name,omitempty"`
	Tier           int     `json:"tier"` // 1..3; 0 means unknown
	Trusted        bool    `json:"trusted"`
	TrustScore     float64 `json:"trust_score"`
	RecencyScore   float64 `json:"recency_score"`
	CompositeScore float64 `json:"composite_score"`
}

// Category buckets a query for cache lifecycle purposes.
type Category string

const (
	CategoryMarketData       Category = "market_data"
	CategoryGeneralKnowledge Category = "general_knowledge"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryMarketData || c == CategoryGeneralKnowledge
}
