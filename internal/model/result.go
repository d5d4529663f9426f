package model

import "time"

// QueryPlan is the deterministic intent-routing output for a query.
type QueryPlan struct {
	Intents   []string      `json:"intents"`
	Location  PlanLocation  `json:"location"`
	Timeframe PlanTimeframe `json:"timeframe"`
	Widgets   []string      `json:"widgets"`
	Notes     string        `json:"notes,omitempty"`
}

// PlanLocation is the geographic scope detected in a query.
type PlanLocation struct {
	State string `json:"state,omitempty"`
	City  string `json:"city,omitempty"`
}

// PlanTimeframe is the temporal scope detected in a query.
type PlanTimeframe struct {
	Year    int    `json:"year,omitempty"`
	Horizon string `json:"horizon,omitempty"` // current, historical, forecast
}

// PipelineResult is the complete outcome of one pipeline run. It is also
// the value serialized into the cache, keyed by the canonical query key.
type PipelineResult struct {
	Query      string         `json:"query"`
	Answer     string         `json:"answer"`
	Sources    []ScoredSource `json:"sources"`
	KPIs       *MarketKPIs    `json:"kpis,omitempty"`
	Trends     []TrendMetric  `json:"trends,omitempty"`
	Comps      []CompListing  `json:"comps,omitempty"`
	Confidence int            `json:"confidence"`
	Category   Category       `json:"category"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TrustedCount returns the number of registry-trusted sources in the result.
func (r *PipelineResult) TrustedCount() int {
	n := 0
	for _, s := range r.Sources {
		if s.Trusted {
			n++
		}
	}
	return n
}
