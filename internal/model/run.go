package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusChecking   RunStatus = "checking"
	RunStatusRetrieving RunStatus = "retrieving"
	RunStatusGenerating RunStatus = "generating"
	RunStatusComplete   RunStatus = "complete"
	RunStatusRejected   RunStatus = "rejected"
	RunStatusClarify    RunStatus = "clarify"
	RunStatusFailed     RunStatus = "failed"
)

// Run represents a single pipeline invocation in the run history.
type Run struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Confidence   int        `json:"confidence"`
	SourceCount  int        `json:"source_count"`
	TrustedCount int        `json:"trusted_count"`
	Category     Category   `json:"category"`
	CacheHit     bool       `json:"cache_hit"`
	TokenUsage   TokenUsage `json:"token_usage"`
	TotalCost    float64    `json:"total_cost"`
	DurationMS   int64      `json:"duration_ms"`
	Error        string     `json:"error,omitempty"`
}

// TokenUsage accumulates LLM token counts and attributed cost across calls.
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	Cost                float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.Cost += other.Cost
}
