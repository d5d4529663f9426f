// Package scorer computes composite source scores from trust tier, search
// relevance, and publication recency.
package scorer

import (
	"sort"
	"time"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/internal/trust"
)

// Composite weights. Documented policy constants, not tunables.
const (
	weightTrust     = 0.4
	weightRelevance = 0.4
	weightRecency   = 0.2
)

// Scorer derives composite scores using the trust registry.
type Scorer struct {
	registry *trust.Registry
}

// New creates a Scorer backed by the given registry.
func New(registry *trust.Registry) *Scorer {
	return &Scorer{registry: registry}
}

// Score computes trust, recency, and composite scores for one raw result.
// Every factor is clamped to [0,1] before weighting, so the composite is
// always in [0,1].
func (s *Scorer) Score(raw model.RawResult, now time.Time) model.ScoredSource {
	domain := trust.ExtractDomain(raw.URL)
	tier, trusted := s.registry.TierOf(domain)
	trustScore := trust.TrustScore(tier)

	relevance := clamp01(raw.Relevance)
	recency := recencyScore(raw.PublishedAt, now)
	composite := clamp01(weightTrust*trustScore + weightRelevance*relevance + weightRecency*recency)

	src := model.ScoredSource{
		RawResult:      raw,
		Domain:         domain,
		Tier:           tier,
		Trusted:        trusted,
		TrustScore:     trustScore,
		RecencyScore:   recency,
		CompositeScore: composite,
	}
	if trusted {
		src.SourceName = s.registry.DisplayName(domain)
	}
	return src
}

// ScoreAll scores every raw result and returns them sorted descending by
// composite score. Ties break toward higher trust score, then original
// retrieval order (the sort is stable).
func (s *Scorer) ScoreAll(raws []model.RawResult, now time.Time) []model.ScoredSource {
	scored := make([]model.ScoredSource, len(raws))
	for i, raw := range raws {
		scored[i] = s.Score(raw, now)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].CompositeScore != scored[j].CompositeScore {
			return scored[i].CompositeScore > scored[j].CompositeScore
		}
		return scored[i].TrustScore > scored[j].TrustScore
	})
	return scored
}

// SelectTop returns the first n sources of an already-sorted list.
func SelectTop(sources []model.ScoredSource, n int) []model.ScoredSource {
	if n <= 0 || n >= len(sources) {
		return sources
	}
	return sources[:n]
}

// recencyScore brackets content age in whole elapsed days:
// ≤1d → 1.0, ≤7d → 0.8, ≤30d → 0.6, ≤365d → 0.4, older or unknown → 0.2.
func recencyScore(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil {
		return 0.2
	}
	age := now.Sub(*publishedAt)
	if age < 0 {
		return 1.0
	}
	days := int(age.Hours() / 24)
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.8
	case days <= 30:
		return 0.6
	case days <= 365:
		return 0.4
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
