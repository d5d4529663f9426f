package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/realty-search/internal/model"
)

func src(composite float64, trusted bool) model.ScoredSource {
	return model.ScoredSource{CompositeScore: composite, Trusted: trusted}
}

func TestEstimateZeroSources(t *testing.T) {
	// No sources: whatever coverage claims, confidence stays at or below
	// the fixed ceiling.
	assert.Equal(t, 0, Estimate(nil, 0))
	assert.LessOrEqual(t, Estimate(nil, 1.0), 20)
	assert.LessOrEqual(t, Estimate([]model.ScoredSource{}, 0.5), 20)
}

func TestEstimateBlend(t *testing.T) {
	// mean composite 0.9, all trusted, coverage 0.8:
	// 0.5*90 + 0.3*100 + 0.2*80 = 45 + 30 + 16 = 91
	sources := []model.ScoredSource{src(0.9, true), src(0.9, true)}
	assert.Equal(t, 91, Estimate(sources, 0.8))
}

func TestEstimateMixedTrust(t *testing.T) {
	// mean composite (0.8+0.4)/2 = 0.6, trusted fraction 0.5, coverage 0:
	// 0.5*60 + 0.3*50 + 0.2*0 = 30 + 15 = 45
	sources := []model.ScoredSource{src(0.8, true), src(0.4, false)}
	assert.Equal(t, 45, Estimate(sources, 0))
}

func TestEstimateBounds(t *testing.T) {
	perfect := []model.ScoredSource{src(1.0, true)}
	assert.Equal(t, 100, Estimate(perfect, 1.0))

	worthless := []model.ScoredSource{src(0, false)}
	assert.Equal(t, 0, Estimate(worthless, 0))

	// Out-of-range inputs are clamped, not propagated.
	wild := []model.ScoredSource{src(4.2, true)}
	got := Estimate(wild, 3.0)
	assert.GreaterOrEqual(t, got, 0)
	assert.LessOrEqual(t, got, 100)
}

func TestEstimateAddingTrustedSourceNeverDecreases(t *testing.T) {
	base := []model.ScoredSource{src(0.4, false)}
	before := Estimate(base, 0.5)

	// A trusted source scoring above the current mean must not lower
	// confidence.
	after := Estimate(append(base, src(1.0, true)), 0.5)
	assert.GreaterOrEqual(t, after, before)
}

func TestEstimateRemovingLowestUntrustedNeverDecreases(t *testing.T) {
	full := []model.ScoredSource{src(0.9, true), src(0.3, false)}
	before := Estimate(full, 0.7)

	after := Estimate(full[:1], 0.7)
	assert.GreaterOrEqual(t, after, before)
}

func TestEstimateRemovingLowestTrustedCanDecrease(t *testing.T) {
	// The lowest-composite source is also the only trusted one, so dropping
	// it raises the mean but zeroes the trusted fraction.
	full := []model.ScoredSource{src(0.50, false), src(0.46, true)}

	// mean 0.48 -> 24, trusted 1/2 -> 15, coverage 0.
	assert.Equal(t, 39, Estimate(full, 0))

	// mean 0.50 -> 25, trusted 0 -> 0.
	assert.Equal(t, 25, Estimate(full[:1], 0))
}

func TestEstimateCoverageMonotone(t *testing.T) {
	sources := []model.ScoredSource{src(0.7, true), src(0.5, false)}
	low := Estimate(mirror(sources), 0.2)
	high := Estimate(mirror(sources), 0.9)
	assert.Greater(t, high, low)
}

func mirror(s []model.ScoredSource) []model.ScoredSource {
	out := make([]model.ScoredSource, len(s))
	copy(out, s)
	return out
}
