// Package confidence derives a 0-100 answer confidence score from scored
// sources and structured-extraction coverage.
package confidence

import (
	"math"

	"github.com/sells-group/realty-search/internal/model"
)

// Blend weights. Coverage is the fraction of expected structured fields
// that extraction populated.
const (
	weightComposite = 0.5
	weightTrusted   = 0.3
	weightCoverage  = 0.2

	// zeroSourceCeiling caps confidence when no sources support the
	// answer, whatever the other terms claim.
	zeroSourceCeiling = 20
)

// Estimate blends mean composite score, trusted-source fraction, and
// extraction coverage into an integer confidence. Each sub-term is scaled
// to 0-100 before weighting.
//
// The score is not monotone under source removal: dropping the
// lowest-composite source raises the mean, but when that source is the
// only trusted one the trusted fraction falls to zero and the score can
// drop with it.
func Estimate(sources []model.ScoredSource, coverage float64) int {
	coverage = clamp01(coverage)

	var meanComposite, trustedFrac float64
	if len(sources) > 0 {
		sum := 0.0
		trusted := 0
		for _, s := range sources {
			sum += clamp01(s.CompositeScore)
			if s.Trusted {
				trusted++
			}
		}
		meanComposite = sum / float64(len(sources))
		trustedFrac = float64(trusted) / float64(len(sources))
	}

	raw := weightComposite*meanComposite*100 +
		weightTrusted*trustedFrac*100 +
		weightCoverage*coverage*100

	score := int(math.Round(raw))
	if len(sources) == 0 && score > zeroSourceCeiling {
		score = zeroSourceCeiling
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
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
