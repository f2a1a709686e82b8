// Package scoring turns per-source aggregates into the bounded sub-scores
// and the weighted composite risk score. Every scorer takes the explicit
// ScoringConfig; nothing reads thresholds from globals.
package scoring

import (
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/timeseries"
)

// CashflowScore is the cashflow-stability sub-score and its additive parts.
type CashflowScore struct {
	Score float64 `json:"score"`

	Base          float64 `json:"base"`
	CVPoints      float64 `json:"cvPoints"`
	SurplusPoints float64 `json:"surplusPoints"`
	GrowthPoints  float64 `json:"growthPoints"`

	// Degraded marks a score computed from insufficient history; the notes
	// explain what was missing.
	Degraded bool     `json:"degraded"`
	Notes    []string `json:"notes,omitempty"`
}

// ScoreCashflow derives the cashflow-stability sub-score from volatility,
// surplus, and growth via the config's bucket tables. Result is clamped to
// [0,100].
func ScoreCashflow(stability timeseries.StabilityMetrics, growth timeseries.GrowthResult, cfg *domain.ScoringConfig) CashflowScore {
	cc := cfg.Cashflow
	s := CashflowScore{Base: cc.Base}

	if stability.Months < 2 {
		s.Degraded = true
		s.Notes = append(s.Notes, fmt.Sprintf("insufficient monthly history (%d months); score held at base with degraded confidence", stability.Months))
		s.Score = clamp(cc.Base, 0, 100)
		return s
	}

	if stability.CVDefined {
		s.CVPoints = cc.CVOverflowPoints
		for _, b := range cc.CVBuckets {
			if stability.CV <= b.Max {
				s.CVPoints = b.Points
				break
			}
		}
	} else {
		s.Degraded = true
		s.Notes = append(s.Notes, "coefficient of variation undefined (zero mean inflow); volatility not scored")
	}

	if stability.SurplusRatioDefined {
		s.SurplusPoints = lowerBucketPoints(stability.SurplusRatio, cc.SurplusBuckets, true)
		if stability.SurplusRatio < 0 {
			s.SurplusPoints = cc.NegativeSurplusPoints
		}
	} else {
		s.Degraded = true
		s.Notes = append(s.Notes, "surplus ratio undefined (zero inflow); surplus not scored")
	}

	if growth.Defined {
		if growth.RatePercent < 0 {
			s.GrowthPoints = cc.NegativeGrowthPoints
		} else {
			s.GrowthPoints = lowerBucketPoints(growth.RatePercent, cc.GrowthBuckets, true)
		}
	} else {
		s.Notes = append(s.Notes, "growth rate undefined; growth not scored")
	}

	s.Score = clamp(cc.Base+s.CVPoints+s.SurplusPoints+s.GrowthPoints, 0, 100)
	return s
}

// lowerBucketPoints walks a descending lower-bound table and returns the
// points of the first bucket the value clears. inclusiveZero treats a value
// equal to a zero lower bound as a match.
func lowerBucketPoints(value float64, buckets []domain.LowerBucket, inclusiveZero bool) float64 {
	for _, b := range buckets {
		if value > b.Min || (inclusiveZero && b.Min == 0 && value == 0) {
			return b.Points
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
