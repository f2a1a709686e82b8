package scoring

import (
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/timeseries"
)

func TestScoreCashflow(t *testing.T) {
	cfg := domain.DefaultScoringConfig()

	stable := timeseries.StabilityMetrics{
		Months:              6,
		CV:                  12,
		CVDefined:           true,
		SurplusRatio:        35,
		SurplusRatioDefined: true,
	}
	growing := timeseries.GrowthResult{Model: timeseries.ModelShortWindow, RatePercent: 20, Defined: true}

	t.Run("StableGrowingBusiness", func(t *testing.T) {
		s := ScoreCashflow(stable, growing, cfg)

		// base 40, CV<=15 -> 30, surplus>30 -> 20, growth>15 -> 10
		if s.CVPoints != 30 || s.SurplusPoints != 20 || s.GrowthPoints != 10 {
			t.Errorf("points: cv=%.1f surplus=%.1f growth=%.1f", s.CVPoints, s.SurplusPoints, s.GrowthPoints)
		}
		if s.Score != 100 {
			t.Errorf("score: got %.2f want 100", s.Score)
		}
		if s.Degraded {
			t.Error("full inputs must not be degraded")
		}
	})

	t.Run("VolatileShrinkingBusiness", func(t *testing.T) {
		m := stable
		m.CV = 120
		m.SurplusRatio = -5
		g := growing
		g.RatePercent = -10

		s := ScoreCashflow(m, g, cfg)

		// base 40, CV overflow -10, negative surplus -15, negative growth -5
		if s.CVPoints != -10 {
			t.Errorf("cv overflow: got %.1f want -10", s.CVPoints)
		}
		if s.SurplusPoints != -15 {
			t.Errorf("negative surplus: got %.1f want -15", s.SurplusPoints)
		}
		if s.GrowthPoints != -5 {
			t.Errorf("negative growth: got %.1f want -5", s.GrowthPoints)
		}
		if s.Score != 10 {
			t.Errorf("score: got %.2f want 10", s.Score)
		}
	})

	t.Run("SingleMonthHeldAtBase", func(t *testing.T) {
		s := ScoreCashflow(timeseries.StabilityMetrics{Months: 1}, timeseries.GrowthResult{}, cfg)

		if !s.Degraded {
			t.Error("single-month history must be degraded")
		}
		if s.Score != cfg.Cashflow.Base {
			t.Errorf("score must hold at base %.1f, got %.2f", cfg.Cashflow.Base, s.Score)
		}
		if len(s.Notes) == 0 {
			t.Error("degradation must be explained in the notes")
		}
	})

	t.Run("UndefinedMetricsSkipTheirTerms", func(t *testing.T) {
		m := timeseries.StabilityMetrics{Months: 4}
		s := ScoreCashflow(m, timeseries.GrowthResult{}, cfg)

		if s.CVPoints != 0 || s.SurplusPoints != 0 || s.GrowthPoints != 0 {
			t.Errorf("undefined metrics must contribute 0: %+v", s)
		}
		if !s.Degraded {
			t.Error("undefined stability metrics must mark the score degraded")
		}
		if s.Score != cfg.Cashflow.Base {
			t.Errorf("score: got %.2f want base %.1f", s.Score, cfg.Cashflow.Base)
		}
	})

	t.Run("ZeroSurplusBottomBucket", func(t *testing.T) {
		m := stable
		m.SurplusRatio = 0
		s := ScoreCashflow(m, growing, cfg)

		// a break-even month still clears the inclusive zero bucket
		if s.SurplusPoints != 4 {
			t.Errorf("zero surplus ratio: got %.1f want 4", s.SurplusPoints)
		}
	})
}
