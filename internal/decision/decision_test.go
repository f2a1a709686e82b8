package decision

import (
	"strings"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/reconcile"
)

func scores(overall float64) domain.CompositeScore {
	return domain.CompositeScore{
		CashflowStability: 70,
		BusinessHealth:    65,
		DebtCapacity:      55,
		OverallRiskScore:  overall,
		Components: []domain.ScoreComponent{
			{Name: "cashflow_stability", Raw: 70, Weight: 0.45, Contribution: 31.5},
			{Name: "business_health", Raw: 65, Weight: 0.35, Contribution: 22.75},
			{Name: "debt_capacity", Raw: 55, Weight: 0.20, Contribution: 11},
		},
	}
}

func TestDecide(t *testing.T) {
	t.Run("IndicatorsSplitByPolarity", func(t *testing.T) {
		rec := Decide(Input{
			Scores: scores(65.25),
			Band:   domain.BandBorderline,
			Indicators: []domain.IndicatorResult{
				{IndicatorID: "a", Polarity: domain.PolarityPositive, Triggered: true, Message: "Net monthly surplus is positive", Order: 10},
				{IndicatorID: "b", Polarity: domain.PolarityPositive, Triggered: false, Message: "never shown", Order: 20},
				{IndicatorID: "c", Polarity: domain.PolarityNegative, Triggered: true, Message: "Monthly inflows are highly volatile", Flag: domain.FlagVolatileCashflow, Order: 130},
				{IndicatorID: "d", Polarity: domain.PolarityNegative, Triggered: true, Message: "errored", Err: "evaluation error", Order: 140},
			},
		})

		if len(rec.Positive) != 1 || rec.Positive[0] != "Net monthly surplus is positive" {
			t.Errorf("positive list: %v", rec.Positive)
		}
		if len(rec.Negative) != 1 {
			t.Errorf("untriggered and errored indicators must not be listed: %v", rec.Negative)
		}
	})

	t.Run("BorderlineTerms", func(t *testing.T) {
		rec := Decide(Input{
			Scores: scores(65.25),
			Band:   domain.BandBorderline,
			Indicators: []domain.IndicatorResult{
				{Polarity: domain.PolarityNegative, Triggered: true, Message: "DTI critical", Flag: domain.FlagDTIHigh},
			},
		})

		if rec.Terms == nil {
			t.Fatal("borderline band must carry suggested terms")
		}
		if rec.Terms.AmountFactor != 0.75 || rec.Terms.RateAdjustmentBps != 150 {
			t.Errorf("borderline baseline: %+v", rec.Terms)
		}
		if !rec.Terms.GuarantorRequired {
			t.Error("dti_high flag must require a guarantor")
		}
		if len(rec.Terms.Conditions) == 0 {
			t.Error("dti_high must attach a named condition")
		}
	})

	t.Run("MediumTermsStackAdjustments", func(t *testing.T) {
		rec := Decide(Input{
			Scores: scores(45),
			Band:   domain.BandMediumRisk,
			Indicators: []domain.IndicatorResult{
				{Polarity: domain.PolarityNegative, Triggered: true, Message: "spend exceeds income", Flag: domain.FlagNegativeSurplus},
				{Polarity: domain.PolarityNegative, Triggered: true, Message: "bounces", Flag: domain.FlagBounces},
			},
		})

		if rec.Terms == nil {
			t.Fatal("medium band must carry suggested terms")
		}
		if rec.Terms.AmountFactor != 0.50 {
			t.Errorf("medium amount factor: %.2f", rec.Terms.AmountFactor)
		}
		// 300 base + 100 negative surplus + 50 bounces
		if rec.Terms.RateAdjustmentBps != 450 {
			t.Errorf("stacked rate adjustment: got %d want 450", rec.Terms.RateAdjustmentBps)
		}
		if len(rec.Terms.Conditions) != 2 {
			t.Errorf("conditions: %v", rec.Terms.Conditions)
		}
	})

	t.Run("ClearBandsGetNoTerms", func(t *testing.T) {
		for _, band := range []string{domain.BandVeryLowRisk, domain.BandLowRisk, domain.BandHighRisk} {
			rec := Decide(Input{Scores: scores(20), Band: band})
			if rec.Terms != nil {
				t.Errorf("band %q must not carry terms: %+v", band, rec.Terms)
			}
		}
	})

	t.Run("AnomalyCountInMessageAndRationale", func(t *testing.T) {
		rec := Decide(Input{
			Scores:        scores(45),
			Band:          domain.BandMediumRisk,
			AnomalyCount:  4,
			CriticalCount: 1,
			Indicators: []domain.IndicatorResult{
				{Polarity: domain.PolarityNegative, Triggered: true, Message: "anomalies", Flag: domain.FlagAnomalies},
			},
			Reconciliation: reconcile.Result{Status: reconcile.StatusHighMismatch, VarianceRatio: 100},
		})

		if len(rec.Negative) != 1 || !strings.Contains(rec.Negative[0], "4 statistically extreme") {
			t.Errorf("anomaly message must carry the count: %v", rec.Negative)
		}
		if !strings.Contains(rec.Negative[0], "1 critical") {
			t.Errorf("critical count missing: %v", rec.Negative)
		}
		if !strings.Contains(rec.Rationale, "4 anomalous transactions") {
			t.Errorf("rationale missing anomaly mention: %s", rec.Rationale)
		}
		if !strings.Contains(rec.Rationale, "diverges 100.0%") {
			t.Errorf("rationale missing reconciliation mention: %s", rec.Rationale)
		}
	})

	t.Run("RationaleNamesBandAndWeights", func(t *testing.T) {
		rec := Decide(Input{Scores: scores(65.25), Band: domain.BandBorderline})
		if !strings.Contains(rec.Rationale, domain.BandBorderline) {
			t.Errorf("rationale must name the band: %s", rec.Rationale)
		}
		if !strings.Contains(rec.Rationale, "0.45") {
			t.Errorf("rationale must surface the weights: %s", rec.Rationale)
		}
	})
}
