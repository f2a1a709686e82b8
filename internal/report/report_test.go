package report

import (
	"testing"

	"github.com/opensource-finance/heron/internal/anomaly"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/reconcile"
	"github.com/opensource-finance/heron/internal/timeseries"
)

func TestBuild(t *testing.T) {
	cfg := domain.DefaultScoringConfig()

	in := BuildInput{
		Stability: timeseries.StabilityMetrics{
			Months:                12,
			MeanInflow:            200000,
			StdDevInflow:          30000,
			CV:                    15,
			CVDefined:             true,
			SeasonalityIndex:      40,
			SeasonalityDefined:    true,
			TotalInflow:           2400000,
			TotalOutflow:          1800000,
			NetSurplus:            600000,
			SurplusRatio:          25,
			SurplusRatioDefined:   true,
			AvgMonthlySurplus:     50000,
			AvgDailyExpenses:      5000,
			WorkingCapitalDays:    10,
			WorkingCapitalDefined: true,
		},
		Growth: timeseries.GrowthResult{
			Model:       timeseries.ModelShortWindow,
			RatePercent: 18,
			Defined:     true,
			SpanMonths:  12,
			FirstMonth:  "2023-07",
			LastMonth:   "2024-06",
			FirstValue:  150000,
			LastValue:   250000,
		},
		Reconciliation: reconcile.Result{
			GSTTurnover:      2500000,
			BankCredits:      2400000,
			Base:             2400000,
			VarianceRatio:    4.2,
			RawVarianceRatio: 4.2,
			Status:           reconcile.StatusReconciled,
			Note:             "GST and bank revenue agree within 4.2%",
		},
		Debt:     domain.DebtBreakdown{BaseFloor: 10, CreditComponent: 18.5, SumRaw: 78.3, Final: 78.3},
		Business: domain.BusinessBreakdown{ReturnsFiled: 12, AnnualTurnover: 2500000, Total: 42},
		Scores: domain.CompositeScore{
			CashflowStability: 80,
			BusinessHealth:    42,
			DebtCapacity:      78.3,
			OverallRiskScore:  66.36,
			Components: []domain.ScoreComponent{
				{Name: "cashflow_stability", Raw: 80, Weight: 0.45, Contribution: 36},
				{Name: "business_health", Raw: 42, Weight: 0.35, Contribution: 14.7},
				{Name: "debt_capacity", Raw: 78.3, Weight: 0.20, Contribution: 15.66},
			},
		},
		Anomalies:      anomaly.Result{Scanned: 240, Mean: 10000, StdDev: 2500},
		Recommendation: domain.DecisionRecommendation{Band: domain.BandBorderline},
		Config:         cfg,
	}

	set := Build(in)

	t.Run("EveryMetricCarriesACalculation", func(t *testing.T) {
		for _, rep := range []domain.Report{set.Transactions, set.GST, set.Credit, set.Earnings} {
			if len(rep.Metrics) == 0 {
				t.Errorf("category %s has no metrics", rep.Category)
			}
			for _, m := range rep.Metrics {
				if m.Calculation.Formula == "" {
					t.Errorf("%s/%s: missing formula", rep.Category, m.Name)
				}
				if m.Calculation.Explanation == "" {
					t.Errorf("%s/%s: missing explanation", rep.Category, m.Name)
				}
				if len(m.Calculation.Breakdown) == 0 {
					t.Errorf("%s/%s: missing breakdown", rep.Category, m.Name)
				}
			}
		}
		if set.Anomalies.Calculation.Formula == "" || set.Anomalies.Calculation.Explanation == "" {
			t.Error("anomaly report missing calculation")
		}
	})

	t.Run("OverallCarriesMethodologyAndBreakdowns", func(t *testing.T) {
		o := set.Overall
		if o.ScoreMethodology.Breakdown["w1_cashflow_stability"] != 0.45 {
			t.Errorf("methodology weights: %v", o.ScoreMethodology.Breakdown)
		}
		if o.DebtCapacityBreakdown.SumRaw != 78.3 {
			t.Errorf("debt breakdown not carried: %+v", o.DebtCapacityBreakdown)
		}
		if o.BusinessHealthContributors.ReturnsFiled != 12 {
			t.Errorf("business contributors not carried: %+v", o.BusinessHealthContributors)
		}
		if o.Recommendation.Band != domain.BandBorderline {
			t.Errorf("recommendation not carried: %+v", o.Recommendation)
		}
		if o.Calculation.Breakdown["contribution_cashflow_stability"] != 36 {
			t.Errorf("overall calculation missing contributions: %v", o.Calculation.Breakdown)
		}
	})

	t.Run("ReconciliationSurfacedInGSTReport", func(t *testing.T) {
		var found bool
		for _, m := range set.GST.Metrics {
			if m.Name == "variance_ratio" {
				found = true
				if m.Calculation.Breakdown["gst_turnover"] != 2500000 {
					t.Errorf("variance breakdown: %v", m.Calculation.Breakdown)
				}
			}
		}
		if !found {
			t.Error("gst report missing variance_ratio metric")
		}
	})

	t.Run("CleanAnomalyRunExplained", func(t *testing.T) {
		if set.Anomalies.Count != 0 {
			t.Errorf("count: %d", set.Anomalies.Count)
		}
		if set.Anomalies.Calculation.Explanation == "" {
			t.Error("a clean run still needs an explanation")
		}
	})
}
