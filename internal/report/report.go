// Package report renders the per-category assessment reports. Every metric
// carries a calculation object: the formula, the named inputs, and a plain
// interpretation, so a reviewer can audit any number without the source data.
package report

import (
	"fmt"

	"github.com/opensource-finance/heron/internal/anomaly"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/reconcile"
	"github.com/opensource-finance/heron/internal/scoring"
	"github.com/opensource-finance/heron/internal/timeseries"
)

// BuildInput carries every computed artifact of one assessment run.
type BuildInput struct {
	Stability      timeseries.StabilityMetrics
	Growth         timeseries.GrowthResult
	Reconciliation reconcile.Result
	Cashflow       scoring.CashflowScore
	Debt           domain.DebtBreakdown
	Business       domain.BusinessBreakdown
	Scores         domain.CompositeScore
	Anomalies      anomaly.Result
	Recommendation domain.DecisionRecommendation
	Config         *domain.ScoringConfig
}

// Build assembles the complete report set.
func Build(in BuildInput) domain.ReportSet {
	return domain.ReportSet{
		Overall:      overall(in),
		Transactions: transactions(in.Stability, in.Growth),
		GST:          gst(in.Business, in.Reconciliation),
		Credit:       credit(in.Debt),
		Earnings:     earnings(in.Stability),
		Anomalies:    anomalies(in.Anomalies, in.Config),
	}
}

func overall(in BuildInput) domain.OverallReport {
	w := in.Config.Weights

	methodology := domain.Calculation{
		Formula: "overall = cashflow_stability*w1 + business_health*w2 + debt_capacity*w3",
		Breakdown: map[string]float64{
			"w1_cashflow_stability": w.CashflowStability,
			"w2_business_health":    w.BusinessHealth,
			"w3_debt_capacity":      w.DebtCapacity,
		},
		Explanation: fmt.Sprintf("fixed weights %.2f/%.2f/%.2f from scoring config %s; weights sum to 1.0",
			w.CashflowStability, w.BusinessHealth, w.DebtCapacity, in.Config.Version),
	}

	calc := domain.Calculation{
		Formula: "overall = sum(component_raw * component_weight)",
		Breakdown: map[string]float64{
			"cashflow_stability": in.Scores.CashflowStability,
			"business_health":    in.Scores.BusinessHealth,
			"debt_capacity":      in.Scores.DebtCapacity,
			"overall_risk_score": in.Scores.OverallRiskScore,
		},
		Explanation: fmt.Sprintf("overall risk score %.1f maps to the %s band",
			in.Scores.OverallRiskScore, in.Recommendation.Band),
	}
	for _, c := range in.Scores.Components {
		calc.Breakdown["contribution_"+c.Name] = c.Contribution
	}

	return domain.OverallReport{
		Scores:                     in.Scores,
		DebtCapacityBreakdown:      in.Debt,
		BusinessHealthContributors: in.Business,
		ScoreMethodology:           methodology,
		Recommendation:             in.Recommendation,
		Calculation:                calc,
	}
}

func transactions(st timeseries.StabilityMetrics, g timeseries.GrowthResult) domain.Report {
	r := domain.Report{Category: "transactions"}

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "total_inflow",
		Value: st.TotalInflow,
		Unit:  "INR",
		Calculation: domain.Calculation{
			Formula:     "sum(credit amounts) across all monthly buckets",
			Breakdown:   map[string]float64{"months_observed": float64(st.Months), "total_inflow": st.TotalInflow},
			Explanation: fmt.Sprintf("total money received across %d observed months", st.Months),
		},
	})

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "total_outflow",
		Value: st.TotalOutflow,
		Unit:  "INR",
		Calculation: domain.Calculation{
			Formula:     "sum(debit amounts) across all monthly buckets",
			Breakdown:   map[string]float64{"months_observed": float64(st.Months), "total_outflow": st.TotalOutflow},
			Explanation: fmt.Sprintf("total money spent across %d observed months", st.Months),
		},
	})

	cvCalc := domain.Calculation{
		Formula:   "cv = std(monthly inflow) / mean(monthly inflow) * 100",
		Breakdown: map[string]float64{"mean_inflow": st.MeanInflow, "std_inflow": st.StdDevInflow},
	}
	if st.CVDefined {
		cvCalc.Explanation = interpretCV(st.CV)
	} else {
		cvCalc.Explanation = "undefined: fewer than two months of data or zero mean inflow; volatility not assessed"
		r.Notes = append(r.Notes, "coefficient of variation undefined for this dataset")
	}
	r.Metrics = append(r.Metrics, domain.Metric{Name: "coefficient_of_variation", Value: st.CV, Unit: "%", Calculation: cvCalc})

	seasCalc := domain.Calculation{
		Formula:   "seasonality = (max(monthly inflow) - min(monthly inflow)) / mean(monthly inflow) * 100",
		Breakdown: map[string]float64{"mean_inflow": st.MeanInflow},
	}
	if st.SeasonalityDefined {
		seasCalc.Explanation = fmt.Sprintf("monthly inflows swing %.1f%% of the mean between the best and worst month", st.SeasonalityIndex)
	} else {
		seasCalc.Explanation = "undefined: insufficient history to measure seasonal swing"
	}
	r.Metrics = append(r.Metrics, domain.Metric{Name: "seasonality_index", Value: st.SeasonalityIndex, Unit: "%", Calculation: seasCalc})

	growthCalc := domain.Calculation{
		Formula: growthFormula(g),
		Breakdown: map[string]float64{
			"span_months": float64(g.SpanMonths),
			"first_value": g.FirstValue,
			"last_value":  g.LastValue,
		},
	}
	if g.Defined {
		growthCalc.Explanation = fmt.Sprintf("%s model over %d months (%s to %s): %.1f%% growth",
			g.Model, g.SpanMonths, g.FirstMonth, g.LastMonth, g.RatePercent)
	} else {
		growthCalc.Explanation = "undefined: " + g.Note
	}
	r.Metrics = append(r.Metrics, domain.Metric{Name: "growth_rate", Value: g.RatePercent, Unit: "%", Calculation: growthCalc})

	return r
}

func growthFormula(g timeseries.GrowthResult) string {
	switch g.Model {
	case timeseries.ModelCAGR:
		return "cagr = (last_value / first_value)^(12 / span_months) - 1, as percent"
	case timeseries.ModelShortWindow:
		return "growth = (avg(last 3 months) - avg(first 3 months)) / avg(first 3 months) * 100"
	default:
		return "no growth model applicable"
	}
}

func interpretCV(cv float64) string {
	switch {
	case cv <= 15:
		return fmt.Sprintf("CV %.1f%%: very stable month-to-month inflows", cv)
	case cv <= 30:
		return fmt.Sprintf("CV %.1f%%: stable inflows with modest variation", cv)
	case cv <= 75:
		return fmt.Sprintf("CV %.1f%%: noticeable month-to-month volatility", cv)
	default:
		return fmt.Sprintf("CV %.1f%%: highly volatile inflows", cv)
	}
}

func gst(b domain.BusinessBreakdown, rec reconcile.Result) domain.Report {
	r := domain.Report{Category: "gst"}

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "returns_filed",
		Value: float64(b.ReturnsFiled),
		Calculation: domain.Calculation{
			Formula:     "count(GST returns on record)",
			Breakdown:   map[string]float64{"returns_filed": float64(b.ReturnsFiled)},
			Explanation: fmt.Sprintf("%d GST returns on record", b.ReturnsFiled),
		},
	})

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "annual_turnover",
		Value: b.AnnualTurnover,
		Unit:  "INR",
		Calculation: domain.Calculation{
			Formula:     "sum(turnover) over the latest 12 distinct filing periods",
			Breakdown:   map[string]float64{"annual_turnover": b.AnnualTurnover},
			Explanation: fmt.Sprintf("trailing-year declared turnover of %.2f", b.AnnualTurnover),
		},
	})

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "variance_ratio",
		Value: rec.VarianceRatio,
		Unit:  "%",
		Calculation: domain.Calculation{
			Formula: "|gst_turnover - bank_credits| / min(gst_turnover, bank_credits) * 100, capped at 100 for display",
			Breakdown: map[string]float64{
				"gst_turnover":       rec.GSTTurnover,
				"bank_credits":       rec.BankCredits,
				"base":               rec.Base,
				"raw_variance_ratio": rec.RawVarianceRatio,
			},
			Explanation: rec.Note,
		},
	})
	r.Notes = append(r.Notes, "reconciliation status: "+rec.Status)

	return r
}

func credit(d domain.DebtBreakdown) domain.Report {
	r := domain.Report{Category: "credit"}

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "debt_capacity",
		Value: d.Final,
		Calculation: domain.Calculation{
			Formula: "clamp(base_floor + credit + repayment + dti + ocen + insurance + regularity, 0, 100)",
			Breakdown: map[string]float64{
				"base_floor":          d.BaseFloor,
				"credit_component":    d.CreditComponent,
				"repayment_bonus":     d.RepaymentBonus,
				"dti_component":       d.DTIComponent,
				"ocen_component":      d.OCENComponent,
				"insurance_component": d.InsuranceComponent,
				"regularity_bonus":    d.RegularityBonus,
				"sum_raw":             d.SumRaw,
			},
			Explanation: fmt.Sprintf("additive breakdown sums to %.2f before the [0,100] clamp", d.SumRaw),
		},
	})
	r.Notes = append(r.Notes, d.Notes...)

	return r
}

func earnings(st timeseries.StabilityMetrics) domain.Report {
	r := domain.Report{Category: "earnings"}

	r.Metrics = append(r.Metrics, domain.Metric{
		Name:  "net_surplus",
		Value: st.NetSurplus,
		Unit:  "INR",
		Calculation: domain.Calculation{
			Formula:     "total_inflow - total_outflow",
			Breakdown:   map[string]float64{"total_inflow": st.TotalInflow, "total_outflow": st.TotalOutflow},
			Explanation: interpretSurplus(st.NetSurplus),
		},
	})

	ratioCalc := domain.Calculation{
		Formula:   "surplus_ratio = net_surplus / total_inflow * 100",
		Breakdown: map[string]float64{"net_surplus": st.NetSurplus, "total_inflow": st.TotalInflow},
	}
	if st.SurplusRatioDefined {
		ratioCalc.Explanation = fmt.Sprintf("the borrower retains %.1f%% of inflows after expenses", st.SurplusRatio)
	} else {
		ratioCalc.Explanation = "undefined: no inflows observed"
	}
	r.Metrics = append(r.Metrics, domain.Metric{Name: "surplus_ratio", Value: st.SurplusRatio, Unit: "%", Calculation: ratioCalc})

	wcCalc := domain.Calculation{
		Formula: "working_capital_days = avg_monthly_surplus / avg_daily_expenses",
		Breakdown: map[string]float64{
			"avg_monthly_surplus": st.AvgMonthlySurplus,
			"avg_daily_expenses":  st.AvgDailyExpenses,
		},
	}
	if st.WorkingCapitalDefined {
		wcCalc.Explanation = fmt.Sprintf("the average monthly surplus covers %.1f days of typical expenses", st.WorkingCapitalDays)
	} else {
		wcCalc.Explanation = "undefined: no observed expenses to measure against"
	}
	r.Metrics = append(r.Metrics, domain.Metric{Name: "working_capital_days", Value: st.WorkingCapitalDays, Unit: "days", Calculation: wcCalc})

	return r
}

func interpretSurplus(surplus float64) string {
	if surplus >= 0 {
		return fmt.Sprintf("the borrower kept %.2f more than they spent over the observed period", surplus)
	}
	return fmt.Sprintf("the borrower spent %.2f more than they received over the observed period", -surplus)
}

func anomalies(a anomaly.Result, cfg *domain.ScoringConfig) domain.AnomalyReport {
	r := domain.AnomalyReport{
		Category: "anomalies",
		Count:    len(a.Records),
		Records:  a.Records,
		Calculation: domain.Calculation{
			Formula: "flag transactions where |amount - mean| / std >= z_threshold",
			Breakdown: map[string]float64{
				"transactions_scanned": float64(a.Scanned),
				"mean_amount":          a.Mean,
				"std_amount":           a.StdDev,
				"z_threshold":          cfg.Anomaly.ZThreshold,
			},
		},
	}

	switch {
	case a.Skipped:
		r.Calculation.Explanation = "detection skipped: " + a.SkipReason
		r.Notes = append(r.Notes, a.SkipReason)
	case r.Count == 0:
		r.Calculation.Explanation = fmt.Sprintf("no transaction deviated %.1f or more standard deviations from the mean", cfg.Anomaly.ZThreshold)
	default:
		r.Calculation.Explanation = fmt.Sprintf("%d of %d transactions deviated %.1f+ standard deviations from the mean (%d critical)",
			r.Count, a.Scanned, cfg.Anomaly.ZThreshold, a.CriticalCount())
	}

	return r
}
