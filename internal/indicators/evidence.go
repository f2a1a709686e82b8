package indicators

// Evidence is the flat set of sub-scores and supporting facts the checklist
// expressions can reference. Every field maps to one CEL variable; the whole
// set is also exposed as the "evidence" map for forward compatibility with
// custom indicators.
type Evidence struct {
	OverallScore      float64
	CashflowStability float64
	BusinessHealth    float64
	DebtCapacity      float64

	MonthsObserved     int
	CV                 float64
	CVDefined          bool
	SeasonalityIndex   float64
	NetSurplus         float64
	SurplusRatio       float64
	WorkingCapitalDays float64
	GrowthRate         float64
	GrowthDefined      bool

	DTI               float64
	BureauScore       float64
	CreditUtilization float64
	BounceCount       int

	GSTReturnsFiled   int
	GSTComplianceRate float64

	VarianceRatio        float64
	ReconciliationStatus string

	AnomalyCount         int
	CriticalAnomalyCount int

	ProviderCount int

	// Filled in by the engine from the prior-score getter.
	PriorScoreDelta float64
	PriorScoreKnown bool
}

func (ev Evidence) activation() map[string]any {
	m := map[string]any{
		"overall_score":          ev.OverallScore,
		"cashflow_stability":     ev.CashflowStability,
		"business_health":        ev.BusinessHealth,
		"debt_capacity":          ev.DebtCapacity,
		"months_observed":        int64(ev.MonthsObserved),
		"cv":                     ev.CV,
		"cv_defined":             ev.CVDefined,
		"seasonality_index":      ev.SeasonalityIndex,
		"net_surplus":            ev.NetSurplus,
		"surplus_ratio":          ev.SurplusRatio,
		"working_capital_days":   ev.WorkingCapitalDays,
		"growth_rate":            ev.GrowthRate,
		"growth_defined":         ev.GrowthDefined,
		"dti":                    ev.DTI,
		"bureau_score":           ev.BureauScore,
		"credit_utilization":     ev.CreditUtilization,
		"bounce_count":           int64(ev.BounceCount),
		"gst_returns_filed":      int64(ev.GSTReturnsFiled),
		"gst_compliance_rate":    ev.GSTComplianceRate,
		"variance_ratio":         ev.VarianceRatio,
		"reconciliation_status":  ev.ReconciliationStatus,
		"anomaly_count":          int64(ev.AnomalyCount),
		"critical_anomaly_count": int64(ev.CriticalAnomalyCount),
		"provider_count":         int64(ev.ProviderCount),
		"prior_score_delta":      ev.PriorScoreDelta,
		"prior_score_known":      ev.PriorScoreKnown,
	}

	evidence := make(map[string]any, len(m))
	for k, v := range m {
		evidence[k] = v
	}
	m["evidence"] = evidence

	return m
}
