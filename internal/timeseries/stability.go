package timeseries

import (
	"math"
)

// daysPerMonth is the flat month length used for daily expense figures.
const daysPerMonth = 30

// StabilityMetrics summarizes the volatility and surplus profile of a monthly
// inflow/outflow series. Ratios that would divide by zero are reported as
// zero with their Defined flag cleared; callers must not interpret an
// undefined metric as a true zero.
type StabilityMetrics struct {
	Months       int     `json:"months"`
	MeanInflow   float64 `json:"meanInflow"`
	StdDevInflow float64 `json:"stdDevInflow"`

	CV        float64 `json:"cv"` // percent
	CVDefined bool    `json:"cvDefined"`

	SeasonalityIndex   float64 `json:"seasonalityIndex"` // percent
	SeasonalityDefined bool    `json:"seasonalityDefined"`

	TotalInflow  float64 `json:"totalInflow"`
	TotalOutflow float64 `json:"totalOutflow"`
	NetSurplus   float64 `json:"netSurplus"`

	SurplusRatio        float64 `json:"surplusRatio"` // percent of inflow
	SurplusRatioDefined bool    `json:"surplusRatioDefined"`

	InflowOutflowRatio   float64 `json:"inflowOutflowRatio"`
	InflowOutflowDefined bool    `json:"inflowOutflowDefined"`

	AvgMonthlySurplus  float64 `json:"avgMonthlySurplus"`
	AvgMonthlyExpenses float64 `json:"avgMonthlyExpenses"`
	AvgDailyExpenses   float64 `json:"avgDailyExpenses"`

	// WorkingCapitalDays is how many days of typical expenses the average
	// monthly surplus covers.
	WorkingCapitalDays    float64 `json:"workingCapitalDays"`
	WorkingCapitalDefined bool    `json:"workingCapitalDefined"`
}

// Analyze computes stability and seasonality metrics from a monthly series.
func Analyze(buckets []MonthlyBucket) StabilityMetrics {
	m := StabilityMetrics{Months: len(buckets)}
	if len(buckets) == 0 {
		return m
	}

	minInflow := math.Inf(1)
	maxInflow := math.Inf(-1)
	for _, b := range buckets {
		m.TotalInflow += b.Inflow
		m.TotalOutflow += b.Outflow
		minInflow = math.Min(minInflow, b.Inflow)
		maxInflow = math.Max(maxInflow, b.Inflow)
	}
	m.NetSurplus = m.TotalInflow - m.TotalOutflow

	n := float64(len(buckets))
	m.MeanInflow = m.TotalInflow / n

	var sq float64
	for _, b := range buckets {
		d := b.Inflow - m.MeanInflow
		sq += d * d
	}
	m.StdDevInflow = math.Sqrt(sq / n)

	// CV and seasonality need at least two months and a non-zero mean.
	if len(buckets) >= 2 && m.MeanInflow > 0 {
		m.CV = m.StdDevInflow / m.MeanInflow * 100
		m.CVDefined = true
		m.SeasonalityIndex = (maxInflow - minInflow) / m.MeanInflow * 100
		m.SeasonalityDefined = true
	}

	if m.TotalInflow > 0 {
		m.SurplusRatio = m.NetSurplus / m.TotalInflow * 100
		m.SurplusRatioDefined = true
	}
	if m.TotalOutflow > 0 {
		m.InflowOutflowRatio = m.TotalInflow / m.TotalOutflow
		m.InflowOutflowDefined = true
	}

	m.AvgMonthlySurplus = m.NetSurplus / n
	m.AvgMonthlyExpenses = m.TotalOutflow / n
	m.AvgDailyExpenses = m.AvgMonthlyExpenses / daysPerMonth

	if m.AvgDailyExpenses > 0 {
		m.WorkingCapitalDays = m.AvgMonthlySurplus / m.AvgDailyExpenses
		m.WorkingCapitalDefined = true
	}

	return m
}
