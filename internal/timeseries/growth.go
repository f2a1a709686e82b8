package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// Growth model identifiers.
const (
	ModelCAGR        = "cagr"
	ModelShortWindow = "short_window"
	ModelNone        = "none"
)

// GrowthResult reports the selected growth model together with the inputs
// that produced the rate, so the choice is auditable.
type GrowthResult struct {
	Model       string  `json:"model"`
	RatePercent float64 `json:"ratePercent"`
	Defined     bool    `json:"defined"`

	SpanMonths int    `json:"spanMonths"`
	FirstMonth string `json:"firstMonth,omitempty"`
	LastMonth  string `json:"lastMonth,omitempty"`

	// FirstValue/LastValue are the model inputs: first/last month inflow for
	// CAGR, window averages for the short-window model.
	FirstValue float64 `json:"firstValue"`
	LastValue  float64 `json:"lastValue"`

	Note string `json:"note,omitempty"`
}

// Rate selects between the CAGR model (long series) and the short-window
// trend model (sparse series) and computes the growth rate in percent.
// CAGR on a short series produces explosive annualized figures, hence the
// span cutoff.
func Rate(buckets []MonthlyBucket, cfg domain.GrowthConfig) GrowthResult {
	if len(buckets) < 2 {
		return GrowthResult{
			Model:      ModelNone,
			SpanMonths: len(buckets),
			Note:       "growth undefined: fewer than 2 months of data",
		}
	}

	first := buckets[0]
	last := buckets[len(buckets)-1]
	span := monthSpan(first.Month, last.Month)

	r := GrowthResult{
		SpanMonths: span,
		FirstMonth: first.Month,
		LastMonth:  last.Month,
	}

	if span >= cfg.CAGRMinSpanMonths {
		r.Model = ModelCAGR
		r.FirstValue = first.Inflow
		r.LastValue = last.Inflow
		if first.Inflow <= 0 || last.Inflow <= 0 {
			r.Note = "CAGR undefined: first or last month inflow is zero"
			return r
		}
		years := float64(span) / 12.0
		r.RatePercent = (math.Pow(last.Inflow/first.Inflow, 1/years) - 1) * 100
		r.Defined = true
		r.Note = fmt.Sprintf("CAGR over %d months (%.1f years)", span, years)
		return r
	}

	r.Model = ModelShortWindow
	window := cfg.WindowMonths
	if window > len(buckets) {
		window = len(buckets)
	}

	var firstSum, lastSum float64
	for i := 0; i < window; i++ {
		firstSum += buckets[i].Inflow
		lastSum += buckets[len(buckets)-window+i].Inflow
	}
	r.FirstValue = firstSum / float64(window)
	r.LastValue = lastSum / float64(window)

	if r.FirstValue <= 0 {
		r.Note = "short-window growth undefined: opening window average is zero"
		return r
	}
	r.RatePercent = (r.LastValue - r.FirstValue) / r.FirstValue * 100
	r.Defined = true
	r.Note = fmt.Sprintf("short-window trend over %d-month averages, span %d months", window, span)
	return r
}

// monthSpan returns the inclusive number of calendar months between two
// year-month keys.
func monthSpan(first, last string) int {
	f, errF := time.Parse(monthKeyLayout, first)
	l, errL := time.Parse(monthKeyLayout, last)
	if errF != nil || errL != nil {
		return 0
	}
	return (l.Year()-f.Year())*12 + int(l.Month()) - int(f.Month()) + 1
}
