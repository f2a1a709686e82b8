// Package anomaly flags statistically extreme transactions in a customer's
// dataset using a z-score test over the amount distribution.
package anomaly

import (
	"fmt"
	"math"

	"github.com/opensource-finance/heron/internal/domain"
)

// Result is the output of one detection run. Records are generated fresh
// each run from the current transaction set and never mutated.
type Result struct {
	Scanned int     `json:"scanned"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`

	// Skipped is set when detection cannot run (too few samples or zero
	// variance). Skipping is a defined outcome, not an error.
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skipReason,omitempty"`

	Records []domain.AnomalyRecord `json:"records"`
}

// CriticalCount returns the number of critical-severity records.
func (r *Result) CriticalCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Severity == domain.SeverityCritical {
			n++
		}
	}
	return n
}

// Detect flags transactions whose amount deviates from the distribution mean
// by at least cfg.ZThreshold standard deviations.
func Detect(txns []domain.Transaction, cfg domain.AnomalyConfig) Result {
	res := Result{Scanned: len(txns)}

	if len(txns) < cfg.MinSamples {
		res.Skipped = true
		res.SkipReason = fmt.Sprintf("insufficient sample size: %d transactions, need %d", len(txns), cfg.MinSamples)
		return res
	}

	var sum float64
	for _, t := range txns {
		sum += t.Amount
	}
	res.Mean = sum / float64(len(txns))

	var sq float64
	for _, t := range txns {
		d := t.Amount - res.Mean
		sq += d * d
	}
	res.StdDev = math.Sqrt(sq / float64(len(txns)))

	if res.StdDev == 0 {
		res.Skipped = true
		res.SkipReason = "zero variance: all transaction amounts identical"
		return res
	}

	for _, t := range txns {
		dev := math.Abs(t.Amount-res.Mean) / res.StdDev
		if dev < cfg.ZThreshold {
			continue
		}
		res.Records = append(res.Records, domain.AnomalyRecord{
			TransactionID: t.ID,
			Timestamp:     t.Timestamp,
			Amount:        t.Amount,
			Direction:     t.Direction,
			Deviation:     dev,
			Severity:      severity(dev, cfg),
			Description:   describe(t, dev),
		})
	}

	return res
}

func severity(dev float64, cfg domain.AnomalyConfig) string {
	switch {
	case dev >= cfg.CriticalTier:
		return domain.SeverityCritical
	case dev >= cfg.HighTier:
		return domain.SeverityHigh
	default:
		return domain.SeverityModerate
	}
}

func describe(t domain.Transaction, dev float64) string {
	if t.Direction == domain.DirectionCredit {
		return fmt.Sprintf("unusually large credit of %.2f (%.1f standard deviations from typical): possible disbursement or asset sale", t.Amount, dev)
	}
	return fmt.Sprintf("unusually large debit of %.2f (%.1f standard deviations from typical): possible prepayment or emergency spend", t.Amount, dev)
}
