// Package reconcile compares GST-reported turnover against bank-observed
// credits. The result is evidentiary input to the decision rationale, not a
// scored component.
package reconcile

import (
	"fmt"
	"math"

	"github.com/opensource-finance/heron/internal/domain"
)

// Reconciliation status values.
const (
	StatusReconciled       = "reconciled"
	StatusModerateMismatch = "moderate_mismatch"
	StatusHighMismatch     = "high_mismatch"
	StatusNotComparable    = "not_comparable"
)

// Result holds the variance between the two revenue measurements.
// VarianceRatio is capped for display; RawVarianceRatio keeps the uncapped
// value for diagnostics.
type Result struct {
	GSTTurnover float64 `json:"gstTurnover"`
	BankCredits float64 `json:"bankCredits"`

	// Base is the smaller of the two totals, the denominator of the ratio.
	Base float64 `json:"base"`

	VarianceRatio    float64 `json:"varianceRatio"`
	RawVarianceRatio float64 `json:"rawVarianceRatio"`
	Capped           bool    `json:"capped"`

	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// Compare computes variance_ratio = |GST - Bank| / min(GST, Bank) x 100.
// High mismatches are common for B2B receivables timing, so a high ratio is
// evidence for the rationale rather than an automatic rejection.
func Compare(gstTurnover, bankCredits float64, cfg domain.ReconciliationConfig) Result {
	r := Result{
		GSTTurnover: gstTurnover,
		BankCredits: bankCredits,
	}

	switch {
	case gstTurnover <= 0 && bankCredits <= 0:
		r.Status = StatusNotComparable
		r.Note = "neither GST turnover nor bank credits reported; reconciliation skipped"
		return r
	case gstTurnover <= 0 || bankCredits <= 0:
		// One side absent: ratio is undefined, treat as a full mismatch.
		r.Status = StatusHighMismatch
		r.VarianceRatio = cfg.DisplayCap
		r.RawVarianceRatio = cfg.DisplayCap
		r.Capped = true
		r.Note = "one revenue source reported no turnover; treated as full mismatch"
		return r
	}

	r.Base = math.Min(gstTurnover, bankCredits)
	r.RawVarianceRatio = math.Abs(gstTurnover-bankCredits) / r.Base * 100
	r.VarianceRatio = r.RawVarianceRatio
	if r.VarianceRatio > cfg.DisplayCap {
		r.VarianceRatio = cfg.DisplayCap
		r.Capped = true
	}

	switch {
	case r.RawVarianceRatio < cfg.ReconciledBelow:
		r.Status = StatusReconciled
		r.Note = fmt.Sprintf("GST and bank revenue agree within %.1f%%", r.RawVarianceRatio)
	case r.RawVarianceRatio <= cfg.ModerateUpTo:
		r.Status = StatusModerateMismatch
		r.Note = fmt.Sprintf("moderate %.1f%% variance between GST and bank revenue", r.RawVarianceRatio)
	default:
		r.Status = StatusHighMismatch
		r.Note = fmt.Sprintf("high variance between GST and bank revenue (%.1f%% uncapped); common for B2B receivables timing", r.RawVarianceRatio)
	}

	return r
}
