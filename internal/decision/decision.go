// Package decision synthesizes the lending recommendation. It explains the
// composite score through the evaluated indicator checklist and, for the
// middle bands, proposes conditional terms from fixed rule tables. It never
// re-derives the score.
package decision

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/reconcile"
)

// Input carries everything the recommendation is derived from.
type Input struct {
	Scores         domain.CompositeScore
	Band           string
	Indicators     []domain.IndicatorResult
	AnomalyCount   int
	CriticalCount  int
	Reconciliation reconcile.Result
}

// termsTable is the fixed per-band baseline for conditional terms.
var termsTable = map[string]domain.SuggestedTerms{
	domain.BandBorderline: {AmountFactor: 0.75, RateAdjustmentBps: 150},
	domain.BandMediumRisk: {AmountFactor: 0.50, RateAdjustmentBps: 300},
}

// flagAdjustment is one terms override keyed on a specific negative flag.
type flagAdjustment struct {
	guarantor bool
	extraBps  int
	condition string
}

// flagTable maps negative-indicator flags to their terms adjustments.
// Adjustments stack; the order here fixes the order of conditions.
var flagTable = []struct {
	flag string
	adj  flagAdjustment
}{
	{domain.FlagDTIHigh, flagAdjustment{guarantor: true, condition: "personal guarantor required while debt-to-income remains at or above 90%"}},
	{domain.FlagNegativeSurplus, flagAdjustment{extraBps: 100, condition: "monthly surplus must turn positive before any limit enhancement"}},
	{domain.FlagVolatileCashflow, flagAdjustment{extraBps: 50, condition: "disbursal in tranches against observed monthly inflows"}},
	{domain.FlagGSTMismatch, flagAdjustment{condition: "CA-certified turnover statement required to resolve the GST/bank mismatch"}},
	{domain.FlagAnomalies, flagAdjustment{condition: "written explanation required for each flagged anomalous transaction"}},
	{domain.FlagBounces, flagAdjustment{extraBps: 50, condition: "standing instruction mandate from the primary operating account"}},
	{domain.FlagThinHistory, flagAdjustment{condition: "re-underwrite after six full months of banking history"}},
}

// Decide produces the recommendation for an assessed customer.
func Decide(in Input) domain.DecisionRecommendation {
	rec := domain.DecisionRecommendation{Band: in.Band}

	flags := make(map[string]bool)
	for _, r := range in.Indicators {
		if !r.Triggered || r.Err != "" {
			continue
		}
		switch r.Polarity {
		case domain.PolarityPositive:
			rec.Positive = append(rec.Positive, r.Message)
		case domain.PolarityNegative:
			msg := r.Message
			if r.Flag == domain.FlagAnomalies && in.AnomalyCount > 0 {
				msg = fmt.Sprintf("%d statistically extreme transactions remain unexplained", in.AnomalyCount)
				if in.CriticalCount > 0 {
					msg += fmt.Sprintf(" (%d critical)", in.CriticalCount)
				}
			}
			rec.Negative = append(rec.Negative, msg)
			if r.Flag != "" {
				flags[r.Flag] = true
			}
		}
	}

	rec.Rationale = rationale(in, len(rec.Positive), len(rec.Negative))
	rec.Terms = terms(in.Band, flags)

	return rec
}

// terms applies the band baseline and stacks the flag adjustments. Bands
// outside the conditional range get no terms at all.
func terms(band string, flags map[string]bool) *domain.SuggestedTerms {
	base, ok := termsTable[band]
	if !ok {
		return nil
	}

	t := base
	for _, entry := range flagTable {
		if !flags[entry.flag] {
			continue
		}
		if entry.adj.guarantor {
			t.GuarantorRequired = true
		}
		t.RateAdjustmentBps += entry.adj.extraBps
		if entry.adj.condition != "" {
			t.Conditions = append(t.Conditions, entry.adj.condition)
		}
	}
	return &t
}

func rationale(in Input, positives, negatives int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Overall risk score %.1f places the borrower in the %s band "+
		"(cashflow %.1f x %.2f, business %.1f x %.2f, debt %.1f x %.2f).",
		in.Scores.OverallRiskScore, in.Band,
		in.Scores.CashflowStability, weightOf(in.Scores, "cashflow_stability"),
		in.Scores.BusinessHealth, weightOf(in.Scores, "business_health"),
		in.Scores.DebtCapacity, weightOf(in.Scores, "debt_capacity"))

	fmt.Fprintf(&b, " The checklist surfaced %d supporting and %d adverse indicators.", positives, negatives)

	switch in.Reconciliation.Status {
	case reconcile.StatusReconciled:
		b.WriteString(" Declared turnover reconciles with banking credits.")
	case reconcile.StatusModerateMismatch:
		fmt.Fprintf(&b, " Declared turnover shows a moderate %.1f%% variance against banking credits, common for B2B receivables timing.", in.Reconciliation.VarianceRatio)
	case reconcile.StatusHighMismatch:
		fmt.Fprintf(&b, " Declared turnover diverges %.1f%% from banking credits and needs documentary resolution.", in.Reconciliation.VarianceRatio)
	case reconcile.StatusNotComparable:
		b.WriteString(" Turnover reconciliation was not possible; no comparable GST and banking totals.")
	}

	if in.AnomalyCount > 0 {
		fmt.Fprintf(&b, " %d anomalous transactions were flagged for review.", in.AnomalyCount)
	}

	return b.String()
}

func weightOf(s domain.CompositeScore, name string) float64 {
	for _, c := range s.Components {
		if c.Name == name {
			return c.Weight
		}
	}
	return 0
}
