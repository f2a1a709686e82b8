package reconcile

import (
	"math"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func cfg() domain.ReconciliationConfig {
	return domain.ReconciliationConfig{DisplayCap: 100, ReconciledBelow: 10, ModerateUpTo: 50}
}

func TestCompare(t *testing.T) {
	t.Run("Reconciled", func(t *testing.T) {
		r := Compare(105, 100, cfg())
		if r.Status != StatusReconciled {
			t.Errorf("expected reconciled, got %s", r.Status)
		}
		if math.Abs(r.VarianceRatio-5) > 1e-9 {
			t.Errorf("variance: got %.4f want 5", r.VarianceRatio)
		}
		if r.Capped {
			t.Error("5% variance must not be capped")
		}
	})

	t.Run("ModerateMismatch", func(t *testing.T) {
		r := Compare(130, 100, cfg())
		if r.Status != StatusModerateMismatch {
			t.Errorf("expected moderate mismatch, got %s", r.Status)
		}
		if math.Abs(r.VarianceRatio-30) > 1e-9 {
			t.Errorf("variance: got %.4f want 30", r.VarianceRatio)
		}
	})

	t.Run("HighMismatchCappedAt100", func(t *testing.T) {
		// GST turnover wildly above bank credits: display capped at 100,
		// raw value retained for diagnostics.
		gst := 46907737273.58
		bank := 1087620320.54

		r := Compare(gst, bank, cfg())

		if r.Status != StatusHighMismatch {
			t.Errorf("expected high mismatch, got %s", r.Status)
		}
		if r.VarianceRatio != 100.0 {
			t.Errorf("displayed variance must cap at 100.0, got %.4f", r.VarianceRatio)
		}
		if !r.Capped {
			t.Error("cap flag must be set")
		}
		if r.Base != bank {
			t.Errorf("base must be min(GST, Bank) = %.2f, got %.2f", bank, r.Base)
		}
		wantRaw := math.Abs(gst-bank) / bank * 100
		if math.Abs(r.RawVarianceRatio-wantRaw) > 1e-6 {
			t.Errorf("raw variance: got %.4f want %.4f", r.RawVarianceRatio, wantRaw)
		}
		if r.RawVarianceRatio <= 100 {
			t.Error("raw variance should exceed the display cap in this scenario")
		}
	})

	t.Run("BoundaryClassification", func(t *testing.T) {
		cases := []struct {
			gst, bank float64
			want      string
		}{
			{109.9, 100, StatusReconciled},       // 9.9% < 10
			{110, 100, StatusModerateMismatch},   // exactly 10
			{150, 100, StatusModerateMismatch},   // exactly 50
			{150.1, 100, StatusHighMismatch},     // just above 50
		}
		for _, c := range cases {
			if got := Compare(c.gst, c.bank, cfg()).Status; got != c.want {
				t.Errorf("Compare(%.1f, %.1f): got %s want %s", c.gst, c.bank, got, c.want)
			}
		}
	})

	t.Run("OneSideAbsent", func(t *testing.T) {
		r := Compare(0, 100, cfg())
		if r.Status != StatusHighMismatch {
			t.Errorf("expected high mismatch with one side absent, got %s", r.Status)
		}
		if r.VarianceRatio != 100 || !r.Capped {
			t.Errorf("absent side must report capped full mismatch: %+v", r)
		}
	})

	t.Run("BothAbsent", func(t *testing.T) {
		r := Compare(0, 0, cfg())
		if r.Status != StatusNotComparable {
			t.Errorf("expected not comparable, got %s", r.Status)
		}
		if r.VarianceRatio != 0 {
			t.Errorf("not-comparable variance must be zero, got %.2f", r.VarianceRatio)
		}
	})
}
