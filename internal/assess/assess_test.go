package assess

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/indicators"
)

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	engine, err := indicators.NewEngine(nil, 4)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := engine.LoadIndicators(indicators.Builtin()); err != nil {
		t.Fatalf("builtin indicators: %v", err)
	}
	p, err := New(domain.DefaultScoringConfig(), engine, nil)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return p
}

// healthyDataset is 18 months of steady, slightly growing activity.
func healthyDataset() *domain.Dataset {
	ds := &domain.Dataset{CustomerID: "cust-001"}

	for m := 0; m < 18; m++ {
		ts := time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC).AddDate(0, m, 0)
		inflow := 200000 + float64(m)*5000
		ds.Transactions = append(ds.Transactions,
			domain.Transaction{
				ID: fmt.Sprintf("in-%d", m), CustomerID: ds.CustomerID,
				Timestamp: ts, Amount: inflow, Direction: domain.DirectionCredit,
			},
			domain.Transaction{
				ID: fmt.Sprintf("out-%d", m), CustomerID: ds.CustomerID,
				Timestamp: ts.AddDate(0, 0, 10), Amount: inflow * 0.7, Direction: domain.DirectionDebit,
			},
		)
		ds.GSTReturns = append(ds.GSTReturns, domain.GSTReturn{
			CustomerID: ds.CustomerID,
			Period:     ts.Format("2006-01"),
			Turnover:   inflow,
			Status:     "filed",
		})
	}

	ds.BureauReports = []domain.BureauReport{{
		CustomerID: ds.CustomerID, Score: 780, CreditUtilization: 25,
		DebtToIncome: 30, EMIConsistency: 95, PaymentRegularity: 90,
		MonthlyObligations: 40000, ReportedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	ds.InsurancePolicies = []domain.InsurancePolicy{{CustomerID: ds.CustomerID, CoverAmount: 1200000}}
	ds.MarketplaceOrders = []domain.MarketplaceOrder{
		{CustomerID: ds.CustomerID, Provider: "ondc-seller", OrderValue: 4000},
		{CustomerID: ds.CustomerID, Provider: "meesho", OrderValue: 2500},
	}
	ds.LoanApplications = []domain.LoanApplication{
		{CustomerID: ds.CustomerID, Status: domain.LoanStatusApproved, Amount: 100000},
		{CustomerID: ds.CustomerID, Status: domain.LoanStatusApproved, Amount: 50000},
	}

	return ds
}

func TestRun(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	t.Run("HealthyDataset", func(t *testing.T) {
		a, err := p.Run(ctx, "tenant-a", healthyDataset())
		if err != nil {
			t.Fatalf("run: %v", err)
		}

		if a.Score < 0 || a.Score > 100 {
			t.Errorf("score out of range: %.2f", a.Score)
		}
		if a.Band != domain.DefaultScoringConfig().BandFor(a.Score) {
			t.Errorf("band %q does not match score %.2f", a.Band, a.Score)
		}
		if a.ID == "" || a.TenantID != "tenant-a" || a.CustomerID != "cust-001" {
			t.Errorf("identity fields: %+v", a)
		}
		if a.ConfigVersion == "" {
			t.Error("assessment must record which config produced it")
		}
		if a.Metadata.TransactionsScanned != 36 {
			t.Errorf("transactions scanned: %d", a.Metadata.TransactionsScanned)
		}
		if a.Metadata.IndicatorsEvaluated != len(indicators.Builtin()) {
			t.Errorf("indicators evaluated: %d", a.Metadata.IndicatorsEvaluated)
		}
		if a.Metadata.EngineVersion != EngineVersion {
			t.Errorf("engine version: %q", a.Metadata.EngineVersion)
		}

		o := a.Reports.Overall
		if o.Scores.OverallRiskScore != a.Score {
			t.Error("overall report scores must match the assessment score")
		}
		if len(o.Recommendation.Positive) == 0 {
			t.Errorf("a healthy borrower should trip positive indicators: %+v", o.Recommendation)
		}
		if len(a.Reports.Transactions.Metrics) == 0 || len(a.Reports.Earnings.Metrics) == 0 {
			t.Error("category reports missing metrics")
		}
	})

	t.Run("EmptyDatasetFailsSoft", func(t *testing.T) {
		a, err := p.Run(ctx, "tenant-a", &domain.Dataset{CustomerID: "cust-empty"})
		if err != nil {
			t.Fatalf("empty dataset must not error: %v", err)
		}
		if a.Score < 0 || a.Score > 100 {
			t.Errorf("score out of range: %.2f", a.Score)
		}
		if len(a.Diagnostics) == 0 {
			t.Error("missing sources must be surfaced as diagnostics")
		}
		if a.Reports.Anomalies.Count != 0 {
			t.Errorf("no transactions, no anomalies: %d", a.Reports.Anomalies.Count)
		}
	})

	t.Run("RequiresTenantAndCustomer", func(t *testing.T) {
		if _, err := p.Run(ctx, "", healthyDataset()); err == nil {
			t.Error("missing tenant must error")
		}
		if _, err := p.Run(ctx, "tenant-a", &domain.Dataset{}); err == nil {
			t.Error("missing customer must error")
		}
	})

	t.Run("InvalidConfigRejected", func(t *testing.T) {
		bad := domain.DefaultScoringConfig()
		bad.Weights.DebtCapacity = 0.9
		if _, err := New(bad, nil, nil); err == nil {
			t.Error("pipeline must refuse an invalid config at startup")
		}
		if err := p.SetConfig(bad); err == nil {
			t.Error("SetConfig must refuse an invalid config")
		}
	})

	t.Run("DeterministicForFixedInput", func(t *testing.T) {
		ds := healthyDataset()
		a1, err := p.Run(ctx, "tenant-a", ds)
		if err != nil {
			t.Fatal(err)
		}
		a2, err := p.Run(ctx, "tenant-a", ds)
		if err != nil {
			t.Fatal(err)
		}
		if a1.Score != a2.Score || a1.Band != a2.Band {
			t.Errorf("same input must score identically: %.4f/%s vs %.4f/%s", a1.Score, a1.Band, a2.Score, a2.Band)
		}
	})
}
