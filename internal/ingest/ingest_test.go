package ingest

import (
	"errors"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func TestTransactions(t *testing.T) {
	t.Run("AliasedFieldsAccepted", func(t *testing.T) {
		rows := []map[string]any{
			{"customerId": "cust-001", "timestamp": "2024-03-05T10:00:00Z", "amount": 1500.0, "direction": "credit", "counterparty": "acme"},
			{"cust_id": "cust-001", "txnDate": "2024-03-06", "txnAmount": "2,500.50", "drCr": "DR"},
		}

		txns, d, err := Transactions("cust-001", rows)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Accepted != 2 || len(txns) != 2 {
			t.Fatalf("accepted %d, want 2 (%v)", d.Accepted, d.Skipped)
		}
		if txns[0].Direction != domain.DirectionCredit {
			t.Errorf("direction: got %q", txns[0].Direction)
		}
		if txns[1].Amount != 2500.50 || txns[1].Direction != domain.DirectionDebit {
			t.Errorf("aliased row: amount=%.2f direction=%q", txns[1].Amount, txns[1].Direction)
		}
		if txns[1].ID == "" {
			t.Error("missing transaction id must be filled in")
		}
	})

	t.Run("SignInfersDirection", func(t *testing.T) {
		rows := []map[string]any{
			{"customerId": "cust-001", "date": "2024-01-01", "amount": -900.0},
		}
		txns, _, err := Transactions("cust-001", rows)
		if err != nil {
			t.Fatal(err)
		}
		if txns[0].Direction != domain.DirectionDebit || txns[0].Amount != 900 {
			t.Errorf("negative amount must become a debit of 900: %+v", txns[0])
		}
	})

	t.Run("ForeignRowsDroppedNotWidened", func(t *testing.T) {
		rows := []map[string]any{
			{"customerId": "cust-001", "date": "2024-01-01", "amount": 100.0},
			{"customerId": "cust-002", "date": "2024-01-01", "amount": 100.0},
		}
		txns, d, err := Transactions("cust-001", rows)
		if err != nil {
			t.Fatal(err)
		}
		if len(txns) != 1 || d.Foreign != 1 {
			t.Errorf("other-customer row must be dropped and counted: kept=%d foreign=%d", len(txns), d.Foreign)
		}
	})

	t.Run("UnscopedSourceRefused", func(t *testing.T) {
		rows := []map[string]any{
			{"date": "2024-01-01", "amount": 100.0},
		}
		_, _, err := Transactions("cust-001", rows)
		if !errors.Is(err, ErrUnscoped) {
			t.Fatalf("rows without any customer key must refuse the source, got %v", err)
		}
	})

	t.Run("MalformedRowsSkippedNotFatal", func(t *testing.T) {
		rows := []map[string]any{
			{"customerId": "cust-001", "date": "not-a-date", "amount": 100.0},
			{"customerId": "cust-001", "date": "2024-01-01"},
			{"customerId": "cust-001", "date": "2024-01-01", "amount": 100.0},
		}
		txns, d, err := Transactions("cust-001", rows)
		if err != nil {
			t.Fatal(err)
		}
		if len(txns) != 1 || len(d.Skipped) != 2 {
			t.Errorf("kept=%d skipped=%v", len(txns), d.Skipped)
		}
	})
}

func TestLoanApplications(t *testing.T) {
	rows := []map[string]any{
		{"customerId": "cust-001", "status": "APPROVED", "amount": 50000.0},
		{"customerId": "cust-001", "status": "withdrawn"},
	}
	loans, d, err := LoanApplications("cust-001", rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(loans) != 1 || loans[0].Status != domain.LoanStatusApproved {
		t.Errorf("status must normalize to lowercase approved: %+v", loans)
	}
	if len(d.Skipped) != 1 {
		t.Errorf("unknown status must be skipped: %v", d.Skipped)
	}
}

func TestBuildDataset(t *testing.T) {
	raw := RawSources{
		Transactions: []map[string]any{
			{"customerId": "cust-001", "date": "2024-01-10", "amount": 1000.0, "direction": "credit"},
		},
		GSTReturns: []map[string]any{
			{"customerId": "cust-001", "period": "2024-01", "turnover": 250000.0},
		},
		BureauReports: []map[string]any{
			{"customerId": "cust-001", "score": 720.0, "dti": 40.0},
		},
	}

	ds, diags, err := BuildDataset("cust-001", raw)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ds.CustomerID != "cust-001" {
		t.Errorf("dataset customer: %q", ds.CustomerID)
	}
	if len(ds.Transactions) != 1 || len(ds.GSTReturns) != 1 || len(ds.BureauReports) != 1 {
		t.Errorf("record counts: %d/%d/%d", len(ds.Transactions), len(ds.GSTReturns), len(ds.BureauReports))
	}
	if ds.BureauReports[0].DebtToIncome != 40 {
		t.Errorf("dti alias not mapped: %+v", ds.BureauReports[0])
	}
	if len(diags) != 7 {
		t.Errorf("every source must report diagnostics, got %d", len(diags))
	}

	t.Run("UnscopedSourceAborts", func(t *testing.T) {
		bad := raw
		bad.MutualFunds = []map[string]any{{"currentValue": 10000.0}}
		if _, _, err := BuildDataset("cust-001", bad); !errors.Is(err, ErrUnscoped) {
			t.Fatalf("want ErrUnscoped, got %v", err)
		}
	})
}
