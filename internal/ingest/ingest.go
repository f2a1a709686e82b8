// Package ingest converts flat cleaned source records into canonical typed
// records. One explicit adapter per source; every adapter takes the customer
// being assessed as a required parameter and refuses a source whose rows
// cannot be verified as belonging to that customer. Malformed rows are
// skipped and reported, never fatal.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/opensource-finance/heron/internal/domain"
)

// ErrUnscoped is returned when a source's rows carry no customer ownership
// key at all. Such a source is refused outright rather than attributed to
// the requested customer, which would silently widen scope.
var ErrUnscoped = errors.New("ingest: source rows carry no customer identifier")

var customerAliases = []string{"customerId", "customer_id", "custId", "cust_id", "borrowerId", "pan"}

// Diagnostics reports what one adapter did with its rows.
type Diagnostics struct {
	Source   string   `json:"source"`
	Total    int      `json:"total"`
	Accepted int      `json:"accepted"`
	Foreign  int      `json:"foreign"`
	Skipped  []string `json:"skipped,omitempty"`
}

func (d *Diagnostics) skip(i int, reason string) {
	d.Skipped = append(d.Skipped, fmt.Sprintf("row %d: %s", i, reason))
}

// Summary is a one-line rendering for logs and report explanations.
func (d Diagnostics) Summary() string {
	s := fmt.Sprintf("%s: %d/%d accepted", d.Source, d.Accepted, d.Total)
	if d.Foreign > 0 {
		s += fmt.Sprintf(", %d other-customer rows dropped", d.Foreign)
	}
	if n := len(d.Skipped); n > 0 {
		s += fmt.Sprintf(", %d malformed", n)
	}
	return s
}

// scope verifies one row's ownership. A row naming another customer is
// foreign (dropped, counted); a row naming no customer at all is unscoped
// and poisons the whole source.
func scope(row map[string]any, customerID string) (own bool, err error) {
	id, ok := stringField(row, customerAliases...)
	if !ok {
		return false, ErrUnscoped
	}
	return strings.EqualFold(id, customerID), nil
}

// Transactions adapts cleaned bank transaction rows.
func Transactions(customerID string, rows []map[string]any) ([]domain.Transaction, Diagnostics, error) {
	d := Diagnostics{Source: "transactions", Total: len(rows)}
	out := make([]domain.Transaction, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		ts, ok := timeField(row, "timestamp", "date", "txnDate", "valueDate")
		if !ok {
			d.skip(i, "missing or unparseable timestamp")
			continue
		}
		amount, ok := floatField(row, "amount", "txnAmount", "value")
		if !ok {
			d.skip(i, "missing numeric amount")
			continue
		}

		dir, _ := stringField(row, "direction", "type", "drCr")
		direction, ok := directionOf(dir, amount)
		if !ok {
			d.skip(i, fmt.Sprintf("unrecognized direction %q", dir))
			continue
		}
		if amount < 0 {
			amount = -amount
		}

		id, ok := stringField(row, "id", "txnId", "transactionId", "reference")
		if !ok {
			id = uuid.NewString()
		}
		counterparty, _ := stringField(row, "counterparty", "narration", "payee", "merchant")
		category, _ := stringField(row, "category", "tag")

		out = append(out, domain.Transaction{
			ID:           id,
			CustomerID:   customerID,
			Timestamp:    ts,
			Amount:       amount,
			Direction:    direction,
			Counterparty: counterparty,
			Category:     category,
		})
		d.Accepted++
	}
	return out, d, nil
}

// directionOf resolves an explicit direction label, falling back to the sign
// of the amount when the label is absent.
func directionOf(label string, amount float64) (domain.Direction, bool) {
	switch strings.ToLower(label) {
	case "credit", "cr", "inflow", "deposit":
		return domain.DirectionCredit, true
	case "debit", "dr", "outflow", "withdrawal":
		return domain.DirectionDebit, true
	case "":
		if amount >= 0 {
			return domain.DirectionCredit, true
		}
		return domain.DirectionDebit, true
	}
	return "", false
}

// GSTReturns adapts cleaned GST filing rows.
func GSTReturns(customerID string, rows []map[string]any) ([]domain.GSTReturn, Diagnostics, error) {
	d := Diagnostics{Source: "gst_returns", Total: len(rows)}
	out := make([]domain.GSTReturn, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		period, ok := stringField(row, "period", "taxPeriod", "returnPeriod", "month")
		if !ok {
			d.skip(i, "missing filing period")
			continue
		}
		turnover, ok := floatField(row, "turnover", "taxableTurnover", "grossTurnover")
		if !ok {
			d.skip(i, "missing numeric turnover")
			continue
		}

		r := domain.GSTReturn{CustomerID: customerID, Period: period, Turnover: turnover}
		if filed, ok := timeField(row, "filedOn", "filingDate", "date"); ok {
			r.FiledOn = filed
		}
		r.Status, _ = stringField(row, "status")

		out = append(out, r)
		d.Accepted++
	}
	return out, d, nil
}

// BureauReports adapts cleaned credit-bureau report rows.
func BureauReports(customerID string, rows []map[string]any) ([]domain.BureauReport, Diagnostics, error) {
	d := Diagnostics{Source: "bureau_reports", Total: len(rows)}
	out := make([]domain.BureauReport, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		score, ok := floatField(row, "score", "creditScore", "bureauScore")
		if !ok {
			d.skip(i, "missing bureau score")
			continue
		}

		r := domain.BureauReport{CustomerID: customerID, Score: score}
		r.CreditUtilization, _ = floatField(row, "creditUtilization", "utilization")
		r.DebtToIncome, _ = floatField(row, "debtToIncome", "dti")
		r.EMIConsistency, _ = floatField(row, "emiConsistency", "emiScore")
		r.BounceCount, _ = intField(row, "bounceCount", "bounces")
		r.PaymentRegularity, _ = floatField(row, "paymentRegularity", "regularity")
		r.MonthlyObligations, _ = floatField(row, "monthlyObligations", "totalEmi")
		if ts, ok := timeField(row, "reportedAt", "reportDate", "date"); ok {
			r.ReportedAt = ts
		}

		out = append(out, r)
		d.Accepted++
	}
	return out, d, nil
}

// InsurancePolicies adapts cleaned insurance policy rows.
func InsurancePolicies(customerID string, rows []map[string]any) ([]domain.InsurancePolicy, Diagnostics, error) {
	d := Diagnostics{Source: "insurance_policies", Total: len(rows)}
	out := make([]domain.InsurancePolicy, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		cover, ok := floatField(row, "coverAmount", "sumAssured", "cover")
		if !ok {
			d.skip(i, "missing cover amount")
			continue
		}

		p := domain.InsurancePolicy{CustomerID: customerID, CoverAmount: cover}
		p.PolicyType, _ = stringField(row, "policyType", "type")
		p.AnnualPremium, _ = floatField(row, "annualPremium", "premium")
		if ts, ok := timeField(row, "issuedOn", "issueDate", "date"); ok {
			p.IssuedOn = ts
		}

		out = append(out, p)
		d.Accepted++
	}
	return out, d, nil
}

// MutualFunds adapts cleaned mutual-fund holding rows.
func MutualFunds(customerID string, rows []map[string]any) ([]domain.MutualFundHolding, Diagnostics, error) {
	d := Diagnostics{Source: "mutual_funds", Total: len(rows)}
	out := make([]domain.MutualFundHolding, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		value, ok := floatField(row, "currentValue", "value", "marketValue")
		if !ok {
			d.skip(i, "missing current value")
			continue
		}

		h := domain.MutualFundHolding{CustomerID: customerID, CurrentValue: value}
		h.Folio, _ = stringField(row, "folio", "folioNumber")
		h.Scheme, _ = stringField(row, "scheme", "schemeName")
		h.InvestedValue, _ = floatField(row, "investedValue", "costValue")
		if ts, ok := timeField(row, "asOf", "valuationDate", "date"); ok {
			h.AsOf = ts
		}

		out = append(out, h)
		d.Accepted++
	}
	return out, d, nil
}

// MarketplaceOrders adapts cleaned marketplace order rows.
func MarketplaceOrders(customerID string, rows []map[string]any) ([]domain.MarketplaceOrder, Diagnostics, error) {
	d := Diagnostics{Source: "marketplace_orders", Total: len(rows)}
	out := make([]domain.MarketplaceOrder, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		provider, ok := stringField(row, "provider", "platform", "marketplace", "sellerApp")
		if !ok {
			d.skip(i, "missing provider")
			continue
		}
		amount, ok := floatField(row, "amount", "orderValue", "value")
		if !ok {
			d.skip(i, "missing numeric order value")
			continue
		}

		o := domain.MarketplaceOrder{CustomerID: customerID, Provider: provider, OrderValue: amount}
		o.Status, _ = stringField(row, "status")
		if ts, ok := timeField(row, "orderedOn", "orderDate", "date"); ok {
			o.OrderedOn = ts
		}

		out = append(out, o)
		d.Accepted++
	}
	return out, d, nil
}

// LoanApplications adapts cleaned digital-loan application rows.
func LoanApplications(customerID string, rows []map[string]any) ([]domain.LoanApplication, Diagnostics, error) {
	d := Diagnostics{Source: "loan_applications", Total: len(rows)}
	out := make([]domain.LoanApplication, 0, len(rows))

	for i, row := range rows {
		own, err := scope(row, customerID)
		if err != nil {
			return nil, d, err
		}
		if !own {
			d.Foreign++
			continue
		}

		status, ok := stringField(row, "status", "applicationStatus")
		if !ok {
			d.skip(i, "missing application status")
			continue
		}
		status = strings.ToLower(status)
		switch status {
		case domain.LoanStatusApproved, domain.LoanStatusRejected, domain.LoanStatusPending:
		default:
			d.skip(i, fmt.Sprintf("unrecognized status %q", status))
			continue
		}

		l := domain.LoanApplication{CustomerID: customerID, Status: status}
		l.Platform, _ = stringField(row, "platform", "lender")
		l.Amount, _ = floatField(row, "amount", "loanAmount")
		if ts, ok := timeField(row, "appliedOn", "applicationDate", "date"); ok {
			l.AppliedOn = ts
		}

		out = append(out, l)
		d.Accepted++
	}
	return out, d, nil
}

// RawSources is the flat per-source payload accepted at the ingest boundary.
type RawSources struct {
	Transactions      []map[string]any `json:"transactions,omitempty"`
	GSTReturns        []map[string]any `json:"gstReturns,omitempty"`
	BureauReports     []map[string]any `json:"bureauReports,omitempty"`
	InsurancePolicies []map[string]any `json:"insurancePolicies,omitempty"`
	MutualFunds       []map[string]any `json:"mutualFunds,omitempty"`
	MarketplaceOrders []map[string]any `json:"marketplaceOrders,omitempty"`
	LoanApplications  []map[string]any `json:"loanApplications,omitempty"`
}

// Empty reports whether no source carries any rows.
func (r RawSources) Empty() bool {
	return len(r.Transactions) == 0 && len(r.GSTReturns) == 0 &&
		len(r.BureauReports) == 0 && len(r.InsurancePolicies) == 0 &&
		len(r.MutualFunds) == 0 && len(r.MarketplaceOrders) == 0 &&
		len(r.LoanApplications) == 0
}

// BuildDataset runs every adapter and assembles the canonical dataset.
// The first unscoped source aborts the build; malformed rows do not.
func BuildDataset(customerID string, raw RawSources) (domain.Dataset, []Diagnostics, error) {
	ds := domain.Dataset{CustomerID: customerID}
	diags := make([]Diagnostics, 0, 7)

	var d Diagnostics
	var err error

	if ds.Transactions, d, err = Transactions(customerID, raw.Transactions); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	if ds.GSTReturns, d, err = GSTReturns(customerID, raw.GSTReturns); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	if ds.BureauReports, d, err = BureauReports(customerID, raw.BureauReports); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	if ds.InsurancePolicies, d, err = InsurancePolicies(customerID, raw.InsurancePolicies); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	if ds.MutualFunds, d, err = MutualFunds(customerID, raw.MutualFunds); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	if ds.MarketplaceOrders, d, err = MarketplaceOrders(customerID, raw.MarketplaceOrders); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	if ds.LoanApplications, d, err = LoanApplications(customerID, raw.LoanApplications); err != nil {
		return ds, diags, fmt.Errorf("%s: %w", d.Source, err)
	}
	diags = append(diags, d)

	return ds, diags, nil
}
