package domain

import (
	"time"
)

// Direction indicates whether a transaction moves money into or out of the
// customer's account.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction is one cleaned bank transaction. Records are immutable once
// cleaned; the engine never mutates them, only derives aggregates.
type Transaction struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	Timestamp    time.Time `json:"timestamp"`
	Amount       float64   `json:"amount"` // absolute value, sign carried by Direction
	Direction    Direction `json:"direction"`
	Counterparty string    `json:"counterparty,omitempty"`
	Category     string    `json:"category,omitempty"`
}

// GSTReturn is one cleaned GST filing record.
type GSTReturn struct {
	CustomerID string    `json:"customerId"`
	Period     string    `json:"period"` // year-month, "2006-01"
	Turnover   float64   `json:"turnover"`
	FiledOn    time.Time `json:"filedOn"`
	Status     string    `json:"status,omitempty"` // "filed", "late", "pending"
}

// BureauReport is one cleaned credit-bureau report.
type BureauReport struct {
	CustomerID         string    `json:"customerId"`
	Score              float64   `json:"score"`             // bureau scale, 300-900
	CreditUtilization  float64   `json:"creditUtilization"` // percent
	DebtToIncome       float64   `json:"debtToIncome"`      // percent
	EMIConsistency     float64   `json:"emiConsistency"`    // 0-100
	BounceCount        int       `json:"bounceCount"`
	PaymentRegularity  float64   `json:"paymentRegularity"` // 0-100
	MonthlyObligations float64   `json:"monthlyObligations"`
	ReportedAt         time.Time `json:"reportedAt"`
}

// InsurancePolicy is one cleaned insurance policy record.
type InsurancePolicy struct {
	CustomerID    string    `json:"customerId"`
	PolicyType    string    `json:"policyType,omitempty"`
	CoverAmount   float64   `json:"coverAmount"`
	AnnualPremium float64   `json:"annualPremium"`
	IssuedOn      time.Time `json:"issuedOn"`
}

// MutualFundHolding is one cleaned mutual-fund portfolio record.
type MutualFundHolding struct {
	CustomerID    string    `json:"customerId"`
	Folio         string    `json:"folio,omitempty"`
	Scheme        string    `json:"scheme,omitempty"`
	CurrentValue  float64   `json:"currentValue"`
	InvestedValue float64   `json:"investedValue"`
	AsOf          time.Time `json:"asOf"`
}

// MarketplaceOrder is one cleaned marketplace (ONDC) order record.
type MarketplaceOrder struct {
	CustomerID string    `json:"customerId"`
	Provider   string    `json:"provider"`
	OrderValue float64   `json:"orderValue"`
	OrderedOn  time.Time `json:"orderedOn"`
	Status     string    `json:"status,omitempty"`
}

// LoanApplication is one cleaned digital-lending (OCEN) application record.
type LoanApplication struct {
	CustomerID string    `json:"customerId"`
	Platform   string    `json:"platform,omitempty"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	AppliedOn  time.Time `json:"appliedOn"`
}

// Loan application status values.
const (
	LoanStatusApproved = "approved"
	LoanStatusRejected = "rejected"
	LoanStatusPending  = "pending"
)

// Dataset is the complete cleaned record set for one customer, produced by
// the upstream cleaning stage. Every record it contains has already been
// verified to belong to CustomerID by the ingest adapters.
type Dataset struct {
	CustomerID        string              `json:"customerId"`
	Transactions      []Transaction       `json:"transactions,omitempty"`
	GSTReturns        []GSTReturn         `json:"gstReturns,omitempty"`
	BureauReports     []BureauReport      `json:"bureauReports,omitempty"`
	InsurancePolicies []InsurancePolicy   `json:"insurancePolicies,omitempty"`
	MutualFunds       []MutualFundHolding `json:"mutualFunds,omitempty"`
	MarketplaceOrders []MarketplaceOrder  `json:"marketplaceOrders,omitempty"`
	LoanApplications  []LoanApplication   `json:"loanApplications,omitempty"`
}

// LatestBureauReport returns the most recent bureau report, or nil when the
// source is absent.
func (d *Dataset) LatestBureauReport() *BureauReport {
	var latest *BureauReport
	for i := range d.BureauReports {
		r := &d.BureauReports[i]
		if latest == nil || r.ReportedAt.After(latest.ReportedAt) {
			latest = r
		}
	}
	return latest
}
