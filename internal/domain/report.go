package domain

import (
	"time"
)

// Calculation makes an externally visible metric auditable: the formula that
// produced it, the named inputs that went into it, and a plain-language
// interpretation. Mandatory for every reported metric.
type Calculation struct {
	Formula     string             `json:"formula"`
	Breakdown   map[string]float64 `json:"breakdown"`
	Explanation string             `json:"explanation"`
}

// Metric is one computed value with its mandatory calculation object.
type Metric struct {
	Name        string      `json:"name"`
	Value       float64     `json:"value"`
	Unit        string      `json:"unit,omitempty"`
	Calculation Calculation `json:"calculation"`
}

// Report is one per-category structured report.
type Report struct {
	Category string   `json:"category"`
	Metrics  []Metric `json:"metrics"`
	Notes    []string `json:"notes,omitempty"`
}

// Anomaly severity tiers.
const (
	SeverityModerate = "moderate"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// AnomalyRecord flags one statistically extreme transaction. Records are
// regenerated fresh each run and never mutated.
type AnomalyRecord struct {
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
	Amount        float64   `json:"amount"`
	Direction     Direction `json:"direction"`
	Deviation     float64   `json:"deviation"` // standard deviations from the mean
	Severity      string    `json:"severity"`
	Description   string    `json:"description"`
}

// AnomalyReport is the per-run anomaly category report.
type AnomalyReport struct {
	Category    string          `json:"category"`
	Count       int             `json:"count"`
	Records     []AnomalyRecord `json:"records"`
	Calculation Calculation     `json:"calculation"`
	Notes       []string        `json:"notes,omitempty"`
}

// SuggestedTerms carries conditional lending terms proposed for borderline
// and medium bands.
type SuggestedTerms struct {
	AmountFactor      float64  `json:"amountFactor"` // fraction of the requested amount
	RateAdjustmentBps int      `json:"rateAdjustmentBps"`
	GuarantorRequired bool     `json:"guarantorRequired"`
	Conditions        []string `json:"conditions,omitempty"`
}

// DecisionRecommendation is the terminal output of the decision engine.
// It is derived purely from the composite score and evidentiary data and has
// no independent state.
type DecisionRecommendation struct {
	Band      string          `json:"band"`
	Positive  []string        `json:"positiveIndicators"`
	Negative  []string        `json:"negativeIndicators"`
	Rationale string          `json:"rationale"`
	Terms     *SuggestedTerms `json:"suggestedTerms,omitempty"`
}

// OverallReport is the top-level report with the composite scores, both
// sub-score breakdowns, the explicit methodology, and the recommendation.
type OverallReport struct {
	Scores                     CompositeScore         `json:"scores"`
	DebtCapacityBreakdown      DebtBreakdown          `json:"debt_capacity_breakdown"`
	BusinessHealthContributors BusinessBreakdown      `json:"business_health_contributors"`
	ScoreMethodology           Calculation            `json:"score_methodology"`
	Recommendation             DecisionRecommendation `json:"recommendation"`
	Calculation                Calculation            `json:"calculation"`
}

// ReportSet groups the per-category reports of one assessment.
type ReportSet struct {
	Overall      OverallReport `json:"overall"`
	Transactions Report        `json:"transactions"`
	GST          Report        `json:"gst"`
	Credit       Report        `json:"credit"`
	Earnings     Report        `json:"earnings"`
	Anomalies    AnomalyReport `json:"anomalies"`
}

// Assessment is the complete result of scoring one customer's dataset.
type Assessment struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenantId"`
	CustomerID    string             `json:"customerId"`
	Score         float64            `json:"score"`
	Band          string             `json:"band"`
	Reports       ReportSet          `json:"reports"`
	Diagnostics   []string           `json:"diagnostics,omitempty"`
	ConfigVersion string             `json:"configVersion"`
	GeneratedAt   time.Time          `json:"generatedAt"`
	Metadata      AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata carries processing information for one run.
type AssessmentMetadata struct {
	TraceID             string `json:"traceId"`
	TransactionsScanned int    `json:"transactionsScanned"`
	IndicatorsEvaluated int    `json:"indicatorsEvaluated"`
	PipelineMs          int64  `json:"pipelineMs"`
	EngineVersion       string `json:"engineVersion"`
}

// AssessmentSummary is the compact cached view of a customer's latest
// assessment.
type AssessmentSummary struct {
	AssessmentID  string    `json:"assessmentId"`
	CustomerID    string    `json:"customerId"`
	Score         float64   `json:"score"`
	Band          string    `json:"band"`
	ConfigVersion string    `json:"configVersion"`
	GeneratedAt   time.Time `json:"generatedAt"`
}
