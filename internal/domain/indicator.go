package domain

// Indicator polarity values.
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
)

// Negative-indicator flags consumed by the conditional terms tables.
const (
	FlagDTIHigh          = "dti_high"
	FlagNegativeSurplus  = "negative_surplus"
	FlagVolatileCashflow = "volatile_cashflow"
	FlagGSTMismatch      = "gst_mismatch"
	FlagAnomalies        = "anomalies_present"
	FlagBounces          = "repeat_bounces"
	FlagThinHistory      = "thin_history"
	FlagScoreDrop        = "score_drop"
)

// IndicatorConfig defines one named predicate of the decision checklist.
// The expression is a CEL program over the flat evidence activation and must
// return bool. Indicators explain the score; they never feed back into it.
type IndicatorConfig struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`

	// CEL expression, must evaluate to bool
	Expression string `json:"expression"`

	// "positive" or "negative"
	Polarity string `json:"polarity"`

	// Message is the human-readable text added to the recommendation when
	// the indicator triggers.
	Message string `json:"message"`

	// Flag is an optional machine-readable tag consumed by the conditional
	// terms tables (e.g. "dti_high").
	Flag string `json:"flag,omitempty"`

	// Order fixes the position in the checklist and in the reported lists.
	Order int `json:"order"`

	Enabled bool `json:"enabled"`
}

// IndicatorResult is the outcome of evaluating one indicator.
type IndicatorResult struct {
	IndicatorID string `json:"indicatorId"`
	Polarity    string `json:"polarity"`
	Triggered   bool   `json:"triggered"`
	Message     string `json:"message"`
	Flag        string `json:"flag,omitempty"`
	Order       int    `json:"order"`
	Err         string `json:"err,omitempty"`
}
