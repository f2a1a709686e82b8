package domain

// ScoreComponent is one weighted term of the composite score.
// Contribution is always recomputed from Raw and Weight via NewScoreComponent
// so the stored breakdown cannot drift from the inputs that produced it.
type ScoreComponent struct {
	Name         string  `json:"name"`
	Raw          float64 `json:"raw"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"` // raw * weight
	Note         string  `json:"note,omitempty"`
}

// NewScoreComponent builds a component with the contribution derived from
// raw * weight.
func NewScoreComponent(name string, raw, weight float64, note string) ScoreComponent {
	return ScoreComponent{
		Name:         name,
		Raw:          raw,
		Weight:       weight,
		Contribution: raw * weight,
		Note:         note,
	}
}

// CompositeScore is the weighted blend of the three sub-scores.
// Each sub-score and the overall score are bounded to [0,100].
type CompositeScore struct {
	CashflowStability float64          `json:"cashflowStability"`
	BusinessHealth    float64          `json:"businessHealth"`
	DebtCapacity      float64          `json:"debtCapacity"`
	OverallRiskScore  float64          `json:"overallRiskScore"`
	Components        []ScoreComponent `json:"components"`
	ConfigVersion     string           `json:"configVersion"`
}

// Risk band labels, ordered from worst to best.
const (
	BandHighRisk    = "High Risk/Reject"
	BandMediumRisk  = "Medium Risk"
	BandBorderline  = "Borderline/Manual Review"
	BandLowRisk     = "Low Risk"
	BandVeryLowRisk = "Very Low Risk"
)

// DebtBreakdown is the additive term-by-term breakdown of the debt capacity
// sub-score. SumRaw is the sum of the named terms before clamping; Final is
// clamp(SumRaw, 0, 100).
type DebtBreakdown struct {
	BaseFloor          float64  `json:"base_floor"`
	CreditComponent    float64  `json:"credit_component"`
	RepaymentBonus     float64  `json:"repayment_bonus"`
	DTIComponent       float64  `json:"dti_component"`
	OCENComponent      float64  `json:"ocen_component"`
	InsuranceComponent float64  `json:"insurance_component"`
	RegularityBonus    float64  `json:"regularity_bonus"`
	SumRaw             float64  `json:"sum_raw"`
	Final              float64  `json:"final_debt_capacity"`
	Notes              []string `json:"notes,omitempty"`
}

// BusinessBreakdown is the contributor-by-contributor breakdown of the
// business health sub-score, with the raw counts that produced each bucket.
type BusinessBreakdown struct {
	GSTScore        float64  `json:"gst_score"`
	RevenueScore    float64  `json:"revenue_score"`
	DiversityScore  float64  `json:"ondc_score"`
	InvestmentScore float64  `json:"investment_score"`
	ReturnsFiled    int      `json:"returns_filed"`
	AnnualTurnover  float64  `json:"annual_turnover"`
	ProviderCount   int      `json:"provider_count"`
	PortfolioCount  int      `json:"portfolio_count"`
	Total           float64  `json:"total"`
	Notes           []string `json:"notes,omitempty"`
}
