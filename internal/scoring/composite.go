package scoring

import (
	"github.com/opensource-finance/heron/internal/domain"
)

// Compose blends the three sub-scores into the overall risk score using the
// config weights. The overall score is the sum of the component
// contributions, each recomputed from raw x weight.
func Compose(cashflow, business, debt float64, cfg *domain.ScoringConfig) domain.CompositeScore {
	w := cfg.Weights

	components := []domain.ScoreComponent{
		domain.NewScoreComponent("cashflow_stability", clamp(cashflow, 0, 100), w.CashflowStability, "volatility, surplus and growth of monthly banking activity"),
		domain.NewScoreComponent("business_health", clamp(business, 0, 100), w.BusinessHealth, "GST compliance, revenue scale, marketplace diversity and investments"),
		domain.NewScoreComponent("debt_capacity", clamp(debt, 0, 100), w.DebtCapacity, "bureau standing, repayment record and obligations headroom"),
	}

	var overall float64
	for _, c := range components {
		overall += c.Contribution
	}

	return domain.CompositeScore{
		CashflowStability: components[0].Raw,
		BusinessHealth:    components[1].Raw,
		DebtCapacity:      components[2].Raw,
		OverallRiskScore:  clamp(overall, 0, 100),
		Components:        components,
		ConfigVersion:     cfg.Version,
	}
}
