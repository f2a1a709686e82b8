package indicators

import "github.com/opensource-finance/heron/internal/domain"

// Builtin returns the default decision checklist. Tenants may replace or
// extend it through the indicators API; these ship enabled so a fresh
// deployment produces reviewable recommendations out of the box.
func Builtin() []*domain.IndicatorConfig {
	return []*domain.IndicatorConfig{
		{
			ID:         "pos-net-surplus",
			Name:       "Positive net surplus",
			Version:    "1",
			Expression: `net_surplus > 0.0`,
			Polarity:   domain.PolarityPositive,
			Message:    "Net monthly surplus is positive",
			Order:      10,
			Enabled:    true,
		},
		{
			ID:         "pos-stable-cashflow",
			Name:       "Stable cashflow",
			Version:    "1",
			Expression: `cv_defined && cv <= 30.0`,
			Polarity:   domain.PolarityPositive,
			Message:    "Monthly inflows are stable (CV within 30%)",
			Order:      20,
			Enabled:    true,
		},
		{
			ID:         "pos-growing-inflows",
			Name:       "Growing inflows",
			Version:    "1",
			Expression: `growth_defined && growth_rate > 5.0`,
			Polarity:   domain.PolarityPositive,
			Message:    "Banking inflows show sustained growth",
			Order:      30,
			Enabled:    true,
		},
		{
			ID:         "pos-gst-compliant",
			Name:       "GST compliance strong",
			Version:    "1",
			Expression: `gst_returns_filed > 0 && gst_compliance_rate > 90.0`,
			Polarity:   domain.PolarityPositive,
			Message:    "GST compliance above 90%",
			Order:      40,
			Enabled:    true,
		},
		{
			ID:         "pos-bureau-strong",
			Name:       "Strong bureau standing",
			Version:    "1",
			Expression: `bureau_score >= 750.0 && bounce_count == 0`,
			Polarity:   domain.PolarityPositive,
			Message:    "Credit bureau standing is strong with no bounces",
			Order:      50,
			Enabled:    true,
		},
		{
			ID:         "pos-turnover-reconciled",
			Name:       "Turnover reconciled",
			Version:    "1",
			Expression: `reconciliation_status == "reconciled"`,
			Polarity:   domain.PolarityPositive,
			Message:    "GST-reported turnover reconciles with bank credits",
			Order:      60,
			Enabled:    true,
		},
		{
			ID:         "pos-score-improving",
			Name:       "Score improving",
			Version:    "1",
			Expression: `prior_score_known && prior_score_delta > 5.0`,
			Polarity:   domain.PolarityPositive,
			Message:    "Risk score improved materially since the last assessment",
			Order:      70,
			Enabled:    true,
		},

		{
			ID:         "neg-dti-high",
			Name:       "Debt-to-income critical",
			Version:    "1",
			Expression: `dti >= 90.0`,
			Polarity:   domain.PolarityNegative,
			Message:    "Debt-to-income ratio at or above 90%",
			Flag:       domain.FlagDTIHigh,
			Order:      110,
			Enabled:    true,
		},
		{
			ID:         "neg-negative-surplus",
			Name:       "Spending exceeds income",
			Version:    "1",
			Expression: `months_observed >= 2 && net_surplus < 0.0`,
			Polarity:   domain.PolarityNegative,
			Message:    "Monthly spending exceeds income over the observed period",
			Flag:       domain.FlagNegativeSurplus,
			Order:      120,
			Enabled:    true,
		},
		{
			ID:         "neg-volatile-cashflow",
			Name:       "Volatile cashflow",
			Version:    "1",
			Expression: `cv_defined && cv > 75.0`,
			Polarity:   domain.PolarityNegative,
			Message:    "Monthly inflows are highly volatile",
			Flag:       domain.FlagVolatileCashflow,
			Order:      130,
			Enabled:    true,
		},
		{
			ID:         "neg-gst-mismatch",
			Name:       "Turnover mismatch",
			Version:    "1",
			Expression: `reconciliation_status == "high_mismatch"`,
			Polarity:   domain.PolarityNegative,
			Message:    "GST-reported turnover diverges sharply from bank credits",
			Flag:       domain.FlagGSTMismatch,
			Order:      140,
			Enabled:    true,
		},
		{
			ID:         "neg-anomalies",
			Name:       "Unexplained anomalies",
			Version:    "1",
			Expression: `anomaly_count > 0`,
			Polarity:   domain.PolarityNegative,
			Message:    "Statistically extreme transactions remain unexplained",
			Flag:       domain.FlagAnomalies,
			Order:      150,
			Enabled:    true,
		},
		{
			ID:         "neg-bounces",
			Name:       "Repayment bounces",
			Version:    "1",
			Expression: `bounce_count >= 2`,
			Polarity:   domain.PolarityNegative,
			Message:    "Repeated EMI bounces on record",
			Flag:       domain.FlagBounces,
			Order:      160,
			Enabled:    true,
		},
		{
			ID:         "neg-thin-history",
			Name:       "Thin banking history",
			Version:    "1",
			Expression: `months_observed < 6`,
			Polarity:   domain.PolarityNegative,
			Message:    "Fewer than six months of banking history observed",
			Flag:       domain.FlagThinHistory,
			Order:      170,
			Enabled:    true,
		},
		{
			ID:         "neg-score-drop",
			Name:       "Score deteriorating",
			Version:    "1",
			Expression: `prior_score_known && prior_score_delta < -10.0`,
			Polarity:   domain.PolarityNegative,
			Message:    "Risk score dropped sharply since the last assessment",
			Flag:       domain.FlagScoreDrop,
			Order:      180,
			Enabled:    true,
		},
	}
}
