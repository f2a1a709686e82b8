package scoring

import (
	"github.com/opensource-finance/heron/internal/domain"
)

// DebtInputs carries the source records the debt capacity scorer reads.
// A nil Bureau means the credit-bureau source was absent.
type DebtInputs struct {
	Bureau   *domain.BureauReport
	Loans    []domain.LoanApplication
	Policies []domain.InsurancePolicy
}

// ScoreDebtCapacity computes the additive debt capacity breakdown. Each term
// is independently bounded, every term is reported, sum_raw is the exact sum
// of the terms, and the final score is clamp(sum_raw, 0, 100).
func ScoreDebtCapacity(in DebtInputs, cfg *domain.ScoringConfig) domain.DebtBreakdown {
	dc := cfg.Debt
	b := domain.DebtBreakdown{BaseFloor: dc.BaseFloor}

	if in.Bureau != nil {
		r := in.Bureau

		scale := (r.Score - dc.BureauFloor) / (dc.BureauCeiling - dc.BureauFloor)
		b.CreditComponent = clamp(scale*dc.CreditMax-r.CreditUtilization*dc.UtilizationPenalty, 0, dc.CreditMax)

		b.RepaymentBonus = clamp(r.EMIConsistency*dc.ConsistencyFactor-float64(r.BounceCount)*dc.BouncePenalty, 0, dc.RepaymentMax)

		// 100 - DTI, floored at 0; the final clamp bounds the total.
		b.DTIComponent = 100 - r.DebtToIncome
		if b.DTIComponent < 0 {
			b.DTIComponent = 0
		}

		b.RegularityBonus = clamp(r.PaymentRegularity*dc.RegularityFactor, 0, dc.RegularityMax)

		b.InsuranceComponent = insuranceComponent(in.Policies, r.MonthlyObligations, dc, &b)
	} else {
		b.Notes = append(b.Notes, "credit bureau source absent; credit, repayment, DTI, regularity and insurance terms default to 0")
	}

	b.OCENComponent = ocenComponent(in.Loans, dc, &b)

	b.SumRaw = b.BaseFloor + b.CreditComponent + b.RepaymentBonus + b.DTIComponent +
		b.OCENComponent + b.InsuranceComponent + b.RegularityBonus
	b.Final = clamp(b.SumRaw, 0, 100)

	return b
}

// ocenComponent scores the alternate-credit approval rate. A low approval
// rate across lending platforms is a red flag and scores negative; it is a
// penalty, never a bonus floor.
func ocenComponent(loans []domain.LoanApplication, dc domain.DebtConfig, b *domain.DebtBreakdown) float64 {
	if len(loans) == 0 {
		b.Notes = append(b.Notes, "no alternate-credit applications on record; OCEN term defaults to 0")
		return 0
	}

	approved := 0
	for _, l := range loans {
		if l.Status == domain.LoanStatusApproved {
			approved++
		}
	}
	rate := float64(approved) / float64(len(loans)) * 100

	if rate < dc.OCENRedFlagRate {
		return dc.OCENRedFlagPenalty
	}
	return clamp((rate-dc.OCENRedFlagRate)/(100-dc.OCENRedFlagRate)*dc.OCENMax, 0, dc.OCENMax)
}

// insuranceComponent scores the coverage-to-obligations ratio via the
// configured tiers. Obligations come from the bureau report; without them the
// ratio is undefined and the term defaults to 0.
func insuranceComponent(policies []domain.InsurancePolicy, monthlyObligations float64, dc domain.DebtConfig, b *domain.DebtBreakdown) float64 {
	if len(policies) == 0 {
		b.Notes = append(b.Notes, "no insurance policies on record; insurance term defaults to 0")
		return 0
	}
	if monthlyObligations <= 0 {
		b.Notes = append(b.Notes, "monthly obligations unknown; insurance coverage ratio undefined, term defaults to 0")
		return 0
	}

	var cover float64
	for _, p := range policies {
		cover += p.CoverAmount
	}
	ratio := cover / (monthlyObligations * 12)

	return lowerBucketPoints(ratio, dc.InsuranceBuckets, false)
}
