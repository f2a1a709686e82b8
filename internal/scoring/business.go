package scoring

import (
	"sort"

	"github.com/opensource-finance/heron/internal/domain"
)

// BusinessInputs carries the source records the business health scorer reads.
type BusinessInputs struct {
	Returns []domain.GSTReturn
	Orders  []domain.MarketplaceOrder
	Funds   []domain.MutualFundHolding
}

// ScoreBusinessHealth computes the four bucketed contributors of the
// business health sub-score. Each contributor is capped, so the total
// cannot leave [0,100] unless the config caps are misconfigured.
func ScoreBusinessHealth(in BusinessInputs, cfg *domain.ScoringConfig) domain.BusinessBreakdown {
	bc := cfg.Business
	b := domain.BusinessBreakdown{}

	// GST compliance: linear in filed returns, capped.
	b.ReturnsFiled = len(in.Returns)
	if b.ReturnsFiled > 0 {
		perReturn := bc.GSTPointsPerBlock / float64(bc.GSTReturnsPerBlock)
		b.GSTScore = clamp(float64(b.ReturnsFiled)*perReturn, 0, bc.GSTMax)
	} else {
		b.Notes = append(b.Notes, "no GST returns on record; compliance contributor defaults to 0")
	}

	// Revenue scale: tiered by annual turnover.
	b.AnnualTurnover = annualTurnover(in.Returns)
	b.RevenueScore = lowerBucketPoints(b.AnnualTurnover, bc.RevenueTiers, false)

	// Marketplace diversity: points per distinct provider, capped.
	providers := make(map[string]struct{})
	for _, o := range in.Orders {
		if o.Provider != "" {
			providers[o.Provider] = struct{}{}
		}
	}
	b.ProviderCount = len(providers)
	b.DiversityScore = clamp(float64(b.ProviderCount)*bc.PointsPerProvider, 0, bc.DiversityMax)
	if len(in.Orders) == 0 {
		b.Notes = append(b.Notes, "no marketplace orders on record; diversity contributor defaults to 0")
	}

	// Investment activity: linear in portfolio count, capped.
	b.PortfolioCount = len(in.Funds)
	if b.PortfolioCount > 0 {
		perFolio := bc.PointsPerFolioBlock / float64(bc.FoliosPerBlock)
		b.InvestmentScore = clamp(float64(b.PortfolioCount)*perFolio, 0, bc.InvestmentMax)
	} else {
		b.Notes = append(b.Notes, "no mutual-fund holdings on record; investment contributor defaults to 0")
	}

	b.Total = clamp(b.GSTScore+b.RevenueScore+b.DiversityScore+b.InvestmentScore, 0, 100)
	return b
}

// annualTurnover sums reported turnover over the most recent 12 distinct
// filing periods, approximating the trailing annual figure.
func annualTurnover(returns []domain.GSTReturn) float64 {
	byPeriod := make(map[string]float64)
	for _, r := range returns {
		byPeriod[r.Period] += r.Turnover
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))

	if len(periods) > 12 {
		periods = periods[:12]
	}

	var total float64
	for _, p := range periods {
		total += byPeriod[p]
	}
	return total
}
