package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig marks a structural scoring-configuration error. These are
// fatal at startup; the engine must not run with a config that could produce
// an out-of-range score.
var ErrInvalidConfig = errors.New("invalid scoring config")

// ScoringConfig carries every hand-tuned weight and bucket table used by the
// scorers. It is explicit and versioned so that "which config produced this
// score" is always answerable, and it is passed into every scorer rather than
// read from globals.
type ScoringConfig struct {
	Version string `json:"version"`

	Weights CompositeWeights `json:"weights"`
	Bands   []ScoreBand      `json:"bands"`

	Cashflow       CashflowConfig       `json:"cashflow"`
	Debt           DebtConfig           `json:"debt"`
	Business       BusinessConfig       `json:"business"`
	Anomaly        AnomalyConfig        `json:"anomaly"`
	Growth         GrowthConfig         `json:"growth"`
	Reconciliation ReconciliationConfig `json:"reconciliation"`
}

// CompositeWeights blends the three sub-scores. The weights must sum to 1.0.
type CompositeWeights struct {
	CashflowStability float64 `json:"cashflowStability"`
	BusinessHealth    float64 `json:"businessHealth"`
	DebtCapacity      float64 `json:"debtCapacity"`
}

// ScoreBand maps an inclusive lower bound to a band label. Bands are ordered
// by descending Lower; the first band whose Lower the score reaches wins.
type ScoreBand struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
}

// UpperBucket awards Points to values at or below Max. Tables of upper
// buckets are ordered by ascending Max.
type UpperBucket struct {
	Max    float64 `json:"max"`
	Points float64 `json:"points"`
}

// LowerBucket awards Points to values strictly above Min. Tables of lower
// buckets are ordered by descending Min.
type LowerBucket struct {
	Min    float64 `json:"min"`
	Points float64 `json:"points"`
}

// CashflowConfig buckets the cashflow-stability sub-score inputs.
type CashflowConfig struct {
	Base                  float64       `json:"base"`
	CVBuckets             []UpperBucket `json:"cvBuckets"`
	CVOverflowPoints      float64       `json:"cvOverflowPoints"`
	SurplusBuckets        []LowerBucket `json:"surplusBuckets"`
	NegativeSurplusPoints float64       `json:"negativeSurplusPoints"`
	GrowthBuckets         []LowerBucket `json:"growthBuckets"`
	NegativeGrowthPoints  float64       `json:"negativeGrowthPoints"`
}

// DebtConfig bounds each additive term of the debt capacity breakdown.
type DebtConfig struct {
	BaseFloor float64 `json:"baseFloor"`

	CreditMax          float64 `json:"creditMax"`
	BureauFloor        float64 `json:"bureauFloor"`
	BureauCeiling      float64 `json:"bureauCeiling"`
	UtilizationPenalty float64 `json:"utilizationPenalty"` // points per percent utilized

	RepaymentMax      float64 `json:"repaymentMax"`
	ConsistencyFactor float64 `json:"consistencyFactor"`
	BouncePenalty     float64 `json:"bouncePenalty"` // points per bounce

	OCENMax            float64 `json:"ocenMax"`
	OCENRedFlagRate    float64 `json:"ocenRedFlagRate"`    // approval rate below this is a red flag
	OCENRedFlagPenalty float64 `json:"ocenRedFlagPenalty"` // negative

	InsuranceBuckets []LowerBucket `json:"insuranceBuckets"` // coverage-to-obligations tiers

	RegularityMax    float64 `json:"regularityMax"`
	RegularityFactor float64 `json:"regularityFactor"`
}

// BusinessConfig buckets the business-health contributors.
type BusinessConfig struct {
	GSTMax            float64 `json:"gstMax"`
	GSTPointsPerBlock float64 `json:"gstPointsPerBlock"`
	GSTReturnsPerBlock int    `json:"gstReturnsPerBlock"`

	RevenueTiers []LowerBucket `json:"revenueTiers"` // annual turnover tiers, rupees

	DiversityMax      float64 `json:"diversityMax"`
	PointsPerProvider float64 `json:"pointsPerProvider"`

	InvestmentMax       float64 `json:"investmentMax"`
	PointsPerFolioBlock float64 `json:"pointsPerFolioBlock"`
	FoliosPerBlock      int     `json:"foliosPerBlock"`
}

// AnomalyConfig parameterizes the z-score detector.
type AnomalyConfig struct {
	ZThreshold   float64 `json:"zThreshold"`
	MinSamples   int     `json:"minSamples"`
	HighTier     float64 `json:"highTier"`     // deviations at or above are "high"
	CriticalTier float64 `json:"criticalTier"` // deviations at or above are "critical"
}

// GrowthConfig selects between the CAGR and short-window growth models.
type GrowthConfig struct {
	CAGRMinSpanMonths int `json:"cagrMinSpanMonths"`
	WindowMonths      int `json:"windowMonths"`
}

// ReconciliationConfig classifies GST-vs-bank variance.
type ReconciliationConfig struct {
	DisplayCap      float64 `json:"displayCap"`
	ReconciledBelow float64 `json:"reconciledBelow"`
	ModerateUpTo    float64 `json:"moderateUpTo"`
}

// Rupee scale constants for the revenue tiers.
const (
	RupeeCrore = 1e7
)

// DefaultScoringConfig returns the canonical hand-specified scoring tables.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		Version: "2024.1",
		Weights: CompositeWeights{
			CashflowStability: 0.45,
			BusinessHealth:    0.35,
			DebtCapacity:      0.20,
		},
		Bands: []ScoreBand{
			{Label: BandVeryLowRisk, Lower: 91},
			{Label: BandLowRisk, Lower: 76},
			{Label: BandBorderline, Lower: 61},
			{Label: BandMediumRisk, Lower: 31},
			{Label: BandHighRisk, Lower: 0},
		},
		Cashflow: CashflowConfig{
			Base: 40,
			CVBuckets: []UpperBucket{
				{Max: 15, Points: 30},
				{Max: 30, Points: 22},
				{Max: 50, Points: 12},
				{Max: 75, Points: 5},
				{Max: 100, Points: 0},
			},
			CVOverflowPoints: -10,
			SurplusBuckets: []LowerBucket{
				{Min: 30, Points: 20},
				{Min: 15, Points: 14},
				{Min: 5, Points: 8},
				{Min: 0, Points: 4},
			},
			NegativeSurplusPoints: -15,
			GrowthBuckets: []LowerBucket{
				{Min: 15, Points: 10},
				{Min: 5, Points: 6},
				{Min: 0, Points: 3},
			},
			NegativeGrowthPoints: -5,
		},
		Debt: DebtConfig{
			BaseFloor:          10,
			CreditMax:          30,
			BureauFloor:        300,
			BureauCeiling:      900,
			UtilizationPenalty: 0.1,
			RepaymentMax:       15,
			ConsistencyFactor:  0.15,
			BouncePenalty:      2,
			OCENMax:            10,
			OCENRedFlagRate:    30,
			OCENRedFlagPenalty: -10,
			InsuranceBuckets: []LowerBucket{
				{Min: 2.0, Points: 10},
				{Min: 1.0, Points: 7},
				{Min: 0.5, Points: 4},
			},
			RegularityMax:    5,
			RegularityFactor: 0.05,
		},
		Business: BusinessConfig{
			GSTMax:             30,
			GSTPointsPerBlock:  10,
			GSTReturnsPerBlock: 50,
			RevenueTiers: []LowerBucket{
				{Min: 50 * RupeeCrore, Points: 25},
				{Min: 10 * RupeeCrore, Points: 20},
				{Min: 5 * RupeeCrore, Points: 15},
				{Min: 1 * RupeeCrore, Points: 10},
				{Min: 0, Points: 5},
			},
			DiversityMax:        20,
			PointsPerProvider:   4,
			InvestmentMax:       25,
			PointsPerFolioBlock: 5,
			FoliosPerBlock:      100,
		},
		Anomaly: AnomalyConfig{
			ZThreshold:   3,
			MinSamples:   10,
			HighTier:     4,
			CriticalTier: 5,
		},
		Growth: GrowthConfig{
			CAGRMinSpanMonths: 24,
			WindowMonths:      3,
		},
		Reconciliation: ReconciliationConfig{
			DisplayCap:      100,
			ReconciledBelow: 10,
			ModerateUpTo:    50,
		},
	}
}

const weightTolerance = 1e-9

// Validate checks the structural integrity of the config. Any error here is
// fatal: a malformed table can silently produce out-of-range scores.
func (c *ScoringConfig) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidConfig)
	}

	sum := c.Weights.CashflowStability + c.Weights.BusinessHealth + c.Weights.DebtCapacity
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: composite weights sum to %v, want 1.0", ErrInvalidConfig, sum)
	}
	if c.Weights.CashflowStability < 0 || c.Weights.BusinessHealth < 0 || c.Weights.DebtCapacity < 0 {
		return fmt.Errorf("%w: composite weights must be non-negative", ErrInvalidConfig)
	}

	if len(c.Bands) == 0 {
		return fmt.Errorf("%w: at least one score band is required", ErrInvalidConfig)
	}
	for i, b := range c.Bands {
		if b.Label == "" {
			return fmt.Errorf("%w: band %d has no label", ErrInvalidConfig, i)
		}
		if i > 0 && b.Lower >= c.Bands[i-1].Lower {
			return fmt.Errorf("%w: band lower bounds must strictly descend", ErrInvalidConfig)
		}
	}
	if c.Bands[len(c.Bands)-1].Lower != 0 {
		return fmt.Errorf("%w: band table must cover scores down to 0", ErrInvalidConfig)
	}

	for i, b := range c.Cashflow.CVBuckets {
		if i > 0 && b.Max <= c.Cashflow.CVBuckets[i-1].Max {
			return fmt.Errorf("%w: cashflow CV buckets must strictly ascend", ErrInvalidConfig)
		}
	}
	if err := validateLowerBuckets("cashflow surplus", c.Cashflow.SurplusBuckets); err != nil {
		return err
	}
	if err := validateLowerBuckets("cashflow growth", c.Cashflow.GrowthBuckets); err != nil {
		return err
	}
	if err := validateLowerBuckets("insurance", c.Debt.InsuranceBuckets); err != nil {
		return err
	}
	if err := validateLowerBuckets("revenue tier", c.Business.RevenueTiers); err != nil {
		return err
	}

	if c.Debt.BureauCeiling <= c.Debt.BureauFloor {
		return fmt.Errorf("%w: bureau ceiling must exceed bureau floor", ErrInvalidConfig)
	}
	if c.Debt.OCENRedFlagRate < 0 || c.Debt.OCENRedFlagRate >= 100 {
		return fmt.Errorf("%w: OCEN red-flag rate must be in [0,100)", ErrInvalidConfig)
	}

	if c.Business.GSTReturnsPerBlock <= 0 || c.Business.FoliosPerBlock <= 0 {
		return fmt.Errorf("%w: business block sizes must be positive", ErrInvalidConfig)
	}

	if c.Anomaly.ZThreshold <= 0 {
		return fmt.Errorf("%w: anomaly z-threshold must be positive", ErrInvalidConfig)
	}
	if c.Anomaly.MinSamples < 2 {
		return fmt.Errorf("%w: anomaly minimum sample size must be at least 2", ErrInvalidConfig)
	}
	if c.Anomaly.CriticalTier < c.Anomaly.HighTier || c.Anomaly.HighTier < c.Anomaly.ZThreshold {
		return fmt.Errorf("%w: anomaly severity tiers must not be below the z-threshold", ErrInvalidConfig)
	}

	if c.Growth.CAGRMinSpanMonths < 2 {
		return fmt.Errorf("%w: CAGR minimum span must be at least 2 months", ErrInvalidConfig)
	}
	if c.Growth.WindowMonths < 1 {
		return fmt.Errorf("%w: growth window must be at least 1 month", ErrInvalidConfig)
	}

	if c.Reconciliation.DisplayCap <= 0 {
		return fmt.Errorf("%w: reconciliation display cap must be positive", ErrInvalidConfig)
	}
	if c.Reconciliation.ReconciledBelow <= 0 || c.Reconciliation.ModerateUpTo <= c.Reconciliation.ReconciledBelow {
		return fmt.Errorf("%w: reconciliation thresholds must satisfy 0 < reconciled < moderate", ErrInvalidConfig)
	}

	return nil
}

func validateLowerBuckets(name string, buckets []LowerBucket) error {
	for i, b := range buckets {
		if i > 0 && b.Min >= buckets[i-1].Min {
			return fmt.Errorf("%w: %s buckets must strictly descend", ErrInvalidConfig, name)
		}
	}
	return nil
}

// BandFor maps a score to its band label. Assumes a validated band table.
func (c *ScoringConfig) BandFor(score float64) string {
	for _, b := range c.Bands {
		if score >= b.Lower {
			return b.Label
		}
	}
	return c.Bands[len(c.Bands)-1].Label
}
