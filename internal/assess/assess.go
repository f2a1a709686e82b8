// Package assess orchestrates one customer's scoring run: aggregation,
// stability and growth analysis, reconciliation, the three sub-scores, the
// composite score, anomaly detection, the indicator checklist, and the final
// recommendation and reports. Every stage is a pure function over in-memory
// aggregates; the pipeline recovers per-record issues locally and never
// crashes on sparse input.
package assess

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/heron/internal/anomaly"
	"github.com/opensource-finance/heron/internal/decision"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/history"
	"github.com/opensource-finance/heron/internal/indicators"
	"github.com/opensource-finance/heron/internal/reconcile"
	"github.com/opensource-finance/heron/internal/report"
	"github.com/opensource-finance/heron/internal/scoring"
	"github.com/opensource-finance/heron/internal/timeseries"
)

// EngineVersion is stamped into every assessment's metadata.
const EngineVersion = "heron-1.0"

// Pipeline runs assessments. It is safe for concurrent use; runs for
// different customers share nothing but the scoring config.
type Pipeline struct {
	mu      sync.RWMutex
	cfg     *domain.ScoringConfig
	engine  *indicators.Engine
	history *history.Service
}

// New creates a pipeline. An invalid scoring config is a configuration
// error and must abort startup.
func New(cfg *domain.ScoringConfig, engine *indicators.Engine, hist *history.Service) (*Pipeline, error) {
	if cfg == nil {
		cfg = domain.DefaultScoringConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config rejected: %w", err)
	}
	return &Pipeline{cfg: cfg, engine: engine, history: hist}, nil
}

// Config returns the active scoring config.
func (p *Pipeline) Config() *domain.ScoringConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// SetConfig swaps the active scoring config after validating it. Runs in
// flight keep the config they started with.
func (p *Pipeline) SetConfig(cfg *domain.ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("scoring config rejected: %w", err)
	}
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
	return nil
}

// Run scores one customer's dataset and returns the immutable assessment.
func (p *Pipeline) Run(ctx context.Context, tenantID string, ds *domain.Dataset) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}
	if ds == nil || ds.CustomerID == "" {
		return nil, fmt.Errorf("dataset with a customer id is required")
	}

	start := time.Now()
	cfg := p.Config()
	var diagnostics []string

	// Time series stages.
	buckets := timeseries.Aggregate(ds.Transactions)
	stability := timeseries.Analyze(buckets)
	growth := timeseries.Rate(buckets, cfg.Growth)

	// Reconciliation runs on raw per-source totals, independent of scoring.
	var gstTurnover float64
	for _, r := range ds.GSTReturns {
		gstTurnover += r.Turnover
	}
	rec := reconcile.Compare(gstTurnover, stability.TotalInflow, cfg.Reconciliation)

	// Sub-scores.
	cashflow := scoring.ScoreCashflow(stability, growth, cfg)
	business := scoring.ScoreBusinessHealth(scoring.BusinessInputs{
		Returns: ds.GSTReturns,
		Orders:  ds.MarketplaceOrders,
		Funds:   ds.MutualFunds,
	}, cfg)
	debt := scoring.ScoreDebtCapacity(scoring.DebtInputs{
		Bureau:   ds.LatestBureauReport(),
		Loans:    ds.LoanApplications,
		Policies: ds.InsurancePolicies,
	}, cfg)

	diagnostics = append(diagnostics, cashflow.Notes...)
	diagnostics = append(diagnostics, prefixed("business", business.Notes)...)
	diagnostics = append(diagnostics, prefixed("debt", debt.Notes)...)

	// Composite.
	scores := scoring.Compose(cashflow.Score, business.Total, debt.Final, cfg)
	band := cfg.BandFor(scores.OverallRiskScore)

	// Anomalies run on the raw transaction set, not on scores.
	anomalies := anomaly.Detect(ds.Transactions, cfg.Anomaly)
	if anomalies.Skipped {
		diagnostics = append(diagnostics, "anomaly detection skipped: "+anomalies.SkipReason)
	}

	// Indicator checklist.
	results := p.evaluateIndicators(ctx, tenantID, ds, scores, stability, growth, rec, anomalies, &diagnostics)

	recommendation := decision.Decide(decision.Input{
		Scores:         scores,
		Band:           band,
		Indicators:     results,
		AnomalyCount:   len(anomalies.Records),
		CriticalCount:  anomalies.CriticalCount(),
		Reconciliation: rec,
	})

	reports := report.Build(report.BuildInput{
		Stability:      stability,
		Growth:         growth,
		Reconciliation: rec,
		Cashflow:       cashflow,
		Debt:           debt,
		Business:       business,
		Scores:         scores,
		Anomalies:      anomalies,
		Recommendation: recommendation,
		Config:         cfg,
	})

	a := &domain.Assessment{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		CustomerID:    ds.CustomerID,
		Score:         scores.OverallRiskScore,
		Band:          band,
		Reports:       reports,
		Diagnostics:   diagnostics,
		ConfigVersion: cfg.Version,
		GeneratedAt:   time.Now().UTC(),
		Metadata: domain.AssessmentMetadata{
			TraceID:             traceID(ctx),
			TransactionsScanned: len(ds.Transactions),
			IndicatorsEvaluated: len(results),
			PipelineMs:          time.Since(start).Milliseconds(),
			EngineVersion:       EngineVersion,
		},
	}

	if p.history != nil {
		if err := p.history.RecordRun(ctx, tenantID, ds.CustomerID); err != nil {
			a.Diagnostics = append(a.Diagnostics, "run counter not updated: "+err.Error())
		}
	}

	return a, nil
}

func (p *Pipeline) evaluateIndicators(
	ctx context.Context,
	tenantID string,
	ds *domain.Dataset,
	scores domain.CompositeScore,
	stability timeseries.StabilityMetrics,
	growth timeseries.GrowthResult,
	rec reconcile.Result,
	anomalies anomaly.Result,
	diagnostics *[]string,
) []domain.IndicatorResult {
	if p.engine == nil {
		return nil
	}

	ev := indicators.Evidence{
		OverallScore:      scores.OverallRiskScore,
		CashflowStability: scores.CashflowStability,
		BusinessHealth:    scores.BusinessHealth,
		DebtCapacity:      scores.DebtCapacity,

		MonthsObserved:     stability.Months,
		CV:                 stability.CV,
		CVDefined:          stability.CVDefined,
		SeasonalityIndex:   stability.SeasonalityIndex,
		NetSurplus:         stability.NetSurplus,
		SurplusRatio:       stability.SurplusRatio,
		WorkingCapitalDays: stability.WorkingCapitalDays,
		GrowthRate:         growth.RatePercent,
		GrowthDefined:      growth.Defined,

		GSTReturnsFiled:   len(ds.GSTReturns),
		GSTComplianceRate: complianceRate(ds.GSTReturns),

		VarianceRatio:        rec.VarianceRatio,
		ReconciliationStatus: rec.Status,

		AnomalyCount:         len(anomalies.Records),
		CriticalAnomalyCount: anomalies.CriticalCount(),

		ProviderCount: providerCount(ds.MarketplaceOrders),
	}
	if bureau := ds.LatestBureauReport(); bureau != nil {
		ev.DTI = bureau.DebtToIncome
		ev.BureauScore = bureau.Score
		ev.CreditUtilization = bureau.CreditUtilization
		ev.BounceCount = bureau.BounceCount
	}

	results, err := p.engine.EvaluateAll(ctx, &indicators.EvaluateInput{
		TenantID:   tenantID,
		CustomerID: ds.CustomerID,
		Evidence:   ev,
	})
	if err != nil {
		*diagnostics = append(*diagnostics, "indicator checklist not evaluated: "+err.Error())
		return nil
	}
	for _, r := range results {
		if r.Err != "" {
			*diagnostics = append(*diagnostics, fmt.Sprintf("indicator %s: %s", r.IndicatorID, r.Err))
		}
	}
	return results
}

// complianceRate is the share of returns with a clean filed status. Records
// without a status are counted as filed; the cleaning stage only annotates
// exceptions.
func complianceRate(returns []domain.GSTReturn) float64 {
	if len(returns) == 0 {
		return 0
	}
	filed := 0
	for _, r := range returns {
		if r.Status == "" || strings.EqualFold(r.Status, "filed") {
			filed++
		}
	}
	return float64(filed) / float64(len(returns)) * 100
}

func providerCount(orders []domain.MarketplaceOrder) int {
	seen := make(map[string]struct{})
	for _, o := range orders {
		if o.Provider != "" {
			seen[o.Provider] = struct{}{}
		}
	}
	return len(seen)
}

func prefixed(stage string, notes []string) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, stage+": "+n)
	}
	return out
}

func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
