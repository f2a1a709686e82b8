// Package indicators provides the CEL-Go based decision checklist engine.
package indicators

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/heron/internal/domain"
)

// Engine compiles and evaluates the ordered checklist of named indicator
// predicates. Indicators explain an assessment; they never change its score.
type Engine struct {
	mu         sync.RWMutex
	env        *cel.Env
	compiled   map[string]*CompiledIndicator
	source     string
	priorScore PriorScoreGetter
	maxWorkers int
}

// CompiledIndicator holds a pre-compiled CEL program.
type CompiledIndicator struct {
	Config  *domain.IndicatorConfig
	Program cel.Program
}

// PriorScoreGetter returns the customer's most recent overall score, if any.
// It backs the prior_score_delta evidence variable.
type PriorScoreGetter func(ctx context.Context, tenantID, customerID string) (float64, bool, error)

// NewEngine creates a new indicator evaluation engine.
func NewEngine(priorScore PriorScoreGetter, maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	env, err := cel.NewEnv(
		cel.Variable("evidence", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("overall_score", cel.DoubleType),
		cel.Variable("cashflow_stability", cel.DoubleType),
		cel.Variable("business_health", cel.DoubleType),
		cel.Variable("debt_capacity", cel.DoubleType),
		cel.Variable("months_observed", cel.IntType),
		cel.Variable("cv", cel.DoubleType),
		cel.Variable("cv_defined", cel.BoolType),
		cel.Variable("seasonality_index", cel.DoubleType),
		cel.Variable("net_surplus", cel.DoubleType),
		cel.Variable("surplus_ratio", cel.DoubleType),
		cel.Variable("working_capital_days", cel.DoubleType),
		cel.Variable("growth_rate", cel.DoubleType),
		cel.Variable("growth_defined", cel.BoolType),
		cel.Variable("dti", cel.DoubleType),
		cel.Variable("bureau_score", cel.DoubleType),
		cel.Variable("credit_utilization", cel.DoubleType),
		cel.Variable("bounce_count", cel.IntType),
		cel.Variable("gst_returns_filed", cel.IntType),
		cel.Variable("gst_compliance_rate", cel.DoubleType),
		cel.Variable("variance_ratio", cel.DoubleType),
		cel.Variable("reconciliation_status", cel.StringType),
		cel.Variable("anomaly_count", cel.IntType),
		cel.Variable("critical_anomaly_count", cel.IntType),
		cel.Variable("provider_count", cel.IntType),
		cel.Variable("prior_score_delta", cel.DoubleType),
		cel.Variable("prior_score_known", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:        env,
		compiled:   make(map[string]*CompiledIndicator),
		priorScore: priorScore,
		maxWorkers: maxWorkers,
	}, nil
}

// ValidateIndicator compiles an indicator without mutating the loaded set.
func (e *Engine) ValidateIndicator(cfg *domain.IndicatorConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: indicator config is required", domain.ErrInvalidConfig)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compile(cfg)
	return err
}

// LoadIndicator compiles and loads one indicator into the engine.
func (e *Engine) LoadIndicator(cfg *domain.IndicatorConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compile(cfg)
	if err != nil {
		return err
	}

	e.compiled[cfg.ID] = compiled
	return nil
}

// LoadIndicators compiles and loads the enabled indicators. Any compile
// failure is a configuration error and aborts the load.
func (e *Engine) LoadIndicators(configs []*domain.IndicatorConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadIndicator(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadIndicators swaps the loaded set atomically. The current set stays
// live if any replacement indicator fails to compile.
func (e *Engine) ReloadIndicators(configs []*domain.IndicatorConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[string]*CompiledIndicator)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compile(cfg)
		if err != nil {
			return err
		}
		next[cfg.ID] = compiled
	}

	e.compiled = next
	return nil
}

// EvaluateInput carries the assessment evidence for one checklist run.
type EvaluateInput struct {
	TenantID   string
	CustomerID string
	Evidence   Evidence
}

// EvaluateAll evaluates every loaded indicator against the evidence and
// returns the results in checklist order. An indicator that errors at
// evaluation time reports the error and counts as not triggered.
func (e *Engine) EvaluateAll(ctx context.Context, input *EvaluateInput) ([]domain.IndicatorResult, error) {
	e.mu.RLock()
	list := make([]*CompiledIndicator, 0, len(e.compiled))
	for _, ind := range e.compiled {
		list = append(list, ind)
	}
	e.mu.RUnlock()

	if len(list) == 0 {
		return nil, nil
	}

	ev := input.Evidence
	if e.priorScore != nil {
		prior, found, err := e.priorScore(ctx, input.TenantID, input.CustomerID)
		if err == nil && found {
			ev.PriorScoreDelta = ev.OverallScore - prior
			ev.PriorScoreKnown = true
		}
	}
	activation := ev.activation()

	results := make([]domain.IndicatorResult, len(list))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, ind := range list {
		wg.Add(1)
		go func(idx int, ind *CompiledIndicator) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = evaluate(ind, activation)
		}(i, ind)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Order != results[j].Order {
			return results[i].Order < results[j].Order
		}
		return results[i].IndicatorID < results[j].IndicatorID
	})

	return results, nil
}

func evaluate(ind *CompiledIndicator, activation map[string]any) domain.IndicatorResult {
	result := domain.IndicatorResult{
		IndicatorID: ind.Config.ID,
		Polarity:    ind.Config.Polarity,
		Message:     ind.Config.Message,
		Flag:        ind.Config.Flag,
		Order:       ind.Config.Order,
	}

	out, _, err := ind.Program.Eval(activation)
	if err != nil {
		result.Err = fmt.Sprintf("evaluation error: %v", err)
		return result
	}

	triggered, ok := out.(types.Bool)
	if !ok {
		result.Err = fmt.Sprintf("expression returned %T, want bool", out)
		return result
	}
	result.Triggered = bool(triggered)

	return result
}

// Count returns the number of loaded indicators.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// SetSource records where the loaded set came from ("builtin" or
// "database").
func (e *Engine) SetSource(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source = source
}

// Source reports where the loaded set came from. An engine that was never
// told defaults to "builtin".
func (e *Engine) Source() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.source == "" {
		return "builtin"
	}
	return e.source
}

// LoadedIndicators returns the currently loaded indicator configurations.
func (e *Engine) LoadedIndicators() []*domain.IndicatorConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	configs := make([]*domain.IndicatorConfig, 0, len(e.compiled))
	for _, compiled := range e.compiled {
		configs = append(configs, compiled.Config)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Order < configs[j].Order })
	return configs
}

// Close clears the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = make(map[string]*CompiledIndicator)
	return nil
}

func (e *Engine) compile(cfg *domain.IndicatorConfig) (*CompiledIndicator, error) {
	switch cfg.Polarity {
	case domain.PolarityPositive, domain.PolarityNegative:
	default:
		return nil, fmt.Errorf("%w: indicator %s: polarity must be positive or negative, got %q", domain.ErrInvalidConfig, cfg.ID, cfg.Polarity)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile indicator %s: %v", domain.ErrInvalidConfig, cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: indicator %s: expression must return bool, got %s", domain.ErrInvalidConfig, cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create program for indicator %s: %v", domain.ErrInvalidConfig, cfg.ID, err)
	}

	return &CompiledIndicator{Config: cfg, Program: program}, nil
}
