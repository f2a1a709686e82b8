// Package worker provides async assessment processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/heron/internal/assess"
	"github.com/opensource-finance/heron/internal/domain"
)

// summaryTTL bounds how long a cached latest-assessment summary stays warm.
const summaryTTL = 15 * time.Minute

// Worker consumes dataset-ingested events from the EventBus and runs the
// assessment pipeline asynchronously.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	cache    domain.Cache
	pipeline *assess.Pipeline

	subscriptions []domain.Subscription
	sem           chan struct{}
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount bounds how many datasets are assessed concurrently.
	WorkerCount int
}

const defaultWorkerCount = 5

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, pipeline *assess.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		cache:    cache,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	count := cfg.WorkerCount
	if count <= 0 {
		count = defaultWorkerCount
	}
	w.sem = make(chan struct{}, count)

	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicDatasetIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicDatasetIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.dispatch(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicDatasetIngested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.dispatch(ctx, msg.TenantID, msg)
}

// dispatch hands a message to a bounded pool of assessment goroutines, so
// one slow customer does not stall the subscription and a burst of ingests
// cannot run an unbounded number of pipelines at once.
func (w *Worker) dispatch(ctx context.Context, tenantID string, msg *domain.Message) error {
	select {
	case w.sem <- struct{}{}:
	case <-w.ctx.Done():
		return w.ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer func() {
			<-w.sem
			w.wg.Done()
		}()
		if err := w.processDataset(ctx, tenantID, msg); err != nil {
			slog.Error("dataset processing failed",
				"message_id", msg.ID,
				"error", err,
			)
		}
	}()
	return nil
}

// DatasetMessage is the payload published when a customer dataset is ready
// for assessment. The dataset itself normally lives in the repository;
// Dataset may carry it inline when no repository is attached.
type DatasetMessage struct {
	CustomerID string          `json:"customerId"`
	TenantID   string          `json:"tenantId"`
	TraceID    string          `json:"traceId,omitempty"`
	Dataset    *domain.Dataset `json:"dataset,omitempty"`
}

// processDataset runs one customer's dataset through the pipeline.
func (w *Worker) processDataset(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var dsMsg DatasetMessage
	if err := json.Unmarshal(msg.Payload, &dsMsg); err != nil {
		slog.Error("failed to parse dataset message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if dsMsg.TenantID != "" {
		tenantID = dsMsg.TenantID
	}

	traceID := dsMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing dataset",
		"customer_id", dsMsg.CustomerID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	// 1. Resolve the dataset: inline payload wins, repository otherwise
	ds := dsMsg.Dataset
	if ds == nil {
		if w.repo == nil {
			return fmt.Errorf("no dataset in message and no repository attached")
		}
		var err error
		ds, err = w.repo.GetDataset(ctx, tenantID, dsMsg.CustomerID)
		if err != nil {
			slog.Error("failed to load dataset",
				"customer_id", dsMsg.CustomerID,
				"tenant_id", tenantID,
				"error", err,
			)
			return err
		}
	}

	// 2. Run the assessment pipeline
	assessment, err := w.pipeline.Run(ctx, tenantID, ds)
	if err != nil {
		slog.Error("assessment failed",
			"customer_id", dsMsg.CustomerID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	// 3. Persist the assessment
	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, tenantID, assessment); err != nil {
			slog.Error("failed to save assessment",
				"assessment_id", assessment.ID,
				"error", err,
			)
		}
	}

	// 4. Refresh the latest-assessment summary cache
	if w.cache != nil {
		summary := &domain.AssessmentSummary{
			AssessmentID:  assessment.ID,
			CustomerID:    assessment.CustomerID,
			Score:         assessment.Score,
			Band:          assessment.Band,
			ConfigVersion: assessment.ConfigVersion,
			GeneratedAt:   assessment.GeneratedAt,
		}
		if err := w.cache.SetAssessmentSummary(ctx, tenantID, assessment.CustomerID, summary, summaryTTL); err != nil {
			slog.Error("failed to cache assessment summary",
				"assessment_id", assessment.ID,
				"error", err,
			)
		}
	}

	// 5. Publish the completed assessment
	resultPayload, _ := json.Marshal(assessment)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicAssessmentCompleted, resultPayload); err != nil {
		slog.Error("failed to publish assessment",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}

	// 6. Borderline outcomes go to the manual review queue
	if assessment.Band == domain.BandBorderline {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicReviewRequired, resultPayload); err != nil {
			slog.Error("failed to publish review request",
				"assessment_id", assessment.ID,
				"error", err,
			)
		}
	}

	slog.Info("dataset processed",
		"customer_id", dsMsg.CustomerID,
		"tenant_id", tenantID,
		"score", assessment.Score,
		"band", assessment.Band,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
