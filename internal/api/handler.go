package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/heron/internal/assess"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/indicators"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/repository"
)

// GlobalTenantID is used for indicator and scoring configs that apply to
// all tenants.
const GlobalTenantID = "*"

// summaryTTL bounds how long a cached latest-assessment summary stays warm.
const summaryTTL = 15 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *indicators.Engine
	pipeline *assess.Pipeline
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *indicators.Engine, pipeline *assess.Pipeline, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   engine,
		pipeline: pipeline,
		version:  version,
	}
}

// IngestResponse is the response for POST /customers/{id}/dataset.
type IngestResponse struct {
	CustomerID  string   `json:"customerId"`
	Records     int      `json:"records"`
	Diagnostics []string `json:"diagnostics"`
	Metadata    struct {
		TraceID  string `json:"traceId"`
		IngestMs int64  `json:"ingestMs"`
		Version  string `json:"version"`
	} `json:"metadata"`
}

// IngestDataset handles POST /customers/{id}/dataset. The body carries the
// raw per-source rows; the adapters clean them into a canonical dataset
// which replaces any previously stored dataset for the customer.
func (h *Handler) IngestDataset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)
	customerID := chi.URLParam(r, "id")

	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customer id is required",
		})
		return
	}

	var raw ingest.RawSources
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	ds, diags, err := ingest.BuildDataset(customerID, raw)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ingest.ErrUnscoped) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveDataset(ctx, tenantID, &ds); err != nil {
			slog.Error("failed to save dataset", "customer_id", customerID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save dataset",
			})
			return
		}
	}

	// Notify async workers that the dataset is ready
	if h.bus != nil {
		payload, _ := json.Marshal(map[string]string{
			"customerId": customerID,
			"tenantId":   tenantID,
			"traceId":    traceID,
		})
		if err := h.bus.Publish(ctx, tenantID, domain.TopicDatasetIngested, payload); err != nil {
			slog.Error("failed to publish dataset event", "customer_id", customerID, "error", err)
		}
	}

	resp := IngestResponse{
		CustomerID: customerID,
		Records: len(ds.Transactions) + len(ds.GSTReturns) + len(ds.BureauReports) +
			len(ds.InsurancePolicies) + len(ds.MutualFunds) +
			len(ds.MarketplaceOrders) + len(ds.LoanApplications),
	}
	for _, d := range diags {
		resp.Diagnostics = append(resp.Diagnostics, d.Summary())
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.IngestMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// Assess handles POST /customers/{id}/assess. It runs the pipeline
// synchronously and returns the full assessment. An optional request body
// carries inline raw sources, cleaned and scoped exactly as at ingest;
// with no body (or an empty one) the customer's stored dataset is used.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customer id is required",
		})
		return
	}

	ds, ok := h.resolveDataset(w, r, tenantID, customerID)
	if !ok {
		return
	}

	assessment, err := h.pipeline.Run(ctx, tenantID, ds)
	if err != nil {
		slog.Error("assessment failed", "customer_id", customerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveAssessment(ctx, tenantID, assessment); err != nil {
			slog.Error("failed to save assessment", "assessment_id", assessment.ID, "error", err)
		}
	}

	if h.cache != nil {
		summary := &domain.AssessmentSummary{
			AssessmentID:  assessment.ID,
			CustomerID:    assessment.CustomerID,
			Score:         assessment.Score,
			Band:          assessment.Band,
			ConfigVersion: assessment.ConfigVersion,
			GeneratedAt:   assessment.GeneratedAt,
		}
		if err := h.cache.SetAssessmentSummary(ctx, tenantID, customerID, summary, summaryTTL); err != nil {
			slog.Error("failed to cache assessment summary", "assessment_id", assessment.ID, "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(assessment)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicAssessmentCompleted, payload); err != nil {
			slog.Error("failed to publish assessment", "assessment_id", assessment.ID, "error", err)
		}
		if assessment.Band == domain.BandBorderline {
			if err := h.bus.Publish(ctx, tenantID, domain.TopicReviewRequired, payload); err != nil {
				slog.Error("failed to publish review request", "assessment_id", assessment.ID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, assessment)
}

// resolveDataset picks the dataset for a synchronous assessment: an inline
// body wins, otherwise the customer's stored dataset. Error responses are
// written here; ok reports whether the caller may proceed.
func (h *Handler) resolveDataset(w http.ResponseWriter, r *http.Request, tenantID, customerID string) (*domain.Dataset, bool) {
	var raw ingest.RawSources
	decodeErr := json.NewDecoder(r.Body).Decode(&raw)

	if decodeErr == nil && !raw.Empty() {
		built, _, err := ingest.BuildDataset(customerID, raw)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ingest.ErrUnscoped) {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, map[string]string{
				"error": err.Error(),
			})
			return nil, false
		}
		return &built, true
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return nil, false
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return nil, false
	}

	ds, err := h.repo.GetDataset(r.Context(), tenantID, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no dataset for customer",
			})
			return nil, false
		}
		slog.Error("failed to load dataset", "customer_id", customerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load dataset",
		})
		return nil, false
	}
	return ds, true
}

// GetAssessment retrieves an assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	assessmentID := chi.URLParam(r, "id")

	if assessmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, assessmentID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get assessment", "id", assessmentID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// LatestAssessment retrieves a customer's most recent assessment. The cached
// summary short-circuits the repository scan when it is still warm.
func (h *Handler) LatestAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customer id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if h.cache != nil {
		if summary, err := h.cache.GetAssessmentSummary(ctx, tenantID, customerID); err == nil && summary != nil {
			if a, err := h.repo.GetAssessment(ctx, tenantID, summary.AssessmentID); err == nil {
				writeJSON(w, http.StatusOK, a)
				return
			}
		}
	}

	a, err := h.repo.LatestAssessment(ctx, tenantID, customerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get latest assessment", "customer_id", customerID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no assessments for customer",
		})
		return
	}

	if h.cache != nil {
		summary := &domain.AssessmentSummary{
			AssessmentID:  a.ID,
			CustomerID:    a.CustomerID,
			Score:         a.Score,
			Band:          a.Band,
			ConfigVersion: a.ConfigVersion,
			GeneratedAt:   a.GeneratedAt,
		}
		_ = h.cache.SetAssessmentSummary(ctx, tenantID, customerID, summary, summaryTTL)
	}

	writeJSON(w, http.StatusOK, a)
}

// ListAssessments returns a customer's assessment history, newest first.
// The optional "since" query parameter (RFC 3339) bounds the scan.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	customerID := chi.URLParam(r, "id")

	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customer id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be RFC 3339",
			})
			return
		}
		since = parsed
	}

	list, err := h.repo.ListAssessmentsByCustomer(ctx, tenantID, customerID, since)
	if err != nil {
		slog.Error("failed to list assessments", "customer_id", customerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list assessments",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": list,
		"count":       len(list),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListIndicators returns all indicators loaded in the engine.
// Indicators are loaded from the database at startup and can be reloaded via
// POST /indicators/reload.
func (h *Handler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.LoadedIndicators()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": loaded,
		"count":      len(loaded),
		"source":     h.engine.Source(),
	})
}

// GetIndicator retrieves an indicator by ID from the loaded engine set.
func (h *Handler) GetIndicator(w http.ResponseWriter, r *http.Request) {
	indicatorID := chi.URLParam(r, "id")

	if indicatorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "indicator id is required",
		})
		return
	}

	for _, ind := range h.engine.LoadedIndicators() {
		if ind.ID == indicatorID {
			writeJSON(w, http.StatusOK, ind)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "indicator not found",
	})
}

// CreateIndicatorRequest is the request body for creating an indicator.
type CreateIndicatorRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Polarity    string `json:"polarity"`
	Message     string `json:"message"`
	Flag        string `json:"flag,omitempty"`
	Order       int    `json:"order"`
	Enabled     bool   `json:"enabled"`
}

// CreateIndicator creates a new checklist indicator and saves it to the
// database. Indicators are saved globally (tenant_id = "*") so they apply to
// all tenants. After saving, call POST /indicators/reload to hot-reload into
// the engine.
func (h *Handler) CreateIndicator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateIndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	cfg := &domain.IndicatorConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Polarity:    req.Polarity,
		Message:     req.Message,
		Flag:        req.Flag,
		Order:       req.Order,
		Enabled:     req.Enabled,
	}

	// Compile check: a bad expression must never reach the database
	if err := h.engine.ValidateIndicator(cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid indicator: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveIndicatorConfig(ctx, GlobalTenantID, cfg); err != nil {
			slog.Error("failed to save indicator config", "id", cfg.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save indicator",
			})
			return
		}
	}

	slog.Info("indicator created", "id", cfg.ID, "name", cfg.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"indicator": cfg,
		"message":   "Indicator created. Call POST /indicators/reload to apply changes.",
	})
}

// ReloadIndicators reloads all indicators from the database into the engine.
// This enables hot-reloading without server restart. An empty database falls
// back to the builtin checklist.
func (h *Handler) ReloadIndicators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbIndicators, err := h.repo.ListIndicatorConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list indicators from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load indicators from database",
		})
		return
	}

	source := "database"
	if len(dbIndicators) == 0 {
		dbIndicators = indicators.Builtin()
		source = "builtin"
	}

	if err := h.engine.ReloadIndicators(dbIndicators); err != nil {
		slog.Error("failed to reload indicators into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload indicators: " + err.Error(),
		})
		return
	}

	h.engine.SetSource(source)

	slog.Info("indicators reloaded", "count", len(dbIndicators), "source", source)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "indicators reloaded successfully",
		"count":   len(dbIndicators),
		"source":  source,
	})
}

// GetScoringConfig returns the active scoring configuration.
func (h *Handler) GetScoringConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Config())
}

// UpdateScoringConfig replaces the active scoring configuration. The new
// config is validated before it is applied; runs in flight keep the config
// they started with.
func (h *Handler) UpdateScoringConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cfg domain.ScoringConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := h.pipeline.SetConfig(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveScoringConfig(ctx, GlobalTenantID, &cfg); err != nil {
			slog.Error("failed to save scoring config", "version", cfg.Version, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save scoring config",
			})
			return
		}
	}

	slog.Info("scoring config updated", "version", cfg.Version)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config":  &cfg,
		"message": "scoring config updated",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
