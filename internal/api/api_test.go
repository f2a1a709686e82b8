package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/assess"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/indicators"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/repository"
)

// createTestServer creates a server with a sqlite repository, LRU cache, and
// the builtin indicator checklist.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api_test.db"),
	})
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	t.Cleanup(func() { lru.Close() })

	engine, err := indicators.NewEngine(nil, 5)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := engine.LoadIndicators(indicators.Builtin()); err != nil {
		t.Fatalf("load indicators: %v", err)
	}

	pipeline, err := assess.New(nil, engine, nil)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	return NewServer(cfg, repo, lru, nil, engine, pipeline, "test-v1")
}

func rawSources(customerID string) ingest.RawSources {
	var raw ingest.RawSources
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for m := 0; m < 12; m++ {
		monthStart := start.AddDate(0, m, 0)
		inflow := 200000.0 + float64(m)*5000
		raw.Transactions = append(raw.Transactions,
			map[string]any{
				"id":         fmt.Sprintf("tx-in-%d", m),
				"customerId": customerID,
				"amount":     inflow,
				"direction":  "credit",
				"timestamp":  monthStart.AddDate(0, 0, 5).Format(time.RFC3339),
			},
			map[string]any{
				"id":         fmt.Sprintf("tx-out-%d", m),
				"customerId": customerID,
				"amount":     inflow * 0.7,
				"direction":  "debit",
				"timestamp":  monthStart.AddDate(0, 0, 20).Format(time.RFC3339),
			},
		)
		raw.GSTReturns = append(raw.GSTReturns, map[string]any{
			"customerId": customerID,
			"period":     monthStart.Format("2006-01"),
			"turnover":   inflow,
			"status":     "filed",
		})
	}
	raw.BureauReports = append(raw.BureauReports, map[string]any{
		"customerId":   customerID,
		"score":        780.0,
		"debtToIncome": 30.0,
		"reportedAt":   start.AddDate(0, 11, 0).Format(time.RFC3339),
	})
	return raw
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestIngestEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulIngest", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-001/dataset", rawSources("cust-001"))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp IngestResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parse response: %v", err)
		}
		if resp.CustomerID != "cust-001" {
			t.Errorf("expected customerId 'cust-001', got '%s'", resp.CustomerID)
		}
		if resp.Records != 37 {
			t.Errorf("expected 37 records (24 txns + 12 returns + 1 bureau), got %d", resp.Records)
		}
		if len(resp.Diagnostics) != 7 {
			t.Errorf("expected 7 per-source diagnostics, got %d", len(resp.Diagnostics))
		}
	})

	t.Run("UnscopedSourceRejected", func(t *testing.T) {
		raw := ingest.RawSources{
			Transactions: []map[string]any{
				{"id": "tx-1", "amount": 100.0, "timestamp": "2024-01-05T00:00:00Z"},
			},
		}
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-002/dataset", raw)

		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422 for unscoped rows, got %d", rr.Code)
		}
	})

	t.Run("InvalidBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/customers/cust-003/dataset", bytes.NewBufferString("{not json"))
		req.Header.Set("X-Tenant-ID", "tenant-001")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("RequiresTenantHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/customers/cust-001/dataset", bytes.NewBufferString("{}"))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 without tenant header, got %d", rr.Code)
		}
	})
}

func TestAssessEndpoint(t *testing.T) {
	server := createTestServer(t)

	// Ingest a dataset first
	rr := doJSON(t, server, http.MethodPost, "/customers/cust-010/dataset", rawSources("cust-010"))
	if rr.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d %s", rr.Code, rr.Body.String())
	}

	t.Run("SuccessfulAssessment", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-010/assess", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var a domain.Assessment
		if err := json.Unmarshal(rr.Body.Bytes(), &a); err != nil {
			t.Fatalf("parse assessment: %v", err)
		}
		if a.CustomerID != "cust-010" {
			t.Errorf("expected customerId 'cust-010', got '%s'", a.CustomerID)
		}
		if a.Score < 0 || a.Score > 100 {
			t.Errorf("score out of range: %.2f", a.Score)
		}
		if a.Band == "" {
			t.Error("expected a band")
		}
		if a.Metadata.EngineVersion == "" {
			t.Error("expected an engine version in metadata")
		}

		t.Run("RetrievableByID", func(t *testing.T) {
			rr := doJSON(t, server, http.MethodGet, "/assessments/"+a.ID, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}

			var got domain.Assessment
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("parse assessment: %v", err)
			}
			if got.ID != a.ID || got.Score != a.Score {
				t.Errorf("retrieved assessment differs: %s %.2f", got.ID, got.Score)
			}
		})

		t.Run("Latest", func(t *testing.T) {
			rr := doJSON(t, server, http.MethodGet, "/customers/cust-010/assessments/latest", nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}

			var got domain.Assessment
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("parse assessment: %v", err)
			}
			if got.ID != a.ID {
				t.Errorf("expected latest to be %s, got %s", a.ID, got.ID)
			}
		})

		t.Run("History", func(t *testing.T) {
			rr := doJSON(t, server, http.MethodGet, "/customers/cust-010/assessments", nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}

			var resp struct {
				Count int `json:"count"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if resp.Count < 1 {
				t.Errorf("expected at least 1 assessment, got %d", resp.Count)
			}
		})
	})

	t.Run("NoDataset", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-unknown/assess", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("UnknownAssessment", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/assessments/not-an-id", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("InlineDataset", func(t *testing.T) {
		// No prior ingest for this customer: the body alone feeds the run.
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-inline/assess", rawSources("cust-inline"))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var a domain.Assessment
		if err := json.Unmarshal(rr.Body.Bytes(), &a); err != nil {
			t.Fatalf("parse assessment: %v", err)
		}
		if a.CustomerID != "cust-inline" {
			t.Errorf("expected customerId 'cust-inline', got '%s'", a.CustomerID)
		}
		if a.Metadata.TransactionsScanned != 24 {
			t.Errorf("expected 24 scanned transactions from the inline dataset, got %d", a.Metadata.TransactionsScanned)
		}

		t.Run("Persisted", func(t *testing.T) {
			rr := doJSON(t, server, http.MethodGet, "/assessments/"+a.ID, nil)
			if rr.Code != http.StatusOK {
				t.Errorf("expected inline-run assessment to be stored, got %d", rr.Code)
			}
		})
	})

	t.Run("InlineUnscopedRejected", func(t *testing.T) {
		raw := ingest.RawSources{
			Transactions: []map[string]any{{
				"id":        "tx-orphan",
				"amount":    1000.0,
				"direction": "credit",
				"timestamp": time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			}},
		}
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-orphan/assess", raw)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rr.Code)
		}
	})

	t.Run("EmptyBodyFallsBackToStored", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/customers/cust-010/assess", ingest.RawSources{})
		if rr.Code != http.StatusOK {
			t.Errorf("expected empty raw sources to use the stored dataset, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestIndicatorEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("ListBuiltin", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/indicators", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count  int    `json:"count"`
			Source string `json:"source"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parse response: %v", err)
		}
		if resp.Count != len(indicators.Builtin()) {
			t.Errorf("expected %d indicators, got %d", len(indicators.Builtin()), resp.Count)
		}
		if resp.Source != "builtin" {
			t.Errorf("expected source 'builtin' before any reload, got '%s'", resp.Source)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/indicators/pos-net-surplus", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var ind domain.IndicatorConfig
		if err := json.Unmarshal(rr.Body.Bytes(), &ind); err != nil {
			t.Fatalf("parse indicator: %v", err)
		}
		if ind.Polarity != domain.PolarityPositive {
			t.Errorf("expected positive polarity, got '%s'", ind.Polarity)
		}
	})

	t.Run("CreateAndReload", func(t *testing.T) {
		req := CreateIndicatorRequest{
			ID:         "neg-custom-cv",
			Name:       "Custom volatility check",
			Expression: "cv_defined && cv > 50.0",
			Polarity:   domain.PolarityNegative,
			Message:    "Cashflow volatility above the tenant threshold.",
			Order:      300,
			Enabled:    true,
		}

		rr := doJSON(t, server, http.MethodPost, "/indicators", req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(t, server, http.MethodPost, "/indicators/reload", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("reload: expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Count  int    `json:"count"`
			Source string `json:"source"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parse response: %v", err)
		}
		if resp.Source != "database" {
			t.Errorf("expected source 'database', got '%s'", resp.Source)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 indicator from database, got %d", resp.Count)
		}

		t.Run("ListReportsDatabaseSource", func(t *testing.T) {
			rr := doJSON(t, server, http.MethodGet, "/indicators", nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}

			var list struct {
				Source string `json:"source"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if list.Source != "database" {
				t.Errorf("expected source 'database' after reload, got '%s'", list.Source)
			}
		})
	})

	t.Run("RejectsBadExpression", func(t *testing.T) {
		req := CreateIndicatorRequest{
			ID:         "neg-broken",
			Name:       "Broken",
			Expression: "cv +",
			Polarity:   domain.PolarityNegative,
			Enabled:    true,
		}

		rr := doJSON(t, server, http.MethodPost, "/indicators", req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for bad expression, got %d", rr.Code)
		}
	})

	t.Run("RejectsNonBoolExpression", func(t *testing.T) {
		req := CreateIndicatorRequest{
			ID:         "neg-numeric",
			Name:       "Numeric",
			Expression: "cv + 1.0",
			Polarity:   domain.PolarityNegative,
			Enabled:    true,
		}

		rr := doJSON(t, server, http.MethodPost, "/indicators", req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for non-bool expression, got %d", rr.Code)
		}
	})
}

func TestScoringConfigEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("GetDefault", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/config/scoring", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var cfg domain.ScoringConfig
		if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
			t.Fatalf("parse config: %v", err)
		}
		if cfg.Version == "" {
			t.Error("expected a config version")
		}
	})

	t.Run("UpdateValid", func(t *testing.T) {
		cfg := domain.DefaultScoringConfig()
		cfg.Version = "test-2024.9"

		rr := doJSON(t, server, http.MethodPut, "/config/scoring", cfg)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = doJSON(t, server, http.MethodGet, "/config/scoring", nil)
		var got domain.ScoringConfig
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("parse config: %v", err)
		}
		if got.Version != "test-2024.9" {
			t.Errorf("expected version 'test-2024.9', got '%s'", got.Version)
		}
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		cfg := domain.DefaultScoringConfig()
		cfg.Weights.CashflowStability = 0.9 // weights no longer sum to 1

		rr := doJSON(t, server, http.MethodPut, "/config/scoring", cfg)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid config, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("Health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("parse response: %v", err)
		}
		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("Ready", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}
