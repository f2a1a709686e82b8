// Benchmark tool for testing Heron against synthetic borrower profiles.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -customers 500
//
// This tool:
//  1. Generates synthetic customer datasets across three borrower profiles
//     (healthy, seasonal, stressed)
//  2. Ingests each dataset and runs an assessment through the Heron API
//  3. Compares the assigned band against the profile's expected band group
//  4. Reports band distribution, agreement rate, latency, and throughput
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

// Profile shapes the synthetic dataset for one borrower archetype.
type Profile struct {
	Name          string
	BaseInflow    float64
	MonthlyGrowth float64 // fractional month-over-month drift
	OutflowRatio  float64
	Noise         float64 // fractional jitter on monthly inflow
	Months        int
	BureauScore   float64
	DTI           float64
	BounceCount   int
	GSTStatus     string
	GSTGap        float64 // fraction by which GST turnover trails bank credits
	// ExpectedBands is the set of bands this profile should usually land in.
	ExpectedBands map[string]bool
}

var profiles = []Profile{
	{
		Name:          "healthy",
		BaseInflow:    250000,
		MonthlyGrowth: 0.02,
		OutflowRatio:  0.70,
		Noise:         0.05,
		Months:        18,
		BureauScore:   790,
		DTI:           28,
		GSTStatus:     "filed",
		GSTGap:        0.02,
		ExpectedBands: map[string]bool{domain.BandVeryLowRisk: true, domain.BandLowRisk: true},
	},
	{
		Name:          "seasonal",
		BaseInflow:    180000,
		MonthlyGrowth: 0.005,
		OutflowRatio:  0.85,
		Noise:         0.35,
		Months:        14,
		BureauScore:   700,
		DTI:           55,
		BounceCount:   1,
		GSTStatus:     "filed",
		GSTGap:        0.10,
		ExpectedBands: map[string]bool{domain.BandLowRisk: true, domain.BandBorderline: true, domain.BandMediumRisk: true},
	},
	{
		Name:          "stressed",
		BaseInflow:    120000,
		MonthlyGrowth: -0.03,
		OutflowRatio:  1.05,
		Noise:         0.50,
		Months:        8,
		BureauScore:   610,
		DTI:           95,
		BounceCount:   3,
		GSTStatus:     "late",
		GSTGap:        0.40,
		ExpectedBands: map[string]bool{domain.BandMediumRisk: true, domain.BandHighRisk: true},
	},
}

// Metrics tracks benchmark results.
type Metrics struct {
	TotalProcessed int64
	TotalAgreed    int64
	TotalErrors    int64

	IngestTimeMs int64
	AssessTimeMs int64

	mu        sync.Mutex
	bands     map[string]map[string]int64 // profile -> band -> count
	latencies []int64                     // per-assessment, ms
}

func (m *Metrics) record(profile, band string, agreed bool, ingestMs, assessMs int64) {
	atomic.AddInt64(&m.TotalProcessed, 1)
	if agreed {
		atomic.AddInt64(&m.TotalAgreed, 1)
	}
	atomic.AddInt64(&m.IngestTimeMs, ingestMs)
	atomic.AddInt64(&m.AssessTimeMs, assessMs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bands[profile] == nil {
		m.bands[profile] = make(map[string]int64)
	}
	m.bands[profile][band]++
	m.latencies = append(m.latencies, assessMs)
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Heron base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	customers := flag.Int("customers", 300, "Number of synthetic customers")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for dataset generation")
	verbose := flag.Bool("verbose", false, "Print each assessment result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        HERON BENCHMARK - Synthetic Borrower Profiles          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nHeron URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:  %s\n", *tenantID)
	fmt.Printf("Customers:  %d\n", *customers)
	fmt.Printf("Workers:    %d\n", *workers)
	fmt.Printf("Seed:       %d\n", *seed)
	fmt.Println()

	// Check Heron is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Heron not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Heron is running:")
		fmt.Println("  cd heron && go run cmd/heron/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Heron is healthy")

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(*baseURL, *tenantID, *customers, *workers, *seed, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

type job struct {
	customerID string
	profile    Profile
	seed       int64
}

func runBenchmark(baseURL, tenantID string, customers, numWorkers int, seed int64, verbose bool) *Metrics {
	metrics := &Metrics{bands: make(map[string]map[string]int64)}

	work := make(chan job, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for j := range work {
				raw := generateDataset(j.customerID, j.profile, j.seed)

				ingestStart := time.Now()
				if err := ingestDataset(client, baseURL, tenantID, j.customerID, raw); err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR ingest %s -> %v\n", j.customerID, err)
					}
					continue
				}
				ingestMs := time.Since(ingestStart).Milliseconds()

				assessStart := time.Now()
				result, err := runAssessment(client, baseURL, tenantID, j.customerID)
				assessMs := time.Since(assessStart).Milliseconds()

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR assess %s -> %v\n", j.customerID, err)
					}
					continue
				}

				agreed := j.profile.ExpectedBands[result.Band]
				metrics.record(j.profile.Name, result.Band, agreed, ingestMs, assessMs)

				if verbose {
					status := "✓"
					if !agreed {
						status = "✗"
					}
					fmt.Printf("%s %-12s | Profile: %-8s | Score: %6.2f | Band: %-24s | %4dms\n",
						status, j.customerID, j.profile.Name, result.Score, result.Band, assessMs)
				}
			}
		}()
	}

	// Send work, cycling through profiles
	for i := 0; i < customers; i++ {
		p := profiles[i%len(profiles)]
		work <- job{
			customerID: fmt.Sprintf("bench-%s-%04d", p.Name, i),
			profile:    p,
			seed:       seed + int64(i),
		}
	}
	close(work)

	wg.Wait()

	return metrics
}

// generateDataset builds the raw source rows for one synthetic customer.
func generateDataset(customerID string, p Profile, seed int64) map[string]any {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var txns []map[string]any
	var returns []map[string]any

	inflow := p.BaseInflow
	for m := 0; m < p.Months; m++ {
		monthStart := start.AddDate(0, m, 0)
		monthInflow := inflow * (1 + p.Noise*(rng.Float64()*2-1))
		monthOutflow := monthInflow * p.OutflowRatio

		// Split the month into a handful of transactions
		credits := 3 + rng.Intn(3)
		for c := 0; c < credits; c++ {
			txns = append(txns, map[string]any{
				"id":         fmt.Sprintf("%s-in-%d-%d", customerID, m, c),
				"customerId": customerID,
				"amount":     monthInflow / float64(credits),
				"direction":  "credit",
				"timestamp":  monthStart.AddDate(0, 0, 2+c*5).Format(time.RFC3339),
			})
		}
		debits := 2 + rng.Intn(3)
		for d := 0; d < debits; d++ {
			txns = append(txns, map[string]any{
				"id":         fmt.Sprintf("%s-out-%d-%d", customerID, m, d),
				"customerId": customerID,
				"amount":     monthOutflow / float64(debits),
				"direction":  "debit",
				"timestamp":  monthStart.AddDate(0, 0, 4+d*6).Format(time.RFC3339),
			})
		}

		returns = append(returns, map[string]any{
			"customerId": customerID,
			"period":     monthStart.Format("2006-01"),
			"turnover":   monthInflow * (1 - p.GSTGap),
			"status":     p.GSTStatus,
		})

		inflow *= 1 + p.MonthlyGrowth
	}

	bureau := []map[string]any{
		{
			"customerId":   customerID,
			"score":        p.BureauScore,
			"debtToIncome": p.DTI,
			"bounceCount":  p.BounceCount,
			"reportedAt":   start.AddDate(0, p.Months-1, 0).Format(time.RFC3339),
		},
	}

	return map[string]any{
		"transactions":  txns,
		"gstReturns":    returns,
		"bureauReports": bureau,
	}
}

func ingestDataset(client *http.Client, baseURL, tenantID, customerID string, raw map[string]any) error {
	body, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/customers/"+customerID+"/dataset", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// AssessResult is the slice of the assessment response the benchmark needs.
type AssessResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Band  string  `json:"band"`
}

func runAssessment(client *http.Client, baseURL, tenantID, customerID string) (*AssessResult, error) {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/customers/"+customerID+"/assess", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AssessResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 RUN STATISTICS\n")
	fmt.Printf("   Total Assessed:   %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 BAND DISTRIBUTION BY PROFILE\n")
	m.mu.Lock()
	profileNames := make([]string, 0, len(m.bands))
	for name := range m.bands {
		profileNames = append(profileNames, name)
	}
	sort.Strings(profileNames)
	for _, name := range profileNames {
		fmt.Printf("   %s:\n", name)
		bands := make([]string, 0, len(m.bands[name]))
		for b := range m.bands[name] {
			bands = append(bands, b)
		}
		sort.Strings(bands)
		for _, b := range bands {
			fmt.Printf("      %-26s %6d\n", b, m.bands[name][b])
		}
	}
	m.mu.Unlock()

	agreement := float64(0)
	if m.TotalProcessed > 0 {
		agreement = float64(m.TotalAgreed) / float64(m.TotalProcessed)
	}
	fmt.Printf("\n🎯 PROFILE AGREEMENT\n")
	fmt.Printf("   Agreed:     %d / %d (%.2f%%)\n", m.TotalAgreed, m.TotalProcessed, agreement*100)
	fmt.Printf("   (share of customers whose band fell in the profile's expected group)\n")

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgIngest := float64(m.IngestTimeMs) / float64(m.TotalProcessed)
		avgAssess := float64(m.AssessTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Ingest:       %.2f ms\n", avgIngest)
		fmt.Printf("   Avg Assessment:   %.2f ms\n", avgAssess)
		fmt.Printf("   Throughput:       %.2f assessments/sec\n", tps)

		m.mu.Lock()
		sort.Slice(m.latencies, func(i, j int) bool { return m.latencies[i] < m.latencies[j] })
		p50 := m.latencies[len(m.latencies)/2]
		p95 := m.latencies[len(m.latencies)*95/100]
		m.mu.Unlock()
		fmt.Printf("   Assessment p50:   %d ms\n", p50)
		fmt.Printf("   Assessment p95:   %d ms\n", p95)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	switch {
	case agreement >= 0.8:
		fmt.Println("   ✅ Bands track the synthetic profiles closely")
	case agreement >= 0.6:
		fmt.Println("   ⚠️  Moderate agreement - check scoring config weights")
	default:
		fmt.Println("   ❌ Low agreement - bands do not separate the profiles")
	}

	fmt.Println()
}
