// Package timeseries derives monthly aggregates and trend metrics from
// transaction-level records.
package timeseries

import (
	"sort"

	"github.com/opensource-finance/heron/internal/domain"
)

// monthKeyLayout is the year-month bucket key format.
const monthKeyLayout = "2006-01"

// MonthlyBucket holds one calendar month's inflow and outflow totals.
// Buckets are derived, recomputed every run, and ordered chronologically.
type MonthlyBucket struct {
	Month   string  `json:"month"` // "2006-01"
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
}

// Aggregate buckets transactions into calendar months. Every month with at
// least one transaction appears in the output; the sum of bucket inflows and
// outflows equals the dataset totals. Pure function of its input.
func Aggregate(txns []domain.Transaction) []MonthlyBucket {
	byMonth := make(map[string]*MonthlyBucket)

	for _, t := range txns {
		key := t.Timestamp.Format(monthKeyLayout)
		b, ok := byMonth[key]
		if !ok {
			b = &MonthlyBucket{Month: key}
			byMonth[key] = b
		}
		switch t.Direction {
		case domain.DirectionCredit:
			b.Inflow += t.Amount
		case domain.DirectionDebit:
			b.Outflow += t.Amount
		}
	}

	buckets := make([]MonthlyBucket, 0, len(byMonth))
	for _, b := range byMonth {
		buckets = append(buckets, *b)
	}

	// The key format sorts chronologically as a string.
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month < buckets[j].Month
	})

	return buckets
}

// Totals sums inflow and outflow across all buckets.
func Totals(buckets []MonthlyBucket) (inflow, outflow float64) {
	for _, b := range buckets {
		inflow += b.Inflow
		outflow += b.Outflow
	}
	return inflow, outflow
}
