package main

import (
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

// The agreement metric does an exact lookup of the band returned by the API
// in each profile's ExpectedBands set, so every key must be a label the
// scoring config can actually produce.
func TestProfileExpectedBandsUseRealLabels(t *testing.T) {
	known := make(map[string]bool)
	for _, b := range domain.DefaultScoringConfig().Bands {
		known[b.Label] = true
	}

	for _, p := range profiles {
		t.Run(p.Name, func(t *testing.T) {
			if len(p.ExpectedBands) == 0 {
				t.Fatal("profile has no expected bands")
			}
			for label := range p.ExpectedBands {
				if !known[label] {
					t.Errorf("expected band %q is not a label the default scoring config assigns", label)
				}
			}
		})
	}
}

func TestProfileExpectedBandsMatchAssignedLabels(t *testing.T) {
	cases := []struct {
		profile string
		band    string
		want    bool
	}{
		{"healthy", domain.BandVeryLowRisk, true},
		{"healthy", domain.BandLowRisk, true},
		{"healthy", domain.BandHighRisk, false},
		{"seasonal", domain.BandBorderline, true},
		{"stressed", domain.BandMediumRisk, true},
		{"stressed", domain.BandHighRisk, true},
		{"stressed", domain.BandVeryLowRisk, false},
	}

	byName := make(map[string]Profile)
	for _, p := range profiles {
		byName[p.Name] = p
	}

	for _, tc := range cases {
		p, ok := byName[tc.profile]
		if !ok {
			t.Fatalf("unknown profile %q", tc.profile)
		}
		if got := p.ExpectedBands[tc.band]; got != tc.want {
			t.Errorf("%s: ExpectedBands[%q] = %v, want %v", tc.profile, tc.band, got, tc.want)
		}
	}
}
