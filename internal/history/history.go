// Package history answers questions about a customer's prior assessments.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/repository"
)

// Service reads prior assessment state, cache first, repository second.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new history service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// PriorScore returns the overall score of the customer's most recent
// assessment, and whether one exists. The cached summary is consulted first;
// a cache miss falls through to the repository.
func (s *Service) PriorScore(ctx context.Context, tenantID, customerID string) (float64, bool, error) {
	if tenantID == "" || customerID == "" {
		return 0, false, fmt.Errorf("tenantID and customerID are required")
	}

	if s.cache != nil {
		if summary, err := s.cache.GetAssessmentSummary(ctx, tenantID, customerID); err == nil && summary != nil {
			return summary.Score, true, nil
		}
	}

	if s.repo != nil {
		a, err := s.repo.LatestAssessment(ctx, tenantID, customerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("failed to load latest assessment: %w", err)
		}
		return a.Score, true, nil
	}

	return 0, false, nil
}

// AssessmentCount returns how many assessments the customer accumulated
// since the given time. A zero time counts everything on record.
func (s *Service) AssessmentCount(ctx context.Context, tenantID, customerID string, since time.Time) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	list, err := s.repo.ListAssessmentsByCustomer(ctx, tenantID, customerID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	return len(list), nil
}

// RecordRun bumps the per-customer reassessment counter. Callers treat the
// counter as best effort.
func (s *Service) RecordRun(ctx context.Context, tenantID, customerID string) error {
	if s.cache == nil {
		return nil
	}
	key := fmt.Sprintf("runs:%s", customerID)
	if _, err := s.cache.IncrementCounter(ctx, tenantID, key, 24*time.Hour); err != nil {
		return fmt.Errorf("failed to bump run counter: %w", err)
	}
	return nil
}

// PriorScoreGetter adapts the service to the indicator engine's getter.
func (s *Service) PriorScoreGetter() func(ctx context.Context, tenantID, customerID string) (float64, bool, error) {
	return s.PriorScore
}
