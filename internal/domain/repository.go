// Package domain defines the core interfaces and types for Heron.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Per-customer cleaned datasets
	SaveDataset(ctx context.Context, tenantID string, ds *Dataset) error
	GetDataset(ctx context.Context, tenantID string, customerID string) (*Dataset, error)

	// Assessment results
	SaveAssessment(ctx context.Context, tenantID string, a *Assessment) error
	GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*Assessment, error)
	ListAssessmentsByCustomer(ctx context.Context, tenantID string, customerID string, since time.Time) ([]*Assessment, error)
	LatestAssessment(ctx context.Context, tenantID string, customerID string) (*Assessment, error)

	// Indicator configuration operations
	SaveIndicatorConfig(ctx context.Context, tenantID string, ind *IndicatorConfig) error
	GetIndicatorConfig(ctx context.Context, tenantID string, indicatorID string) (*IndicatorConfig, error)
	ListIndicatorConfigs(ctx context.Context, tenantID string) ([]*IndicatorConfig, error)

	// Versioned scoring configuration
	SaveScoringConfig(ctx context.Context, tenantID string, cfg *ScoringConfig) error
	GetScoringConfig(ctx context.Context, tenantID string, version string) (*ScoringConfig, error)
	LatestScoringConfig(ctx context.Context, tenantID string) (*ScoringConfig, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
