// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveDataset stores a customer's cleaned dataset with tenant isolation.
// Datasets are whole-document replacements; the latest write wins.
func (r *SQLRepository) SaveDataset(ctx context.Context, tenantID string, ds *domain.Dataset) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if ds == nil || ds.CustomerID == "" {
		return fmt.Errorf("%w: dataset with customer id is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	query := `
		INSERT INTO datasets (tenant_id, customer_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tenantID, ds.CustomerID, string(payload), time.Now().UTC(),
	)
	return err
}

// GetDataset retrieves a customer's dataset with tenant isolation.
func (r *SQLRepository) GetDataset(ctx context.Context, tenantID string, customerID string) (*domain.Dataset, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT payload FROM datasets
		WHERE tenant_id = ? AND customer_id = ?
	`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var ds domain.Dataset
	if err := json.Unmarshal([]byte(payload), &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	return &ds, nil
}

// SaveAssessment stores an assessment result with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.Assessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	reports, _ := json.Marshal(a.Reports)
	diagnostics, _ := json.Marshal(a.Diagnostics)
	metadata, _ := json.Marshal(a.Metadata)

	query := `
		INSERT INTO assessments (
			id, tenant_id, customer_id, score, band, config_version,
			reports, diagnostics, metadata, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.CustomerID, a.Score, a.Band, a.ConfigVersion,
		string(reports), string(diagnostics), string(metadata), a.GeneratedAt,
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, customer_id, score, band, config_version,
			   reports, diagnostics, metadata, generated_at
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	return r.scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, assessmentID))
}

// ListAssessmentsByCustomer retrieves a customer's assessments since a time,
// newest first. A zero time lists everything.
func (r *SQLRepository) ListAssessmentsByCustomer(ctx context.Context, tenantID string, customerID string, since time.Time) ([]*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, customer_id, score, band, config_version,
			   reports, diagnostics, metadata, generated_at
		FROM assessments
		WHERE tenant_id = ? AND customer_id = ? AND generated_at >= ?
		ORDER BY generated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, customerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

// LatestAssessment retrieves a customer's most recent assessment.
func (r *SQLRepository) LatestAssessment(ctx context.Context, tenantID string, customerID string) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, customer_id, score, band, config_version,
			   reports, diagnostics, metadata, generated_at
		FROM assessments
		WHERE tenant_id = ? AND customer_id = ?
		ORDER BY generated_at DESC
		LIMIT 1
	`

	return r.scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID))
}

// scanner abstracts sql.Row and sql.Rows for assessment scanning.
type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanAssessment(row scanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var reports, diagnostics, metadata string

	err := row.Scan(
		&a.ID, &a.TenantID, &a.CustomerID, &a.Score, &a.Band, &a.ConfigVersion,
		&reports, &diagnostics, &metadata, &a.GeneratedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(reports), &a.Reports); err != nil {
		return nil, fmt.Errorf("failed to parse reports: %w", err)
	}
	if diagnostics != "" {
		json.Unmarshal([]byte(diagnostics), &a.Diagnostics)
	}
	json.Unmarshal([]byte(metadata), &a.Metadata)

	return &a, nil
}

// SaveIndicatorConfig stores an indicator configuration with tenant isolation.
func (r *SQLRepository) SaveIndicatorConfig(ctx context.Context, tenantID string, ind *domain.IndicatorConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if ind.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO indicator_configs (
			id, tenant_id, name, description, version, expression,
			polarity, message, flag, ord, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			polarity = excluded.polarity,
			message = excluded.message,
			flag = excluded.flag,
			ord = excluded.ord,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ind.ID, tenantID, ind.Name, ind.Description, ind.Version, ind.Expression,
		ind.Polarity, ind.Message, ind.Flag, ind.Order, enabled,
		now, now,
	)
	return err
}

// GetIndicatorConfig retrieves an indicator configuration with tenant isolation.
func (r *SQLRepository) GetIndicatorConfig(ctx context.Context, tenantID string, indicatorID string) (*domain.IndicatorConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression,
			   polarity, message, flag, ord, enabled
		FROM indicator_configs
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var cfg domain.IndicatorConfig
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, indicatorID).Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description, &cfg.Version, &cfg.Expression,
		&cfg.Polarity, &cfg.Message, &cfg.Flag, &cfg.Order, &enabled,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg.Enabled = enabled == 1

	return &cfg, nil
}

// ListIndicatorConfigs retrieves all active indicator configurations for a
// tenant in checklist order.
func (r *SQLRepository) ListIndicatorConfigs(ctx context.Context, tenantID string) ([]*domain.IndicatorConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression,
			   polarity, message, flag, ord, enabled
		FROM indicator_configs
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY ord, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*domain.IndicatorConfig
	for rows.Next() {
		var cfg domain.IndicatorConfig
		var enabled int

		if err := rows.Scan(
			&cfg.ID, &cfg.TenantID, &cfg.Name, &cfg.Description, &cfg.Version, &cfg.Expression,
			&cfg.Polarity, &cfg.Message, &cfg.Flag, &cfg.Order, &enabled,
		); err != nil {
			return nil, err
		}

		cfg.Enabled = enabled == 1
		configs = append(configs, &cfg)
	}

	return configs, rows.Err()
}

// SaveScoringConfig stores a versioned scoring configuration.
func (r *SQLRepository) SaveScoringConfig(ctx context.Context, tenantID string, cfg *domain.ScoringConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if cfg == nil || cfg.Version == "" {
		return fmt.Errorf("%w: scoring config with a version is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode scoring config: %w", err)
	}

	query := `
		INSERT INTO scoring_configs (tenant_id, version, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, version) DO UPDATE SET
			payload = excluded.payload
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tenantID, cfg.Version, string(payload), time.Now().UTC(),
	)
	return err
}

// GetScoringConfig retrieves one version of a tenant's scoring configuration.
func (r *SQLRepository) GetScoringConfig(ctx context.Context, tenantID string, version string) (*domain.ScoringConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT payload FROM scoring_configs
		WHERE tenant_id = ? AND version = ?
	`

	return r.scanScoringConfig(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, version))
}

// LatestScoringConfig retrieves the most recently stored scoring configuration.
func (r *SQLRepository) LatestScoringConfig(ctx context.Context, tenantID string) (*domain.ScoringConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT payload FROM scoring_configs
		WHERE tenant_id = ?
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`

	return r.scanScoringConfig(r.db.QueryRowContext(ctx, r.rebind(query), tenantID))
}

func (r *SQLRepository) scanScoringConfig(row scanner) (*domain.ScoringConfig, error) {
	var payload string

	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.ScoringConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scoring config: %w", err)
	}

	return &cfg, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
