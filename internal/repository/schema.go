package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.

const schemaDatasets = `
CREATE TABLE IF NOT EXISTS datasets (
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, customer_id)
);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    score REAL NOT NULL,
    band TEXT NOT NULL,
    config_version TEXT NOT NULL,
    reports TEXT NOT NULL,
    diagnostics TEXT,
    metadata TEXT NOT NULL,
    generated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_customer ON assessments(tenant_id, customer_id);
CREATE INDEX IF NOT EXISTS idx_assessments_generated ON assessments(tenant_id, generated_at);
`

const schemaIndicatorConfigs = `
CREATE TABLE IF NOT EXISTS indicator_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    polarity TEXT NOT NULL,
    message TEXT NOT NULL,
    flag TEXT,
    ord INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_indicator_configs_tenant ON indicator_configs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_indicator_configs_enabled ON indicator_configs(tenant_id, enabled);
`

const schemaScoringConfigs = `
CREATE TABLE IF NOT EXISTS scoring_configs (
    tenant_id TEXT NOT NULL,
    version TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_scoring_configs_created ON scoring_configs(tenant_id, created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaDatasets,
		schemaAssessments,
		schemaIndicatorConfigs,
		schemaScoringConfigs,
	}
}
