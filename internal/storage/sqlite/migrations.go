package sqlite

// Schema defines the SQLite database schema
const Schema = `
-- Dataset definitions table
CREATE TABLE IF NOT EXISTS datasets (
	name TEXT PRIMARY KEY,
	owner TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	row_count INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Analysis runs audit table
CREATE TABLE IF NOT EXISTS analysis_runs (
	id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	missing_claim_amount INTEGER NOT NULL DEFAULT 0,
	missing_premium INTEGER NOT NULL DEFAULT 0,
	premium_median REAL NOT NULL,
	flagged_count INTEGER NOT NULL,
	sla_breach_count INTEGER NOT NULL,
	high_risk_count INTEGER NOT NULL,
	total_claim_amount REAL NOT NULL,
	total_premium REAL NOT NULL,
	rules_json TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (dataset) REFERENCES datasets(name)
);

CREATE INDEX IF NOT EXISTS idx_runs_dataset ON analysis_runs(dataset);
CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON analysis_runs(timestamp DESC);

-- Summary rows of each run, one per (region, claim_type)
CREATE TABLE IF NOT EXISTS run_summaries (
	run_id TEXT NOT NULL,
	region TEXT NOT NULL,
	claim_type TEXT NOT NULL,
	claim_count INTEGER NOT NULL,
	claim_amount REAL NOT NULL,
	premium REAL NOT NULL,
	processing_days REAL NOT NULL,
	regional_loss_ratio REAL,
	PRIMARY KEY (run_id, region, claim_type),
	FOREIGN KEY (run_id) REFERENCES analysis_runs(id) ON DELETE CASCADE
);

-- Latest run table (one row per dataset)
CREATE TABLE IF NOT EXISTS latest_runs (
	dataset TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (dataset) REFERENCES datasets(name),
	FOREIGN KEY (run_id) REFERENCES analysis_runs(id)
);
`
