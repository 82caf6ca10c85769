package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/storage"
)

// Store implements AuditStorage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite storage with the given database path
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PRAGMAs are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreDatasetDefinition persists dataset metadata
func (s *Store) StoreDatasetDefinition(dataset *claims.Dataset) error {
	query := `
		INSERT INTO datasets (name, owner, description, row_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			owner = excluded.owner,
			description = excluded.description,
			row_count = excluded.row_count,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.Exec(query,
		dataset.Metadata.Name,
		dataset.Metadata.Owner,
		dataset.Metadata.Description,
		dataset.Columns.Len(),
	)
	if err != nil {
		return fmt.Errorf("failed to store dataset definition: %w", err)
	}

	return nil
}

// StoreRun persists an analysis report, its summary rows and the latest-run
// pointer in one transaction
func (s *Store) StoreRun(report *metrics.Report) error {
	record := storage.NewRunRecord(report)

	rulesJSON, err := json.Marshal(record.Rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Runs of datasets never registered still get a definition row
	_, err = tx.Exec(`INSERT INTO datasets (name, row_count) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		record.Dataset, record.Rows)
	if err != nil {
		return fmt.Errorf("failed to ensure dataset definition: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO analysis_runs (
			id, dataset, row_count, missing_claim_amount, missing_premium, premium_median,
			flagged_count, sla_breach_count, high_risk_count, total_claim_amount, total_premium,
			rules_json, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.Dataset,
		record.Rows,
		record.MissingClaimAmount,
		record.MissingPremium,
		record.PremiumMedian,
		record.FlaggedCount,
		record.SLABreachCount,
		record.HighRiskCount,
		record.TotalClaimAmount,
		record.TotalPremium,
		string(rulesJSON),
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_summaries (
			run_id, region, claim_type, claim_count, claim_amount, premium,
			processing_days, regional_loss_ratio
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare summary insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range report.Summary {
		ratio := sql.NullFloat64{}
		if row.RegionalLossRatio != nil {
			ratio = sql.NullFloat64{Float64: *row.RegionalLossRatio, Valid: true}
		}

		_, err := stmt.Exec(record.ID, row.Region, row.ClaimType, row.ClaimCount,
			row.ClaimAmount, row.Premium, row.ProcessingDays, ratio)
		if err != nil {
			return fmt.Errorf("failed to store summary row (%s, %s): %w", row.Region, row.ClaimType, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO latest_runs (dataset, run_id, timestamp)
		VALUES (?, ?, ?)
		ON CONFLICT(dataset) DO UPDATE SET
			run_id = excluded.run_id,
			timestamp = excluded.timestamp,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.timestamp >= latest_runs.timestamp
	`, record.Dataset, record.ID, record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to update latest run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

const runColumns = `
	id, dataset, row_count, missing_claim_amount, missing_premium, premium_median,
	flagged_count, sla_breach_count, high_risk_count, total_claim_amount, total_premium,
	rules_json, timestamp, created_at
`

// QueryRuns retrieves run records with optional filtering, newest first
func (s *Store) QueryRuns(filter storage.RunFilter) ([]storage.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE 1=1`
	args := []interface{}{}

	if filter.Dataset != "" {
		query += " AND dataset = ?"
		args = append(args, filter.Dataset)
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, *filter.StartTime)
	}

	if filter.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, *filter.EndTime)
	}

	query += " ORDER BY timestamp DESC, created_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	} else {
		query += " LIMIT 100" // Default limit
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []storage.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// GetRunSummary retrieves the summary rows of a run, ordered by region
// then claim_type
func (s *Store) GetRunSummary(runID string) ([]metrics.RegionClaimTypeSummary, error) {
	rows, err := s.db.Query(`
		SELECT region, claim_type, claim_count, claim_amount, premium, processing_days, regional_loss_ratio
		FROM run_summaries
		WHERE run_id = ?
		ORDER BY region, claim_type
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summary: %w", err)
	}
	defer rows.Close()

	summary := []metrics.RegionClaimTypeSummary{}
	for rows.Next() {
		var row metrics.RegionClaimTypeSummary
		var ratio sql.NullFloat64

		if err := rows.Scan(&row.Region, &row.ClaimType, &row.ClaimCount, &row.ClaimAmount,
			&row.Premium, &row.ProcessingDays, &ratio); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if ratio.Valid {
			v := ratio.Float64
			row.RegionalLossRatio = &v
		}
		summary = append(summary, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return summary, nil
}

// GetLatestRun retrieves the most recent run of a dataset, nil when none
func (s *Store) GetLatestRun(dataset string) (*storage.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs
		WHERE id = (SELECT run_id FROM latest_runs WHERE dataset = ?)`

	row := s.db.QueryRow(query, dataset)
	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*storage.RunRecord, error) {
	var record storage.RunRecord
	var rulesJSON string

	err := row.Scan(
		&record.ID,
		&record.Dataset,
		&record.Rows,
		&record.MissingClaimAmount,
		&record.MissingPremium,
		&record.PremiumMedian,
		&record.FlaggedCount,
		&record.SLABreachCount,
		&record.HighRiskCount,
		&record.TotalClaimAmount,
		&record.TotalPremium,
		&rulesJSON,
		&record.Timestamp,
		&record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(rulesJSON), &record.Rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}

	return &record, nil
}
