package storage

import (
	"time"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

// AuditStorage defines the interface for persisting analysis runs
type AuditStorage interface {
	// StoreDatasetDefinition persists dataset metadata
	StoreDatasetDefinition(dataset *claims.Dataset) error

	// StoreRun persists an analysis report with its summary rows and
	// marks it as the latest run of its dataset
	StoreRun(report *metrics.Report) error

	// QueryRuns retrieves run records with optional filtering
	QueryRuns(filter RunFilter) ([]RunRecord, error)

	// GetRunSummary retrieves the summary rows stored with a run
	GetRunSummary(runID string) ([]metrics.RegionClaimTypeSummary, error)

	// GetLatestRun retrieves the most recent run of a dataset
	GetLatestRun(dataset string) (*RunRecord, error)

	// Close closes the storage connection
	Close() error
}

// RunFilter defines filtering options for run queries
type RunFilter struct {
	Dataset   string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// RunRecord represents a single stored analysis run
type RunRecord struct {
	ID                 string       `json:"id"`
	Dataset            string       `json:"dataset"`
	Rows               int          `json:"rows"`
	MissingClaimAmount int          `json:"missingClaimAmount"`
	MissingPremium     int          `json:"missingPremium"`
	PremiumMedian      float64      `json:"premiumMedian"`
	FlaggedCount       int          `json:"flaggedCount"`
	SLABreachCount     int          `json:"slaBreachCount"`
	HighRiskCount      int          `json:"highRiskCount"`
	TotalClaimAmount   float64      `json:"totalClaimAmount"`
	TotalPremium       float64      `json:"totalPremium"`
	Rules              policy.Rules `json:"rules"`
	Timestamp          time.Time    `json:"timestamp"`
	CreatedAt          time.Time    `json:"createdAt"`
}

// NewRunRecord condenses a report into the columns stored per run
func NewRunRecord(report *metrics.Report) RunRecord {
	record := RunRecord{
		ID:                 report.ID,
		Dataset:            report.Dataset,
		Rows:               len(report.Claims),
		MissingClaimAmount: report.Normalization.MissingClaimAmount,
		MissingPremium:     report.Normalization.MissingPremium,
		PremiumMedian:      report.Normalization.PremiumMedian,
		FlaggedCount:       len(report.Flagged),
		Rules:              report.Rules,
		Timestamp:          report.Timestamp,
	}

	for _, c := range report.Claims {
		if c.SLABreach.IsYes() {
			record.SLABreachCount++
		}
		if c.HighRiskClaim.IsYes() {
			record.HighRiskCount++
		}
		record.TotalClaimAmount += c.Amount()
		record.TotalPremium += c.PremiumValue()
	}

	return record
}
