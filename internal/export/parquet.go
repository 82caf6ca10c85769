package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/samijaber1/aegis-claims/internal/metrics"
)

// ClaimRecord is the Parquet row of a derived claim
type ClaimRecord struct {
	ClaimID        int64    `parquet:"claim_id"`
	PolicyID       string   `parquet:"policy_id"`
	Region         string   `parquet:"region"`
	ClaimType      string   `parquet:"claim_type"`
	ClaimAmount    float64  `parquet:"claim_amount"`
	Premium        float64  `parquet:"premium"`
	ClaimStatus    string   `parquet:"claim_status"`
	ProcessingDays int64    `parquet:"processing_days"`
	LossRatio      *float64 `parquet:"loss_ratio,optional"`
	SLABreach      string   `parquet:"sla_breach"`
	HighRiskClaim  string   `parquet:"high_risk_claim"`
}

// SummaryRecord is the Parquet row of a (region, claim_type) group
type SummaryRecord struct {
	Region            string   `parquet:"region"`
	ClaimType         string   `parquet:"claim_type"`
	ClaimCount        int64    `parquet:"claim_count"`
	ClaimAmount       float64  `parquet:"claim_amount"`
	Premium           float64  `parquet:"premium"`
	ProcessingDays    float64  `parquet:"processing_days"`
	RegionalLossRatio *float64 `parquet:"regional_loss_ratio,optional"`
}

const parquetFlushInterval = 100_000

// Writer appends rows of one type to a Parquet file
type Writer[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
	count  int
}

// NewWriter creates a Snappy-compressed Parquet file writer
func NewWriter[T any](filename string) (*Writer[T], error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](file,
		parquet.Compression(&parquet.Snappy),
	)

	return &Writer[T]{
		file:   file,
		writer: writer,
	}, nil
}

// Write writes rows to the Parquet file
func (w *Writer[T]) Write(rows ...T) error {
	for _, row := range rows {
		if _, err := w.writer.Write([]T{row}); err != nil {
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
		w.count++

		// Flush row group periodically to bound memory usage
		if w.count%parquetFlushInterval == 0 {
			if err := w.writer.Flush(); err != nil {
				return fmt.Errorf("failed to flush parquet row group: %w", err)
			}
		}
	}
	return nil
}

// Close flushes and closes the Parquet writer
func (w *Writer[T]) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of records written
func (w *Writer[T]) Count() int {
	return w.count
}

// ClaimRecords converts derived claims to Parquet rows
func ClaimRecords(rows []metrics.DerivedClaim) []ClaimRecord {
	out := make([]ClaimRecord, len(rows))
	for i, r := range rows {
		out[i] = ClaimRecord{
			ClaimID:        r.ClaimID,
			PolicyID:       r.PolicyID,
			Region:         r.Region,
			ClaimType:      r.ClaimType,
			ClaimAmount:    r.Amount(),
			Premium:        r.PremiumValue(),
			ClaimStatus:    r.ClaimStatus,
			ProcessingDays: int64(r.ProcessingDays),
			LossRatio:      r.LossRatio,
			SLABreach:      string(r.SLABreach),
			HighRiskClaim:  string(r.HighRiskClaim),
		}
	}
	return out
}

// SummaryRecords converts summary groups to Parquet rows
func SummaryRecords(rows []metrics.RegionClaimTypeSummary) []SummaryRecord {
	out := make([]SummaryRecord, len(rows))
	for i, r := range rows {
		out[i] = SummaryRecord{
			Region:            r.Region,
			ClaimType:         r.ClaimType,
			ClaimCount:        int64(r.ClaimCount),
			ClaimAmount:       r.ClaimAmount,
			Premium:           r.Premium,
			ProcessingDays:    r.ProcessingDays,
			RegionalLossRatio: r.RegionalLossRatio,
		}
	}
	return out
}

// Result lists the files written for one report
type Result struct {
	ClaimsFile  string `json:"claimsFile"`
	SummaryFile string `json:"summaryFile"`
	FlaggedFile string `json:"flaggedFile"`
	ClaimsRows  int    `json:"claimsRows"`
	SummaryRows int    `json:"summaryRows"`
	FlaggedRows int    `json:"flaggedRows"`
}

// WriteReport writes the derived claims, the flagged subset and the summary
// of a report into dir as <dataset>_claims.parquet, <dataset>_flagged.parquet
// and <dataset>_summary.parquet
func WriteReport(dir string, report *metrics.Report) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &Result{
		ClaimsFile:  filepath.Join(dir, report.Dataset+"_claims.parquet"),
		FlaggedFile: filepath.Join(dir, report.Dataset+"_flagged.parquet"),
		SummaryFile: filepath.Join(dir, report.Dataset+"_summary.parquet"),
	}

	var err error
	if result.ClaimsRows, err = writeFile(result.ClaimsFile, ClaimRecords(report.Claims)); err != nil {
		return nil, err
	}
	if result.FlaggedRows, err = writeFile(result.FlaggedFile, ClaimRecords(report.Flagged)); err != nil {
		return nil, err
	}
	if result.SummaryRows, err = writeFile(result.SummaryFile, SummaryRecords(report.Summary)); err != nil {
		return nil, err
	}

	return result, nil
}

func writeFile[T any](path string, rows []T) (int, error) {
	w, err := NewWriter[T](path)
	if err != nil {
		return 0, err
	}

	if err := w.Write(rows...); err != nil {
		w.Close()
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return w.Count(), nil
}
