package export

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

func testReport(t *testing.T) *metrics.Report {
	t.Helper()

	dataset, err := claims.ParseFile("../../fixtures/claims/valid/zero-premium.json")
	if err != nil {
		t.Fatalf("Failed to load fixture: %v", err)
	}

	report, err := metrics.NewAnalyzer(policy.DefaultRules()).Analyze(dataset, time.Now())
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	return report
}

func TestWriter_RoundTrip(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test_*.parquet")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	writer, err := NewWriter[ClaimRecord](tmpPath)
	if err != nil {
		t.Fatalf("Failed to create parquet writer: %v", err)
	}

	report := testReport(t)
	if err := writer.Write(ClaimRecords(report.Claims)...); err != nil {
		t.Fatalf("Failed to write claims: %v", err)
	}

	if writer.Count() != 3 {
		t.Errorf("Expected count 3, got %d", writer.Count())
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	records, err := parquet.ReadFile[ClaimRecord](tmpPath)
	if err != nil {
		t.Fatalf("Failed to read parquet file: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.ClaimID != 1 || first.Region != "dubai" {
		t.Errorf("Unexpected first record: %+v", first)
	}
	if first.LossRatio != nil {
		t.Errorf("Expected null loss_ratio for zero premium, got %v", *first.LossRatio)
	}
	if first.HighRiskClaim != "yes" {
		t.Errorf("Expected high_risk_claim=yes, got %s", first.HighRiskClaim)
	}

	third := records[2]
	if third.LossRatio == nil || *third.LossRatio != 0 {
		t.Errorf("Expected loss_ratio=0 for third record, got %v", third.LossRatio)
	}
	if third.ClaimAmount != 0 {
		t.Errorf("Expected imputed claim_amount=0, got %f", third.ClaimAmount)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	report := testReport(t)

	result, err := WriteReport(dir, report)
	if err != nil {
		t.Fatalf("Failed to write report: %v", err)
	}

	if result.ClaimsRows != 3 || result.FlaggedRows != 2 || result.SummaryRows != 2 {
		t.Errorf("Unexpected row counts: %+v", result)
	}

	summary, err := parquet.ReadFile[SummaryRecord](result.SummaryFile)
	if err != nil {
		t.Fatalf("Failed to read summary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("Expected 2 summary rows, got %d", len(summary))
	}
	if summary[0].Region != "dubai" || summary[0].ClaimType != "Motor" {
		t.Errorf("Unexpected first summary row: %+v", summary[0])
	}
	if summary[0].RegionalLossRatio != nil {
		t.Error("Expected null regional_loss_ratio for zero-premium group")
	}
	if summary[0].ClaimCount != 2 || summary[0].ClaimAmount != 1000 {
		t.Errorf("Unexpected dubai/Motor aggregate: %+v", summary[0])
	}

	flagged, err := parquet.ReadFile[ClaimRecord](result.FlaggedFile)
	if err != nil {
		t.Fatalf("Failed to read flagged: %v", err)
	}
	for _, f := range flagged {
		if f.SLABreach != "yes" && f.HighRiskClaim != "yes" {
			t.Errorf("Unflagged claim %d in flagged export", f.ClaimID)
		}
	}
}

func TestWriteReport_EmptyDataset(t *testing.T) {
	dir := t.TempDir()

	report, err := metrics.NewAnalyzer(policy.DefaultRules()).Analyze(claims.NewDataset("empty", nil), time.Now())
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}

	result, err := WriteReport(dir, report)
	if err != nil {
		t.Fatalf("Failed to write report: %v", err)
	}
	if result.ClaimsRows != 0 {
		t.Errorf("Expected 0 rows, got %d", result.ClaimsRows)
	}

	if _, err := os.Stat(result.ClaimsFile); err != nil {
		t.Errorf("Expected claims file to exist: %v", err)
	}
}

func TestClaimRecords_LargeProcessingDays(t *testing.T) {
	const days = math.MaxInt32 + 10

	derived, err := metrics.NewEngine(policy.DefaultRules()).DeriveMetrics([]claims.Claim{
		{ClaimID: 1, Region: "dubai", ClaimType: "Motor", ClaimAmount: claims.Float(1), Premium: claims.Float(1), ProcessingDays: days},
	})
	if err != nil {
		t.Fatalf("Failed to derive: %v", err)
	}

	path := filepath.Join(t.TempDir(), "days.parquet")
	if _, err := writeFile(path, ClaimRecords(derived)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	records, err := parquet.ReadFile[ClaimRecord](path)
	if err != nil {
		t.Fatalf("Failed to read parquet file: %v", err)
	}
	if len(records) != 1 || records[0].ProcessingDays != days {
		t.Errorf("Expected processing_days %d to survive the round trip, got %+v", int64(days), records)
	}
}
