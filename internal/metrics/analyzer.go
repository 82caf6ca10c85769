package metrics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

// Analyzer runs the full pipeline over a dataset:
// normalize, derive, summarize, select and chart.
type Analyzer struct {
	engine *Engine
}

// NewAnalyzer creates a new analyzer with the given rules
func NewAnalyzer(rules policy.Rules) *Analyzer {
	return &Analyzer{engine: NewEngine(rules)}
}

// Engine returns the underlying metrics engine
func (a *Analyzer) Engine() *Engine {
	return a.engine
}

// Derive normalizes a dataset and derives its metrics, without summarizing
func (a *Analyzer) Derive(dataset *claims.Dataset) ([]DerivedClaim, NormalizeReport, error) {
	rows, err := dataset.Claims()
	if err != nil {
		return nil, NormalizeReport{}, err
	}

	normalized, report := Normalize(rows)

	derived, err := a.engine.DeriveMetrics(normalized)
	if err != nil {
		return nil, report, err
	}
	return derived, report, nil
}

// Analyze performs a complete analysis of a single dataset
func (a *Analyzer) Analyze(dataset *claims.Dataset, now time.Time) (*Report, error) {
	if dataset == nil {
		return nil, fmt.Errorf("nil dataset")
	}

	derived, normalization, err := a.Derive(dataset)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", dataset.Metadata.Name, err)
	}

	return NewReport(dataset.Metadata.Name, a.engine.Rules(), normalization, derived, now), nil
}

// NewReport assembles a report with a fresh run ID from an already derived
// table. Summary, flagged subset and charts are recomputed on every call.
func NewReport(dataset string, rules policy.Rules, normalization NormalizeReport, derived []DerivedClaim, now time.Time) *Report {
	return &Report{
		ID:            uuid.NewString(),
		Dataset:       dataset,
		Rules:         rules,
		Normalization: normalization,
		Claims:        derived,
		Summary:       SummarizeByRegionAndType(derived),
		Flagged:       SelectHighRiskOrBreached(derived),
		Charts:        BuildCharts(derived),
		Timestamp:     now,
	}
}

// AnalyzeAll analyzes every dataset, stopping at the first failure
func (a *Analyzer) AnalyzeAll(datasets []*claims.Dataset, now time.Time) ([]*Report, error) {
	reports := make([]*Report, 0, len(datasets))
	for _, d := range datasets {
		report, err := a.Analyze(d, now)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
