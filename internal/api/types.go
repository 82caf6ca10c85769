package api

import (
	"time"

	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/storage"
)

// DatasetListResponse represents the list of cached datasets
type DatasetListResponse struct {
	Datasets []DatasetInfo `json:"datasets"`
}

// DatasetInfo contains summary information about a cached dataset
type DatasetInfo struct {
	Name        string    `json:"name"`
	Owner       string    `json:"owner,omitempty"`
	Description string    `json:"description,omitempty"`
	Rows        int       `json:"rows"`
	Loaded      bool      `json:"loaded"`
	IsStale     bool      `json:"isStale"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastError   string    `json:"lastError,omitempty"`
}

// ClaimsResponse represents the derived table of a dataset
type ClaimsResponse struct {
	Dataset       string                  `json:"dataset"`
	Normalization metrics.NormalizeReport `json:"normalization"`
	Claims        []metrics.DerivedClaim  `json:"claims"`
	Total         int                     `json:"total"`
}

// SummaryResponse represents the (region, claim_type) summary of a dataset
type SummaryResponse struct {
	Dataset string                           `json:"dataset"`
	Summary []metrics.RegionClaimTypeSummary `json:"summary"`
}

// FlaggedResponse represents the high-risk or SLA-breaching claims of a dataset
type FlaggedResponse struct {
	Dataset string               `json:"dataset"`
	Flagged []metrics.FlaggedRow `json:"flagged"`
	Total   int                  `json:"total"`
}

// ChartsResponse represents the chart series of a dataset
type ChartsResponse struct {
	Dataset string         `json:"dataset"`
	Charts  metrics.Charts `json:"charts"`
}

// AnalyzeResponse represents the outcome of an analysis run
type AnalyzeResponse struct {
	RunID        string                           `json:"runID"`
	Dataset      string                           `json:"dataset"`
	Timestamp    time.Time                        `json:"timestamp"`
	Persisted    bool                             `json:"persisted"`
	Rows         int                              `json:"rows"`
	FlaggedCount int                              `json:"flaggedCount"`
	Summary      []metrics.RegionClaimTypeSummary `json:"summary"`
}

// RunsResponse represents stored analysis runs
type RunsResponse struct {
	Runs  []storage.RunRecord `json:"runs"`
	Total int                 `json:"total"`
}

// RunSummaryResponse represents the summary rows stored with a run
type RunSummaryResponse struct {
	RunID   string                           `json:"runID"`
	Summary []metrics.RegionClaimTypeSummary `json:"summary"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Ready          bool     `json:"ready"`
	DatasetsLoaded int      `json:"datasetsLoaded"`
	Reasons        []string `json:"reasons,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
