package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/scheduler"
	"github.com/samijaber1/aegis-claims/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	scheduler *scheduler.Scheduler
	audit     storage.AuditStorage
	server    *http.Server
}

// NewServer creates a new API server. audit may be nil, in which case runs
// are not persisted and /v1/runs reports 503.
func NewServer(sched *scheduler.Scheduler, audit storage.AuditStorage, addr string) *Server {
	s := &Server{
		scheduler: sched,
		audit:     audit,
	}

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	// Dataset endpoints
	mux.HandleFunc("/v1/datasets", s.handleDatasetList)
	mux.HandleFunc("/v1/datasets/", s.handleDataset)

	// Run audit endpoints
	mux.HandleFunc("/v1/runs", s.handleRuns)
	mux.HandleFunc("/v1/runs/", s.handleRunSummary)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady handles GET /readyz
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	loaded := 0
	for _, state := range s.scheduler.GetCache().GetAll() {
		if state.Dataset != nil {
			loaded++
		}
	}

	reasons := []string{}
	if !s.scheduler.Ready() {
		reasons = append(reasons, "initial refresh not completed")
	}
	if loaded == 0 {
		reasons = append(reasons, "no datasets loaded")
	}

	ready := len(reasons) == 0
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, ReadyResponse{
		Ready:          ready,
		DatasetsLoaded: loaded,
		Reasons:        reasons,
	})
}

// handleDatasetList handles GET /v1/datasets
func (s *Server) handleDatasetList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cache := s.scheduler.GetCache()
	now := time.Now()

	infos := make([]DatasetInfo, 0, cache.Size())
	for _, name := range cache.Names() {
		state, ok := cache.Get(name)
		if !ok {
			continue
		}

		info := DatasetInfo{
			Name:      name,
			UpdatedAt: state.UpdatedAt,
			LastError: state.LastError,
		}
		if state.Dataset != nil {
			info.Owner = state.Dataset.Metadata.Owner
			info.Description = state.Dataset.Metadata.Description
			info.Rows = len(state.Derived)
			info.Loaded = true
			info.IsStale = state.IsStale(now)
		}
		infos = append(infos, info)
	}

	respondJSON(w, http.StatusOK, DatasetListResponse{Datasets: infos})
}

// handleDataset handles /v1/datasets/{name}/{claims|summary|flagged|charts|report|analyze}
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/datasets/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		respondError(w, http.StatusBadRequest, "invalid path format, expected /v1/datasets/{name}/{view}")
		return
	}

	name, view := parts[0], parts[1]

	if view == "analyze" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleAnalyze(w, r, name)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, ok := s.loadedDataset(w, name)
	if !ok {
		return
	}

	switch view {
	case "claims":
		respondJSON(w, http.StatusOK, ClaimsResponse{
			Dataset:       name,
			Normalization: state.Normalization,
			Claims:        state.Derived,
			Total:         len(state.Derived),
		})
	case "summary":
		respondJSON(w, http.StatusOK, SummaryResponse{
			Dataset: name,
			Summary: metrics.SummarizeByRegionAndType(state.Derived),
		})
	case "flagged":
		flagged := metrics.Project(metrics.SelectHighRiskOrBreached(state.Derived))
		respondJSON(w, http.StatusOK, FlaggedResponse{
			Dataset: name,
			Flagged: flagged,
			Total:   len(flagged),
		})
	case "charts":
		respondJSON(w, http.StatusOK, ChartsResponse{
			Dataset: name,
			Charts:  metrics.BuildCharts(state.Derived),
		})
	case "report":
		respondJSON(w, http.StatusOK, s.buildReport(name, state))
	default:
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown dataset view: %s", view))
	}
}

// handleAnalyze handles POST /v1/datasets/{name}/analyze.
// With ?refresh=true the dataset is re-fetched from its source first.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, name string) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.scheduler.RefreshDataset(r.Context(), name); err != nil {
			respondError(w, http.StatusBadGateway, fmt.Sprintf("refresh failed: %v", err))
			return
		}
	}

	state, ok := s.loadedDataset(w, name)
	if !ok {
		return
	}

	report := s.buildReport(name, state)

	persisted := false
	if s.audit != nil {
		if err := s.audit.StoreDatasetDefinition(state.Dataset); err != nil {
			log.Printf("Warning: failed to store dataset definition %s: %v", name, err)
		}
		if err := s.audit.StoreRun(report); err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store run: %v", err))
			return
		}
		persisted = true
	}

	log.Printf("Analyzed dataset %s: run=%s rows=%d flagged=%d", name, report.ID, len(report.Claims), len(report.Flagged))

	respondJSON(w, http.StatusOK, AnalyzeResponse{
		RunID:        report.ID,
		Dataset:      name,
		Timestamp:    report.Timestamp,
		Persisted:    persisted,
		Rows:         len(report.Claims),
		FlaggedCount: len(report.Flagged),
		Summary:      report.Summary,
	})
}

// handleRuns handles GET /v1/runs
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit storage not configured")
		return
	}

	query := r.URL.Query()
	filter := storage.RunFilter{
		Dataset: query.Get("dataset"),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	if startTimeStr := query.Get("startTime"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			startTime = startTime.UTC()
			filter.StartTime = &startTime
		}
	}

	if endTimeStr := query.Get("endTime"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			endTime = endTime.UTC()
			filter.EndTime = &endTime
		}
	}

	records, err := s.audit.QueryRuns(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query runs: %v", err))
		return
	}
	if records == nil {
		records = []storage.RunRecord{}
	}

	respondJSON(w, http.StatusOK, RunsResponse{
		Runs:  records,
		Total: len(records),
	})
}

// handleRunSummary handles GET /v1/runs/{id}/summary
func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "audit storage not configured")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "summary" {
		respondError(w, http.StatusBadRequest, "invalid path format, expected /v1/runs/{id}/summary")
		return
	}

	summary, err := s.audit.GetRunSummary(parts[0])
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get run summary: %v", err))
		return
	}
	if len(summary) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no summary found for run: %s", parts[0]))
		return
	}

	respondJSON(w, http.StatusOK, RunSummaryResponse{RunID: parts[0], Summary: summary})
}

// loadedDataset looks a dataset up in the cache, writing the error response
// when it is unknown or has never loaded successfully
func (s *Server) loadedDataset(w http.ResponseWriter, name string) (*scheduler.DatasetState, bool) {
	state, ok := s.scheduler.GetCache().Get(name)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("dataset not found: %s", name))
		return nil, false
	}
	if state.Dataset == nil {
		respondError(w, http.StatusServiceUnavailable, fmt.Sprintf("dataset %s not loaded: %s", name, state.LastError))
		return nil, false
	}
	return state, true
}

func (s *Server) buildReport(name string, state *scheduler.DatasetState) *metrics.Report {
	rules := s.scheduler.Analyzer().Engine().Rules()
	return metrics.NewReport(name, rules, state.Normalization, state.Derived, time.Now().UTC())
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
