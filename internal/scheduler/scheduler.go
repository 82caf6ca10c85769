package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/metrics"
)

// Source provides claims datasets by name
type Source interface {
	ListDatasets(ctx context.Context) ([]string, error)
	FetchDataset(ctx context.Context, name string) (*claims.Dataset, error)
}

// Scheduler periodically refreshes datasets from a source into the cache
type Scheduler struct {
	source      Source
	analyzer    *metrics.Analyzer
	cache       *DatasetCache
	interval    time.Duration
	concurrency int
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	ready       bool
}

// NewScheduler creates a new scheduler
func NewScheduler(source Source, analyzer *metrics.Analyzer, interval time.Duration) *Scheduler {
	return &Scheduler{
		source:      source,
		analyzer:    analyzer,
		cache:       NewDatasetCache(),
		interval:    interval,
		concurrency: 4,
	}
}

// SetConcurrency bounds the number of datasets refreshed in parallel
func (s *Scheduler) SetConcurrency(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.concurrency = n
	}
}

// Start runs an initial refresh and then refreshes every interval until
// Stop is called or ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	if s.interval <= 0 {
		s.mu.Unlock()
		return fmt.Errorf("refresh interval must be positive, got %s", s.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.refreshLoop(ctx)

	log.Printf("Started scheduler, refreshing every %s", s.interval)
	return nil
}

// Stop stops the scheduler and waits for the running refresh to complete
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	s.cancel()
	s.running = false
	s.mu.Unlock()

	log.Println("Stopping scheduler...")
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	defer s.wg.Done()

	if err := s.Refresh(ctx); err != nil {
		log.Printf("Error refreshing datasets: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Printf("Error refreshing datasets: %v", err)
			}
		}
	}
}

// Refresh performs one refresh pass over every dataset of the source.
// Datasets that fail to load keep their previous cached version; datasets
// no longer listed are dropped. Only a failure to list is returned.
func (s *Scheduler) Refresh(ctx context.Context) error {
	names, err := s.source.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}

	s.mu.RLock()
	limit := s.concurrency
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, name := range names {
		name := name
		g.Go(func() error {
			if err := s.RefreshDataset(gctx, name); err != nil {
				log.Printf("Warning: refresh of dataset %s failed, keeping previous version: %v", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.cache.Retain(names)

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	log.Printf("Refreshed %d datasets", len(names))
	return nil
}

// RefreshDataset fetches and derives a single dataset into the cache
func (s *Scheduler) RefreshDataset(ctx context.Context, name string) error {
	dataset, err := s.source.FetchDataset(ctx, name)
	if err != nil {
		s.cache.MarkFailed(name, err)
		return err
	}

	derived, normalization, err := s.analyzer.Derive(dataset)
	if err != nil {
		s.cache.MarkFailed(name, err)
		return err
	}

	s.cache.Set(name, &DatasetState{
		Dataset:       dataset,
		Derived:       derived,
		Normalization: normalization,
		UpdatedAt:     time.Now(),
		TTL:           s.interval,
	})
	return nil
}

// Ready reports whether at least one refresh pass has completed
func (s *Scheduler) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// GetCache returns the dataset cache
func (s *Scheduler) GetCache() *DatasetCache {
	return s.cache
}

// Analyzer returns the analyzer used to derive datasets
func (s *Scheduler) Analyzer() *metrics.Analyzer {
	return s.analyzer
}
