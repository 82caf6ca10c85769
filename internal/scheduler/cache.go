package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/metrics"
)

// DatasetState is the cached, derived form of one dataset. Summaries and
// flagged subsets are not cached; they are recomputed from Derived.
type DatasetState struct {
	Dataset       *claims.Dataset
	Derived       []metrics.DerivedClaim
	Normalization metrics.NormalizeReport
	UpdatedAt     time.Time
	TTL           time.Duration
	// LastError is the error of the most recent failed refresh; the
	// previous dataset is kept when a refresh fails.
	LastError string
}

// IsStale returns true if the cached state is older than its TTL
func (s *DatasetState) IsStale(now time.Time) bool {
	return now.Sub(s.UpdatedAt) > s.TTL
}

// DatasetCache is a thread-safe cache of derived datasets keyed by name
type DatasetCache struct {
	mu     sync.RWMutex
	states map[string]*DatasetState
}

// NewDatasetCache creates a new dataset cache
func NewDatasetCache() *DatasetCache {
	return &DatasetCache{
		states: make(map[string]*DatasetState),
	}
}

// Get retrieves the cached state of a dataset
func (c *DatasetCache) Get(name string) (*DatasetState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, exists := c.states[name]
	return state, exists
}

// Set stores the state of a dataset
func (c *DatasetCache) Set(name string, state *DatasetState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states[name] = state
}

// MarkFailed records a failed refresh. The cached dataset, if any, is kept
// under a copied state so readers holding the old pointer are unaffected.
func (c *DatasetCache) MarkFailed(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, exists := c.states[name]
	if !exists {
		c.states[name] = &DatasetState{LastError: err.Error()}
		return
	}

	updated := *state
	updated.LastError = err.Error()
	c.states[name] = &updated
}

// GetAll returns all cached states
func (c *DatasetCache) GetAll() map[string]*DatasetState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]*DatasetState, len(c.states))
	for k, v := range c.states {
		snapshot[k] = v
	}

	return snapshot
}

// Names returns the cached dataset names, sorted
func (c *DatasetCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.states))
	for name := range c.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Retain drops every dataset whose name is not in keep
func (c *DatasetCache) Retain(keep []string) {
	wanted := make(map[string]bool, len(keep))
	for _, name := range keep {
		wanted[name] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for name := range c.states {
		if !wanted[name] {
			delete(c.states, name)
		}
	}
}

// Delete removes a cached dataset
func (c *DatasetCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.states, name)
}

// Clear removes all cached datasets
func (c *DatasetCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.states = make(map[string]*DatasetState)
}

// Size returns the number of cached datasets
func (c *DatasetCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.states)
}
