package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

type fakeSource struct {
	mu       sync.Mutex
	datasets map[string]*claims.Dataset
	failing  map[string]error
	listErr  error
	fetches  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		datasets: make(map[string]*claims.Dataset),
		failing:  make(map[string]error),
	}
}

func (f *fakeSource) ListDatasets(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.datasets))
	for name := range f.datasets {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSource) FetchDataset(ctx context.Context, name string) (*claims.Dataset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if err := f.failing[name]; err != nil {
		return nil, err
	}
	d, ok := f.datasets[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (f *fakeSource) set(name string, rows []claims.Claim) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasets[name] = claims.NewDataset(name, rows)
}

func (f *fakeSource) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[name] = err
}

func sampleRows(amount float64) []claims.Claim {
	return []claims.Claim{
		{ClaimID: 1, PolicyID: "P1", Region: " Dubai", ClaimType: "Motor", ClaimAmount: claims.Float(amount), Premium: claims.Float(10000), ClaimStatus: "Approved", ProcessingDays: 12},
		{ClaimID: 2, PolicyID: "P2", Region: "Sharjah", ClaimType: "Medical", ClaimAmount: claims.Float(500), Premium: nil, ClaimStatus: "Pending", ProcessingDays: 3},
	}
}

func newTestScheduler(source Source) *Scheduler {
	return NewScheduler(source, metrics.NewAnalyzer(policy.DefaultRules()), time.Hour)
}

func TestScheduler_Refresh(t *testing.T) {
	source := newFakeSource()
	source.set("alpha", sampleRows(12000))
	source.set("beta", sampleRows(100))

	s := newTestScheduler(source)
	assert.False(t, s.Ready())

	require.NoError(t, s.Refresh(context.Background()))
	assert.True(t, s.Ready())
	assert.Equal(t, []string{"alpha", "beta"}, s.GetCache().Names())

	state, ok := s.GetCache().Get("alpha")
	require.True(t, ok)
	require.Len(t, state.Derived, 2)
	assert.Equal(t, "dubai", state.Derived[0].Region)
	assert.Equal(t, policy.FlagYes, state.Derived[0].HighRiskClaim)
	assert.Equal(t, 1, state.Normalization.MissingPremium)
	assert.Empty(t, state.LastError)
}

func TestScheduler_FailedRefreshKeepsPreviousDataset(t *testing.T) {
	source := newFakeSource()
	source.set("alpha", sampleRows(12000))

	s := newTestScheduler(source)
	require.NoError(t, s.Refresh(context.Background()))

	source.fail("alpha", errors.New("upstream unavailable"))
	require.NoError(t, s.Refresh(context.Background()))

	state, ok := s.GetCache().Get("alpha")
	require.True(t, ok)
	require.NotNil(t, state.Dataset)
	assert.Len(t, state.Derived, 2)
	assert.Equal(t, "upstream unavailable", state.LastError)
}

func TestScheduler_DropsRemovedDatasets(t *testing.T) {
	source := newFakeSource()
	source.set("alpha", sampleRows(1))
	source.set("beta", sampleRows(1))

	s := newTestScheduler(source)
	require.NoError(t, s.Refresh(context.Background()))

	source.mu.Lock()
	delete(source.datasets, "beta")
	source.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, []string{"alpha"}, s.GetCache().Names())
}

func TestScheduler_ListFailure(t *testing.T) {
	source := newFakeSource()
	source.set("alpha", sampleRows(1))

	s := newTestScheduler(source)
	require.NoError(t, s.Refresh(context.Background()))

	source.mu.Lock()
	source.listErr = errors.New("listing down")
	source.mu.Unlock()

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, s.GetCache().Size(), "cache must survive a failed listing")
}

func TestScheduler_DeriveFailureUnderErrorPolicy(t *testing.T) {
	source := newFakeSource()
	source.set("zero", []claims.Claim{
		{ClaimID: 1, PolicyID: "P1", Region: "Dubai", ClaimType: "Motor", ClaimAmount: claims.Float(10), Premium: claims.Float(0), ClaimStatus: "approved", ProcessingDays: 1},
	})

	rules := policy.DefaultRules()
	rules.ZeroPremium = policy.ZeroPremiumError
	s := NewScheduler(source, metrics.NewAnalyzer(rules), time.Hour)

	require.NoError(t, s.Refresh(context.Background()))

	state, ok := s.GetCache().Get("zero")
	require.True(t, ok)
	assert.Nil(t, state.Dataset)
	assert.Contains(t, state.LastError, "division by zero")
}

func TestScheduler_StartStop(t *testing.T) {
	source := newFakeSource()
	source.set("alpha", sampleRows(1))

	s := NewScheduler(source, metrics.NewAnalyzer(policy.DefaultRules()), 10*time.Millisecond)
	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "second start must fail")

	assert.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.fetches >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.True(t, s.Ready())

	// Stop is idempotent
	s.Stop()
}

func TestScheduler_StartRejectsZeroInterval(t *testing.T) {
	s := NewScheduler(newFakeSource(), metrics.NewAnalyzer(policy.DefaultRules()), 0)
	assert.Error(t, s.Start(context.Background()))
}
