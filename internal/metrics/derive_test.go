package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

func TestComputeLossRatio(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		premium  float64
		expected *float64
	}{
		{name: "below one", amount: 5000, premium: 7000, expected: claims.Float(5000.0 / 7000.0)},
		{name: "above one", amount: 20000, premium: 15000, expected: claims.Float(20000.0 / 15000.0)},
		{name: "nothing paid", amount: 0, premium: 10000, expected: claims.Float(0)},
		{name: "zero premium", amount: 1000, premium: 0, expected: nil},
		{name: "zero over zero", amount: 0, premium: 0, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLossRatio(tt.amount, tt.premium)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.expected, *got, 1e-9)
		})
	}
}

func normalizedRows() []claims.Claim {
	return []claims.Claim{
		{ClaimID: 1, PolicyID: "P1", Region: "dubai", ClaimType: "Medical", ClaimAmount: claims.Float(5000), Premium: claims.Float(7000), ClaimStatus: "approved", ProcessingDays: 5},
		{ClaimID: 2, PolicyID: "P2", Region: "abu dhabi", ClaimType: "Motor", ClaimAmount: claims.Float(12000), Premium: claims.Float(10000), ClaimStatus: "rejected", ProcessingDays: 12},
		{ClaimID: 3, PolicyID: "P3", Region: "sharjah", ClaimType: "Medical", ClaimAmount: claims.Float(8000), Premium: claims.Float(9000), ClaimStatus: "approved", ProcessingDays: 10},
		{ClaimID: 4, PolicyID: "P4", Region: "dubai", ClaimType: "Medical", ClaimAmount: claims.Float(20000), Premium: claims.Float(15000), ClaimStatus: "approved", ProcessingDays: 20},
	}
}

func TestEngine_DeriveMetrics(t *testing.T) {
	engine := NewEngine(policy.DefaultRules())
	rows := normalizedRows()

	derived, err := engine.DeriveMetrics(rows)
	require.NoError(t, err)
	require.Len(t, derived, len(rows))

	expected := []struct {
		lossRatio float64
		sla       policy.Flag
		risk      policy.Flag
	}{
		{5000.0 / 7000.0, policy.FlagNo, policy.FlagNo},
		{1.2, policy.FlagYes, policy.FlagYes},
		{8000.0 / 9000.0, policy.FlagNo, policy.FlagNo},
		{20000.0 / 15000.0, policy.FlagYes, policy.FlagYes},
	}

	for i, want := range expected {
		assert.Equal(t, rows[i], derived[i].Claim, "row %d must keep its original columns", i)
		require.NotNil(t, derived[i].LossRatio)
		assert.InDelta(t, want.lossRatio, *derived[i].LossRatio, 1e-9)
		assert.Equal(t, want.sla, derived[i].SLABreach, "row %d sla_breach", i)
		assert.Equal(t, want.risk, derived[i].HighRiskClaim, "row %d high_risk_claim", i)
	}
}

func TestEngine_DeriveMetrics_FlagConsistency(t *testing.T) {
	engine := NewEngine(policy.DefaultRules())
	derived, err := engine.DeriveMetrics(normalizedRows())
	require.NoError(t, err)

	for _, d := range derived {
		assert.Equal(t, d.ProcessingDays > 10, d.SLABreach.IsYes())
		assert.Equal(t, *d.LossRatio > 1.0, d.HighRiskClaim.IsYes())
	}
}

func TestEngine_DeriveMetrics_RequiresNormalizedRows(t *testing.T) {
	engine := NewEngine(policy.DefaultRules())
	rows := normalizedRows()
	rows[2].Premium = nil

	_, err := engine.DeriveMetrics(rows)
	require.Error(t, err)

	var shapeErr *claims.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, claims.ColumnPremium, shapeErr.Column)
	assert.Equal(t, 2, shapeErr.Row)
}

func TestEngine_DeriveMetrics_ZeroPremium(t *testing.T) {
	rows := []claims.Claim{
		{ClaimID: 1, ClaimAmount: claims.Float(1000), Premium: claims.Float(0), ProcessingDays: 3},
		{ClaimID: 2, ClaimAmount: claims.Float(0), Premium: claims.Float(0), ProcessingDays: 11},
	}

	t.Run("flag policy", func(t *testing.T) {
		derived, err := NewEngine(policy.DefaultRules()).DeriveMetrics(rows)
		require.NoError(t, err)

		assert.Nil(t, derived[0].LossRatio)
		assert.Equal(t, policy.FlagYes, derived[0].HighRiskClaim)
		assert.Nil(t, derived[1].LossRatio)
		assert.Equal(t, policy.FlagNo, derived[1].HighRiskClaim)
		assert.Equal(t, policy.FlagYes, derived[1].SLABreach)
	})

	t.Run("error policy", func(t *testing.T) {
		rules := policy.DefaultRules()
		rules.ZeroPremium = policy.ZeroPremiumError

		_, err := NewEngine(rules).DeriveMetrics(rows)
		require.Error(t, err)

		var divErr *policy.DivisionByZeroError
		require.True(t, errors.As(err, &divErr))
		assert.Equal(t, int64(1), divErr.ClaimID)
	})
}

func TestEngine_Rederive_Idempotent(t *testing.T) {
	engine := NewEngine(policy.DefaultRules())

	first, err := engine.DeriveMetrics(normalizedRows())
	require.NoError(t, err)

	second, err := engine.Rederive(first)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_Rederive_OverwritesStaleFlags(t *testing.T) {
	engine := NewEngine(policy.DefaultRules())

	derived, err := engine.DeriveMetrics(normalizedRows())
	require.NoError(t, err)

	derived[0].SLABreach = policy.FlagYes
	derived[0].LossRatio = claims.Float(99)

	again, err := engine.Rederive(derived)
	require.NoError(t, err)
	assert.Equal(t, policy.FlagNo, again[0].SLABreach)
	assert.InDelta(t, 5000.0/7000.0, *again[0].LossRatio, 1e-9)
}
