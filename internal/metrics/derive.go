package metrics

import (
	"fmt"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

// ComputeLossRatio calculates claim_amount / premium.
// Returns nil when the premium is zero.
func ComputeLossRatio(claimAmount, premium float64) *float64 {
	if premium == 0 {
		return nil
	}
	ratio := claimAmount / premium
	return &ratio
}

// Engine derives per-claim metrics under a set of flag rules
type Engine struct {
	flags *policy.Engine
}

// NewEngine creates a metrics engine for the given rules
func NewEngine(rules policy.Rules) *Engine {
	return &Engine{flags: policy.NewEngine(rules)}
}

// Rules returns the flag rules in effect
func (e *Engine) Rules() policy.Rules {
	return e.flags.Rules()
}

// DeriveMetrics appends loss_ratio, sla_breach and high_risk_claim to every
// row, in that order, preserving row order. Rows must be normalized: a nil
// claim_amount or premium is a shape error.
func (e *Engine) DeriveMetrics(rows []claims.Claim) ([]DerivedClaim, error) {
	out := make([]DerivedClaim, len(rows))

	for i, r := range rows {
		if r.ClaimAmount == nil {
			return nil, &claims.ShapeError{Column: claims.ColumnClaimAmount, Row: i, Reason: "value is missing, normalize the table first"}
		}
		if r.Premium == nil {
			return nil, &claims.ShapeError{Column: claims.ColumnPremium, Row: i, Reason: "value is missing, normalize the table first"}
		}

		lossRatio := ComputeLossRatio(*r.ClaimAmount, *r.Premium)

		flags, err := e.flags.Evaluate(r.ClaimID, r.ProcessingDays, *r.ClaimAmount, lossRatio)
		if err != nil {
			return nil, fmt.Errorf("derive metrics (row %d): %w", i, err)
		}

		out[i] = DerivedClaim{
			Claim:         r,
			LossRatio:     lossRatio,
			SLABreach:     flags.SLABreach,
			HighRiskClaim: flags.HighRisk,
		}
	}

	return out, nil
}

// Rederive recomputes the derived columns of an already derived table.
// Existing derived values are overwritten, never accumulated.
func (e *Engine) Rederive(rows []DerivedClaim) ([]DerivedClaim, error) {
	base := make([]claims.Claim, len(rows))
	for i, r := range rows {
		base[i] = r.Claim
	}
	return e.DeriveMetrics(base)
}
