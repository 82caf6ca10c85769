package metrics

import (
	"time"

	"github.com/samijaber1/aegis-claims/internal/claims"
	"github.com/samijaber1/aegis-claims/internal/policy"
)

// DerivedClaim is a normalized claim with its derived columns appended
type DerivedClaim struct {
	claims.Claim
	LossRatio     *float64    `json:"loss_ratio"` // nil when premium is zero
	SLABreach     policy.Flag `json:"sla_breach"`
	HighRiskClaim policy.Flag `json:"high_risk_claim"`
}

// Amount returns the claim amount, 0 when missing
func (d DerivedClaim) Amount() float64 {
	return valueOrZero(d.ClaimAmount)
}

// PremiumValue returns the premium, 0 when missing
func (d DerivedClaim) PremiumValue() float64 {
	return valueOrZero(d.Premium)
}

// RegionClaimTypeSummary aggregates the claims sharing a (region, claim_type) key
type RegionClaimTypeSummary struct {
	Region            string   `json:"region"`
	ClaimType         string   `json:"claim_type"`
	ClaimCount        int      `json:"claim_count"`
	ClaimAmount       float64  `json:"claim_amount"`    // sum
	Premium           float64  `json:"premium"`         // sum
	ProcessingDays    float64  `json:"processing_days"` // mean
	RegionalLossRatio *float64 `json:"regional_loss_ratio"`
}

// NormalizeReport describes the imputations made by Normalize
type NormalizeReport struct {
	Rows               int     `json:"rows"`
	MissingClaimAmount int     `json:"missing_claim_amount"`
	MissingPremium     int     `json:"missing_premium"`
	PremiumMedian      float64 `json:"premium_median"`
}

// HasMissingValues reports whether any value was imputed
func (r NormalizeReport) HasMissingValues() bool {
	return r.MissingClaimAmount > 0 || r.MissingPremium > 0
}

// FlaggedRow is the reporting projection of a high-risk or SLA-breaching claim
type FlaggedRow struct {
	ClaimID        int64       `json:"claim_id"`
	Region         string      `json:"region"`
	ClaimAmount    float64     `json:"claim_amount"`
	Premium        float64     `json:"premium"`
	LossRatio      *float64    `json:"loss_ratio"`
	ProcessingDays int         `json:"processing_days"`
	SLABreach      policy.Flag `json:"sla_breach"`
	HighRiskClaim  policy.Flag `json:"high_risk_claim"`
}

// Point is a single labelled value of a chart series
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is the data behind one chart
type Series struct {
	Name   string  `json:"name"`
	XAxis  string  `json:"xAxis"`
	YAxis  string  `json:"yAxis"`
	Points []Point `json:"points"`
}

// Charts bundles the series of the standard claims dashboard
type Charts struct {
	ClaimsByRegion          Series `json:"claimsByRegion"`
	AvgProcessingByRegion   Series `json:"avgProcessingByRegion"`
	ClaimAmountDistribution Series `json:"claimAmountDistribution"`
	AvgLossRatioByType      Series `json:"avgLossRatioByType"`
	SLABreachCounts         Series `json:"slaBreachCounts"`
}

// Report is the complete analysis of one dataset
type Report struct {
	ID            string                   `json:"id"`
	Dataset       string                   `json:"dataset"`
	Rules         policy.Rules             `json:"rules"`
	Normalization NormalizeReport          `json:"normalization"`
	Claims        []DerivedClaim           `json:"claims"`
	Summary       []RegionClaimTypeSummary `json:"summary"`
	Flagged       []DerivedClaim           `json:"flagged"`
	Charts        Charts                   `json:"charts"`
	Timestamp     time.Time                `json:"timestamp"`
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
