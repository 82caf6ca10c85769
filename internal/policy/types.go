package policy

import "fmt"

// Flag is a yes/no indicator column value
type Flag string

const (
	FlagYes Flag = "yes"
	FlagNo  Flag = "no"
)

// FlagOf converts a condition into a Flag
func FlagOf(cond bool) Flag {
	if cond {
		return FlagYes
	}
	return FlagNo
}

// IsYes reports whether the flag is set
func (f Flag) IsYes() bool {
	return f == FlagYes
}

// ZeroPremiumPolicy decides how a claim with a zero premium is classified
type ZeroPremiumPolicy string

const (
	// ZeroPremiumFlag leaves the loss ratio undefined and marks the claim
	// high-risk whenever anything was paid out against it.
	ZeroPremiumFlag ZeroPremiumPolicy = "flag"
	// ZeroPremiumError rejects the table with a DivisionByZeroError.
	ZeroPremiumError ZeroPremiumPolicy = "error"
)

// String implements flag.Value
func (p ZeroPremiumPolicy) String() string {
	return string(p)
}

// Set implements flag.Value
func (p *ZeroPremiumPolicy) Set(s string) error {
	switch v := ZeroPremiumPolicy(s); v {
	case ZeroPremiumFlag, ZeroPremiumError:
		*p = v
		return nil
	default:
		return fmt.Errorf("zero premium policy must be 'flag' or 'error', got %q", s)
	}
}

// Rules holds the thresholds behind the derived flags
type Rules struct {
	SLAThresholdDays  int               `yaml:"slaThresholdDays" json:"slaThresholdDays"`
	HighRiskLossRatio float64           `yaml:"highRiskLossRatio" json:"highRiskLossRatio"`
	ZeroPremium       ZeroPremiumPolicy `yaml:"zeroPremium" json:"zeroPremium"`
}

// DefaultRules returns the standard rules: SLA breach after 10 days, high
// risk above a loss ratio of 1, zero premiums flagged.
func DefaultRules() Rules {
	return Rules{
		SLAThresholdDays:  10,
		HighRiskLossRatio: 1.0,
		ZeroPremium:       ZeroPremiumFlag,
	}
}

// Validate checks if the rules are usable
func (r Rules) Validate() error {
	if r.SLAThresholdDays < 0 {
		return fmt.Errorf("SLA threshold must be non-negative, got %d", r.SLAThresholdDays)
	}
	if r.HighRiskLossRatio < 0 {
		return fmt.Errorf("high-risk loss ratio must be non-negative, got %g", r.HighRiskLossRatio)
	}
	if r.ZeroPremium != ZeroPremiumFlag && r.ZeroPremium != ZeroPremiumError {
		return fmt.Errorf("zero premium policy must be 'flag' or 'error', got %q", r.ZeroPremium)
	}
	return nil
}

// FlagResult holds the flags derived for one claim
type FlagResult struct {
	SLABreach Flag
	HighRisk  Flag
}

// DivisionByZeroError is returned under ZeroPremiumError when a claim has a
// zero premium and its loss ratio cannot be computed
type DivisionByZeroError struct {
	ClaimID     int64
	ClaimAmount float64
}

// Error implements the error interface
func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: claim %d has zero premium (claim_amount=%g)", e.ClaimID, e.ClaimAmount)
}
