package policy

// Engine applies the flag rules to a single claim
type Engine struct {
	rules Rules
}

// NewEngine creates a new policy engine
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the rules the engine applies
func (e *Engine) Rules() Rules {
	return e.rules
}

// Evaluate derives the SLA-breach and high-risk flags for a claim.
// lossRatio is nil when the premium is zero.
func (e *Engine) Evaluate(claimID int64, processingDays int, claimAmount float64, lossRatio *float64) (*FlagResult, error) {
	highRisk, err := e.HighRisk(claimID, claimAmount, lossRatio)
	if err != nil {
		return nil, err
	}

	return &FlagResult{
		SLABreach: e.SLABreach(processingDays),
		HighRisk:  highRisk,
	}, nil
}

// SLABreach is "yes" iff processing took strictly longer than the threshold
func (e *Engine) SLABreach(processingDays int) Flag {
	return FlagOf(processingDays > e.rules.SLAThresholdDays)
}

// HighRisk is "yes" iff the loss ratio strictly exceeds the threshold.
// An undefined ratio is resolved by the zero-premium policy.
func (e *Engine) HighRisk(claimID int64, claimAmount float64, lossRatio *float64) (Flag, error) {
	if lossRatio != nil {
		return FlagOf(*lossRatio > e.rules.HighRiskLossRatio), nil
	}

	if e.rules.ZeroPremium == ZeroPremiumError {
		return "", &DivisionByZeroError{ClaimID: claimID, ClaimAmount: claimAmount}
	}

	// 0/0 paid nothing against nothing
	return FlagOf(claimAmount > 0), nil
}
