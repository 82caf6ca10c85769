package claims

import "fmt"

// Column names of the raw claims table.
const (
	ColumnClaimID        = "claim_id"
	ColumnPolicyID       = "policy_id"
	ColumnRegion         = "region"
	ColumnClaimType      = "claim_type"
	ColumnClaimAmount    = "claim_amount"
	ColumnPremium        = "premium"
	ColumnClaimStatus    = "claim_status"
	ColumnProcessingDays = "processing_days"
)

// RequiredColumns lists every column a dataset must carry, in table order.
var RequiredColumns = []string{
	ColumnClaimID,
	ColumnPolicyID,
	ColumnRegion,
	ColumnClaimType,
	ColumnClaimAmount,
	ColumnPremium,
	ColumnClaimStatus,
	ColumnProcessingDays,
}

const (
	APIVersionV1 = "claims/v1"
	KindDataset  = "ClaimsDataset"
)

// Dataset is a parsed claims dataset document
type Dataset struct {
	APIVersion string   `yaml:"apiVersion" json:"apiVersion"`
	Kind       string   `yaml:"kind" json:"kind"`
	Metadata   Metadata `yaml:"metadata" json:"metadata"`
	Columns    Columns  `yaml:"columns" json:"columns"`
}

// Metadata describes a dataset
type Metadata struct {
	Name        string `yaml:"name" json:"name"`
	Owner       string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Columns holds the raw table in columnar form. A nil entry in ClaimAmount
// or Premium is a missing value.
type Columns struct {
	ClaimID        []int64    `yaml:"claim_id" json:"claim_id"`
	PolicyID       []string   `yaml:"policy_id" json:"policy_id"`
	Region         []string   `yaml:"region" json:"region"`
	ClaimType      []string   `yaml:"claim_type" json:"claim_type"`
	ClaimAmount    []*float64 `yaml:"claim_amount" json:"claim_amount"`
	Premium        []*float64 `yaml:"premium" json:"premium"`
	ClaimStatus    []string   `yaml:"claim_status" json:"claim_status"`
	ProcessingDays []int      `yaml:"processing_days" json:"processing_days"`
}

// Claim is a single raw row of the claims table
type Claim struct {
	ClaimID        int64    `json:"claim_id"`
	PolicyID       string   `json:"policy_id"`
	Region         string   `json:"region"`
	ClaimType      string   `json:"claim_type"`
	ClaimAmount    *float64 `json:"claim_amount"`
	Premium        *float64 `json:"premium"`
	ClaimStatus    string   `json:"claim_status"`
	ProcessingDays int      `json:"processing_days"`
}

// DatasetWithFile pairs a dataset with its source file path
type DatasetWithFile struct {
	Dataset *Dataset
	File    string
}

// ValidationError represents a validation error for a specific file
type ValidationError struct {
	File    string
	Path    string
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Path != "" {
		return e.File + ": " + e.Path + ": " + e.Message
	}
	return e.File + ": " + e.Message
}

// ShapeError reports a table that does not have the required structure:
// an absent column, ragged column lengths or an unreadable cell.
type ShapeError struct {
	Column string
	Row    int // 0-based row index, -1 when the error is not tied to a row
	Reason string
}

// Error implements the error interface
func (e *ShapeError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("shape error: column %s, row %d: %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("shape error: column %s: %s", e.Column, e.Reason)
}

// Float returns a pointer to v. Handy for building Claim literals.
func Float(v float64) *float64 {
	return &v
}
