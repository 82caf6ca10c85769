package claims

import "fmt"

// Len returns the number of rows, taken from the claim_id column
func (c Columns) Len() int {
	return len(c.ClaimID)
}

// checkLengths verifies that every column has the same number of values
func (c Columns) checkLengths() error {
	n := c.Len()
	lengths := []struct {
		column string
		length int
	}{
		{ColumnPolicyID, len(c.PolicyID)},
		{ColumnRegion, len(c.Region)},
		{ColumnClaimType, len(c.ClaimType)},
		{ColumnClaimAmount, len(c.ClaimAmount)},
		{ColumnPremium, len(c.Premium)},
		{ColumnClaimStatus, len(c.ClaimStatus)},
		{ColumnProcessingDays, len(c.ProcessingDays)},
	}

	for _, l := range lengths {
		if l.length != n {
			return &ShapeError{
				Column: l.column,
				Row:    -1,
				Reason: fmt.Sprintf("has %d values, expected %d (length of %s)", l.length, n, ColumnClaimID),
			}
		}
	}
	return nil
}

// Claims converts the columnar table into typed rows, preserving row order.
// Missing claim_amount and premium values stay nil.
func (d *Dataset) Claims() ([]Claim, error) {
	if d == nil {
		return nil, fmt.Errorf("nil dataset")
	}

	cols := d.Columns
	if err := cols.checkLengths(); err != nil {
		return nil, err
	}

	rows := make([]Claim, cols.Len())
	for i := range rows {
		rows[i] = Claim{
			ClaimID:        cols.ClaimID[i],
			PolicyID:       cols.PolicyID[i],
			Region:         cols.Region[i],
			ClaimType:      cols.ClaimType[i],
			ClaimAmount:    copyFloat(cols.ClaimAmount[i]),
			Premium:        copyFloat(cols.Premium[i]),
			ClaimStatus:    cols.ClaimStatus[i],
			ProcessingDays: cols.ProcessingDays[i],
		}
	}
	return rows, nil
}

// NewDataset builds a dataset document from typed rows
func NewDataset(name string, rows []Claim) *Dataset {
	d := &Dataset{
		APIVersion: APIVersionV1,
		Kind:       KindDataset,
		Metadata:   Metadata{Name: name},
	}

	cols := &d.Columns
	for _, r := range rows {
		cols.ClaimID = append(cols.ClaimID, r.ClaimID)
		cols.PolicyID = append(cols.PolicyID, r.PolicyID)
		cols.Region = append(cols.Region, r.Region)
		cols.ClaimType = append(cols.ClaimType, r.ClaimType)
		cols.ClaimAmount = append(cols.ClaimAmount, copyFloat(r.ClaimAmount))
		cols.Premium = append(cols.Premium, copyFloat(r.Premium))
		cols.ClaimStatus = append(cols.ClaimStatus, r.ClaimStatus)
		cols.ProcessingDays = append(cols.ProcessingDays, r.ProcessingDays)
	}
	return d
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
