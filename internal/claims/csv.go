package claims

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV decodes a CSV table whose header row names the raw columns.
// Column order is free; extra columns are ignored. Empty claim_amount and
// premium cells are missing values.
func parseCSV(data []byte) (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ShapeError{Column: "header", Row: -1, Reason: "empty CSV file"}
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range RequiredColumns {
		if _, ok := colIdx[name]; !ok {
			return nil, &ShapeError{Column: name, Row: -1, Reason: "required column is absent"}
		}
	}

	dataset := &Dataset{APIVersion: APIVersionV1, Kind: KindDataset}
	cols := &dataset.Columns

	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", row, err)
		}

		// region and claim_status keep their raw text; normalization owns trimming
		rawCell := func(name string) string {
			idx := colIdx[name]
			if idx >= len(record) {
				return ""
			}
			return record[idx]
		}
		cell := func(name string) string {
			return strings.TrimSpace(rawCell(name))
		}

		claimID, err := strconv.ParseInt(cell(ColumnClaimID), 10, 64)
		if err != nil {
			return nil, &ShapeError{Column: ColumnClaimID, Row: row, Reason: fmt.Sprintf("invalid integer %q", cell(ColumnClaimID))}
		}
		amount, err := parseOptionalFloat(cell(ColumnClaimAmount))
		if err != nil {
			return nil, &ShapeError{Column: ColumnClaimAmount, Row: row, Reason: err.Error()}
		}
		premium, err := parseOptionalFloat(cell(ColumnPremium))
		if err != nil {
			return nil, &ShapeError{Column: ColumnPremium, Row: row, Reason: err.Error()}
		}
		days, err := strconv.Atoi(cell(ColumnProcessingDays))
		if err != nil {
			return nil, &ShapeError{Column: ColumnProcessingDays, Row: row, Reason: fmt.Sprintf("invalid integer %q", cell(ColumnProcessingDays))}
		}

		cols.ClaimID = append(cols.ClaimID, claimID)
		cols.PolicyID = append(cols.PolicyID, cell(ColumnPolicyID))
		cols.Region = append(cols.Region, rawCell(ColumnRegion))
		cols.ClaimType = append(cols.ClaimType, cell(ColumnClaimType))
		cols.ClaimAmount = append(cols.ClaimAmount, amount)
		cols.Premium = append(cols.Premium, premium)
		cols.ClaimStatus = append(cols.ClaimStatus, rawCell(ColumnClaimStatus))
		cols.ProcessingDays = append(cols.ProcessingDays, days)
	}

	return dataset, nil
}

// parseOptionalFloat parses a numeric cell; empty, "na" and "null" cells are missing
func parseOptionalFloat(s string) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if math.IsInf(v, 0) {
		return nil, fmt.Errorf("number %q is not finite", s)
	}
	return &v, nil
}
