package metrics

import (
	"log"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/samijaber1/aegis-claims/internal/claims"
)

// Normalize cleans a raw table: region and claim_status are trimmed and
// lowercased, a missing claim_amount becomes 0 and a missing premium becomes
// the median of the observed premiums. The median is computed once, before
// any row is touched. The input slice is left unchanged.
func Normalize(rows []claims.Claim) ([]claims.Claim, NormalizeReport) {
	report := NormalizeReport{Rows: len(rows)}

	observed := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Premium != nil {
			observed = append(observed, *r.Premium)
		}
	}

	median, ok := Median(observed)
	if !ok && len(rows) > 0 {
		log.Printf("Warning: no premium observed in %d rows, imputing 0", len(rows))
	}
	report.PremiumMedian = median

	lower := cases.Lower(language.Und)
	out := make([]claims.Claim, len(rows))
	for i, r := range rows {
		n := r
		n.Region = lower.String(strings.TrimSpace(r.Region))
		n.ClaimStatus = lower.String(strings.TrimSpace(r.ClaimStatus))

		if r.ClaimAmount == nil {
			report.MissingClaimAmount++
			n.ClaimAmount = claims.Float(0)
		} else {
			n.ClaimAmount = claims.Float(*r.ClaimAmount)
		}

		if r.Premium == nil {
			report.MissingPremium++
			n.Premium = claims.Float(median)
		} else {
			n.Premium = claims.Float(*r.Premium)
		}

		out[i] = n
	}

	return out, report
}

// Median returns the median of values; for an even count it is the mean of
// the two middle values. ok is false when values is empty.
func Median(values []float64) (median float64, ok bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}
