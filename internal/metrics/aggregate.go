package metrics

import "sort"

type summaryKey struct {
	region    string
	claimType string
}

type summaryAcc struct {
	count   int
	amount  float64
	premium float64
	days    int
}

// SummarizeByRegionAndType groups derived claims by (region, claim_type).
// Groups are sorted by region, then claim_type. The regional loss ratio is
// the ratio of the sums and is nil when the summed premium is zero.
func SummarizeByRegionAndType(rows []DerivedClaim) []RegionClaimTypeSummary {
	groups := make(map[summaryKey]*summaryAcc)
	for _, r := range rows {
		key := summaryKey{region: r.Region, claimType: r.ClaimType}
		acc, ok := groups[key]
		if !ok {
			acc = &summaryAcc{}
			groups[key] = acc
		}
		acc.count++
		acc.amount += r.Amount()
		acc.premium += r.PremiumValue()
		acc.days += r.ProcessingDays
	}

	out := make([]RegionClaimTypeSummary, 0, len(groups))
	for key, acc := range groups {
		out = append(out, RegionClaimTypeSummary{
			Region:            key.region,
			ClaimType:         key.claimType,
			ClaimCount:        acc.count,
			ClaimAmount:       acc.amount,
			Premium:           acc.premium,
			ProcessingDays:    float64(acc.days) / float64(acc.count),
			RegionalLossRatio: ComputeLossRatio(acc.amount, acc.premium),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].ClaimType < out[j].ClaimType
	})

	return out
}

// SelectHighRiskOrBreached returns the rows flagged high-risk or SLA-breaching,
// in their original order. The result never aliases the input.
func SelectHighRiskOrBreached(rows []DerivedClaim) []DerivedClaim {
	out := make([]DerivedClaim, 0)
	for _, r := range rows {
		if r.HighRiskClaim.IsYes() || r.SLABreach.IsYes() {
			out = append(out, r)
		}
	}
	return out
}

// Project reduces flagged claims to the reporting columns
func Project(rows []DerivedClaim) []FlaggedRow {
	out := make([]FlaggedRow, len(rows))
	for i, r := range rows {
		out[i] = FlaggedRow{
			ClaimID:        r.ClaimID,
			Region:         r.Region,
			ClaimAmount:    r.Amount(),
			Premium:        r.PremiumValue(),
			LossRatio:      r.LossRatio,
			ProcessingDays: r.ProcessingDays,
			SLABreach:      r.SLABreach,
			HighRiskClaim:  r.HighRiskClaim,
		}
	}
	return out
}
