package metrics

import (
	"fmt"
	"math"
	"sort"
)

// HistogramBins is the number of equal-width bins of the claim amount distribution
const HistogramBins = 10

// BuildCharts computes every dashboard series from a derived table
func BuildCharts(rows []DerivedClaim) Charts {
	return Charts{
		ClaimsByRegion:          ClaimsByRegion(rows),
		AvgProcessingByRegion:   AvgProcessingByRegion(rows),
		ClaimAmountDistribution: ClaimAmountHistogram(rows, HistogramBins),
		AvgLossRatioByType:      AvgLossRatioByType(rows),
		SLABreachCounts:         SLABreachCounts(rows),
	}
}

// group collects row indexes by key; keys are returned sorted
func group(rows []DerivedClaim, key func(DerivedClaim) string) ([]string, map[string][]int) {
	grouped := make(map[string][]int)
	for i, r := range rows {
		k := key(r)
		grouped[k] = append(grouped[k], i)
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, grouped
}

func byRegion(r DerivedClaim) string    { return r.Region }
func byClaimType(r DerivedClaim) string { return r.ClaimType }

// ClaimsByRegion sums claim amounts per region
func ClaimsByRegion(rows []DerivedClaim) Series {
	keys, grouped := group(rows, byRegion)

	points := make([]Point, 0, len(keys))
	for _, k := range keys {
		var total float64
		for _, i := range grouped[k] {
			total += rows[i].Amount()
		}
		points = append(points, Point{Label: k, Value: total})
	}

	return Series{Name: "Total Claim Amount by Region", XAxis: "region", YAxis: "claim_amount", Points: points}
}

// AvgProcessingByRegion averages processing days per region
func AvgProcessingByRegion(rows []DerivedClaim) Series {
	keys, grouped := group(rows, byRegion)

	points := make([]Point, 0, len(keys))
	for _, k := range keys {
		var total int
		for _, i := range grouped[k] {
			total += rows[i].ProcessingDays
		}
		points = append(points, Point{Label: k, Value: float64(total) / float64(len(grouped[k]))})
	}

	return Series{Name: "Average Processing Days by Region", XAxis: "region", YAxis: "processing_days", Points: points}
}

// ClaimAmountHistogram counts claim amounts into equal-width bins spanning
// [min, max]. The last bin is closed on both sides. When every amount is the
// same the range is widened to [v-0.5, v+0.5]. Non-finite amounts are not
// counted.
func ClaimAmountHistogram(rows []DerivedClaim, bins int) Series {
	series := Series{Name: "Claim Amount Distribution", XAxis: "claim_amount", YAxis: "count", Points: []Point{}}
	if bins <= 0 {
		return series
	}

	amounts := make([]float64, 0, len(rows))
	for _, r := range rows {
		if a := r.Amount(); !math.IsInf(a, 0) && !math.IsNaN(a) {
			amounts = append(amounts, a)
		}
	}
	if len(amounts) == 0 {
		return series
	}

	lo, hi := amounts[0], amounts[0]
	for _, a := range amounts[1:] {
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, a := range amounts {
		idx := int((a - lo) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	series.Points = make([]Point, bins)
	for i, c := range counts {
		from := lo + float64(i)*width
		series.Points[i] = Point{
			Label: fmt.Sprintf("%.2f-%.2f", from, from+width),
			Value: float64(c),
		}
	}
	return series
}

// AvgLossRatioByType averages the defined loss ratios per claim type.
// Types with no defined ratio are omitted.
func AvgLossRatioByType(rows []DerivedClaim) Series {
	keys, grouped := group(rows, byClaimType)

	points := make([]Point, 0, len(keys))
	for _, k := range keys {
		var total float64
		var n int
		for _, i := range grouped[k] {
			if rows[i].LossRatio == nil {
				continue
			}
			total += *rows[i].LossRatio
			n++
		}
		if n == 0 {
			continue
		}
		points = append(points, Point{Label: k, Value: total / float64(n)})
	}

	return Series{Name: "Average Loss Ratio by Claim Type", XAxis: "claim_type", YAxis: "loss_ratio", Points: points}
}

// SLABreachCounts counts claims per sla_breach value, most frequent first
func SLABreachCounts(rows []DerivedClaim) Series {
	keys, grouped := group(rows, func(r DerivedClaim) string { return string(r.SLABreach) })

	points := make([]Point, 0, len(keys))
	for _, k := range keys {
		points = append(points, Point{Label: k, Value: float64(len(grouped[k]))})
	}

	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Label < points[j].Label
	})

	return Series{Name: "SLA Breach Counts", XAxis: "sla_breach", YAxis: "count", Points: points}
}
