package analyzer

import (
	"math"
	"sort"

	"github.com/Ucell/log-analyzer/model"
)

// ErrorStatus is the lowest status counted as a server error.
const ErrorStatus = 500

// Summarize computes the error rate and response-time statistics of
// records. Upstream response times are not aggregated.
func Summarize(records []model.Record) model.Summary {
	total := len(records)
	if total == 0 {
		return model.Summary{}
	}

	rts := make([]float64, 0, total)
	errors := 0
	sum := 0.0
	for i := range records {
		if records[i].Status >= ErrorStatus {
			errors++
		}
		rts = append(rts, records[i].ResponseTime)
		sum += records[i].ResponseTime
	}

	sort.Float64s(rts)

	return model.Summary{
		Total:    total,
		Errors:   errors,
		ErrorPct: float64(errors) / float64(total) * 100,
		Avg:      sum / float64(total),
		P50:      percentileSorted(rts, 50),
		P90:      percentileSorted(rts, 90),
		P99:      percentileSorted(rts, 99),
	}
}

// Percentile returns the pct-th percentile of values using linear
// interpolation between the closest ranks, the same method as NumPy's
// default and Excel's PERCENTILE.INC. pct is clamped to [0, 100]. An empty
// input or a NaN pct yields 0. values is not modified.
func Percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, pct)
}

func percentileSorted(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 || math.IsNaN(pct) {
		return 0
	}
	pct = math.Max(0, math.Min(100, pct))

	k := float64(len(sorted)-1) * (pct / 100)
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return sorted[int(k)]
	}
	lo, hi := sorted[int(f)], sorted[int(c)]
	return lo + (hi-lo)*(k-f)
}
