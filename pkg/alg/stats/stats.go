// Package stats summarizes numeric samples collected during a run: cluster
// sizes, per-cluster similarities and estimator errors.
// Standard deviations are population deviations (÷n).
package stats

import (
	"cmp"
	"math"
	"slices"
)

// Well-known percentile thresholds.
const (
	PercentileMedian = 0.5
	PercentileP95    = 0.95
)

// Number is the constraint for summarizable samples.
type Number interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// Summary describes a sample in one pass over a sorted copy.
type Summary struct {
	Count  int     `json:"count"   yaml:"count"`
	Mean   float64 `json:"mean"    yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64 `json:"min"     yaml:"min"`
	Median float64 `json:"median"  yaml:"median"`
	P95    float64 `json:"p95"     yaml:"p95"`
	Max    float64 `json:"max"     yaml:"max"`
}

// Summarize computes the summary of values. The zero Summary is returned for
// an empty sample. values is not modified.
func Summarize[T Number](values []T) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = float64(v)
	}

	slices.Sort(sorted)

	mean, stddev := MeanStdDev(sorted)

	return Summary{
		Count:  len(sorted),
		Mean:   mean,
		StdDev: stddev,
		Min:    sorted[0],
		Median: percentileSorted(sorted, PercentileMedian),
		P95:    percentileSorted(sorted, PercentileP95),
		Max:    sorted[len(sorted)-1],
	}
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// MeanStdDev returns the mean and population standard deviation of values.
func MeanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}

	return mean, math.Sqrt(sumSq / float64(len(values)))
}

// Percentile returns the p-th percentile of values, p in [0, 1], with linear
// interpolation between neighbors. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	idx := p * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Max returns the largest element, or the zero value for an empty slice.
func Max[T cmp.Ordered](values []T) T {
	if len(values) == 0 {
		var zero T

		return zero
	}

	return slices.Max(values)
}
