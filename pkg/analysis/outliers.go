package analysis

import (
	"math"
	"sort"
)

// Method names the outlier test used for an iteration.
type Method string

const (
	MethodNone           Method = "none"
	MethodModifiedZScore Method = "modified_z_score"
	MethodZScore         Method = "z_score"
)

const (
	modifiedZThreshold = 0.5
	zThreshold         = 0.9
	madScale           = 0.6745
)

// Outliers returns the indexes of the upper-tail outliers in values, in
// index order. When one value is held by strictly more than half of the
// values, the median/MAD modified z-score is used, since the mean and
// standard deviation of a near-constant distribution are unstable. Otherwise
// the plain z-score is used.
func Outliers(values []float64) ([]int, Method) {
	if len(values) == 0 {
		return nil, MethodNone
	}

	if _, ok := majority(values); ok {
		return modifiedZScore(values), MethodModifiedZScore
	}

	return zScore(values), MethodZScore
}

// modifiedZScore flags 0.6745*(x-median)/MAD > 0.5. With a zero MAD every
// value above the median is flagged.
func modifiedZScore(values []float64) []int {
	med := median(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}

	mad := median(deviations)

	var out []int

	for i, v := range values {
		if mad == 0 {
			if v > med {
				out = append(out, i)
			}

			continue
		}

		if madScale*(v-med)/mad > modifiedZThreshold {
			out = append(out, i)
		}
	}

	return out
}

// zScore flags (x-mean)/σ > 0.9 with the population standard deviation. A
// zero σ flags nothing.
func zScore(values []float64) []int {
	m := mean(values)

	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}

	sigma := math.Sqrt(sq / float64(len(values)))
	if sigma == 0 {
		return nil
	}

	var out []int

	for i, v := range values {
		if (v-m)/sigma > zThreshold {
			out = append(out, i)
		}
	}

	return out
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}
