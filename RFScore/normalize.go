/* Windowed normalization of raw score vectors. Each window is normalized
per reactive base class; overlapping windows contribute to per-base
accumulators that are averaged at the end. */

package rfscore

import (
	"math"
	"sort"
	"strings"

	rfconfig "github.com/BazingaYZ/RNAFramework/RFConfig"
	rfstats "github.com/BazingaYZ/RNAFramework/RFStats"
	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

// transform maps one raw class value to its normalized value.
type transform func(value float64) float64

func norm28(values []float64) (transform, bool) {
	k := len(values)

	p2 := int(rfstats.Round(0.02 * float64(k)))
	p8 := int(rfstats.Round(0.08 * float64(k)))

	if p8 == 0 || p2 >= k {
		return nil, false
	}

	sorted := make([]float64, k)
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	hi := p2 + p8

	if hi > k-1 {
		hi = k - 1
	}

	sum := 0.0

	for i := p2; i <= hi; i++ {
		sum += sorted[i]
	}

	average := sum / float64(hi-p2+1)

	if average == 0 {
		return nil, false
	}

	return func(value float64) float64 {
		normalized := value / average

		if normalized < 0 {
			normalized = 0
		}

		return normalized
	}, true
}

func normWinsor90(values []float64) (transform, bool) {
	q05 := rfstats.Quantile(values, 0.05)

	if q05 <= 0 {
		q05 = 0
	}

	q95 := rfstats.Quantile(values, 0.95)

	if q95 == 0 {
		return nil, false
	}

	return func(value float64) float64 {
		if value < q05 {
			value = q05
		}

		normalized := value / q95

		if normalized > 1 {
			normalized = 1
		}

		return normalized
	}, true
}

func normBoxplot(values []float64) (transform, bool) {
	k := len(values)

	q25 := rfstats.Quantile(values, 0.25)
	q75 := rfstats.Quantile(values, 0.75)
	max := q75 + 1.5*(q75-q25)

	outliers := 0

	if k < 50 {
		outliers = int(rfstats.Round(0.02 * float64(k)))
	} else {
		for _, value := range values {
			if value > max {
				outliers++
			}
		}
	}

	if outliers == 0 {
		outliers = 1
	}

	if outliers >= k {
		return nil, false
	}

	sorted := make([]float64, k)
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	remaining := sorted[outliers:]

	top := 0

	if k >= 50 && k < 100 {
		top = 10
	} else {
		top = int(rfstats.Round(0.10 * float64(k)))
	}

	if top <= 0 {
		return nil, false
	}

	if top > len(remaining) {
		top = len(remaining)
	}

	sum := 0.0

	for i := 0; i < top; i++ {
		sum += remaining[i]
	}

	average := sum / float64(top)

	if average == 0 {
		return nil, false
	}

	return func(value float64) float64 {
		normalized := value / average

		if normalized < 0 {
			normalized = 0
		}

		return normalized
	}, true
}

func classFactor(values []float64, method int) (transform, bool) {
	switch method {
	case rfconfig.Norm28:
		return norm28(values)
	case rfconfig.NormWinsor90:
		return normWinsor90(values)
	case rfconfig.NormBoxplot:
		return normBoxplot(values)
	}

	return nil, false
}

// dnaSequence folds U onto T so the reactive set matches both alphabets.
func dnaSequence(sequence string) string {
	return strings.Map(func(r rune) rune {
		if r == 'U' {
			return 'T'
		}

		return r
	}, sequence)
}

/*Normalize turn a raw score vector into the final reactivity profile.
Positions outside the reactive set, masked positions, and positions that no
window could normalize are NaN. An entirely-NaN profile rejects the
transcript as uncovered */
func Normalize(scores []float64, sequence string, params *rfconfig.Params) ([]float64, error) {
	length := len(scores)
	seq := dnaSequence(sequence)
	reactive := params.ReactiveSet()

	result := make([]float64, length)

	for i := range result {
		result[i] = math.NaN()
	}

	if params.Raw {
		for i := 0; i < length; i++ {
			if strings.IndexByte(reactive, seq[i]) >= 0 && !math.IsNaN(scores[i]) {
				result[i] = scores[i]
			}
		}

		return finish(result, params)
	}

	window := params.NormWindow

	if window == 0 || window > length {
		window = length
	}

	offset := params.WindowOffset

	if offset <= 0 || window == length {
		offset = window
	}

	var classes []string

	if params.NormIndependent {
		for _, base := range reactive {
			classes = append(classes, string(base))
		}
	} else {
		classes = []string{reactive}
	}

	accumulators := make([][]float64, length)

	normalizeWindow := func(start int) {
		end := start + window // exclusive

		for _, class := range classes {
			var positions []int
			var values []float64

			for j := start; j < end; j++ {
				if strings.IndexByte(class, seq[j]) < 0 || math.IsNaN(scores[j]) {
					continue
				}

				positions = append(positions, j)
				values = append(values, scores[j])
			}

			if len(values) == 0 {
				continue
			}

			apply, defined := classFactor(values, params.NormMethod)

			if !defined {
				continue
			}

			for k, j := range positions {
				accumulators[j] = append(accumulators[j], apply(values[k]))
			}
		}
	}

	lastEnd := -1

	for start := 0; start+window <= length; start += offset {
		normalizeWindow(start)
		lastEnd = start + window - 1
	}

	if lastEnd < length-1 {
		normalizeWindow(length - window)
	}

	for i := 0; i < length; i++ {
		if len(accumulators[i]) == 0 {
			continue
		}

		result[i] = rfstats.Mean(accumulators[i])
	}

	return finish(result, params)
}

func finish(result []float64, params *rfconfig.Params) ([]float64, error) {
	if params.Remap && !params.Raw {
		remapZarringhalam(result)
	}

	for _, value := range result {
		if !math.IsNaN(value) {
			return result, nil
		}
	}

	return nil, utils.ErrLowCoverage
}

/* Zarringhalam piecewise-linear remap into [0, 1]:
[0, 0.25) -> [0, 0.35]  [0.25, 0.30) -> [0.35, 0.55]
[0.30, 0.70) -> [0.55, 0.85]  [0.70, max] -> [0.85, 1.00] */
func remapZarringhalam(values []float64) {
	max := 0.7

	for _, value := range values {
		if !math.IsNaN(value) && value > max {
			max = value
		}
	}

	for i, value := range values {
		if math.IsNaN(value) {
			continue
		}

		switch {
		case value < 0.25:
			values[i] = rfstats.MapRange(0, 0.25, 0, 0.35, value)
		case value < 0.30:
			values[i] = rfstats.MapRange(0.25, 0.30, 0.35, 0.55, value)
		case value < 0.70:
			values[i] = rfstats.MapRange(0.30, 0.70, 0.55, 0.85, value)
		case max > 0.7:
			values[i] = rfstats.MapRange(0.70, max, 0.85, 1.00, value)
		default:
			values[i] = 0.85
		}
	}
}
