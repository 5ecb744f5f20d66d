/* Math kernel shared by the rf- tools: descriptive statistics over float
vectors with NaN sentinels, p-value adjustment and combination, and the
Fisher exact test used by the peak caller. */

package rfstats

import (
	"math"
	"sort"

	stats "github.com/glycerine/golang-fisher-exact"
	"gonum.org/v1/gonum/stat/distuv"
)

/*TailRight right tail of the 2x2 table test (enrichment) */
const TailRight = 1

/*TailLeft left tail */
const TailLeft = 2

/*TailTwo two-sided */
const TailTwo = 3

// Defined only when every element is finite; NaN otherwise.
func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

/*Mean population mean. NaN when the vector is empty or holds a non-number */
func Mean(values []float64) float64 {
	if len(values) == 0 || !allFinite(values) {
		return math.NaN()
	}

	sum := 0.0

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

/*Stdev population standard deviation (n divisor) */
func Stdev(values []float64) float64 {
	mean := Mean(values)

	if math.IsNaN(mean) {
		return math.NaN()
	}

	sum := 0.0

	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}

	return math.Sqrt(sum / float64(len(values)))
}

/*Quantile linear-interpolated quantile of the ascending sort; 0 on empty input */
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower < 0 {
		lower = 0
	}

	if upper > len(sorted)-1 {
		upper = len(sorted) - 1
	}

	if lower == upper {
		return sorted[lower]
	}

	frac := index - float64(lower)

	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

/*Median ... */
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

/*MeanInt mean of an integer coverage vector */
func MeanInt(values []uint32) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0

	for _, v := range values {
		sum += float64(v)
	}

	return sum / float64(len(values))
}

/*MedianInt ... */
func MedianInt(values []uint32) float64 {
	floats := make([]float64, len(values))

	for i, v := range values {
		floats[i] = float64(v)
	}

	return Median(floats)
}

/*Log logarithm of x in the given base */
func Log(x, base float64) float64 {
	return math.Log(x) / math.Log(base)
}

/*MapRange linear remap of x from [oldLo, oldHi] to [newLo, newHi] */
func MapRange(oldLo, oldHi, newLo, newHi, x float64) float64 {
	if oldHi == oldLo {
		return newLo
	}

	return newLo + (x-oldLo)*(newHi-newLo)/(oldHi-oldLo)
}

/*Round half away from zero */
func Round(x float64) float64 {
	return math.Round(x)
}

/*BHAdjust Benjamini-Hochberg adjustment. NaN entries are carried through
unchanged and excluded from the test count */
func BHAdjust(pvalues []float64) []float64 {
	adjusted := make([]float64, len(pvalues))
	copy(adjusted, pvalues)

	type ranked struct {
		index int
		p     float64
	}

	var order []ranked

	for i, p := range pvalues {
		if math.IsNaN(p) {
			continue
		}

		order = append(order, ranked{i, p})
	}

	m := len(order)

	if m == 0 {
		return adjusted
	}

	sort.Slice(order, func(i, j int) bool {
		return order[i].p < order[j].p
	})

	// adjusted_k = min over j>=k of p_j*m/j, scattered back by original index
	running := math.Inf(1)

	for k := m - 1; k >= 0; k-- {
		value := order[k].p * float64(m) / float64(k+1)

		if value < running {
			running = value
		}

		clamped := running

		if clamped > 1 {
			clamped = 1
		}

		if clamped < 0 {
			clamped = 0
		}

		adjusted[order[k].index] = clamped
	}

	return adjusted
}

/*CombineStouffer Stouffer's Z with equal weights */
const CombineStouffer = "S"

/*CombineFisher Fisher's method */
const CombineFisher = "F"

/*CombinePvalues combine a p-value vector; result clamped to (0, 1] */
func CombinePvalues(pvalues []float64, method string) float64 {
	var clean []float64

	for _, p := range pvalues {
		if math.IsNaN(p) {
			continue
		}

		if p <= 0 {
			p = 1e-300
		}

		if p > 1 {
			p = 1
		}

		clean = append(clean, p)
	}

	if len(clean) == 0 {
		return math.NaN()
	}

	normal := distuv.UnitNormal

	var combined float64

	switch method {
	case CombineFisher:
		chi := 0.0

		for _, p := range clean {
			chi += math.Log(p)
		}

		chi *= -2

		combined = distuv.ChiSquared{K: 2 * float64(len(clean))}.Survival(chi)

	default:
		z := 0.0

		for _, p := range clean {
			if p >= 1 {
				p = 1 - 1e-16
			}

			z += normal.Quantile(1 - p)
		}

		z /= math.Sqrt(float64(len(clean)))
		combined = normal.Survival(z)
	}

	if combined <= 0 {
		combined = 1e-300
	}

	if combined > 1 {
		combined = 1
	}

	return combined
}

/*FisherExactTest p-value of the 2x2 table (a b / c d) for the given tail */
func FisherExactTest(a, b, c, d, tail int) float64 {
	_, leftp, rightp, twop := stats.FisherExactTest(a, b, c, d)

	switch tail {
	case TailRight:
		return rightp
	case TailLeft:
		return leftp
	}

	return twop
}
