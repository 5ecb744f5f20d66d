package rfstats

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestMeanStdev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if mean := Mean(values); !almost(mean, 5, 1e-12) {
		t.Fatalf("mean: expected 5, got %f", mean)
	}

	// population stdev (n divisor)
	if sd := Stdev(values); !almost(sd, 2, 1e-12) {
		t.Fatalf("stdev: expected 2, got %f", sd)
	}

	if !math.IsNaN(Mean(nil)) {
		t.Fatal("mean of empty vector should be NaN")
	}

	if !math.IsNaN(Mean([]float64{1, math.NaN(), 3})) {
		t.Fatal("mean with a NaN element should be NaN")
	}

	if sd := Stdev([]float64{3, 3, 3}); sd != 0 {
		t.Fatalf("stdev of constant vector: expected 0, got %f", sd)
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{10, 0, 5}

	tests := []struct {
		q        float64
		expected float64
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{0.25, 2.5},
	}

	for _, tt := range tests {
		if got := Quantile(values, tt.q); !almost(got, tt.expected, 1e-12) {
			t.Errorf("quantile(%f): expected %f, got %f", tt.q, tt.expected, got)
		}
	}

	if got := Quantile(nil, 0.5); got != 0 {
		t.Fatalf("quantile of empty vector: expected 0, got %f", got)
	}
}

func TestBHAdjust(t *testing.T) {
	pvalues := []float64{0.01, 0.04, 0.03, 0.005}
	adjusted := BHAdjust(pvalues)

	// rank order must be preserved and adjusted values non-decreasing in it
	if !(adjusted[3] <= adjusted[0] && adjusted[0] <= adjusted[2] && adjusted[2] <= adjusted[1]) {
		t.Fatalf("BH adjusted values not monotone in rank order: %v", adjusted)
	}

	// smallest p: 0.005*4/1 = 0.02
	if !almost(adjusted[3], 0.02, 1e-12) {
		t.Fatalf("expected 0.02 for the smallest p, got %f", adjusted[3])
	}

	// largest p: 0.04*4/4 = 0.04
	if !almost(adjusted[1], 0.04, 1e-12) {
		t.Fatalf("expected 0.04 for the largest p, got %f", adjusted[1])
	}

	for _, p := range adjusted {
		if p < 0 || p > 1 {
			t.Fatalf("adjusted p out of [0,1]: %f", p)
		}
	}
}

func TestBHAdjustCarriesNaN(t *testing.T) {
	pvalues := []float64{0.02, math.NaN(), 0.04}
	adjusted := BHAdjust(pvalues)

	if !math.IsNaN(adjusted[1]) {
		t.Fatal("NaN input should be carried through")
	}

	// m=2: 0.02*2/1=0.04, 0.04*2/2=0.04
	if !almost(adjusted[0], 0.04, 1e-12) || !almost(adjusted[2], 0.04, 1e-12) {
		t.Fatalf("unexpected adjusted values: %v", adjusted)
	}
}

func TestCombinePvalues(t *testing.T) {
	for _, method := range []string{CombineStouffer, CombineFisher} {
		combined := CombinePvalues([]float64{0.01, 0.01, 0.01}, method)

		if combined <= 0 || combined > 1 {
			t.Fatalf("%s: combined p out of (0,1]: %g", method, combined)
		}

		if combined >= 0.01 {
			t.Fatalf("%s: combining three identical small p-values should strengthen the signal, got %g",
				method, combined)
		}
	}

	// a single p-value combines to (approximately) itself under Stouffer
	single := CombinePvalues([]float64{0.05}, CombineStouffer)

	if !almost(single, 0.05, 1e-9) {
		t.Fatalf("single-value Stouffer: expected 0.05, got %g", single)
	}
}

func TestFisherExactTest(t *testing.T) {
	// strongly enriched table: right tail must be small
	enriched := FisherExactTest(200, 10, 48, 10, TailRight)

	if enriched <= 0 || enriched >= 0.01 {
		t.Fatalf("expected a small right-tail p for an enriched table, got %g", enriched)
	}

	// balanced table: right tail should not be significant
	balanced := FisherExactTest(10, 10, 10, 10, TailRight)

	if balanced < 0.3 {
		t.Fatalf("expected a non-significant p for a balanced table, got %g", balanced)
	}
}

func TestMapRange(t *testing.T) {
	if got := MapRange(0, 0.25, 0, 0.35, 0.125); !almost(got, 0.175, 1e-12) {
		t.Fatalf("maprange midpoint: expected 0.175, got %f", got)
	}

	if got := MapRange(0.7, 1.4, 0.85, 1.0, 1.4); !almost(got, 1.0, 1e-12) {
		t.Fatalf("maprange upper bound: expected 1.0, got %f", got)
	}
}

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in, out float64
	}{
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-0.5, -1},
		{0.49, 0},
	}

	for _, tt := range tests {
		if got := Round(tt.in); got != tt.out {
			t.Errorf("round(%f): expected %f, got %f", tt.in, tt.out, got)
		}
	}
}
