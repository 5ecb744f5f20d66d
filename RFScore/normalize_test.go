package rfscore

import (
	"errors"
	"math"
	"testing"

	rfconfig "github.com/BazingaYZ/RNAFramework/RFConfig"
	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

func normParams(method int, window, offset int) *rfconfig.Params {
	p := rfconfig.Default()
	p.ScoringMethod = rfconfig.ScoreRouskin
	p.NormMethod = method
	p.NormWindow = window
	p.WindowOffset = offset
	p.ApplyDefaults()

	return &p
}

func TestWinsorizeSingleWindow(t *testing.T) {
	scores := []float64{0, 0, 5, 0, 0, 10, 0, 0, 5, 0}

	p := normParams(rfconfig.NormWinsor90, 10, 10)

	reactivity, err := Normalize(scores, "ACGTACGTAC", p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	// q95 of the sorted scores interpolates between 5 and 10 at rank 8.55
	q95 := 5 + 0.55*5

	tests := []struct {
		pos      int
		expected float64
	}{
		{2, 5 / q95},
		{5, 1}, // 10/7.75 capped at 1
		{8, 5 / q95},
		{0, 0},
		{9, 0},
	}

	for _, tt := range tests {
		if math.Abs(reactivity[tt.pos]-tt.expected) > 1e-9 {
			t.Errorf("position %d: expected %f, got %f", tt.pos, tt.expected, reactivity[tt.pos])
		}
	}

	for i, value := range reactivity {
		if math.IsNaN(value) {
			t.Fatalf("position %d: unexpected NaN", i)
		}

		if value < 0 || value > 1 {
			t.Fatalf("position %d: Winsorized value %f outside [0, 1]", i, value)
		}
	}
}

func TestNonReactiveBasesAreNaN(t *testing.T) {
	scores := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	p := normParams(rfconfig.NormWinsor90, 10, 10)
	p.ReactiveBases = "AC"

	reactivity, err := Normalize(scores, "ACGTACGTAC", p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	for i, base := range "ACGTACGTAC" {
		isReactive := base == 'A' || base == 'C'

		if isReactive && math.IsNaN(reactivity[i]) {
			t.Fatalf("reactive position %d should not be NaN", i)
		}

		if !isReactive && !math.IsNaN(reactivity[i]) {
			t.Fatalf("non-reactive position %d should be NaN, got %f", i, reactivity[i])
		}
	}
}

func TestRawCopiesScores(t *testing.T) {
	scores := []float64{1, 2, math.NaN(), 4}

	p := normParams(rfconfig.NormWinsor90, 0, 0)
	p.Raw = true

	reactivity, err := Normalize(scores, "ACGT", p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	if reactivity[0] != 1 || reactivity[1] != 2 || reactivity[3] != 4 {
		t.Fatalf("raw values should pass through unchanged: %v", reactivity)
	}

	if !math.IsNaN(reactivity[2]) {
		t.Fatal("masked position should stay NaN in raw mode")
	}
}

func TestNorm28SmallClassUndefined(t *testing.T) {
	// k=10: round(0.08*10)=1 keeps the class defined; k=5 gives
	// round(0.08*5)=0 and the window contributes nothing
	scores := []float64{1, 2, 3, 4, 5}

	p := normParams(rfconfig.Norm28, 5, 5)

	_, err := Normalize(scores, "AAAAA", p)

	if !errors.Is(err, utils.ErrLowCoverage) {
		t.Fatalf("expected rejection when every window class is undefined, got %v", err)
	}
}

func TestNorm28WholeTranscript(t *testing.T) {
	scores := make([]float64, 100)

	for i := range scores {
		scores[i] = float64(i + 1)
	}

	sequence := ""

	for i := 0; i < 100; i++ {
		sequence += "A"
	}

	p := normParams(rfconfig.Norm28, 0, 0)

	reactivity, err := Normalize(scores, sequence, p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	// p2=2, p8=8: average of ranks 2..10 descending = values 90..98 -> 94
	expected := 100.0 / 94.0

	if math.Abs(reactivity[99]-expected) > 1e-9 {
		t.Fatalf("expected %f at the top position, got %f", expected, reactivity[99])
	}

	for i, value := range reactivity {
		if value < 0 {
			t.Fatalf("position %d: negative normalized value %f", i, value)
		}
	}
}

func TestBoxplotNormalization(t *testing.T) {
	scores := make([]float64, 100)

	for i := range scores {
		scores[i] = float64(i % 10)
	}

	scores[50] = 1000 // one clear outlier

	sequence := ""

	for i := 0; i < 100; i++ {
		sequence += "C"
	}

	p := normParams(rfconfig.NormBoxplot, 0, 0)

	reactivity, err := Normalize(scores, sequence, p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	// the outlier is removed before averaging the top 10%, so the
	// normalization factor comes from the regular values
	if reactivity[50] < 10 {
		t.Fatalf("outlier should normalize far above 1, got %f", reactivity[50])
	}

	for i, value := range reactivity {
		if value < 0 {
			t.Fatalf("position %d: negative normalized value %f", i, value)
		}
	}
}

func TestIndependentBaseClasses(t *testing.T) {
	// A positions carry large scores, C positions small ones; independent
	// normalization must bring the top of each class to a comparable scale
	scores := []float64{100, 1, 80, 0.8, 90, 0.9, 70, 0.7, 100, 1}
	sequence := "ACACACACAC"

	p := normParams(rfconfig.NormWinsor90, 10, 10)
	p.NormIndependent = true

	reactivity, err := Normalize(scores, sequence, p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	if reactivity[0] != 1 || reactivity[1] != 1 {
		t.Fatalf("top of each class should reach 1: A=%f C=%f", reactivity[0], reactivity[1])
	}
}

func TestOverlappingWindowsAverage(t *testing.T) {
	scores := make([]float64, 20)

	for i := range scores {
		scores[i] = float64(i + 1)
	}

	sequence := ""

	for i := 0; i < 20; i++ {
		sequence += "G"
	}

	p := normParams(rfconfig.NormWinsor90, 10, 5)

	reactivity, err := Normalize(scores, sequence, p)

	if err != nil {
		t.Fatalf("normalize: %s", err)
	}

	for i, value := range reactivity {
		if math.IsNaN(value) || value < 0 || value > 1 {
			t.Fatalf("position %d: value %f outside [0, 1]", i, value)
		}
	}
}

func TestZarringhalamRemapBounds(t *testing.T) {
	scores := []float64{0, 0.1, 0.26, 0.5, 0.9, 1.4, math.NaN(), 0.7}

	// remap applies to the averaged profile, so exercise it directly
	values := make([]float64, len(scores))
	copy(values, scores)
	remapZarringhalam(values)

	if !math.IsNaN(values[6]) {
		t.Fatal("NaN must survive the remap")
	}

	for i, value := range values {
		if math.IsNaN(value) {
			continue
		}

		if value < 0 || value > 1 {
			t.Fatalf("position %d: remapped value %f outside [0, 1]", i, value)
		}
	}

	if values[0] != 0 {
		t.Fatalf("0 must remap to 0, got %f", values[0])
	}

	if math.Abs(values[5]-1.0) > 1e-12 {
		t.Fatalf("the maximum must remap to 1, got %f", values[5])
	}

	if math.Abs(values[7]-0.85) > 1e-12 {
		t.Fatalf("0.7 must remap to 0.85, got %f", values[7])
	}
}

func TestAllNaNRejected(t *testing.T) {
	scores := []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}

	p := normParams(rfconfig.NormWinsor90, 0, 0)

	_, err := Normalize(scores, "ACGT", p)

	if !errors.Is(err, utils.ErrLowCoverage) {
		t.Fatalf("expected the uncovered transcript to be rejected, got %v", err)
	}
}
