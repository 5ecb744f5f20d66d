package main

import (
	"math"
	"os"
	"path"
	"testing"

	rfxml "github.com/BazingaYZ/RNAFramework/RFXml"
	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

func testProfile() *rfxml.Document {
	return &rfxml.Document{
		Tool:        rfxml.ToolNorm,
		ReactiveSet: "ACGT",
		Scoring:     "Rouskin",
		Norm:        "90% Winsorizing",
		Win:         10,
		Offset:      10,
		ID:          "tx1",
		Length:      10,
		Sequence:    "ACGTACGTAC",
		Values1:     []float64{0, 0.1, 0.5, math.NaN(), 0.9, 1, 0.2, 0.3, 0.4, 0},
	}
}

func writeProfiles(t *testing.T, docs []*rfxml.Document) []string {
	t.Helper()

	paths := make([]string, len(docs))

	for i, doc := range docs {
		paths[i] = path.Join(t.TempDir(), "tx1.xml")

		if err := doc.WriteFile(paths[i], 6); err != nil {
			t.Fatalf("write profile %d: %s", i, err)
		}
	}

	return paths
}

func setupCombiner(t *testing.T) {
	t.Helper()

	OUTPUTDIR = t.TempDir()
	DECIMALS = 6
	EMITSTDEV = true
	GZIPOUT = false
	COUNTERS = utils.NewCounters("combined", "difftool", "diffseq", "diffscore",
		"diffnorm", "diffoffset", "diffwin", "failed")
}

func TestCombineIdenticalReplicates(t *testing.T) {
	setupCombiner(t)

	docs := []*rfxml.Document{testProfile(), testProfile(), testProfile()}
	paths := writeProfiles(t, docs)

	combineOneTranscript("tx1", paths)

	if COUNTERS.Value("combined") != 1 || COUNTERS.Value("failed") != 0 {
		t.Fatalf("unexpected counters:\n%s", COUNTERS.String())
	}

	combined, err := rfxml.Parse(path.Join(OUTPUTDIR, "tx1.xml"))

	if err != nil {
		t.Fatalf("parse combined output: %s", err)
	}

	if !combined.Combined {
		t.Fatal("output must carry combined=TRUE")
	}

	input := testProfile()

	for i := 0; i < 10; i++ {
		expected := input.Values1[i]

		switch {
		case math.IsNaN(expected):
			if !math.IsNaN(combined.Values1[i]) {
				t.Fatalf("position %d: expected NaN, got %f", i, combined.Values1[i])
			}

			if !math.IsNaN(combined.Errors1[i]) {
				t.Fatalf("position %d: expected NaN stdev, got %f", i, combined.Errors1[i])
			}

		default:
			if math.Abs(combined.Values1[i]-expected) > 1e-6 {
				t.Fatalf("position %d: mean %f differs from input %f",
					i, combined.Values1[i], expected)
			}

			if combined.Errors1[i] != 0 {
				t.Fatalf("position %d: stdev of identical replicates must be 0, got %f",
					i, combined.Errors1[i])
			}
		}
	}
}

func TestCombineRejectsScoringMismatch(t *testing.T) {
	setupCombiner(t)

	first := testProfile()
	second := testProfile()
	second.Scoring = "Ding"

	paths := writeProfiles(t, []*rfxml.Document{first, second})

	combineOneTranscript("tx1", paths)

	if COUNTERS.Value("diffscore") != 1 {
		t.Fatalf("expected diffscore=1:\n%s", COUNTERS.String())
	}

	if COUNTERS.Value("combined") != 0 {
		t.Fatal("mismatched replicates must not be combined")
	}

	if _, err := os.Stat(path.Join(OUTPUTDIR, "tx1.xml")); err == nil {
		t.Fatal("no output document should be written for a rejected transcript")
	}
}

func TestCombineRejectsToolAndWindowMismatch(t *testing.T) {
	setupCombiner(t)

	first := testProfile()
	second := testProfile()
	second.Tool = rfxml.ToolModcall

	combineOneTranscript("tx1", writeProfiles(t, []*rfxml.Document{first, second}))

	if COUNTERS.Value("difftool") != 1 {
		t.Fatalf("expected difftool=1:\n%s", COUNTERS.String())
	}

	third := testProfile()
	third.Win = 30

	combineOneTranscript("tx1", writeProfiles(t, []*rfxml.Document{first, third}))

	if COUNTERS.Value("diffwin") != 1 {
		t.Fatalf("expected diffwin=1:\n%s", COUNTERS.String())
	}
}

func TestCombineAveragesDistinctReplicates(t *testing.T) {
	setupCombiner(t)

	first := testProfile()
	second := testProfile()

	for i := range second.Values1 {
		if !math.IsNaN(second.Values1[i]) {
			second.Values1[i] += 0.2
		}
	}

	combineOneTranscript("tx1", writeProfiles(t, []*rfxml.Document{first, second}))

	combined, err := rfxml.Parse(path.Join(OUTPUTDIR, "tx1.xml"))

	if err != nil {
		t.Fatalf("parse combined output: %s", err)
	}

	// mean shifts by half the offset, stdev is half the offset
	if math.Abs(combined.Values1[1]-0.2) > 1e-6 {
		t.Fatalf("expected mean 0.2 at position 1, got %f", combined.Values1[1])
	}

	if math.Abs(combined.Errors1[1]-0.1) > 1e-6 {
		t.Fatalf("expected stdev 0.1 at position 1, got %f", combined.Errors1[1])
	}
}

func TestCombineUnionReactiveSet(t *testing.T) {
	setupCombiner(t)

	first := testProfile()
	first.ReactiveSet = "AC"
	second := testProfile()
	second.ReactiveSet = "GT"

	combineOneTranscript("tx1", writeProfiles(t, []*rfxml.Document{first, second}))

	combined, err := rfxml.Parse(path.Join(OUTPUTDIR, "tx1.xml"))

	if err != nil {
		t.Fatalf("parse combined output: %s", err)
	}

	if combined.ReactiveSet != "ACGT" {
		t.Fatalf("expected the union reactive set ACGT, got %s", combined.ReactiveSet)
	}

	// position 0 (A) is reactive only in the first replicate: its mean is
	// the single first-replicate value
	if math.Abs(combined.Values1[0]-0) > 1e-6 {
		t.Fatalf("expected 0 at position 0, got %f", combined.Values1[0])
	}
}
