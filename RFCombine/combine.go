package main

import (
	"strings"

	"github.com/sirupsen/logrus"

	rfstats "github.com/BazingaYZ/RNAFramework/RFStats"
	rfxml "github.com/BazingaYZ/RNAFramework/RFXml"
)

// expandReactiveSet turns a reactive/keep attribute into DNA-alphabet
// characters; N means all four, U folds onto T.
func expandReactiveSet(set string) string {
	if strings.ContainsRune(set, 'N') || set == "" {
		return "ACGT"
	}

	expanded := ""

	for _, base := range set {
		if base == 'U' {
			base = 'T'
		}

		if !strings.ContainsRune(expanded, base) {
			expanded += string(base)
		}
	}

	return expanded
}

func dnaBase(base byte) byte {
	if base == 'U' {
		return 'T'
	}

	return base
}

// checkCompatibility returns the rejection counter name, or "" when the
// replicate documents agree. The algorithm attribute never rejects.
func checkCompatibility(docs []*rfxml.Document) string {
	first := docs[0]

	for _, doc := range docs[1:] {
		switch {
		case doc.Tool != first.Tool:
			return "difftool"

		case doc.Sequence != first.Sequence:
			return "diffseq"

		case doc.Win != first.Win:
			return "diffwin"
		}

		if first.Tool == rfxml.ToolModcall {
			continue
		}

		switch {
		case doc.Scoring != first.Scoring:
			return "diffscore"

		case doc.Norm != first.Norm || doc.Remap != first.Remap:
			return "diffnorm"

		case doc.Offset != first.Offset:
			return "diffoffset"
		}
	}

	return ""
}

func combineOneTranscript(id string, paths []string) {
	docs := make([]*rfxml.Document, len(paths))

	for i, fname := range paths {
		doc, err := rfxml.Parse(fname)

		if err != nil {
			COUNTERS.Incr("failed")
			logrus.Debugf("%s: %s", fname, err)
			return
		}

		docs[i] = doc
	}

	if reason := checkCompatibility(docs); reason != "" {
		COUNTERS.Incr(reason)
		logrus.Debugf("%s skipped: %s", id, reason)
		return
	}

	first := docs[0]
	length := first.Length
	hasSecondary := first.SecondaryName() != ""

	algorithm := first.Algorithm

	for _, doc := range docs[1:] {
		if doc.Algorithm != algorithm {
			algorithm = "Combined"
		}
	}

	values1 := make([][]float64, length)
	values2 := make([][]float64, length)

	unionSet := ""

	for _, doc := range docs {
		reactive := expandReactiveSet(doc.ReactiveSet)

		for _, base := range reactive {
			if !strings.ContainsRune(unionSet, base) {
				unionSet += string(base)
			}
		}

		for i := 0; i < length; i++ {
			if strings.IndexByte(reactive, dnaBase(doc.Sequence[i])) < 0 {
				continue
			}

			if doc.Values1 != nil {
				values1[i] = append(values1[i], doc.Values1[i])
			}

			if hasSecondary && doc.Values2 != nil {
				values2[i] = append(values2[i], doc.Values2[i])
			}
		}
	}

	ordered := ""

	for _, base := range "ACGT" {
		if strings.ContainsRune(unionSet, base) {
			ordered += string(base)
		}
	}

	combined := &rfxml.Document{
		Combined:    true,
		Tool:        first.Tool,
		ReactiveSet: ordered,
		Scoring:     first.Scoring,
		Norm:        first.Norm,
		Win:         first.Win,
		Offset:      first.Offset,
		Remap:       first.Remap,
		Algorithm:   algorithm,
		MaxScore:    first.MaxScore,
		PseudoCount: first.PseudoCount,
		MaxUMut:     first.MaxUMut,
		ID:          id,
		Length:      length,
		Sequence:    first.Sequence,
		Values1:     make([]float64, length),
	}

	var errors1, errors2 []float64

	if EMITSTDEV {
		errors1 = make([]float64, length)
	}

	if hasSecondary {
		combined.Values2 = make([]float64, length)

		if EMITSTDEV {
			errors2 = make([]float64, length)
		}
	}

	for i := 0; i < length; i++ {
		combined.Values1[i] = rfstats.Mean(values1[i])

		if EMITSTDEV {
			errors1[i] = rfstats.Stdev(values1[i])
		}

		if hasSecondary {
			combined.Values2[i] = rfstats.Mean(values2[i])

			if EMITSTDEV {
				errors2[i] = rfstats.Stdev(values2[i])
			}
		}
	}

	combined.Errors1 = errors1
	combined.Errors2 = errors2

	if err := combined.WriteFile(outputPath(id), DECIMALS); err != nil {
		COUNTERS.Incr("failed")
		logrus.Debugf("%s: %s", id, err)
		return
	}

	COUNTERS.Incr("combined")
}
