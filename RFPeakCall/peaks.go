package main

import (
	rfcount "github.com/BazingaYZ/RNAFramework/RFCount"
	rfstats "github.com/BazingaYZ/RNAFramework/RFStats"
)

/*PeakRecord one merged enriched region; coordinates half-open on the right */
type PeakRecord struct {
	Transcript string
	Start      int
	End        int
	Score      float64
	Pvalue     float64
}

// candidate window over [start, end] inclusive
type window struct {
	start, end int
	ipMean     float64
	ctlMean    float64
	z          float64
	p          float64
}

func sliceMean(coverage []uint32, start, end int) float64 {
	sum := 0.0

	for i := start; i <= end; i++ {
		sum += float64(coverage[i])
	}

	return sum / float64(end-start+1)
}

// tileWindows tiles [0, L) with stride WINDOWOFFSET; the last window is
// clamped so that it ends at L-1.
func tileWindows(length int) []window {
	var windows []window

	size := WINDOWSIZE

	if size > length {
		size = length
	}

	lastEnd := -1

	for start := 0; start+size-1 <= length-1; start += WINDOWOFFSET {
		windows = append(windows, window{start: start, end: start + size - 1})
		lastEnd = start + size - 1
	}

	if lastEnd < length-1 {
		start := length - 1 - size

		if start < 0 {
			start = 0
		}

		windows = append(windows, window{start: start, end: length - 1})
	}

	return windows
}

func callTranscript(thread int, id string, entry, ctlEntry *rfcount.Entry) []PeakRecord {
	length := entry.Length()

	windows := tileWindows(length)

	if MASKFILE != "" {
		windows = dropMaskedWindows(thread, id, windows)
	}

	if len(windows) == 0 {
		return nil
	}

	ipMedian := entry.MedianCoverage()

	var ctlMedian float64

	for i := range windows {
		windows[i].ipMean = sliceMean(entry.Coverage, windows[i].start, windows[i].end)
	}

	if ctlEntry != nil {
		ctlMedian = ctlEntry.MedianCoverage()

		for i := range windows {
			windows[i].ctlMean = sliceMean(ctlEntry.Coverage, windows[i].start, windows[i].end)
		}
	} else {
		// without a control the background is the transcript itself:
		// the mean of the window means stands in for the control mean
		// and the IP median for the control median
		background := 0.0

		for i := range windows {
			background += windows[i].ipMean
		}

		background /= float64(len(windows))
		ctlMedian = ipMedian

		for i := range windows {
			windows[i].ctlMean = background
		}
	}

	pvalues := make([]float64, len(windows))

	for i := range windows {
		ipRatio := (windows[i].ipMean + PSEUDOCOUNT) / (ipMedian + PSEUDOCOUNT)

		if ctlEntry != nil {
			ctlRatio := (windows[i].ctlMean + PSEUDOCOUNT) / (ctlMedian + PSEUDOCOUNT)
			windows[i].z = rfstats.Log(ipRatio/ctlRatio, 2)
		} else {
			windows[i].z = rfstats.Log(ipRatio, 2)
		}

		windows[i].p = rfstats.FisherExactTest(
			int(rfstats.Round(windows[i].ipMean)),
			int(rfstats.Round(ipMedian)),
			int(rfstats.Round(windows[i].ctlMean)),
			int(rfstats.Round(ctlMedian)),
			rfstats.TailRight)

		pvalues[i] = windows[i].p
	}

	adjusted := rfstats.BHAdjust(pvalues)

	var kept []window

	for i := range windows {
		if adjusted[i] < PVALUE && windows[i].z >= ENRICHMENT {
			windows[i].p = adjusted[i]
			kept = append(kept, windows[i])
		}
	}

	return mergeWindows(id, kept)
}

// mergeWindows merges candidate windows whose intervals intersect
// [last.start, last.end+MERGEDISTANCE], combining scores and p-values.
func mergeWindows(id string, kept []window) []PeakRecord {
	if len(kept) == 0 {
		return nil
	}

	var peaks []PeakRecord

	current := kept[0]
	scores := []float64{current.z}
	pvalues := []float64{current.p}

	flush := func(last window) {
		peaks = append(peaks, PeakRecord{
			Transcript: id,
			Start:      last.start,
			End:        last.end + 1,
			Score:      rfstats.Mean(scores),
			Pvalue:     rfstats.CombinePvalues(pvalues, rfstats.CombineStouffer),
		})
	}

	for _, next := range kept[1:] {
		if next.start <= current.end+MERGEDISTANCE {
			if next.end > current.end {
				current.end = next.end
			}

			scores = append(scores, next.z)
			pvalues = append(pvalues, next.p)
			continue
		}

		flush(current)
		current = next
		scores = []float64{next.z}
		pvalues = []float64{next.p}
	}

	flush(current)

	return peaks
}
