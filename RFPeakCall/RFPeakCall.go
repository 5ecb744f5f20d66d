/* rf-peakcall: identify regions of a transcript enriched in IP coverage
over background (and, when provided, over a control sample) */

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	rfcount "github.com/BazingaYZ/RNAFramework/RFCount"
	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

/*IPFILE IP sample RC file (input) */
var IPFILE utils.Filename

/*CONTROLFILE control sample RC file (input) */
var CONTROLFILE utils.Filename

/*MASKFILE BED file of regions excluded from peak calling */
var MASKFILE utils.Filename

/*WHITELISTFILE file with one transcript ID per line */
var WHITELISTFILE utils.Filename

/*FILENAMEOUT output BED file */
var FILENAMEOUT string

/*WINDOWSIZE window length */
var WINDOWSIZE int

/*WINDOWOFFSET window stride (0 = half the window) */
var WINDOWOFFSET int

/*ENRICHMENT minimum log2 enrichment */
var ENRICHMENT float64

/*PVALUE adjusted p-value threshold */
var PVALUE float64

/*PSEUDOCOUNT ... */
var PSEUDOCOUNT float64

/*MERGEDISTANCE windows closer than this are merged */
var MERGEDISTANCE int

/*MEANCOV mean coverage threshold */
var MEANCOV float64

/*MEDIANCOV median coverage threshold */
var MEDIANCOV float64

/*THREADNB number of parallel workers */
var THREADNB int

/*COUNTERS shared result counters */
var COUNTERS *utils.Counters

/*RESULTS peak records, appended under RESULTMUTEX */
var RESULTS []PeakRecord

/*RESULTMUTEX ... */
var RESULTMUTEX sync.Mutex

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
USAGE: RFPeakCall -ip <filename.rc>
##### optional ####
                  -ctl <filename.rc>   control sample
                  -w <int>             window length (>= 10)
                  -off <int>           window offset (0 = half the window)
                  -e <float>           minimum log2 enrichment
                  -v <float>           adjusted p-value threshold
                  -pc <float>          pseudocount
                  -md <int>            merge distance
                  -mc <float>          mean coverage threshold
                  -ec <float>          median coverage threshold
                  -mask <filename>     BED regions excluded from calling
                  -tx <filename>       restrict to the listed transcript IDs
                  -out <filename>      output BED file
                  -p <int>             number of parallel workers

`)
		flag.PrintDefaults()
	}

	flag.Var(&IPFILE, "ip", "IP sample RC file")
	flag.Var(&CONTROLFILE, "ctl", "control sample RC file")
	flag.Var(&MASKFILE, "mask", "BED file of regions excluded from calling")
	flag.Var(&WHITELISTFILE, "tx", "file with one transcript ID per line")
	flag.StringVar(&FILENAMEOUT, "out", "", "output BED file")
	flag.IntVar(&WINDOWSIZE, "w", 150, "window length")
	flag.IntVar(&WINDOWOFFSET, "off", 0, "window offset (0 = half the window)")
	flag.Float64Var(&ENRICHMENT, "e", 3, "minimum log2 enrichment")
	flag.Float64Var(&PVALUE, "v", 0.05, "adjusted p-value threshold")
	flag.Float64Var(&PSEUDOCOUNT, "pc", 1, "pseudocount")
	flag.IntVar(&MERGEDISTANCE, "md", 0, "merge distance")
	flag.Float64Var(&MEANCOV, "mc", 0, "mean coverage threshold")
	flag.Float64Var(&MEDIANCOV, "ec", 0, "median coverage threshold")
	flag.IntVar(&THREADNB, "p", 1, "number of parallel workers")
	flag.Parse()

	switch {
	case IPFILE == "":
		logrus.Fatal("-ip must be provided!")

	case WINDOWSIZE < 10:
		logrus.Fatal("-w must be >= 10")

	case PVALUE <= 0 || PVALUE > 1:
		logrus.Fatal("-v must be in (0, 1]")

	case PSEUDOCOUNT <= 0:
		logrus.Fatal("-pc must be > 0")

	case MERGEDISTANCE < 0:
		logrus.Fatal("-md must be >= 0")
	}

	if WINDOWOFFSET <= 0 {
		WINDOWOFFSET = WINDOWSIZE / 2
	}

	if FILENAMEOUT == "" {
		ext := path.Ext(IPFILE.String())
		FILENAMEOUT = fmt.Sprintf("%s_peaks.bed",
			strings.TrimSuffix(IPFILE.String(), ext))
	}

	if THREADNB < 1 {
		THREADNB = 1
	}

	ip, err := rfcount.Open(IPFILE.String())

	if err != nil {
		logrus.Fatalf("cannot open IP count store: %s", err)
	}

	defer ip.Close()

	var control *rfcount.Reader

	if CONTROLFILE != "" {
		if control, err = rfcount.Open(CONTROLFILE.String()); err != nil {
			logrus.Fatalf("cannot open control count store: %s", err)
		}

		defer control.Close()
	}

	if MASKFILE != "" {
		loadMaskRegions(MASKFILE)
	}

	initMaskThreading(THREADNB)

	ids := selectTranscripts(ip)

	logrus.Infof("window=%d offset=%d enrichment=%.1f pvalue=%g transcripts=%d workers=%d",
		WINDOWSIZE, WINDOWOFFSET, ENRICHMENT, PVALUE, len(ids), THREADNB)

	COUNTERS = utils.NewCounters("called", "peaks", "incov", "diffseq", "nodata", "failed")

	ipHandles := make([]*rfcount.Reader, THREADNB)
	ctlHandles := make([]*rfcount.Reader, THREADNB)

	for i := 0; i < THREADNB; i++ {
		ipHandles[i], err = ip.NewHandle()
		utils.Check(err)

		if control != nil {
			ctlHandles[i], err = control.NewHandle()
			utils.Check(err)
		}
	}

	tStart := time.Now()

	utils.ProcessTranscripts(THREADNB, ids, func(thread int, id string) {
		processOneTranscript(thread, id, ipHandles[thread], ctlHandles[thread])
	})

	for i := 0; i < THREADNB; i++ {
		ipHandles[i].Close()

		if ctlHandles[i] != nil {
			ctlHandles[i].Close()
		}
	}

	tDiff := time.Since(tStart)
	fmt.Printf("Peak calling done in time: %f s \n", tDiff.Seconds())

	writePeaks()
	fmt.Print(COUNTERS.String())
}

func selectTranscripts(ip *rfcount.Reader) []string {
	var whitelist map[string]bool

	if WHITELISTFILE != "" {
		whitelist = utils.LoadIDList(WHITELISTFILE)
	}

	var ids []string

	for _, id := range ip.IDs() {
		if whitelist != nil && !whitelist[id] {
			continue
		}

		ids = append(ids, id)
	}

	return ids
}

func processOneTranscript(thread int, id string, ip, control *rfcount.Reader) {
	entry, err := ip.Read(id)

	if err != nil {
		COUNTERS.Incr("failed")
		logrus.Debugf("%s: %s", id, err)
		return
	}

	var ctlEntry *rfcount.Entry

	if control != nil {
		ctlEntry, err = control.Read(id)

		switch {
		case errors.Is(err, rfcount.ErrNotFound):
			COUNTERS.Incr("nodata")
			return

		case err != nil:
			COUNTERS.Incr("failed")
			logrus.Debugf("%s: %s", id, err)
			return

		case ctlEntry.Sequence != entry.Sequence:
			COUNTERS.Incr("diffseq")
			return
		}
	}

	if entry.MeanCoverage() < MEANCOV || entry.MedianCoverage() < MEDIANCOV {
		COUNTERS.Incr("incov")
		return
	}

	if ctlEntry != nil &&
		(ctlEntry.MeanCoverage() < MEANCOV || ctlEntry.MedianCoverage() < MEDIANCOV) {
		COUNTERS.Incr("incov")
		return
	}

	peaks := callTranscript(thread, id, entry, ctlEntry)

	if len(peaks) == 0 {
		return
	}

	RESULTMUTEX.Lock()
	RESULTS = append(RESULTS, peaks...)
	RESULTMUTEX.Unlock()

	COUNTERS.Incr("called")

	for range peaks {
		COUNTERS.Incr("peaks")
	}
}

func writePeaks() {
	sort.Slice(RESULTS, func(i, j int) bool {
		if RESULTS[i].Transcript != RESULTS[j].Transcript {
			return RESULTS[i].Transcript < RESULTS[j].Transcript
		}

		return RESULTS[i].Start < RESULTS[j].Start
	})

	writer := utils.ReturnWriter(FILENAMEOUT)
	defer utils.CloseFile(writer)

	for _, peak := range RESULTS {
		_, err := fmt.Fprintf(writer, "%s\t%d\t%d\t%.3f\t%.3e\n",
			peak.Transcript, peak.Start, peak.End, peak.Score, peak.Pvalue)
		utils.Check(err)
	}

	fmt.Printf("File written: %s\n", FILENAMEOUT)
}
