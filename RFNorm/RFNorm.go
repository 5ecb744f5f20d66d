/* rf-norm: transform per-transcript read-count profiles into normalized
per-base reactivity profiles */

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	rfconfig "github.com/BazingaYZ/RNAFramework/RFConfig"
	rfcount "github.com/BazingaYZ/RNAFramework/RFCount"
	rfscore "github.com/BazingaYZ/RNAFramework/RFScore"
	rfxml "github.com/BazingaYZ/RNAFramework/RFXml"
	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

/*TREATEDFILE treated sample RC file (input) */
var TREATEDFILE utils.Filename

/*UNTREATEDFILE untreated sample RC file (input) */
var UNTREATEDFILE utils.Filename

/*DENATUREDFILE denatured sample RC file (input) */
var DENATUREDFILE utils.Filename

/*CONFFILE previously saved parameter file */
var CONFFILE utils.Filename

/*WHITELISTFILE file with one transcript ID per line */
var WHITELISTFILE utils.Filename

/*OUTPUTDIR output directory (one XML document per transcript) */
var OUTPUTDIR string

/*OVERWRITE overwrite the output directory */
var OVERWRITE bool

/*GZIPOUT write gzip-compressed XML documents */
var GZIPOUT bool

/*THREADNB number of parallel workers */
var THREADNB int

/*PARAMS scoring/normalization parameter bundle */
var PARAMS rfconfig.Params

/*COUNTERS shared result counters */
var COUNTERS *utils.Counters

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
USAGE: RFNorm -t <filename.rc>
##### optional ####
              -u <filename.rc>      untreated sample (required for scoring 1 and 3)
              -d <filename.rc>      denatured sample (scoring 3 only)
              -sm <int>             scoring method: 1=Ding 2=Rouskin 3=Siegfried 4=Zubradt
              -nm <int>             normalization: 1=2-8%% 2=90%% Winsorizing 3=Box-plot
              -nw <int>             normalization window (0=whole transcript)
              -wo <int>             window offset
              -rb <string>          reactive bases (default N = all)
              -ni                   normalize each reactive base independently
              -pc <float>           pseudocount
              -ms <float>           maximum score (Ding cap)
              -mc <float>           mean coverage threshold
              -ec <float>           median coverage threshold
              -nan <int>            coverage below which positions are NaN
              -rm                   remap reactivities (Zarringhalam)
              -mu <float>           maximum untreated mutation rate (Siegfried)
              -raw                  report raw scores (no normalization)
              -dec <int>            output decimals
              -tx <filename>        restrict to the listed transcript IDs
              -conf <filename>      load parameters from a saved key=value file
              -o <dirname>          output directory
              -ow                   overwrite the output directory
              -gz                   gzip the XML documents
              -p <int>              number of parallel workers

`)
		flag.PrintDefaults()
	}

	defaults := rfconfig.Default()

	flag.Var(&TREATEDFILE, "t", "treated sample RC file")
	flag.Var(&UNTREATEDFILE, "u", "untreated sample RC file")
	flag.Var(&DENATUREDFILE, "d", "denatured sample RC file")
	flag.Var(&CONFFILE, "conf", "saved parameter file")
	flag.Var(&WHITELISTFILE, "tx", "file with one transcript ID per line")
	flag.IntVar(&PARAMS.ScoringMethod, "sm", defaults.ScoringMethod, "scoring method (1-4)")
	flag.IntVar(&PARAMS.NormMethod, "nm", defaults.NormMethod, "normalization method (1-3)")
	flag.IntVar(&PARAMS.NormWindow, "nw", defaults.NormWindow, "normalization window")
	flag.IntVar(&PARAMS.WindowOffset, "wo", defaults.WindowOffset, "window offset")
	flag.StringVar(&PARAMS.ReactiveBases, "rb", defaults.ReactiveBases, "reactive bases")
	flag.BoolVar(&PARAMS.NormIndependent, "ni", false, "normalize base classes independently")
	flag.Float64Var(&PARAMS.PseudoCount, "pc", defaults.PseudoCount, "pseudocount")
	flag.Float64Var(&PARAMS.MaxScore, "ms", defaults.MaxScore, "maximum score")
	flag.Float64Var(&PARAMS.MeanCoverage, "mc", defaults.MeanCoverage, "mean coverage threshold")
	flag.Float64Var(&PARAMS.MedianCoverage, "ec", defaults.MedianCoverage, "median coverage threshold")
	flag.IntVar(&PARAMS.NanThreshold, "nan", defaults.NanThreshold, "masking coverage threshold")
	flag.BoolVar(&PARAMS.Remap, "rm", false, "remap reactivities (Zarringhalam)")
	flag.Float64Var(&PARAMS.MaxUntreatedMut, "mu", defaults.MaxUntreatedMut, "maximum untreated mutation rate")
	flag.BoolVar(&PARAMS.Raw, "raw", false, "report raw scores")
	flag.IntVar(&PARAMS.Decimals, "dec", defaults.Decimals, "output decimals")
	flag.StringVar(&OUTPUTDIR, "o", "", "output directory")
	flag.BoolVar(&OVERWRITE, "ow", false, "overwrite the output directory")
	flag.BoolVar(&GZIPOUT, "gz", false, "gzip the XML documents")
	flag.IntVar(&THREADNB, "p", 1, "number of parallel workers")
	flag.Parse()

	if TREATEDFILE == "" {
		logrus.Fatal("-t must be provided!")
	}

	if CONFFILE != "" {
		loaded, err := rfconfig.Load(CONFFILE.String())

		if err != nil {
			logrus.Fatalf("cannot load parameter file %s: %s", CONFFILE, err)
		}

		PARAMS = loaded
	}

	PARAMS.ApplyDefaults()

	if err := PARAMS.Validate(); err != nil {
		logrus.Fatal(err)
	}

	checkSampleCombination()

	if OUTPUTDIR == "" {
		OUTPUTDIR = findOutputDir()
	}

	prepareOutputDir()

	treated, err := rfcount.Open(TREATEDFILE.String())

	if err != nil {
		logrus.Fatalf("cannot open treated count store: %s", err)
	}

	defer treated.Close()

	var untreated, denatured *rfcount.Reader

	if UNTREATEDFILE != "" {
		if untreated, err = rfcount.Open(UNTREATEDFILE.String()); err != nil {
			logrus.Fatalf("cannot open untreated count store: %s", err)
		}

		defer untreated.Close()
	}

	if DENATUREDFILE != "" {
		if denatured, err = rfcount.Open(DENATUREDFILE.String()); err != nil {
			logrus.Fatalf("cannot open denatured count store: %s", err)
		}

		defer denatured.Close()
	}

	ids := selectTranscripts(treated)

	logrus.Infof("scoring=%s norm=%s transcripts=%d workers=%d",
		PARAMS.ScoringName(), PARAMS.NormName(), len(ids), THREADNB)

	COUNTERS = utils.NewCounters("covered", "incov", "nodata", "diffseq", "failed")

	if THREADNB < 1 {
		THREADNB = 1
	}

	// Readers are never shared across workers: one private handle per
	// worker and store, all sharing the in-memory index.
	handles := make([][3]*rfcount.Reader, THREADNB)

	for i := 0; i < THREADNB; i++ {
		handles[i][0], err = treated.NewHandle()
		utils.Check(err)

		if untreated != nil {
			handles[i][1], err = untreated.NewHandle()
			utils.Check(err)
		}

		if denatured != nil {
			handles[i][2], err = denatured.NewHandle()
			utils.Check(err)
		}
	}

	tStart := time.Now()

	utils.ProcessTranscripts(THREADNB, ids, func(thread int, id string) {
		processOneTranscript(id, handles[thread][0], handles[thread][1], handles[thread][2])
	})

	for i := 0; i < THREADNB; i++ {
		for _, handle := range handles[i] {
			if handle != nil {
				handle.Close()
			}
		}
	}

	tDiff := time.Since(tStart)
	fmt.Printf("Normalization done in time: %f s \n", tDiff.Seconds())

	if err = PARAMS.Save(path.Join(OUTPUTDIR, "norm.properties")); err != nil {
		logrus.Fatalf("cannot save parameter file: %s", err)
	}

	fmt.Print(COUNTERS.String())
}

func checkSampleCombination() {
	switch PARAMS.ScoringMethod {
	case rfconfig.ScoreDing, rfconfig.ScoreSiegfried:
		if UNTREATEDFILE == "" {
			logrus.Fatalf("scoring method %d (%s) requires -u",
				PARAMS.ScoringMethod, PARAMS.ScoringName())
		}

	default:
		if UNTREATEDFILE != "" {
			logrus.Fatalf("scoring method %d (%s) does not use -u",
				PARAMS.ScoringMethod, PARAMS.ScoringName())
		}
	}

	if DENATUREDFILE != "" && PARAMS.ScoringMethod != rfconfig.ScoreSiegfried {
		logrus.Fatalf("-d is only meaningful with scoring method 3 (Siegfried)")
	}
}

func findOutputDir() string {
	fname := TREATEDFILE.String()
	ext := path.Ext(fname)

	return fmt.Sprintf("%s_norm", strings.TrimSuffix(fname, ext))
}

func prepareOutputDir() {
	if _, err := os.Stat(OUTPUTDIR); err == nil {
		if !OVERWRITE {
			logrus.Fatalf("output directory %s exists; use -ow to overwrite", OUTPUTDIR)
		}
	}

	utils.Check(os.MkdirAll(OUTPUTDIR, 0755))
}

func selectTranscripts(treated *rfcount.Reader) []string {
	var whitelist map[string]bool

	if WHITELISTFILE != "" {
		whitelist = utils.LoadIDList(WHITELISTFILE)
	}

	var ids []string

	for _, id := range treated.IDs() {
		if whitelist != nil && !whitelist[id] {
			continue
		}

		ids = append(ids, id)
	}

	return ids
}

func processOneTranscript(id string, treated, untreated, denatured *rfcount.Reader) {
	entryT, err := treated.Read(id)

	if err != nil {
		COUNTERS.Incr("failed")
		logrus.Debugf("%s: %s", id, err)
		return
	}

	input := rfscore.Input{Treated: entryT}

	if untreated != nil {
		if input.Untreated, err = untreated.Read(id); err != nil {
			countSkip(id, skipReason(err))
			return
		}
	}

	if denatured != nil {
		if input.Denatured, err = denatured.Read(id); err != nil {
			countSkip(id, skipReason(err))
			return
		}
	}

	scores, err := rfscore.Score(input, &PARAMS)

	if err != nil {
		countSkip(id, skipReason(err))
		return
	}

	reactivity, err := rfscore.Normalize(scores, entryT.Sequence, &PARAMS)

	if err != nil {
		countSkip(id, skipReason(err))
		return
	}

	doc := &rfxml.Document{
		Tool:        rfxml.ToolNorm,
		ReactiveSet: PARAMS.ReactiveSet(),
		Scoring:     PARAMS.ScoringName(),
		Norm:        PARAMS.NormName(),
		Win:         PARAMS.NormWindow,
		Offset:      PARAMS.WindowOffset,
		Remap:       PARAMS.Remap,
		MaxScore:    PARAMS.MaxScore,
		PseudoCount: PARAMS.PseudoCount,
		MaxUMut:     PARAMS.MaxUntreatedMut,
		ID:          id,
		Length:      entryT.Length(),
		Sequence:    entryT.Sequence,
		Values1:     reactivity,
	}

	if err = doc.WriteFile(outputPath(id), PARAMS.Decimals); err != nil {
		COUNTERS.Incr("failed")
		logrus.Debugf("%s: %s", id, err)
		return
	}

	COUNTERS.Incr("covered")
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, utils.ErrLowCoverage):
		return "incov"
	case errors.Is(err, utils.ErrSeqMismatch):
		return "diffseq"
	case errors.Is(err, rfcount.ErrNotFound):
		return "nodata"
	}

	return "failed"
}

func countSkip(id, reason string) {
	COUNTERS.Incr(reason)
	logrus.Debugf("%s skipped: %s", id, reason)
}

func outputPath(id string) string {
	safe := strings.ReplaceAll(id, "/", "_")
	fname := path.Join(OUTPUTDIR, safe+".xml")

	if GZIPOUT {
		fname += ".gz"
	}

	return fname
}
