/* rf-combine: merge replicate reactivity profiles produced by this toolkit
into per-base mean (and optionally standard deviation) profiles */

package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

/*INPUTS XML profile inputs: files or directories, one per replicate */
var INPUTS utils.ArrayFlags

/*OUTPUTDIR output directory */
var OUTPUTDIR string

/*OVERWRITE overwrite the output directory */
var OVERWRITE bool

/*EMITSTDEV also emit the per-base standard deviation vectors */
var EMITSTDEV bool

/*GZIPOUT write gzip-compressed XML documents */
var GZIPOUT bool

/*DECIMALS output decimals */
var DECIMALS int

/*THREADNB number of parallel workers */
var THREADNB int

/*COUNTERS shared result counters */
var COUNTERS *utils.Counters

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
USAGE: RFCombine -i <file or dir> -i <file or dir> [...]
##### optional ####
                 -o <dirname>    output directory
                 -ow             overwrite the output directory
                 -err            emit per-base standard deviation vectors
                 -dec <int>      output decimals
                 -gz             gzip the XML documents
                 -p <int>        number of parallel workers

Each -i names one replicate: either a single XML document or a directory of
XML documents (one per transcript, as written by rf-norm). Only transcripts
present in every replicate are combined.

`)
		flag.PrintDefaults()
	}

	flag.Var(&INPUTS, "i", "XML profile file or directory (repeat per replicate)")
	flag.StringVar(&OUTPUTDIR, "o", "combined", "output directory")
	flag.BoolVar(&OVERWRITE, "ow", false, "overwrite the output directory")
	flag.BoolVar(&EMITSTDEV, "err", false, "emit standard deviation vectors")
	flag.BoolVar(&GZIPOUT, "gz", false, "gzip the XML documents")
	flag.IntVar(&DECIMALS, "dec", 3, "output decimals")
	flag.IntVar(&THREADNB, "p", 1, "number of parallel workers")
	flag.Parse()

	INPUTS = append(INPUTS, flag.Args()...)

	if len(INPUTS) < 2 {
		logrus.Fatal("at least two replicate inputs (-i) must be provided!")
	}

	if DECIMALS < 1 || DECIMALS > 10 {
		logrus.Fatal("-dec must be in [1, 10]")
	}

	if _, err := os.Stat(OUTPUTDIR); err == nil && !OVERWRITE {
		logrus.Fatalf("output directory %s exists; use -ow to overwrite", OUTPUTDIR)
	}

	utils.Check(os.MkdirAll(OUTPUTDIR, 0755))

	replicates := make([]map[string]string, len(INPUTS))

	for i, input := range INPUTS {
		replicates[i] = indexInput(input)

		if len(replicates[i]) == 0 {
			logrus.Fatalf("input %s holds no XML documents", input)
		}
	}

	ids := commonTranscripts(replicates)

	logrus.Infof("replicates=%d common transcripts=%d workers=%d",
		len(replicates), len(ids), THREADNB)

	COUNTERS = utils.NewCounters("combined", "difftool", "diffseq", "diffscore",
		"diffnorm", "diffoffset", "diffwin", "failed")

	tStart := time.Now()

	utils.ProcessTranscripts(THREADNB, ids, func(thread int, id string) {
		paths := make([]string, len(replicates))

		for i := range replicates {
			paths[i] = replicates[i][id]
		}

		combineOneTranscript(id, paths)
	})

	tDiff := time.Since(tStart)
	fmt.Printf("Combining done in time: %f s \n", tDiff.Seconds())
	fmt.Print(COUNTERS.String())
}

func isXMLDocument(fname string) bool {
	return strings.HasSuffix(fname, ".xml") || strings.HasSuffix(fname, ".xml.gz")
}

func transcriptStem(fname string) string {
	base := path.Base(fname)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".xml")

	return base
}

// indexInput maps transcript ID -> document path for one replicate.
func indexInput(input string) map[string]string {
	docs := make(map[string]string)

	info, err := os.Stat(input)

	if err != nil {
		logrus.Fatalf("cannot read input %s: %s", input, err)
	}

	if !info.IsDir() {
		if !isXMLDocument(input) {
			logrus.Fatalf("input %s is not an XML document", input)
		}

		docs[transcriptStem(input)] = input
		return docs
	}

	entries, err := os.ReadDir(input)
	utils.Check(err)

	for _, entry := range entries {
		if entry.IsDir() || !isXMLDocument(entry.Name()) {
			continue
		}

		docs[transcriptStem(entry.Name())] = path.Join(input, entry.Name())
	}

	return docs
}

func commonTranscripts(replicates []map[string]string) []string {
	var ids []string

	for id := range replicates[0] {
		shared := true

		for _, other := range replicates[1:] {
			if _, isInside := other[id]; !isInside {
				shared = false
				break
			}
		}

		if shared {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}

func outputPath(id string) string {
	safe := strings.ReplaceAll(id, "/", "_")
	fname := path.Join(OUTPUTDIR, safe+".xml")

	if GZIPOUT {
		fname += ".gz"
	}

	return fname
}
