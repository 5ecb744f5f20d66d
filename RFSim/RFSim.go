/* Module to create simulated per-transcript count profiles (RC stores) for
exercising the rf- pipeline */

package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastrand"

	rfcount "github.com/BazingaYZ/RNAFramework/RFCount"
)

/*FILENAMEOUT output RC file */
var FILENAMEOUT string

/*TAGNAME tag used in simulated transcript identifiers */
var TAGNAME string

/*TRANSCRIPTNB number of transcripts to generate */
var TRANSCRIPTNB int

/*MINLENGTH minimum transcript length */
var MINLENGTH int

/*MAXLENGTH maximum transcript length */
var MAXLENGTH int

/*MEANCOV baseline coverage */
var MEANCOV int

/*MUTRATE baseline per-base modification rate */
var MUTRATE float64

/*PEAKNB number of enriched plateaus planted per transcript */
var PEAKNB int

/*PEAKWIDTH width of each planted plateau */
var PEAKWIDTH int

/*PEAKFOLD coverage fold-change inside a plateau */
var PEAKFOLD int

var bases = [4]byte{'A', 'C', 'G', 'T'}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `
#################### MODULE TO CREATE SIMULATED COUNT PROFILES ########################

USAGE: RFSim -out <filename.rc> (-nb <int> -min <int> -max <int> -cov <int> -rate <float> -peaks <int> -width <int> -fold <int> -tag <string>)

`)
		flag.PrintDefaults()
	}

	flag.StringVar(&FILENAMEOUT, "out", "simulated.rc", "name of the output RC file")
	flag.StringVar(&TAGNAME, "tag", "TX", "tag used in transcript identifiers")
	flag.IntVar(&TRANSCRIPTNB, "nb", 100, "number of transcripts to generate")
	flag.IntVar(&MINLENGTH, "min", 500, "minimum transcript length")
	flag.IntVar(&MAXLENGTH, "max", 3000, "maximum transcript length")
	flag.IntVar(&MEANCOV, "cov", 100, "baseline coverage")
	flag.Float64Var(&MUTRATE, "rate", 0.02, "baseline per-base modification rate")
	flag.IntVar(&PEAKNB, "peaks", 0, "number of enriched plateaus per transcript")
	flag.IntVar(&PEAKWIDTH, "width", 200, "width of each plateau")
	flag.IntVar(&PEAKFOLD, "fold", 20, "coverage fold-change inside a plateau")
	flag.Parse()

	switch {
	case TRANSCRIPTNB < 1:
		logrus.Fatal("-nb must be >= 1")

	case MINLENGTH < 10 || MAXLENGTH < MINLENGTH:
		logrus.Fatal("transcript length range is invalid")

	case MEANCOV < 1:
		logrus.Fatal("-cov must be >= 1")

	case MUTRATE <= 0 || MUTRATE >= 1:
		logrus.Fatal("-rate must be in (0, 1)")
	}

	writer, err := rfcount.Create(FILENAMEOUT)

	if err != nil {
		logrus.Fatalf("cannot create %s: %s", FILENAMEOUT, err)
	}

	tStart := time.Now()

	for i := 0; i < TRANSCRIPTNB; i++ {
		entry := simulateTranscript(fmt.Sprintf("%s%06d", TAGNAME, i+1))

		if err = writer.Write(entry); err != nil {
			logrus.Fatalf("cannot write %s: %s", entry.ID, err)
		}
	}

	if err = writer.Close(); err != nil {
		logrus.Fatalf("cannot finalize %s: %s", FILENAMEOUT, err)
	}

	tDiff := time.Since(tStart)
	fmt.Printf("Simulation done in time: %f s \n", tDiff.Seconds())
	fmt.Printf("File written: %s (%d transcripts)\n", FILENAMEOUT, TRANSCRIPTNB)
}

func simulateTranscript(id string) *rfcount.Entry {
	length := MINLENGTH

	if MAXLENGTH > MINLENGTH {
		length += int(fastrand.Uint32n(uint32(MAXLENGTH - MINLENGTH + 1)))
	}

	sequence := make([]byte, length)
	coverage := make([]uint32, length)
	counts := make([]uint32, length)

	for i := 0; i < length; i++ {
		sequence[i] = bases[fastrand.Uint32n(4)]

		// coverage jitters around the baseline by up to 10% either way
		jitter := int(fastrand.Uint32n(uint32(MEANCOV/5+1))) - MEANCOV/10
		coverage[i] = uint32(MEANCOV + jitter)
	}

	for p := 0; p < PEAKNB; p++ {
		width := PEAKWIDTH

		if width > length {
			width = length
		}

		start := int(fastrand.Uint32n(uint32(length - width + 1)))

		for i := start; i < start+width; i++ {
			coverage[i] *= uint32(PEAKFOLD)
		}
	}

	scale := uint32(math.Ceil(1 / MUTRATE))

	for i := 0; i < length; i++ {
		for read := uint32(0); read < coverage[i]; read++ {
			if fastrand.Uint32n(scale) == 0 {
				counts[i]++
			}
		}
	}

	return &rfcount.Entry{
		ID:       id,
		Sequence: string(sequence),
		Counts:   counts,
		Coverage: coverage,
	}
}
