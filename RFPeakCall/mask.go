/* Optional exclusion regions (-mask): a BED file of transcript intervals
never tested for enrichment (e.g. rRNA contamination). Regions are held in
one interval tree per transcript, with a private copy per worker. */

package main

import (
	"strconv"
	"strings"

	"github.com/biogo/store/interval"
	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"

	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

//IntInterval Integer-specific intervals
type IntInterval struct {
	Start, End int
	UID        uintptr
	Payload    interface{}
}

//Overlap rule for two Interval
func (i IntInterval) Overlap(b interval.IntRange) bool {
	return i.End >= b.Start && i.Start <= b.End
}

//ID Return the ID of Interval
func (i IntInterval) ID() uintptr {
	return i.UID
}

//Range Return the range of Interval
func (i IntInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Start, End: i.End}
}

/*MASKTREES transcript ID <-> interval tree of masked regions */
var MASKTREES map[string]*interval.IntTree

/*MASKTREESTHREAD threadNB -> transcript ID -> interval tree */
var MASKTREESTHREAD []map[string]*interval.IntTree

func loadMaskRegions(fname utils.Filename) {
	scanner, file := fname.ReturnReader(0)
	defer utils.CloseFile(file)

	MASKTREES = make(map[string]*interval.IntTree)

	var uid uintptr
	var count int

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" || line[0] == '#' {
			continue
		}

		split := strings.Split(line, "\t")

		if len(split) < 3 {
			logrus.Fatalf("mask region %q cannot be cut in id int int", line)
		}

		start, err1 := strconv.Atoi(split[1])
		end, err2 := strconv.Atoi(split[2])

		if err1 != nil || err2 != nil || end <= start {
			logrus.Fatalf("mask region %q has invalid coordinates", line)
		}

		id := split[0]

		if _, isInside := MASKTREES[id]; !isInside {
			MASKTREES[id] = &interval.IntTree{}
		}

		// BED is half-open; the tree stores inclusive ends
		region := IntInterval{Start: start, End: end - 1, UID: uid}
		uid++

		utils.Check(MASKTREES[id].Insert(region, false))
		count++
	}

	logrus.Infof("loaded %d mask regions over %d transcripts", count, len(MASKTREES))
}

/*initMaskThreading copy the mask trees for each worker */
func initMaskThreading(threadNB int) {
	MASKTREESTHREAD = make([]map[string]*interval.IntTree, threadNB)

	for i := 0; i < threadNB; i++ {
		MASKTREESTHREAD[i] = make(map[string]*interval.IntTree)

		for key, tree := range MASKTREES {
			MASKTREESTHREAD[i][key] = &interval.IntTree{}
			err := copier.Copy(MASKTREESTHREAD[i][key], tree)
			utils.Check(err)
		}
	}
}

func dropMaskedWindows(thread int, id string, windows []window) []window {
	tree, isInside := MASKTREESTHREAD[thread][id]

	if !isInside {
		return windows
	}

	kept := windows[:0]

	for _, win := range windows {
		overlaps := tree.Get(IntInterval{Start: win.start, End: win.end})

		if len(overlaps) == 0 {
			kept = append(kept, win)
		}
	}

	return kept
}
