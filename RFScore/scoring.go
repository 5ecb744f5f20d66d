/* Scoring engine: turns treated (and optional untreated/denatured) count
profiles into raw per-base scores under the Ding, Rouskin, Siegfried or
Zubradt schemes. Masked positions carry NaN; rejected transcripts return a
skip error accounted by the caller. */

package rfscore

import (
	"fmt"
	"math"

	rfconfig "github.com/BazingaYZ/RNAFramework/RFConfig"
	rfcount "github.com/BazingaYZ/RNAFramework/RFCount"
	utils "github.com/BazingaYZ/RNAFramework/RFUtils"
)

/*Input samples for one transcript; Untreated/Denatured may be nil depending
on the scoring method */
type Input struct {
	Treated   *rfcount.Entry
	Untreated *rfcount.Entry
	Denatured *rfcount.Entry
}

func passesCoverage(entry *rfcount.Entry, params *rfconfig.Params) bool {
	return entry.MeanCoverage() >= params.MeanCoverage &&
		entry.MedianCoverage() >= params.MedianCoverage
}

func gate(in Input, params *rfconfig.Params) error {
	if !passesCoverage(in.Treated, params) {
		return utils.ErrLowCoverage
	}

	switch params.ScoringMethod {
	case rfconfig.ScoreDing, rfconfig.ScoreSiegfried:
		if in.Untreated == nil {
			return fmt.Errorf("%w: scoring method %d requires an untreated sample",
				rfconfig.ErrConfig, params.ScoringMethod)
		}

		if in.Untreated.Sequence != in.Treated.Sequence {
			return utils.ErrSeqMismatch
		}

		if !passesCoverage(in.Untreated, params) {
			return utils.ErrLowCoverage
		}

		if in.Denatured != nil {
			if in.Denatured.Sequence != in.Treated.Sequence {
				return utils.ErrSeqMismatch
			}

			if !passesCoverage(in.Denatured, params) {
				return utils.ErrLowCoverage
			}
		}
	}

	return nil
}

/*Score compute the raw score vector for one transcript */
func Score(in Input, params *rfconfig.Params) ([]float64, error) {
	if err := gate(in, params); err != nil {
		return nil, err
	}

	var scores []float64
	var err error

	switch params.ScoringMethod {
	case rfconfig.ScoreDing:
		scores, err = scoreDing(in, params)
	case rfconfig.ScoreRouskin:
		scores, err = scoreRouskin(in)
	case rfconfig.ScoreSiegfried:
		scores, err = scoreSiegfried(in, params)
	case rfconfig.ScoreZubradt:
		scores, err = scoreZubradt(in)
	default:
		err = fmt.Errorf("%w: unknown scoring method %d", rfconfig.ErrConfig,
			params.ScoringMethod)
	}

	if err != nil {
		return nil, err
	}

	maskLowCoverage(scores, in, params)

	return scores, nil
}

// The nan threshold masks positions the experiment cannot inform: treated
// coverage below it, and control coverage below it when a control exists.
func maskLowCoverage(scores []float64, in Input, params *rfconfig.Params) {
	threshold := uint32(params.NanThreshold)

	for i := range scores {
		if in.Treated.Coverage[i] < threshold {
			scores[i] = math.NaN()
			continue
		}

		if in.Untreated != nil && in.Untreated.Coverage[i] < threshold {
			scores[i] = math.NaN()
		}
	}
}

func scoreDing(in Input, params *rfconfig.Params) ([]float64, error) {
	length := in.Treated.Length()

	treatedLog := make([]float64, length)
	untreatedLog := make([]float64, length)

	treatedMean := 0.0
	untreatedMean := 0.0

	for i := 0; i < length; i++ {
		treatedLog[i] = math.Log(float64(in.Treated.Counts[i]) + params.PseudoCount)
		untreatedLog[i] = math.Log(float64(in.Untreated.Counts[i]) + params.PseudoCount)

		treatedMean += treatedLog[i]
		untreatedMean += untreatedLog[i]
	}

	treatedMean /= float64(length)
	untreatedMean /= float64(length)

	if treatedMean == 0 || untreatedMean == 0 {
		return nil, utils.ErrLowCoverage
	}

	scores := make([]float64, length)

	for i := 0; i < length; i++ {
		score := treatedLog[i]/treatedMean - untreatedLog[i]/untreatedMean

		if score < 0 {
			score = 0
		}

		if score > params.MaxScore {
			score = params.MaxScore
		}

		scores[i] = score
	}

	return scores, nil
}

func scoreRouskin(in Input) ([]float64, error) {
	scores := make([]float64, in.Treated.Length())

	for i, count := range in.Treated.Counts {
		scores[i] = float64(count)
	}

	return scores, nil
}

func scoreSiegfried(in Input, params *rfconfig.Params) ([]float64, error) {
	length := in.Treated.Length()
	threshold := uint32(params.NanThreshold)

	scores := make([]float64, length)

	for i := 0; i < length; i++ {
		treatedCov := in.Treated.Coverage[i]
		untreatedCov := in.Untreated.Coverage[i]

		masked := treatedCov < threshold || untreatedCov < threshold

		if in.Denatured != nil && in.Denatured.Coverage[i] < threshold {
			masked = true
		}

		var treatedRate, untreatedRate float64

		if !masked {
			treatedRate = float64(in.Treated.Counts[i]) / float64(treatedCov)
			untreatedRate = float64(in.Untreated.Counts[i]) / float64(untreatedCov)

			if untreatedRate > params.MaxUntreatedMut {
				masked = true
			}
		}

		if masked {
			scores[i] = math.NaN()
			continue
		}

		score := treatedRate - untreatedRate

		if in.Denatured != nil {
			denaturedRate := float64(in.Denatured.Counts[i]) /
				float64(in.Denatured.Coverage[i])

			if denaturedRate > 0 {
				score /= denaturedRate
			} else {
				score = 0
			}
		}

		if score < 0 {
			score = 0
		}

		scores[i] = score
	}

	return scores, nil
}

func scoreZubradt(in Input) ([]float64, error) {
	scores := make([]float64, in.Treated.Length())

	for i, count := range in.Treated.Counts {
		if in.Treated.Coverage[i] > 0 {
			scores[i] = float64(count) / float64(in.Treated.Coverage[i])
		}
	}

	return scores, nil
}
