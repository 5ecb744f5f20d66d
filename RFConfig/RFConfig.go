/* Typed parameter bundle shared by rf-norm and validated up front. The
bundle round-trips through a key=value ("properties") file so downstream
tools can recover the exact normalization settings. */

package rfconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

/*ErrConfig invalid or contradictory parameters; fatal before any worker starts */
var ErrConfig = errors.New("invalid configuration")

/*Scoring methods */
const (
	ScoreDing      = 1
	ScoreRouskin   = 2
	ScoreSiegfried = 3
	ScoreZubradt   = 4
)

/*Normalization methods */
const (
	Norm28       = 1
	NormWinsor90 = 2
	NormBoxplot  = 3
)

/*Params ... */
type Params struct {
	ScoringMethod   int
	NormMethod      int
	NormWindow      int // 0 means whole transcript
	WindowOffset    int // negative means same as window; >= 1 unless whole transcript
	ReactiveBases   string
	NormIndependent bool
	PseudoCount     float64
	MaxScore        float64
	MeanCoverage    float64
	MedianCoverage  float64
	NanThreshold    int
	Remap           bool
	MaxUntreatedMut float64
	Raw             bool
	Decimals        int
}

/*Default defaults before method-dependent adjustment */
func Default() Params {
	return Params{
		ScoringMethod:   ScoreDing,
		NormMethod:      0,
		NormWindow:      -1,
		WindowOffset:    -1,
		ReactiveBases:   "N",
		PseudoCount:     1,
		MaxScore:        10,
		MeanCoverage:    0,
		MedianCoverage:  0,
		NanThreshold:    10,
		MaxUntreatedMut: 0.05,
		Decimals:        3,
	}
}

/*ScoringName attribute value written in the XML documents */
func (p *Params) ScoringName() string {
	switch p.ScoringMethod {
	case ScoreDing:
		return "Ding"
	case ScoreRouskin:
		return "Rouskin"
	case ScoreSiegfried:
		return "Siegfried"
	case ScoreZubradt:
		return "Zubradt"
	}

	return ""
}

/*NormName ... */
func (p *Params) NormName() string {
	if p.Raw {
		return "raw"
	}

	switch p.NormMethod {
	case Norm28:
		return "2-8%"
	case NormWinsor90:
		return "90% Winsorizing"
	case NormBoxplot:
		return "Box-plot"
	}

	return ""
}

/*ApplyDefaults resolve method-dependent defaults: norm method per scoring
scheme, whole-transcript windows for Ding/Siegfried, 50 nt for
Rouskin/Zubradt, offset matching the window */
func (p *Params) ApplyDefaults() {
	if p.NormMethod == 0 {
		switch p.ScoringMethod {
		case ScoreDing:
			p.NormMethod = Norm28
		case ScoreSiegfried:
			p.NormMethod = NormBoxplot
		default:
			p.NormMethod = NormWinsor90
		}
	}

	if p.NormWindow < 0 {
		switch p.ScoringMethod {
		case ScoreDing, ScoreSiegfried:
			p.NormWindow = 0
		default:
			p.NormWindow = 50
		}
	}

	if p.WindowOffset < 0 {
		p.WindowOffset = p.NormWindow
	}

	if p.ReactiveBases == "" {
		p.ReactiveBases = "N"
	}
}

/*Validate fail with ErrConfig on any invalid combination */
func (p *Params) Validate() error {
	if p.ScoringMethod < ScoreDing || p.ScoringMethod > ScoreZubradt {
		return fmt.Errorf("%w: scoring method must be one of 1 (Ding), 2 (Rouskin), 3 (Siegfried) or 4 (Zubradt)", ErrConfig)
	}

	if !p.Raw && (p.NormMethod < Norm28 || p.NormMethod > NormBoxplot) {
		return fmt.Errorf("%w: normalization method must be one of 1 (2-8%%), 2 (90%% Winsorizing) or 3 (Box-plot)", ErrConfig)
	}

	if p.NormWindow != 0 && p.NormWindow < 3 {
		return fmt.Errorf("%w: normalization window must be >= 3", ErrConfig)
	}

	if p.NormWindow > 0 && p.WindowOffset > p.NormWindow {
		return fmt.Errorf("%w: window offset cannot exceed the window length", ErrConfig)
	}

	if p.WindowOffset < 0 || (p.NormWindow > 0 && p.WindowOffset == 0) {
		return fmt.Errorf("%w: window offset must be >= 1", ErrConfig)
	}

	if p.PseudoCount <= 0 {
		return fmt.Errorf("%w: pseudocount must be > 0", ErrConfig)
	}

	if p.MaxScore <= 0 {
		return fmt.Errorf("%w: maximum score must be > 0", ErrConfig)
	}

	if p.MeanCoverage < 0 || p.MedianCoverage < 0 {
		return fmt.Errorf("%w: coverage thresholds must be >= 0", ErrConfig)
	}

	if p.NanThreshold < 0 {
		return fmt.Errorf("%w: coverage masking threshold must be >= 0", ErrConfig)
	}

	if p.MaxUntreatedMut <= 0 || p.MaxUntreatedMut > 1 {
		return fmt.Errorf("%w: maximum untreated mutation rate must be in (0, 1]", ErrConfig)
	}

	if p.Decimals < 1 || p.Decimals > 10 {
		return fmt.Errorf("%w: decimals must be in [1, 10]", ErrConfig)
	}

	for _, base := range p.ReactiveBases {
		if !strings.ContainsRune("ACGTUN", base) {
			return fmt.Errorf("%w: invalid reactive base %q", ErrConfig, base)
		}
	}

	return nil
}

/*ReactiveSet expand the reactive-bases option into the set of DNA-alphabet
characters; N means all four, U folds onto T */
func (p *Params) ReactiveSet() string {
	if strings.ContainsRune(p.ReactiveBases, 'N') {
		return "ACGT"
	}

	set := ""

	for _, base := range p.ReactiveBases {
		if base == 'U' {
			base = 'T'
		}

		if !strings.ContainsRune(set, base) {
			set += string(base)
		}
	}

	return set
}

/*Save persist the bundle to a key=value file */
func (p *Params) Save(path string) error {
	v := viper.New()
	v.SetConfigType("properties")

	v.Set("scoring", p.ScoringMethod)
	v.Set("norm", p.NormMethod)
	v.Set("win", p.NormWindow)
	v.Set("offset", p.WindowOffset)
	v.Set("reactive", p.ReactiveBases)
	v.Set("independent", p.NormIndependent)
	v.Set("pseudo", p.PseudoCount)
	v.Set("max", p.MaxScore)
	v.Set("meancov", p.MeanCoverage)
	v.Set("mediancov", p.MedianCoverage)
	v.Set("nan", p.NanThreshold)
	v.Set("remap", p.Remap)
	v.Set("maxumut", p.MaxUntreatedMut)
	v.Set("raw", p.Raw)
	v.Set("dec", p.Decimals)

	return v.WriteConfigAs(path)
}

/*Load read a bundle back from a key=value file */
func Load(path string) (Params, error) {
	p := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")

	if err := v.ReadInConfig(); err != nil {
		return p, err
	}

	p.ScoringMethod = v.GetInt("scoring")
	p.NormMethod = v.GetInt("norm")
	p.NormWindow = v.GetInt("win")
	p.WindowOffset = v.GetInt("offset")
	p.ReactiveBases = v.GetString("reactive")
	p.NormIndependent = v.GetBool("independent")
	p.PseudoCount = v.GetFloat64("pseudo")
	p.MaxScore = v.GetFloat64("max")
	p.MeanCoverage = v.GetFloat64("meancov")
	p.MedianCoverage = v.GetFloat64("mediancov")
	p.NanThreshold = v.GetInt("nan")
	p.Remap = v.GetBool("remap")
	p.MaxUntreatedMut = v.GetFloat64("maxumut")
	p.Raw = v.GetBool("raw")
	p.Decimals = v.GetInt("dec")

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}
