// Package distribution provides parametric families for quantile delta
// mapping, backed by gonum's distuv and optimize packages.
//
// Family names follow the scipy.stats names used by the research scripts
// that produced the input samples: lognorm, norm, weibull_min and genpareto.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrTooFewValues     = errors.New("at least two values are required")
	ErrDegenerateSample = errors.New("sample has zero spread")
	ErrOutsideSupport   = errors.New("value outside the distribution support")
	ErrNoConvergence    = errors.New("likelihood maximisation did not converge")
	ErrUnknownFamily    = errors.New("unknown distribution family")
)

// Family names.
const (
	NameLogNormal         = "lognorm"
	NameNormal            = "norm"
	NameWeibull           = "weibull_min"
	NameGeneralizedPareto = "genpareto"
)

// Spec selects and configures a family.
type Spec struct {
	Name string `json:"name"`

	// FitLoc makes lognorm estimate the location shift as well. The default
	// fixes loc at 0. scipy.stats.lognorm.fit estimates all three parameters
	// (a loc=0 argument there is only a starting guess), so set FitLoc to
	// reproduce results computed with scipy.
	FitLoc bool `json:"fit_loc,omitempty"`

	Threshold float64 `json:"threshold,omitempty"` // genpareto: fixed location
}

// Key identifies the configured family; equal keys fit identically.
func (s Spec) Key() string {
	name := canonicalName(s.Name)
	switch name {
	case NameLogNormal:
		return fmt.Sprintf("%s|fit_loc=%t", name, s.FitLoc)
	case NameGeneralizedPareto:
		return fmt.Sprintf("%s|threshold=%g", name, s.Threshold)
	default:
		return name
	}
}

// canonicalName maps aliases onto the scipy family names. Unknown names are
// returned lower-cased.
func canonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "lognormal":
		return NameLogNormal
	case "normal":
		return NameNormal
	case "weibull":
		return NameWeibull
	case "gpd":
		return NameGeneralizedPareto
	default:
		return n
	}
}

// New builds the family described by spec.
func New(spec Spec) (qdm.Family, error) {
	switch canonicalName(spec.Name) {
	case NameLogNormal:
		return LogNormal{FitLoc: spec.FitLoc}, nil
	case NameNormal:
		return Normal{}, nil
	case NameWeibull:
		return Weibull{}, nil
	case NameGeneralizedPareto:
		if math.IsNaN(spec.Threshold) || math.IsInf(spec.Threshold, 0) {
			return nil, fmt.Errorf("genpareto threshold %g is not finite", spec.Threshold)
		}
		return GeneralizedPareto{Threshold: spec.Threshold}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, spec.Name)
	}
}

// Names lists the canonical family names.
func Names() []string {
	names := []string{NameLogNormal, NameNormal, NameWeibull, NameGeneralizedPareto}
	sort.Strings(names)
	return names
}

// IsKnown reports whether name resolves to a family.
func IsKnown(name string) bool {
	_, err := New(Spec{Name: name})
	return err == nil
}

func checkSpread(sample []float64) error {
	if len(sample) < 2 {
		return ErrTooFewValues
	}
	if floats.Min(sample) == floats.Max(sample) {
		return ErrDegenerateSample
	}
	return nil
}

func validProb(p float64) bool {
	return p >= 0 && p <= 1
}
