package distribution

import (
	"math"

	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Normal is the Gaussian family, Loc = μ and Scale = σ. It suits additive
// quantities corrected in additive mode.
type Normal struct{}

func (Normal) Name() string { return NameNormal }

func (Normal) Fit(sample []float64) (qdm.Params, error) {
	if err := checkSpread(sample); err != nil {
		return qdm.Params{}, err
	}
	mu, sigma := stat.PopMeanStdDev(sample, nil)
	if !(sigma > 0) {
		return qdm.Params{}, ErrDegenerateSample
	}
	return qdm.Params{Loc: mu, Scale: sigma}, nil
}

func (Normal) CDF(x float64, p qdm.Params) float64 {
	return distuv.Normal{Mu: p.Loc, Sigma: p.Scale}.CDF(x)
}

func (Normal) Quantile(prob float64, p qdm.Params) float64 {
	if !validProb(prob) {
		return math.NaN()
	}
	return distuv.Normal{Mu: p.Loc, Sigma: p.Scale}.Quantile(prob)
}

func (Normal) PDF(x float64, p qdm.Params) float64 {
	return distuv.Normal{Mu: p.Loc, Sigma: p.Scale}.Prob(x)
}
