package distribution

import (
	"math"

	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LogNormal is the (optionally shifted) log-normal family.
//
// Params map as Shape = σ, Scale = exp(μ), Loc = ζ, so X = ζ + exp(μ + σZ).
// With FitLoc false ζ is fixed at zero and the fit is the closed-form maximum
// likelihood estimate. With FitLoc true ζ is found by maximising the profile
// likelihood, which is bounded away from the degenerate ζ → min(x) solution.
type LogNormal struct {
	FitLoc bool
}

func (LogNormal) Name() string { return NameLogNormal }

func (d LogNormal) Fit(sample []float64) (qdm.Params, error) {
	if err := checkSpread(sample); err != nil {
		return qdm.Params{}, err
	}
	if !d.FitLoc {
		return fitLogNormalAt(sample, 0)
	}

	lo, hi := floats.Min(sample), floats.Max(sample)
	spread := hi - lo
	// loc = lo - exp(θ)·spread keeps loc strictly below the sample minimum.
	locAt := func(theta float64) float64 { return lo - math.Exp(theta)*spread }

	theta0 := 0.0
	if lo > 0 {
		theta0 = math.Log(lo / spread)
	}
	logs := make([]float64, len(sample))
	n := float64(len(sample))
	nll := func(x []float64) float64 {
		if x[0] < -20 || x[0] > 20 {
			return math.Inf(1)
		}
		loc := locAt(x[0])
		for i, v := range sample {
			logs[i] = math.Log(v - loc)
		}
		_, sigma := stat.PopMeanStdDev(logs, nil)
		if !(sigma > 0) {
			return math.Inf(1)
		}
		return n*math.Log(sigma) + floats.Sum(logs)
	}

	x, err := minimize(nll, []float64{theta0})
	if err != nil {
		return qdm.Params{}, err
	}
	if x[0] <= -19.5 || x[0] >= 19.5 {
		return qdm.Params{}, ErrNoConvergence
	}
	return fitLogNormalAt(sample, locAt(x[0]))
}

func fitLogNormalAt(sample []float64, loc float64) (qdm.Params, error) {
	logs := make([]float64, len(sample))
	for i, v := range sample {
		if v <= loc {
			return qdm.Params{}, ErrOutsideSupport
		}
		logs[i] = math.Log(v - loc)
	}
	mu, sigma := stat.PopMeanStdDev(logs, nil)
	if !(sigma > 0) || math.IsInf(mu, 0) {
		return qdm.Params{}, ErrDegenerateSample
	}
	return qdm.Params{Shape: sigma, Loc: loc, Scale: math.Exp(mu)}, nil
}

func (LogNormal) dist(p qdm.Params) distuv.LogNormal {
	return distuv.LogNormal{Mu: math.Log(p.Scale), Sigma: p.Shape}
}

func (d LogNormal) CDF(x float64, p qdm.Params) float64 {
	if x <= p.Loc {
		return 0
	}
	return d.dist(p).CDF(x - p.Loc)
}

func (d LogNormal) Quantile(prob float64, p qdm.Params) float64 {
	if !validProb(prob) {
		return math.NaN()
	}
	return p.Loc + d.dist(p).Quantile(prob)
}

func (d LogNormal) PDF(x float64, p qdm.Params) float64 {
	if x <= p.Loc {
		return 0
	}
	return d.dist(p).Prob(x - p.Loc)
}
