package distribution

import (
	"math"

	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Weibull is the two-parameter Weibull family with Loc fixed at zero,
// Shape = k and Scale = λ.
type Weibull struct{}

func (Weibull) Name() string { return NameWeibull }

// Fit maximises the profile log-likelihood over ln k; for a given k the
// scale estimate is λ = (mean xᵏ)^(1/k). Values are normalised by the sample
// maximum so xᵏ cannot overflow.
func (Weibull) Fit(sample []float64) (qdm.Params, error) {
	if err := checkSpread(sample); err != nil {
		return qdm.Params{}, err
	}
	for _, v := range sample {
		if v <= 0 {
			return qdm.Params{}, ErrOutsideSupport
		}
	}

	top := floats.Max(sample)
	n := float64(len(sample))
	z := make([]float64, len(sample))
	sumLog := 0.0
	for i, v := range sample {
		z[i] = v / top
		sumLog += math.Log(z[i])
	}

	meanPow := func(k float64) float64 {
		s := 0.0
		for _, v := range z {
			s += math.Pow(v, k)
		}
		return s / n
	}
	nll := func(x []float64) float64 {
		if x[0] < -10 || x[0] > 10 {
			return math.Inf(1)
		}
		k := math.Exp(x[0])
		return -(n*math.Log(k) - n*math.Log(meanPow(k)) + (k-1)*sumLog - n)
	}

	x, err := minimize(nll, []float64{0})
	if err != nil {
		return qdm.Params{}, err
	}
	k := math.Exp(x[0])
	lambda := top * math.Pow(meanPow(k), 1/k)
	if !(lambda > 0) || math.IsInf(lambda, 0) {
		return qdm.Params{}, ErrNoConvergence
	}
	return qdm.Params{Shape: k, Scale: lambda}, nil
}

func (Weibull) CDF(x float64, p qdm.Params) float64 {
	if x <= p.Loc {
		return 0
	}
	return distuv.Weibull{K: p.Shape, Lambda: p.Scale}.CDF(x - p.Loc)
}

func (Weibull) Quantile(prob float64, p qdm.Params) float64 {
	if !validProb(prob) {
		return math.NaN()
	}
	return p.Loc + distuv.Weibull{K: p.Shape, Lambda: p.Scale}.Quantile(prob)
}

func (Weibull) PDF(x float64, p qdm.Params) float64 {
	if x < p.Loc {
		return 0
	}
	return distuv.Weibull{K: p.Shape, Lambda: p.Scale}.Prob(x - p.Loc)
}
