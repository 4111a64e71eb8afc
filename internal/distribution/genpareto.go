package distribution

import (
	"math"

	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"gonum.org/v1/gonum/stat"
)

// xiZero is the |ξ| below which the exponential limit is used.
const xiZero = 1e-9

// GeneralizedPareto is the generalized Pareto family for threshold
// exceedances. Loc is fixed at Threshold; Shape = ξ and Scale = σ are
// estimated by maximum likelihood.
//
// gonum's distuv has no generalized Pareto, so CDF, quantile and density
// are written out here.
type GeneralizedPareto struct {
	Threshold float64
}

func (GeneralizedPareto) Name() string { return NameGeneralizedPareto }

func (d GeneralizedPareto) Fit(sample []float64) (qdm.Params, error) {
	if err := checkSpread(sample); err != nil {
		return qdm.Params{}, err
	}
	excess := make([]float64, len(sample))
	for i, v := range sample {
		if v < d.Threshold {
			return qdm.Params{}, ErrOutsideSupport
		}
		excess[i] = v - d.Threshold
	}

	// Method-of-moments starting point.
	m, variance := stat.PopMeanVariance(excess, nil)
	if !(m > 0) || !(variance > 0) {
		return qdm.Params{}, ErrDegenerateSample
	}
	r := m * m / variance
	xi0 := 0.5 * (1 - r)
	sigma0 := 0.5 * m * (r + 1)

	n := float64(len(excess))
	nll := func(x []float64) float64 {
		xi, sigma := x[0], math.Exp(x[1])
		if math.Abs(xi) < xiZero {
			s := 0.0
			for _, y := range excess {
				s += y / sigma
			}
			return n*math.Log(sigma) + s
		}
		s := 0.0
		for _, y := range excess {
			t := 1 + xi*y/sigma
			if t <= 0 {
				return math.Inf(1)
			}
			s += math.Log(t)
		}
		return n*math.Log(sigma) + (1+1/xi)*s
	}

	x, err := minimize(nll, []float64{xi0, math.Log(sigma0)})
	if err != nil {
		return qdm.Params{}, err
	}
	return qdm.Params{Shape: x[0], Loc: d.Threshold, Scale: math.Exp(x[1])}, nil
}

func (GeneralizedPareto) CDF(x float64, p qdm.Params) float64 {
	z := (x - p.Loc) / p.Scale
	if z <= 0 {
		return 0
	}
	if math.Abs(p.Shape) < xiZero {
		return -math.Expm1(-z)
	}
	t := 1 + p.Shape*z
	if t <= 0 {
		return 1
	}
	return 1 - math.Pow(t, -1/p.Shape)
}

func (GeneralizedPareto) Quantile(prob float64, p qdm.Params) float64 {
	if !validProb(prob) {
		return math.NaN()
	}
	if math.Abs(p.Shape) < xiZero {
		return p.Loc - p.Scale*math.Log1p(-prob)
	}
	return p.Loc + p.Scale/p.Shape*math.Expm1(-p.Shape*math.Log1p(-prob))
}

func (GeneralizedPareto) PDF(x float64, p qdm.Params) float64 {
	z := (x - p.Loc) / p.Scale
	if z < 0 {
		return 0
	}
	if math.Abs(p.Shape) < xiZero {
		return math.Exp(-z) / p.Scale
	}
	t := 1 + p.Shape*z
	if t <= 0 {
		return 0
	}
	return math.Pow(t, -1/p.Shape-1) / p.Scale
}
