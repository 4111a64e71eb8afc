package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// penalty stands in for an infeasible negative log-likelihood so the simplex
// moves away without seeing Inf or NaN.
const penalty = 1e300

// minimize runs a serial Nelder-Mead search from x0. The search is
// deterministic for a given objective and starting point.
func minimize(nll func(x []float64) float64, x0 []float64) ([]float64, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v := nll(x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return penalty
			}
			return v
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: 5000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{SimplexSize: 0.25})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConvergence, err)
	}
	if res.F >= penalty || math.IsNaN(res.F) {
		return nil, ErrNoConvergence
	}
	return res.X, nil
}
