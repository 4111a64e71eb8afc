package qdm

// Params holds the fitted parameters of a distribution family in the
// (shape, loc, scale) convention. Families that need fewer parameters leave
// the unused fields at zero.
type Params struct {
	Shape float64 `json:"shape"`
	Loc   float64 `json:"loc"`
	Scale float64 `json:"scale"`
}

// Family is a parametric distribution family usable by the mapper.
type Family interface {
	// Name identifies the family, e.g. "lognorm".
	Name() string

	// Fit estimates parameters from a sample. It must be deterministic for a
	// given input and must not modify the sample.
	Fit(sample []float64) (Params, error)

	// CDF evaluates the cumulative distribution function at x.
	CDF(x float64, p Params) float64

	// Quantile evaluates the inverse CDF at prob. Implementations should
	// return NaN rather than panic for prob outside [0, 1].
	Quantile(prob float64, p Params) float64

	// PDF evaluates the probability density at x.
	PDF(x float64, p Params) float64
}
