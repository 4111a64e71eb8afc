// Package diagnostics summarises samples before and after bias correction.
package diagnostics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned for empty inputs.
var ErrEmpty = errors.New("diagnostics: empty sample")

// DefaultEdges are the 5 hPa pressure-deficit bins (0–95 hPa) used when
// tabulating Δp densities.
var DefaultEdges = func() []float64 {
	edges := make([]float64, 0, 20)
	for v := 0.0; v < 100; v += 5 {
		edges = append(edges, v)
	}
	return edges
}()

// Summary describes one sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Q90    float64 `json:"q90"`
	Q99    float64 `json:"q99"`
}

// Summarize computes the summary statistics of values.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmpty
	}
	data := stats.LoadRawData(values)

	mean, err := data.Mean()
	if err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	sd, err := data.StandardDeviationPopulation()
	if err != nil {
		return Summary{}, fmt.Errorf("standard deviation: %w", err)
	}
	median, err := data.Median()
	if err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}
	q90, err := data.Percentile(90)
	if err != nil {
		return Summary{}, fmt.Errorf("q90: %w", err)
	}
	q99, err := data.Percentile(99)
	if err != nil {
		return Summary{}, fmt.Errorf("q99: %w", err)
	}

	return Summary{
		Count:  len(values),
		Mean:   mean,
		StdDev: sd,
		Median: median,
		Q90:    q90,
		Q99:    q99,
	}, nil
}

// Histogram returns the probability density of values over the bins
// [edges[i], edges[i+1]), with the last bin closed on the right. Values
// outside the edges are ignored, matching numpy.histogram(density=True).
func Histogram(values, edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	lo, hi := edges[0], edges[len(edges)-1]
	inRange := make([]float64, 0, len(values))
	var atTop float64
	for _, v := range values {
		switch {
		case v >= lo && v < hi:
			inRange = append(inRange, v)
		case v == hi:
			// stat.Histogram rejects values on the last divider.
			atTop++
		}
	}
	density := make([]float64, len(edges)-1)
	total := float64(len(inRange)) + atTop
	if total == 0 {
		return density
	}

	counts := make([]float64, len(edges)-1)
	if len(inRange) > 0 {
		sort.Float64s(inRange)
		counts = stat.Histogram(counts, edges, inRange, nil)
	}
	counts[len(counts)-1] += atTop
	for i, c := range counts {
		density[i] = c / (total * (edges[i+1] - edges[i]))
	}
	return density
}

// Centres returns the midpoints of the bins delimited by edges.
func Centres(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	out := make([]float64, len(edges)-1)
	for i := range out {
		out[i] = edges[i] + (edges[i+1]-edges[i])/2
	}
	return out
}

// KSResult is a two-sample Kolmogorov–Smirnov comparison.
type KSResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
}

// KolmogorovSmirnov compares two samples. The p-value uses the asymptotic
// Kolmogorov distribution with the Stephens small-sample adjustment.
func KolmogorovSmirnov(a, b []float64) (KSResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return KSResult{}, ErrEmpty
	}
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	d := stat.KolmogorovSmirnov(x, nil, y, nil)
	n, m := float64(len(x)), float64(len(y))
	en := math.Sqrt(n * m / (n + m))
	return KSResult{Statistic: d, PValue: kolmogorovQ((en + 0.12 + 0.11/en) * d)}, nil
}

// kolmogorovQ is the survival function of the Kolmogorov distribution,
// Q(λ) = 2 Σ (-1)^(j-1) exp(-2 j² λ²).
func kolmogorovQ(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	a2 := -2 * lambda * lambda
	sum, sign, prev := 0.0, 2.0, 0.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= 1e-10*prev || math.Abs(term) <= 1e-12*sum {
			return math.Min(1, math.Max(0, sum))
		}
		sign = -sign
		prev = math.Abs(term)
	}
	return 1
}
