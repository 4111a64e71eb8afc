// Command genmock generates reproducible correction-request fixtures and the
// corresponding results. Results are produced by the real Corrector so the
// fixtures track pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -requests-out data/mock/correction_requests.json \
//	  -results-out data/mock/correction_results.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/domain"
	"github.com/couchcryptid/tc-bias-correction/internal/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/stat/distuv"
)

// fixtureTime is the frozen ProcessedAt shared with cmd/validate.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

var trackStart = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	requestsOut := flag.String("requests-out", "", "output path for correction request fixture")
	resultsOut := flag.String("results-out", "", "output path for correction result fixture")
	seed := flag.Uint64("seed", 42, "random seed")
	n := flag.Int("n", 200, "values per sample")
	flag.Parse()

	if *requestsOut == "" || *resultsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -requests-out, -results-out")
	}
	if *n < 10 {
		return fmt.Errorf("-n must be at least 10, got %d", *n)
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewPCG(*seed, 0))
	requests := buildRequests(rng, *n)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	corrector := pipeline.NewCorrector(pipeline.Defaults{}, nil, logger, observability.NewMetricsForTesting())

	results := make([]domain.CorrectionResult, 0, len(requests))
	for _, req := range requests {
		res, err := corrector.Correct(context.Background(), req)
		if err != nil {
			return fmt.Errorf("correct %s: %w", req.ID, err)
		}
		results = append(results, res)
		log.Printf("%s: family=%s mode=%s n=%d q99 change=%.3f",
			res.ID, res.Family, res.Mode, len(res.Corrected), res.Diagnostics.ChangeFactorQ99)
	}

	if err := writeJSON(*requestsOut, requests); err != nil {
		return fmt.Errorf("writing request fixture: %w", err)
	}
	log.Printf("wrote request fixture: %s", *requestsOut)

	if err := writeJSON(*resultsOut, results); err != nil {
		return fmt.Errorf("writing result fixture: %w", err)
	}
	log.Printf("wrote result fixture: %s", *resultsOut)
	return nil
}

func buildRequests(rng *rand.Rand, n int) []domain.CorrectionRequest {
	lognorm := func(mu, sigma float64) []float64 {
		return sample(distuv.LogNormal{Mu: mu, Sigma: sigma, Src: rng}, n)
	}
	normal := func(mu, sigma float64) []float64 {
		return sample(distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}, n)
	}

	// The ESM undersimulates intensity and projects a 15% increase.
	obs := lognorm(3.0, 0.5)
	ref := lognorm(2.5, 0.4)
	fut := lognorm(2.5+0.14, 0.4)

	identity := lognorm(2.8, 0.45)

	return []domain.CorrectionRequest{
		{
			ID:        "demo-lognorm",
			Label:     "synthetic ESM RCP85",
			Family:    distribution.Spec{Name: distribution.NameLogNormal},
			Mode:      "ratio",
			Observed:  domain.SampleSpec{Values: obs},
			Reference: domain.SampleSpec{Values: ref},
			Future:    domain.SampleSpec{Values: fut},
		},
		{
			ID:        "identity",
			Label:     "future equals reference",
			Family:    distribution.Spec{Name: distribution.NameLogNormal},
			Observed:  domain.SampleSpec{Values: obs},
			Reference: domain.SampleSpec{Values: identity},
			Future:    domain.SampleSpec{Values: identity},
		},
		{
			ID:        "demo-additive",
			Family:    distribution.Spec{Name: distribution.NameNormal},
			Mode:      "additive",
			Observed:  domain.SampleSpec{Values: normal(20, 5)},
			Reference: domain.SampleSpec{Values: normal(15, 4)},
			Future:    domain.SampleSpec{Values: normal(18, 4)},
		},
		{
			ID:        "demo-tracks",
			Label:     "track-derived LMI",
			Family:    distribution.Spec{Name: distribution.NameWeibull},
			Observed:  domain.SampleSpec{Points: tracks(rng, "obs", n/4, 25, 12)},
			Reference: domain.SampleSpec{Points: tracks(rng, "ref", n/4, 18, 8)},
			Future:    domain.SampleSpec{Points: tracks(rng, "fut", n/4, 21, 9)},
		},
	}
}

// tracks builds count synthetic three-fix tracks of 48 hours each, with a
// peak deficit drawn from a normal distribution and floored at 1 hPa.
func tracks(rng *rand.Rand, prefix string, count int, mean, sd float64) []domain.TrackPoint {
	peak := distuv.Normal{Mu: mean, Sigma: sd, Src: rng}
	points := make([]domain.TrackPoint, 0, 3*count)
	for i := range count {
		id := fmt.Sprintf("%s-%03d", prefix, i)
		start := trackStart.AddDate(i%20, 0, i)
		lmi := max(peak.Rand(), 1)
		lon, lat := 60+rng.Float64()*60, -30+rng.Float64()*20
		for j, frac := range []float64{0.3, 1, 0.5} {
			points = append(points, domain.TrackPoint{
				TrackID: id,
				Time:    start.Add(time.Duration(24*j) * time.Hour),
				Lon:     lon + float64(j),
				Lat:     lat - 0.5*float64(j),
				POCI:    1005,
				PMin:    1005 - frac*lmi,
			})
		}
	}
	return points
}

func sample(d distuv.Rander, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
