// Command validate checks the correction fixtures written by genmock: every
// request resolves to usable samples, every result has the expected shape,
// re-running the Corrector reproduces the stored results, and the
// identity request maps the future exactly like the reference.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -requests data/mock/correction_requests.json \
//	  -results data/mock/correction_results.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/diagnostics"
	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/domain"
	"github.com/couchcryptid/tc-bias-correction/internal/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/floats"
)

// fixtureTime matches the frozen clock used by genmock.
var fixtureTime = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

const reproduceTol = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	requestsPath := flag.String("requests", "", "path to correction request fixture")
	resultsPath := flag.String("results", "", "path to correction result fixture")
	flag.Parse()

	if *requestsPath == "" || *resultsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*requestsPath, *resultsPath); code != 0 {
		os.Exit(code)
	}
}

func run(requestsPath, resultsPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	fmt.Println("=== Correction Fixture Validation ===")
	fmt.Println()

	requests, err := loadJSON[domain.CorrectionRequest](requestsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load requests: %v\n", err)
		return 1
	}
	results, err := loadJSON[domain.CorrectionResult](resultsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load results: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRequests(requests),
		validateResultShape(requests, results),
		validateReproduction(requests, results),
		validateIdentity(results),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Fixtures: %d requests, %d results\n", len(requests), len(results))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Requests ──

func validateRequests(requests []domain.CorrectionRequest) *phase {
	p := &phase{name: "Phase 1: Requests (samples resolve)"}

	seen := map[string]bool{}
	for i := range requests {
		req := &requests[i]
		if req.ID == "" {
			p.errorf("request %d: missing id", i)
		} else if seen[req.ID] {
			p.errorf("request %d: duplicate id %q", i, req.ID)
		}
		seen[req.ID] = true

		if req.Family.Name != "" && !distribution.IsKnown(req.Family.Name) {
			p.errorf("%s: unknown family %q", req.ID, req.Family.Name)
		}

		obs, ref, fut, err := req.Samples()
		if err != nil {
			p.errorf("%s: %v", req.ID, err)
			continue
		}
		for _, s := range []struct {
			name   string
			values []float64
		}{{"observed", obs}, {"reference", ref}, {"future", fut}} {
			if len(s.values) == 0 {
				p.errorf("%s: %s sample is empty", req.ID, s.name)
			}
			for j, v := range s.values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					p.errorf("%s: %s[%d] is not finite", req.ID, s.name, j)
				}
			}
		}
	}
	return p
}

// ── Phase 2: Result shape ──

func validateResultShape(requests []domain.CorrectionRequest, results []domain.CorrectionResult) *phase {
	p := &phase{name: "Phase 2: Result Shape"}

	if len(requests) != len(results) {
		p.errorf("count: %d requests, %d results", len(requests), len(results))
		return p
	}

	for i := range results {
		req, res := &requests[i], &results[i]
		if res.ID != req.ID {
			p.errorf("result %d: id %q does not match request %q", i, res.ID, req.ID)
			continue
		}
		_, ref, fut, err := req.Samples()
		if err != nil {
			p.errorf("%s: %v", req.ID, err)
			continue
		}
		if len(res.Corrected) != len(fut) {
			p.errorf("%s: %d corrected values for %d future values", res.ID, len(res.Corrected), len(fut))
		}
		if len(res.ReferenceMapped) != len(ref) {
			p.errorf("%s: %d mapped reference values for %d reference values", res.ID, len(res.ReferenceMapped), len(ref))
		}
		for j, v := range res.Corrected {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				p.errorf("%s: corrected[%d] is not finite", res.ID, j)
			}
		}
		if !distribution.IsKnown(res.Family) {
			p.errorf("%s: unknown family %q", res.ID, res.Family)
		}
		if res.Mode != "ratio" && res.Mode != "additive" {
			p.errorf("%s: unknown mode %q", res.ID, res.Mode)
		}
		if !res.ProcessedAt.Equal(fixtureTime) {
			p.errorf("%s: processed_at %s, want %s", res.ID, res.ProcessedAt.Format(time.RFC3339), fixtureTime.Format(time.RFC3339))
		}
		if want := len(diagnostics.DefaultEdges) - 1; len(res.Diagnostics.CorrectedDensity) != want {
			p.errorf("%s: %d density bins, want %d", res.ID, len(res.Diagnostics.CorrectedDensity), want)
		}
		if ks := res.Diagnostics.KSVsObserved; ks.PValue < 0 || ks.PValue > 1 {
			p.errorf("%s: KS p-value %g outside [0, 1]", res.ID, ks.PValue)
		}
	}
	return p
}

// ── Phase 3: Reproduction ──
// Re-runs every request and compares with the stored result.

func validateReproduction(requests []domain.CorrectionRequest, results []domain.CorrectionResult) *phase {
	p := &phase{name: "Phase 3: Reproduction (re-run corrector)"}

	stored := make(map[string]*domain.CorrectionResult, len(results))
	for i := range results {
		stored[results[i].ID] = &results[i]
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	corrector := pipeline.NewCorrector(pipeline.Defaults{}, nil, logger, observability.NewMetricsForTesting())

	for i := range requests {
		req := requests[i]
		want, ok := stored[req.ID]
		if !ok {
			p.errorf("%s: no stored result", req.ID)
			continue
		}
		got, err := corrector.Correct(context.Background(), req)
		if err != nil {
			p.errorf("%s: %v", req.ID, err)
			continue
		}
		if got.Family != want.Family || got.Mode != want.Mode {
			p.errorf("%s: family/mode %s/%s, stored %s/%s", req.ID, got.Family, got.Mode, want.Family, want.Mode)
		}
		if !sameSeries(got.Corrected, want.Corrected) {
			p.errorf("%s: corrected values differ from stored result", req.ID)
		}
		if !sameSeries(got.ReferenceMapped, want.ReferenceMapped) {
			p.errorf("%s: mapped reference differs from stored result", req.ID)
		}
	}
	return p
}

func sameSeries(a, b []float64) bool {
	return len(a) == len(b) && floats.EqualApprox(a, b, reproduceTol)
}

// ── Phase 4: Identity ──
// When future equals reference the corrected future must equal the mapped
// reference, element by element.

func validateIdentity(results []domain.CorrectionResult) *phase {
	p := &phase{name: "Phase 4: Identity (future = reference)"}

	for i := range results {
		res := &results[i]
		if res.ID != "identity" {
			continue
		}
		if len(res.Corrected) != len(res.ReferenceMapped) {
			p.errorf("%s: length mismatch %d vs %d", res.ID, len(res.Corrected), len(res.ReferenceMapped))
			return p
		}
		for j := range res.Corrected {
			if math.Abs(res.Corrected[j]-res.ReferenceMapped[j]) > 1e-6*math.Max(1, math.Abs(res.ReferenceMapped[j])) {
				p.errorf("%s[%d]: corrected %g, mapped reference %g", res.ID, j, res.Corrected[j], res.ReferenceMapped[j])
			}
		}
		return p
	}
	p.errorf("no identity result in fixture")
	return p
}
