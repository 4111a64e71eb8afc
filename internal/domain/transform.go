package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/diagnostics"
	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"github.com/google/uuid"
)

// ErrAmbiguousSample is returned when a sample carries both values and tracks.
var ErrAmbiguousSample = errors.New("sample has both values and tracks")

// ParseRequest decodes a JSON correction request.
func ParseRequest(data []byte) (CorrectionRequest, error) {
	var req CorrectionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return CorrectionRequest{}, fmt.Errorf("parse correction request: %w", err)
	}
	return req, nil
}

// ParseRawEvent decodes a source message into a CorrectionRequest. A request
// without an ID takes the message key, or a fresh UUID when the key is empty.
func ParseRawEvent(raw RawEvent) (CorrectionRequest, error) {
	req, err := ParseRequest(raw.Value)
	if err != nil {
		return CorrectionRequest{}, err
	}
	if req.ID == "" {
		if len(raw.Key) > 0 {
			req.ID = string(raw.Key)
		} else {
			req.ID = uuid.NewString()
		}
	}
	return req, nil
}

// Resolve returns the sample values. Track points are filtered (with
// DefaultTrackFilter when no filter is given) and reduced to one lifetime
// maximum per track. The returned slice never aliases s.Values.
func (s SampleSpec) Resolve() ([]float64, error) {
	if len(s.Values) > 0 && len(s.Points) > 0 {
		return nil, ErrAmbiguousSample
	}
	if len(s.Points) > 0 {
		filter := DefaultTrackFilter()
		if s.Filter != nil {
			filter = *s.Filter
		}
		return LifetimeMaxima(FilterTracks(s.Points, filter)), nil
	}
	return append([]float64(nil), s.Values...), nil
}

// Samples resolves the observed, reference and future samples.
func (r CorrectionRequest) Samples() (observed, reference, future []float64, err error) {
	if observed, err = r.Observed.Resolve(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s sample: %w", qdm.SampleObserved, err)
	}
	if reference, err = r.Reference.Resolve(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s sample: %w", qdm.SampleReference, err)
	}
	if future, err = r.Future.Resolve(); err != nil {
		return nil, nil, nil, fmt.Errorf("%s sample: %w", qdm.SampleFuture, err)
	}
	return observed, reference, future, nil
}

// Diagnose summarises the inputs and the corrected future sample of res,
// and evaluates the fitted densities of family at the DefaultEdges bin
// centres.
func Diagnose(family qdm.Family, res qdm.Result, observed, reference, future []float64) (Diagnostics, error) {
	corrected := res.Future
	var d Diagnostics
	var err error
	if d.Observed, err = diagnostics.Summarize(observed); err != nil {
		return Diagnostics{}, fmt.Errorf("summarize observed: %w", err)
	}
	if d.Reference, err = diagnostics.Summarize(reference); err != nil {
		return Diagnostics{}, fmt.Errorf("summarize reference: %w", err)
	}
	if d.Future, err = diagnostics.Summarize(future); err != nil {
		return Diagnostics{}, fmt.Errorf("summarize future: %w", err)
	}
	if d.Corrected, err = diagnostics.Summarize(corrected); err != nil {
		return Diagnostics{}, fmt.Errorf("summarize corrected: %w", err)
	}
	if d.Reference.Q99 != 0 {
		d.ChangeFactorQ99 = d.Future.Q99 / d.Reference.Q99
	}
	d.CorrectedDensity = diagnostics.Histogram(corrected, diagnostics.DefaultEdges)
	if d.KSVsObserved, err = diagnostics.KolmogorovSmirnov(corrected, observed); err != nil {
		return Diagnostics{}, fmt.Errorf("ks test: %w", err)
	}

	centres := diagnostics.Centres(diagnostics.DefaultEdges)
	d.FittedDensity = FittedDensity{
		Centres:   centres,
		Observed:  evalPDF(family, res.Observed, centres),
		Reference: evalPDF(family, res.ReferenceFit, centres),
		Future:    evalPDF(family, res.FutureFit, centres),
	}
	return d, nil
}

func evalPDF(family qdm.Family, p qdm.Params, xs []float64) Series {
	out := make(Series, len(xs))
	for i, x := range xs {
		out[i] = family.PDF(x, p)
	}
	return out
}

// NewCorrectionResult assembles the published result and stamps it with the
// package clock.
func NewCorrectionResult(req CorrectionRequest, family string, mode qdm.Mode, res qdm.Result, diag Diagnostics) CorrectionResult {
	return CorrectionResult{
		ID:              req.ID,
		Label:           req.Label,
		Family:          family,
		Mode:            mode.String(),
		Corrected:       Series(res.Future),
		ReferenceMapped: Series(res.Reference),
		Fits: Fits{
			Observed:  res.Observed,
			Reference: res.ReferenceFit,
			Future:    res.FutureFit,
		},
		Diagnostics: diag,
		ProcessedAt: clock.Now().UTC(),
	}
}

// SerializeResult marshals a CorrectionResult into an OutputEvent keyed by the
// request ID.
func SerializeResult(res CorrectionResult) (OutputEvent, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize correction result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(res.ID),
		Value: data,
		Headers: map[string]string{
			"family":       res.Family,
			"mode":         res.Mode,
			"processed_at": res.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
