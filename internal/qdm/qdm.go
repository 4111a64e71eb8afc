package qdm

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// DefaultClip is the default probability clip applied before inverting a CDF.
const DefaultClip = 1e-6

// Mode selects how the quantile delta is expressed.
type Mode int

const (
	// Ratio expresses the delta multiplicatively (fut / F_ref⁻¹).
	Ratio Mode = iota
	// Additive expresses the delta as a difference (fut − F_ref⁻¹).
	Additive
)

func (m Mode) String() string {
	switch m {
	case Ratio:
		return "ratio"
	case Additive:
		return "additive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "ratio" or "additive" (case-insensitive) into a Mode.
// An empty string selects Ratio.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ratio", "multiplicative":
		return Ratio, nil
	case "additive":
		return Additive, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidOption, s)
	}
}

type options struct {
	mode   Mode
	clip   float64
	trace  float64
	logger *slog.Logger
}

// Option configures a Mapper.
type Option func(*options)

// WithMode selects ratio or additive correction.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithClip sets the probability clip eps; ranks are clamped to [eps, 1-eps].
func WithClip(eps float64) Option {
	return func(o *options) { o.clip = eps }
}

// WithTrace sets the ratio-mode trace threshold. Corrected values below it
// are reported as exact zeros. Zero disables the threshold.
func WithTrace(threshold float64) Option {
	return func(o *options) { o.trace = threshold }
}

// WithLogger attaches a logger that receives fitted parameters at debug
// level. A nil logger keeps the mapper silent.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Result is the outcome of one correction.
type Result struct {
	// Future is the bias-corrected future sample, aligned with the input.
	Future []float64
	// Reference is the reference sample quantile-mapped onto the observed
	// distribution, aligned with the input reference sample.
	Reference []float64

	Observed     Params
	ReferenceFit Params
	FutureFit    Params
}

// Mapper applies quantile delta mapping with a fixed family and options.
// A Mapper holds no mutable state and may be shared between goroutines.
type Mapper struct {
	family Family
	opts   options
}

// NewMapper returns a Mapper for the given family.
func NewMapper(family Family, opts ...Option) *Mapper {
	o := options{mode: Ratio, clip: DefaultClip}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return &Mapper{family: family, opts: o}
}

// Correct bias-corrects future against observed, preserving the quantile
// change between reference and future. It is shorthand for
// NewMapper(family, opts...).Correct and returns only the corrected future.
func Correct(observed, reference, future []float64, family Family, opts ...Option) ([]float64, error) {
	res, err := NewMapper(family, opts...).Correct(observed, reference, future)
	if err != nil {
		return nil, err
	}
	return res.Future, nil
}

// Correct runs the mapping. The inputs are never modified.
func (m *Mapper) Correct(observed, reference, future []float64) (Result, error) {
	if err := m.checkOptions(); err != nil {
		return Result{}, err
	}

	samples := []struct {
		name   string
		values []float64
	}{
		{SampleObserved, observed},
		{SampleReference, reference},
		{SampleFuture, future},
	}
	for _, s := range samples {
		if err := validateSample(s.name, s.values); err != nil {
			return Result{}, err
		}
	}

	pObs, err := m.fit(SampleObserved, observed)
	if err != nil {
		return Result{}, err
	}
	pRef, err := m.fit(SampleReference, reference)
	if err != nil {
		return Result{}, err
	}
	pFut, err := m.fit(SampleFuture, future)
	if err != nil {
		return Result{}, err
	}

	corrected := make([]float64, len(future))
	for i, x := range future {
		u, err := m.rank(SampleFuture, i, x, pFut)
		if err != nil {
			return Result{}, err
		}
		invRef, err := m.invert(SampleReference, i, u, pRef)
		if err != nil {
			return Result{}, err
		}
		invObs, err := m.invert(SampleObserved, i, u, pObs)
		if err != nil {
			return Result{}, err
		}

		var y float64
		switch m.opts.mode {
		case Ratio:
			if invRef == 0 {
				return Result{}, &NumericDomainError{
					Sample: SampleReference, Op: "delta", Index: i, Value: invRef,
					Reason: "reference quantile is zero",
				}
			}
			y = m.applyTrace(invObs * (x / invRef))
		case Additive:
			y = invObs + (x - invRef)
		}
		if isNonFinite(y) {
			return Result{}, &NumericDomainError{
				Sample: SampleFuture, Op: "delta", Index: i, Value: y,
				Reason: "corrected value is not finite",
			}
		}
		corrected[i] = y
	}

	mappedRef := make([]float64, len(reference))
	for i, x := range reference {
		u, err := m.rank(SampleReference, i, x, pRef)
		if err != nil {
			return Result{}, err
		}
		v, err := m.invert(SampleObserved, i, u, pObs)
		if err != nil {
			return Result{}, err
		}
		if m.opts.mode == Ratio {
			v = m.applyTrace(v)
		}
		mappedRef[i] = v
	}

	return Result{
		Future:       corrected,
		Reference:    mappedRef,
		Observed:     pObs,
		ReferenceFit: pRef,
		FutureFit:    pFut,
	}, nil
}

func (m *Mapper) checkOptions() error {
	if m.family == nil {
		return fmt.Errorf("%w: nil distribution family", ErrInvalidOption)
	}
	if m.opts.mode != Ratio && m.opts.mode != Additive {
		return fmt.Errorf("%w: unknown mode %v", ErrInvalidOption, m.opts.mode)
	}
	if !(m.opts.clip > 0 && m.opts.clip < 0.5) {
		return fmt.Errorf("%w: clip %g outside (0, 0.5)", ErrInvalidOption, m.opts.clip)
	}
	if m.opts.trace < 0 || isNonFinite(m.opts.trace) {
		return fmt.Errorf("%w: trace %g must be finite and non-negative", ErrInvalidOption, m.opts.trace)
	}
	return nil
}

func (m *Mapper) fit(name string, sample []float64) (Params, error) {
	p, err := m.family.Fit(sample)
	if err != nil {
		return Params{}, &FitError{Sample: name, Family: m.family.Name(), Err: err}
	}
	if isNonFinite(p.Shape) || isNonFinite(p.Loc) || isNonFinite(p.Scale) {
		return Params{}, &FitError{
			Sample: name, Family: m.family.Name(),
			Err: fmt.Errorf("non-finite parameters %+v", p),
		}
	}
	m.opts.logger.Debug("fitted distribution",
		"sample", name,
		"family", m.family.Name(),
		"n", len(sample),
		"shape", p.Shape,
		"loc", p.Loc,
		"scale", p.Scale,
	)
	return p, nil
}

// rank returns the clipped CDF position of x.
func (m *Mapper) rank(name string, i int, x float64, p Params) (float64, error) {
	u := m.family.CDF(x, p)
	if isNonFinite(u) {
		return 0, &NumericDomainError{Sample: name, Op: "cdf", Index: i, Value: u, Reason: "cdf is not finite"}
	}
	if u < 0 || u > 1 {
		return 0, &NumericDomainError{Sample: name, Op: "cdf", Index: i, Value: u, Reason: "cdf outside [0, 1]"}
	}
	return clamp(u, m.opts.clip, 1-m.opts.clip), nil
}

func (m *Mapper) invert(name string, i int, u float64, p Params) (float64, error) {
	if !(u >= 0 && u <= 1) {
		return 0, &NumericDomainError{Sample: name, Op: "ppf", Index: i, Value: u, Reason: "probability outside [0, 1]"}
	}
	q := m.family.Quantile(u, p)
	if isNonFinite(q) {
		return 0, &NumericDomainError{Sample: name, Op: "ppf", Index: i, Value: q, Reason: "quantile is not finite"}
	}
	return q, nil
}

func (m *Mapper) applyTrace(v float64) float64 {
	if m.opts.trace > 0 && v < m.opts.trace {
		return 0
	}
	return v
}

func validateSample(name string, values []float64) error {
	if len(values) == 0 {
		return &InvalidInputError{Sample: name, Index: -1, Reason: "sample is empty"}
	}
	for i, v := range values {
		if math.IsNaN(v) {
			return &InvalidInputError{Sample: name, Index: i, Reason: "NaN value"}
		}
		if math.IsInf(v, 0) {
			return &InvalidInputError{Sample: name, Index: i, Reason: "infinite value"}
		}
	}
	return nil
}

func isNonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
