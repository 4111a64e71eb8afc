package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/domain"
	"github.com/couchcryptid/tc-bias-correction/internal/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
)

// ErrInvalidRequest marks requests that cannot be corrected as submitted:
// malformed JSON, unknown family or mode, or ambiguous samples.
var ErrInvalidRequest = errors.New("invalid correction request")

// Error kinds reported by ErrorKind.
const (
	KindInvalidInput   = "invalid_input"
	KindInvalidRequest = "invalid_request"
	KindFit            = "fit"
	KindNumericDomain  = "numeric_domain"
	KindCanceled       = "canceled"
	KindOther          = "other"
)

// ErrorKind classifies a correction error for metrics and HTTP status codes.
func ErrorKind(err error) string {
	var inputErr *qdm.InvalidInputError
	var fitErr *qdm.FitError
	var domainErr *qdm.NumericDomainError
	switch {
	case errors.As(err, &inputErr):
		return KindInvalidInput
	case errors.As(err, &fitErr):
		return KindFit
	case errors.As(err, &domainErr):
		return KindNumericDomain
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, qdm.ErrInvalidOption):
		return KindInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindOther
	}
}

// Defaults fill in request fields left unset.
type Defaults struct {
	Family string
	Mode   qdm.Mode
	Clip   float64
}

// FitCache wraps a family so repeated fits of the same sample are reused.
type FitCache interface {
	Wrap(spec distribution.Spec, family qdm.Family) qdm.Family
}

// Corrector runs quantile delta mapping for correction requests. It
// implements Transformer for the Kafka pipeline and is called directly by the
// HTTP adapter.
type Corrector struct {
	defaults Defaults
	cache    FitCache
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewCorrector creates a Corrector. Pass a nil cache to fit every sample.
func NewCorrector(defaults Defaults, cache FitCache, logger *slog.Logger, metrics *observability.Metrics) *Corrector {
	if defaults.Family == "" {
		defaults.Family = distribution.NameLogNormal
	}
	if defaults.Clip == 0 {
		defaults.Clip = qdm.DefaultClip
	}
	return &Corrector{
		defaults: defaults,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
	}
}

// Transform parses a source message, corrects it and serializes the result.
func (c *Corrector) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	res, err := c.Correct(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("request %s: %w", req.ID, err)
	}
	return domain.SerializeResult(res)
}

// Correct resolves the request's samples and runs the mapping.
func (c *Corrector) Correct(ctx context.Context, req domain.CorrectionRequest) (domain.CorrectionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CorrectionResult{}, err
	}

	spec := req.Family
	if spec.Name == "" {
		spec.Name = c.defaults.Family
	}
	family, err := distribution.New(spec)
	if err != nil {
		return domain.CorrectionResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if c.cache != nil {
		family = c.cache.Wrap(spec, family)
	}

	mode := c.defaults.Mode
	if req.Mode != "" {
		if mode, err = qdm.ParseMode(req.Mode); err != nil {
			return domain.CorrectionResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	clip := c.defaults.Clip
	if req.Clip != 0 {
		clip = req.Clip
	}

	obs, ref, fut, err := req.Samples()
	if err != nil {
		return domain.CorrectionResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	c.metrics.SampleSize.WithLabelValues(qdm.SampleObserved).Observe(float64(len(obs)))
	c.metrics.SampleSize.WithLabelValues(qdm.SampleReference).Observe(float64(len(ref)))
	c.metrics.SampleSize.WithLabelValues(qdm.SampleFuture).Observe(float64(len(fut)))

	logger := c.logger.With("request_id", req.ID)
	mapper := qdm.NewMapper(family,
		qdm.WithMode(mode),
		qdm.WithClip(clip),
		qdm.WithTrace(req.Trace),
		qdm.WithLogger(logger),
	)

	start := time.Now()
	res, err := mapper.Correct(obs, ref, fut)
	if err != nil {
		return domain.CorrectionResult{}, err
	}
	elapsed := time.Since(start)
	c.metrics.CorrectionDuration.WithLabelValues(family.Name(), mode.String()).Observe(elapsed.Seconds())

	diag, err := domain.Diagnose(family, res, obs, ref, fut)
	if err != nil {
		return domain.CorrectionResult{}, err
	}

	logger.Debug("correction complete",
		"family", family.Name(),
		"mode", mode.String(),
		"n_future", len(fut),
		"duration", elapsed,
	)
	return domain.NewCorrectionResult(req, family.Name(), mode, res, diag), nil
}
