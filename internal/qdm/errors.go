package qdm

import (
	"errors"
	"fmt"
)

// Sample names used in error values and log records.
const (
	SampleObserved  = "observed"
	SampleReference = "reference"
	SampleFuture    = "future"
)

// ErrInvalidOption is returned when the mapper is misconfigured.
var ErrInvalidOption = errors.New("qdm: invalid option")

// InvalidInputError reports an empty sample or a sample holding an undefined
// value. Index is -1 when the problem is not tied to a single element.
type InvalidInputError struct {
	Sample string
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("qdm: invalid %s sample: %s", e.Sample, e.Reason)
	}
	return fmt.Sprintf("qdm: invalid %s sample: %s at index %d", e.Sample, e.Reason, e.Index)
}

// FitError reports a family that could not be fitted to one of the samples.
type FitError struct {
	Sample string
	Family string
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("qdm: fit %s to %s sample: %v", e.Family, e.Sample, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// NumericDomainError reports a CDF or inverse-CDF evaluation that left the
// valid numeric domain even after boundary clipping.
type NumericDomainError struct {
	Sample string
	Op     string // "cdf", "ppf" or "delta"
	Index  int
	Value  float64
	Reason string
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("qdm: %s on %s sample at index %d: %s (value %g)",
		e.Op, e.Sample, e.Index, e.Reason, e.Value)
}
