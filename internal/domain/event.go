package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/tc-bias-correction/internal/diagnostics"
	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Series is a sample of pressure deficits on the wire. JSON null decodes to
// NaN, and NaN encodes as null, so missing values reach the mapper and are
// rejected there instead of silently becoming zero.
type Series []float64

func (s *Series) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(s)*8)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// SampleSpec supplies one sample either directly as values or as track
// points reduced to lifetime-maximum pressure deficits.
type SampleSpec struct {
	Values Series       `json:"values,omitempty"`
	Points []TrackPoint `json:"tracks,omitempty"`
	Filter *TrackFilter `json:"filter,omitempty"`
}

// CorrectionRequest asks for one quantile delta mapping run, typically one
// climate model and emissions scenario.
type CorrectionRequest struct {
	ID     string            `json:"id"`
	Label  string            `json:"label,omitempty"` // e.g. "CNRM-CM5Q RCP85"
	Family distribution.Spec `json:"family"`
	Mode   string            `json:"mode,omitempty"` // "ratio" or "additive"
	Trace  float64           `json:"trace,omitempty"`
	Clip   float64           `json:"clip,omitempty"`

	Observed  SampleSpec `json:"observed"`
	Reference SampleSpec `json:"reference"`
	Future    SampleSpec `json:"future"`
}

// Fits holds the parameters fitted to each input sample.
type Fits struct {
	Observed  qdm.Params `json:"observed"`
	Reference qdm.Params `json:"reference"`
	Future    qdm.Params `json:"future"`
}

// Diagnostics describes the inputs and output of a correction.
type Diagnostics struct {
	Observed  diagnostics.Summary `json:"observed"`
	Reference diagnostics.Summary `json:"reference"`
	Future    diagnostics.Summary `json:"future"`
	Corrected diagnostics.Summary `json:"corrected"`

	// ChangeFactorQ99 is Q_fut(0.99) / Q_ref(0.99) of the raw simulated samples.
	ChangeFactorQ99  float64              `json:"change_factor_q99"`
	CorrectedDensity []float64            `json:"corrected_density"`
	KSVsObserved     diagnostics.KSResult `json:"ks_vs_observed"`
	FittedDensity    FittedDensity        `json:"fitted_density"`
}

// FittedDensity holds the fitted PDFs of the input samples evaluated at
// Centres, for plotting against CorrectedDensity.
type FittedDensity struct {
	Centres   []float64 `json:"centres"`
	Observed  Series    `json:"observed"`
	Reference Series    `json:"reference"`
	Future    Series    `json:"future"`
}

// CorrectionResult is the outcome published for a CorrectionRequest.
type CorrectionResult struct {
	ID              string      `json:"id"`
	Label           string      `json:"label,omitempty"`
	Family          string      `json:"family"`
	Mode            string      `json:"mode"`
	Corrected       Series      `json:"corrected"`
	ReferenceMapped Series      `json:"reference_mapped"`
	Fits            Fits        `json:"fits"`
	Diagnostics     Diagnostics `json:"diagnostics"`
	ProcessedAt     time.Time   `json:"processed_at"`
}
