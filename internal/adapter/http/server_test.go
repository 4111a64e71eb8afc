package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/tc-bias-correction/internal/adapter/http"
	"github.com/couchcryptid/tc-bias-correction/internal/domain"
	"github.com/couchcryptid/tc-bias-correction/internal/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/pipeline"
	"github.com/couchcryptid/tc-bias-correction/internal/qdm"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockCorrector struct {
	got domain.CorrectionRequest
	res domain.CorrectionResult
	err error
}

func (m *mockCorrector) Correct(_ context.Context, req domain.CorrectionRequest) (domain.CorrectionResult, error) {
	m.got = req
	if m.err != nil {
		return domain.CorrectionResult{}, m.err
	}
	res := m.res
	res.ID = req.ID
	return res, nil
}

func newTestServer(readyErr error, corrector httpadapter.Corrector) (*httpadapter.Server, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, corrector, metrics, slog.Default()), metrics
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(nil, &mockCorrector{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(nil, &mockCorrector{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(fmt.Errorf("not ready yet"), &mockCorrector{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil, &mockCorrector{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestFamiliesEndpoint(t *testing.T) {
	srv, _ := newTestServer(nil, &mockCorrector{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/families", nil)

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["families"], "lognorm")
	assert.Contains(t, body["families"], "genpareto")
}

func TestCorrection_Success(t *testing.T) {
	corrector := &mockCorrector{res: domain.CorrectionResult{
		Family:    "lognorm",
		Mode:      "ratio",
		Corrected: domain.Series{10, 20},
	}}
	srv, metrics := newTestServer(nil, corrector)

	body := `{"id":"req-1","observed":{"values":[1,2]},"reference":{"values":[1,2]},"future":{"values":[1,2]}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/corrections", strings.NewReader(body))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-1", corrector.got.ID)

	var res domain.CorrectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "req-1", res.ID)
	assert.Equal(t, domain.Series{10, 20}, res.Corrected)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/v1/corrections", "200")), 0)
}

func TestCorrection_AssignsID(t *testing.T) {
	corrector := &mockCorrector{}
	srv, _ := newTestServer(nil, corrector)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/corrections", strings.NewReader(`{"observed":{"values":[1]}}`))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, corrector.got.ID)
}

func TestCorrection_MalformedBody(t *testing.T) {
	corrector := &mockCorrector{}
	srv, metrics := newTestServer(nil, corrector)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/corrections", bytes.NewBufferString("{not json"))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, pipeline.KindInvalidRequest, body["kind"])
	assert.NotEmpty(t, body["error"])
	assert.Empty(t, corrector.got.ID, "corrector should not be called")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/v1/corrections", "400")), 0)
}

func TestCorrection_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{
			name:   "invalid input",
			err:    &qdm.InvalidInputError{Sample: qdm.SampleFuture, Index: 3, Reason: "not finite"},
			status: http.StatusBadRequest,
			kind:   pipeline.KindInvalidInput,
		},
		{
			name:   "invalid request",
			err:    fmt.Errorf("%w: unknown family", pipeline.ErrInvalidRequest),
			status: http.StatusBadRequest,
			kind:   pipeline.KindInvalidRequest,
		},
		{
			name:   "fit failure",
			err:    &qdm.FitError{Sample: qdm.SampleObserved, Err: fmt.Errorf("degenerate")},
			status: http.StatusUnprocessableEntity,
			kind:   pipeline.KindFit,
		},
		{
			name:   "numeric domain",
			err:    &qdm.NumericDomainError{Sample: qdm.SampleObserved, Op: "ppf", Index: 0, Value: 0.5, Reason: "not finite"},
			status: http.StatusUnprocessableEntity,
			kind:   pipeline.KindNumericDomain,
		},
		{
			name:   "canceled",
			err:    context.Canceled,
			status: http.StatusServiceUnavailable,
			kind:   pipeline.KindCanceled,
		},
		{
			name:   "unexpected",
			err:    fmt.Errorf("boom"),
			status: http.StatusInternalServerError,
			kind:   pipeline.KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(nil, &mockCorrector{err: tt.err})
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/corrections", strings.NewReader(`{"id":"x"}`))

			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body["kind"])
		})
	}
}

func TestCorrection_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(nil, &mockCorrector{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/corrections", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
