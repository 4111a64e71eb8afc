package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/distribution"
	"github.com/couchcryptid/tc-bias-correction/internal/domain"
	"github.com/couchcryptid/tc-bias-correction/internal/observability"
	"github.com/couchcryptid/tc-bias-correction/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxRequestBytes   = 16 << 20
	correctionTimeout = 30 * time.Second
)

// Corrector runs a single correction request.
type Corrector interface {
	Correct(ctx context.Context, req domain.CorrectionRequest) (domain.CorrectionResult, error)
}

// Server exposes health, readiness, metrics and the synchronous correction API.
type Server struct {
	httpServer *http.Server
	corrector  Corrector
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1 routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, corrector Corrector, metrics *observability.Metrics, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: correctionTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		corrector: corrector,
		metrics:   metrics,
		logger:    logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/families", s.handleFamilies)
		r.Post("/corrections", s.handleCorrection)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleFamilies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"families": distribution.Names()})
}

func (s *Server) handleCorrection(w http.ResponseWriter, r *http.Request) {
	const route = "/v1/corrections"

	var req domain.CorrectionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, route, http.StatusBadRequest, pipeline.KindInvalidRequest, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), correctionTimeout)
	defer cancel()

	res, err := s.corrector.Correct(ctx, req)
	if err != nil {
		kind := pipeline.ErrorKind(err)
		s.logger.Warn("correction failed",
			"request_id", req.ID,
			"http_request_id", middleware.GetReqID(r.Context()),
			"kind", kind,
			"error", err,
		)
		s.writeError(w, route, statusForKind(kind), kind, err)
		return
	}

	s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(http.StatusOK)).Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeError(w http.ResponseWriter, route string, status int, kind string, err error) {
	s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  kind,
	})
}

// statusForKind maps caller mistakes to 400 and statistically unusable
// samples to 422.
func statusForKind(kind string) int {
	switch kind {
	case pipeline.KindInvalidInput, pipeline.KindInvalidRequest:
		return http.StatusBadRequest
	case pipeline.KindFit, pipeline.KindNumericDomain:
		return http.StatusUnprocessableEntity
	case pipeline.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
