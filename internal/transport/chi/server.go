// Package chi serves a development retriever over HTTP: buffered JSON and
// server-sent event execution, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/domain/event"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
	logpkg "github.com/mixpeek/searchkit/internal/logger"
	"github.com/mixpeek/searchkit/internal/metrics"
	"github.com/mixpeek/searchkit/internal/transport/retriever"
	"github.com/mixpeek/searchkit/internal/transport/sse"
	healthuc "github.com/mixpeek/searchkit/internal/usecase/health"
	"github.com/mixpeek/searchkit/internal/usecase/pipeline"
)

// Route paths.
const (
	ExecutePath     = "/v1/public/retrievers/execute"
	ExecuteSlugPath = "/v1/public/retrievers/{slug}/execute"
)

// maxRequestBody bounds an execute request body.
const maxRequestBody = 1 << 20

// Error codes.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "retriever_not_found"
	codeExecution    = "execution_failed"
	codeInternal     = "internal_error"
)

// errorResponse mirrors the retriever API error body; clients read "detail".
type errorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// executeResponse is the buffered execute body.
type executeResponse struct {
	Results  []document.Document `json:"results"`
	AIAnswer *outcome.AIAnswer   `json:"ai_answer,omitempty"`
	Metadata outcome.Metadata    `json:"metadata"`
}

// Executor runs one retriever execution.
type Executor interface {
	Execute(ctx context.Context, q pipeline.Query, sink pipeline.Sink) (pipeline.Result, error)
}

// Server implements the retriever execute API.
type Server struct {
	exec   Executor
	health *healthuc.Service
	slugs  map[string]struct{}
	logger *zap.Logger
}

// NewServer creates an HTTP API server. An empty slugs list accepts any slug.
func NewServer(exec Executor, health *healthuc.Service, slugs []string, logger *zap.Logger) *Server {
	s := &Server{
		exec:   exec,
		health: health,
		logger: logger,
	}
	if len(slugs) > 0 {
		s.slugs = make(map[string]struct{}, len(slugs))
		for _, slug := range slugs {
			s.slugs[slug] = struct{}{}
		}
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post(ExecutePath, s.Execute)
	r.Post(ExecuteSlugPath, s.ExecuteSlug)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Execute handles POST /v1/public/retrievers/execute.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r)
}

// ExecuteSlug handles POST /v1/public/retrievers/{slug}/execute.
func (s *Server) ExecuteSlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if s.slugs != nil {
		if _, ok := s.slugs[slug]; !ok {
			writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("retriever %q not found", slug))
			return
		}
	}
	s.execute(w, r)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var body retriever.ExecuteBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	text, _ := body.Inputs["query"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "inputs.query is required")
		return
	}
	limit := body.Settings.Limit
	if limit < 1 {
		limit = request.DefaultLimit
	}
	q := pipeline.Query{Text: text, Limit: limit, Inputs: body.Inputs}

	if body.Stream {
		s.stream(w, r, q)
		return
	}
	s.buffered(w, r, q)
}

func (s *Server) buffered(w http.ResponseWriter, r *http.Request, q pipeline.Query) {
	log := logpkg.FromContext(r.Context())

	res, err := s.exec.Execute(r.Context(), q, nil)
	if err != nil {
		metrics.ExecutionsTotal.WithLabelValues("buffered", "error").Inc()
		if errors.Is(err, pipeline.ErrStageFailed) {
			writeError(w, http.StatusInternalServerError, codeExecution, err.Error())
			return
		}
		if r.Context().Err() == nil {
			log.Error("execution failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		}
		return
	}
	metrics.ExecutionsTotal.WithLabelValues("buffered", "ok").Inc()

	total := len(res.Documents)
	took := float64(res.Took.Microseconds()) / 1000
	resp := executeResponse{
		Results: res.Documents,
		Metadata: outcome.Metadata{
			Total:  &total,
			TookMS: &took,
			Extra:  map[string]any{"execution_id": res.ExecutionID},
		},
	}
	if resp.Results == nil {
		resp.Results = []document.Document{}
	}
	if res.Answer != "" {
		resp.AIAnswer = &outcome.AIAnswer{Answer: res.Answer}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, q pipeline.Query) {
	log := logpkg.FromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher}
	_, err := s.exec.Execute(r.Context(), q, sink)
	switch {
	case err == nil:
		metrics.ExecutionsTotal.WithLabelValues("stream", "ok").Inc()
	case errors.Is(err, pipeline.ErrStageFailed):
		metrics.ExecutionsTotal.WithLabelValues("stream", "error").Inc()
	default:
		metrics.ExecutionsTotal.WithLabelValues("stream", "aborted").Inc()
		if r.Context().Err() == nil {
			log.Warn("stream aborted", zap.Error(err))
		}
		return
	}
	_ = sink.done()
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// sseSink writes pipeline progress as data frames.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Event(e event.Event) error {
	payload, err := event.Marshal(e)
	if err != nil {
		return err
	}
	return s.frame(payload)
}

func (s *sseSink) AnswerChunk(text string) error {
	payload, err := json.Marshal(map[string]string{"answer_chunk": text})
	if err != nil {
		return fmt.Errorf("marshal answer chunk: %w", err)
	}
	return s.frame(payload)
}

func (s *sseSink) done() error {
	return s.frame([]byte(sse.DoneSentinel))
}

func (s *sseSink) frame(payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "%s%s\n\n", sse.FramePrefix, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{
		Code:   code,
		Detail: detail,
	})
}
