// Package server exposes the overlay pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz          liveness probe
//	POST /v1/overlay       merge station maps sent inline
//	GET  /v1/runs          list archived runs (?wafer=ID&limit=N)
//	GET  /v1/runs/{id}     fetch one archived run
//
// The server is a thin layer over [pipeline.Runner]; archiving and caching
// are whatever the runner was configured with.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/wafermap/pkg/buildinfo"
	"github.com/matzehuels/wafermap/pkg/errors"
	"github.com/matzehuels/wafermap/pkg/observability"
	"github.com/matzehuels/wafermap/pkg/overlay"
	"github.com/matzehuels/wafermap/pkg/pipeline"
	"github.com/matzehuels/wafermap/pkg/storage"
	"github.com/matzehuels/wafermap/pkg/wafer"
)

const (
	// maxBodyBytes bounds an overlay request including every source file.
	maxBodyBytes = 32 << 20

	// requestTimeout bounds a single request.
	requestTimeout = 60 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  storage.Store
	logger *log.Logger
}

// New creates a server. store may be nil, in which case the run endpoints
// answer 503.
func New(runner *pipeline.Runner, store storage.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: store, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/overlay", s.handleOverlay)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// observe fires HTTP hooks and logs each request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", dur)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// =============================================================================
// Overlay
// =============================================================================

type sourceRequest struct {
	Station string `json:"station"`
	Format  string `json:"format,omitempty"`
	Content string `json:"content"`
}

type overlayRequest struct {
	WaferID  string          `json:"wafer_id"`
	Name     string          `json:"name,omitempty"`
	Policy   string          `json:"policy,omitempty"`
	Priority map[string]int  `json:"priority,omitempty"`
	Order    []string        `json:"order,omitempty"`
	Formats  []string        `json:"formats,omitempty"`
	Sources  []sourceRequest `json:"sources"`
}

type overlayResponse struct {
	RunID     string                `json:"run_id,omitempty"`
	WaferID   string                `json:"wafer_id"`
	Name      string                `json:"name"`
	Policy    string                `json:"policy"`
	Order     []string              `json:"order"`
	Stats     wafer.Stats           `json:"stats"`
	Yield     string                `json:"yield"`
	Loads     []pipeline.SourceLoad `json:"loads"`
	Excluded  []overlay.Exclusion   `json:"excluded,omitempty"`
	Changes   overlay.ChangeTrace   `json:"changes"`
	Composite wafer.Grid            `json:"composite"`
	Artifacts map[string]string     `json:"artifacts"`
}

func (r overlayRequest) job() (pipeline.Job, error) {
	if len(r.Sources) == 0 {
		return pipeline.Job{}, errors.New(errors.ErrCodeInvalidInput, "sources cannot be empty")
	}
	priority := overlay.PriorityTable(r.Priority)
	if len(priority) == 0 {
		priority = overlay.PriorityFromOrder(r.Order)
	}
	if len(priority) == 0 {
		return pipeline.Job{}, errors.New(errors.ErrCodeInvalidPriority, "priority or order is required")
	}

	job := pipeline.Job{
		WaferID:  r.WaferID,
		Name:     r.Name,
		Priority: priority,
		Policy:   r.Policy,
		Formats:  r.Formats,
	}
	for _, src := range r.Sources {
		job.Sources = append(job.Sources, pipeline.SourceSpec{
			Station: src.Station,
			Format:  src.Format,
			Content: []byte(src.Content),
		})
	}
	return job, nil
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var req overlayRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return
	}
	job, err := req.job()
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), job)
	if err != nil {
		s.logger.Warn("overlay failed", "wafer", req.WaferID, "error", err)
		writeError(w, err)
		return
	}

	resp := overlayResponse{
		RunID:     res.RunID,
		WaferID:   res.WaferID,
		Name:      res.Name,
		Policy:    res.Merge.Policy,
		Order:     res.Merge.Order,
		Stats:     res.Stats,
		Yield:     res.Stats.YieldString(),
		Loads:     res.Loads,
		Excluded:  res.Excluded,
		Changes:   res.Merge.Trace,
		Composite: res.Merge.Composite,
		Artifacts: make(map[string]string, len(res.Artifacts)),
	}
	for format, data := range res.Artifacts {
		resp.Artifacts[format] = string(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Runs
// =============================================================================

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	opts := storage.ListOptions{WaferID: r.URL.Query().Get("wafer")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: "ARCHIVE_DISABLED", Message: "run archive is not configured"})
	return false
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(err), errorBody{Code: code, Message: errors.UserMessage(err)})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidPriority,
		errors.ErrCodeInvalidPolicy, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath,
		errors.ErrCodeInvalidStation:
		return http.StatusBadRequest
	case errors.ErrCodeNoValidSources, errors.ErrCodeFormat, errors.ErrCodeEmptySource:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
