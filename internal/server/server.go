package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/observer/docs/swagger" // registers the API docs
	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/pipeline"
	"github.com/raysh454/observer/internal/tracker"
)

// RunArchive is the durable fallback for runs evicted from history.
type RunArchive interface {
	Get(ctx context.Context, id string) (*model.PipelineRun, error)
}

type AnalysisHistory interface {
	History(limit int) []*model.AnalysisResult
}

// Deps are what the API reads from and triggers. Archive and Gatherer are
// optional.
type Deps struct {
	Coordinator *pipeline.Coordinator
	Snapshots   *tracker.SnapshotStore
	Diffs       *tracker.DiffStore
	Analysis    AnalysisHistory
	Archive     RunArchive
	Gatherer    prometheus.Gatherer
}

// Server is the HTTP + WebSocket trigger and read surface.
type Server struct {
	cfg      Config
	deps     Deps
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

func New(cfg Config, deps Deps, logger logging.Logger) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/pipeline/runs", s.optionsHandler("GET, POST"))
	r.Options("/pipeline/runs/{runID}", s.optionsHandler("GET"))
	r.Options("/targets", s.optionsHandler("GET"))
	r.Options("/targets/snapshots", s.optionsHandler("GET"))
	r.Options("/targets/diffs", s.optionsHandler("GET"))
	r.Options("/analysis", s.optionsHandler("GET"))

	r.Post("/pipeline/runs", s.handleCreateRun)
	r.Get("/pipeline/runs", s.handleListRuns)
	r.Get("/pipeline/runs/{runID}", s.handleGetRun)

	r.Get("/targets", s.handleListTargets)
	r.Get("/targets/snapshots", s.handleListSnapshots)
	r.Get("/targets/diffs", s.handleListDiffs)

	r.Get("/analysis", s.handleListAnalysis)

	r.Get("/ws/pipeline", s.handlePipelineWS)

	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Debug("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      0, // runs and websockets stream
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// queryLimit reads ?limit=, falling back to def for missing or invalid values.
func queryLimit(r *http.Request, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		return v
	}
	return def
}
