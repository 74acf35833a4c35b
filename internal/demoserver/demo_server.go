// Package demoserver is a controllable target for exercising the pipeline:
// each page can be switched between healthy, degraded, slow, outage and
// shrunk modes at runtime.
package demoserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/observer/internal/logging"
)

// DemoServer serves the demo pages and the /demo control API.
type DemoServer struct {
	cfg    Config
	pages  map[string]pageDef
	modes  map[string]Mode // path -> current mode
	mu     sync.RWMutex
	logger logging.Logger
}

// NewDemoServer creates a demo server with every page healthy.
func NewDemoServer(cfg Config, logger logging.Logger) *DemoServer {
	s := &DemoServer{
		cfg:    cfg,
		pages:  make(map[string]pageDef),
		modes:  make(map[string]Mode),
		logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "demoserver"}),
	}
	for _, p := range allPages() {
		s.pages[p.Path] = p
		s.modes[p.Path] = ModeHealthy
	}
	return s
}

// Handler returns the page and control routes.
func (s *DemoServer) Handler() http.Handler {
	r := chi.NewRouter()
	for path := range s.pages {
		r.Get(path, s.pageHandler(path))
	}
	r.Get("/demo/modes", s.getModesHandler)
	r.Post("/demo/mode", s.setModeHandler)
	r.Post("/demo/reset", s.resetHandler)
	return r
}

// ListenAndServe serves until ctx is done.
func (s *DemoServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("demo target listening",
		logging.Field{Key: "addr", Value: s.cfg.Addr},
		logging.Field{Key: "pages", Value: s.Paths()})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Paths lists the served page paths, sorted.
func (s *DemoServer) Paths() []string {
	paths := make([]string, 0, len(s.pages))
	for p := range s.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SetMode switches path, or every page when path is "*".
func (s *DemoServer) SetMode(path string, m Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == "*" {
		for p := range s.modes {
			s.modes[p] = m
		}
		return nil
	}
	if _, ok := s.pages[path]; !ok {
		return fmt.Errorf("unknown page %q", path)
	}
	s.modes[path] = m
	return nil
}

// Modes returns a copy of the current mode of every page.
func (s *DemoServer) Modes() map[string]Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Mode, len(s.modes))
	for p, m := range s.modes {
		out[p] = m
	}
	return out
}

func (s *DemoServer) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		def := s.pages[path]
		mode := s.modes[path]
		s.mu.RUnlock()

		if mode == ModeSlow {
			select {
			case <-time.After(s.cfg.SlowDelay):
			case <-r.Context().Done():
				return
			}
		}

		p := def.render(mode)
		w.Header().Set("Content-Type", p.contentType)
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(p.body))
	}
}

func (s *DemoServer) getModesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Modes())
}

func (s *DemoServer) setModeHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	mode, ok := ParseMode(body.Mode)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown mode %q", body.Mode), http.StatusBadRequest)
		return
	}
	if err := s.SetMode(body.Path, mode); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Info("demo page mode changed",
		logging.Field{Key: "path", Value: body.Path},
		logging.Field{Key: "mode", Value: string(mode)})
	s.getModesHandler(w, r)
}

func (s *DemoServer) resetHandler(w http.ResponseWriter, r *http.Request) {
	_ = s.SetMode("*", ModeHealthy)
	s.getModesHandler(w, r)
}
