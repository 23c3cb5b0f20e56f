// Package server exposes the layout worker over HTTP.
//
// # Endpoints
//
//	POST /api/layout[?graphId=..]      stream a simulation as server-sent events
//	POST /api/render[?format=svg]      run to completion, return one artifact
//	POST /api/graphs/{graphID}/stop    stop a streaming run
//	GET  /api/graphs                   list active graph sessions
//	GET  /healthz                      liveness and build information
//	GET  /metrics                      Prometheus metrics, when configured
//
// A streamed run sends one "graphData" event per tick, then a single "done"
// or "error" event, and the stream closes. Closing the connection early
// stops the run. Error responses are JSON objects {"code", "message"}.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

// Options configures a [Server].
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64 // 0 = unlimited

	// Simulation is the base config that request "config" objects are
	// merged onto.
	Simulation force.Config

	// Metrics serves GET /metrics when set.
	Metrics http.Handler

	Logger *log.Logger
}

// Server is the HTTP API. It shares one [worker.Manager] between all
// requests; each streaming request holds one session on it.
type Server struct {
	opts    Options
	manager *worker.Manager
	runner  *pipeline.Runner
	logger  *log.Logger
	router  chi.Router

	mu       sync.Mutex
	sessions map[string]*worker.Session // nil while a session is being opened

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a server over m. Layouts requested through /api/render go
// through runner and its cache; runner may be nil, in which case a cacheless
// runner over m is used.
func New(m *worker.Manager, runner *pipeline.Runner, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Simulation == (force.Config{}) {
		opts.Simulation = force.DefaultConfig()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, m, opts.Logger)
	}
	s := &Server{
		opts:     opts,
		manager:  m,
		runner:   runner,
		logger:   opts.Logger,
		sessions: make(map[string]*worker.Session),
		closing:  make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/render", s.handleRender)
		r.Get("/graphs", s.handleGraphs)
		r.Post("/graphs/{graphID}/stop", s.handleStop)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Code: "NOT_FOUND", Message: "no route for " + r.URL.Path})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully:
// open streams are told the server is closing and their runs are stopped.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// WriteTimeout stays zero: event streams are long-lived. Streams set
	// their own per-write deadlines.
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv.RegisterOnShutdown(s.Close)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down", "sessions", len(s.Sessions()))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close ends all open streams. It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// Sessions returns the graph IDs with an open stream.
func (s *Server) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if sess != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// reserve claims graphID for a new stream. It fails if the ID is in use by
// another stream or by any other session of the manager.
func (s *Server) reserve(graphID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[graphID]; taken || s.manager.Registered(graphID) {
		return false
	}
	s.sessions[graphID] = nil
	return true
}

func (s *Server) attach(graphID string, sess *worker.Session) {
	s.mu.Lock()
	s.sessions[graphID] = sess
	s.mu.Unlock()
}

func (s *Server) release(graphID string) {
	s.mu.Lock()
	delete(s.sessions, graphID)
	s.mu.Unlock()
}

func (s *Server) session(graphID string) (*worker.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[graphID]
	return sess, sess != nil
}
