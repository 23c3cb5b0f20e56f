package server

import (
	stderrors "errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/forcegraph/pkg/buildinfo"
	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

type graphsResponse struct {
	Streams     []string `json:"streams"`
	Registered  []string `json:"registered"`
	ActiveRuns  int      `json:"activeRuns"`
	RefCount    int      `json:"refCount"`
	WorkerAlive bool     `json:"workerAlive"`
}

func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	streams := s.Sessions()
	slices.Sort(streams)
	writeJSON(w, http.StatusOK, graphsResponse{
		Streams:     streams,
		Registered:  s.manager.Graphs(),
		ActiveRuns:  s.manager.ActiveRuns(),
		RefCount:    s.manager.RefCount(),
		WorkerAlive: s.manager.Alive(),
	})
}

// handleStop accepts an empty body, the "STOP" literal or a stop envelope.
// The graph in the URL wins over one named in the body.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	graphID := chi.URLParam(r, "graphID")
	if err := errors.ValidateGraphID(graphID); err != nil {
		writeError(w, err)
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(body) > 0 {
		msg, err := worker.DecodeMessage(body, graphID, s.opts.Simulation)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, ok := msg.(worker.Stop); !ok {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "expected a stop message"))
			return
		}
	}

	sess, ok := s.session(graphID)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeSessionNotFound, "no active stream for graph %q", graphID))
		return
	}
	if err := sess.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"graphId": graphID, "status": "stopping"})
}

// handleRender runs a layout to completion through the cached pipeline and
// returns a single artifact. The run gets a fresh graph ID so it can never
// take over a streaming session's callback.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "format"))
		return
	}
	variant := q.Get("variant")
	if variant == "" {
		variant = pipeline.VariantDefault
	}
	if err := pipeline.ValidateVariant(variant); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "variant"))
		return
	}
	labels, _ := strconv.ParseBool(q.Get("labels"))
	refresh, _ := strconv.ParseBool(q.Get("refresh"))

	req, err := s.decodeRequest(w, r, "render")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.runner.Execute(r.Context(), req.Graph, pipeline.Options{
		Variant: variant,
		Config:  req.Config,
		Timeout: req.Timeout,
		Refresh: refresh,
		Formats: []string{format},
		Labels:  labels,
		Logger:  s.logger,
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Layout-Reason", result.Layout.Reason)
	w.Header().Set("X-Cache-Hit", strconv.FormatBool(result.CacheInfo.LayoutHit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// decodeRequest reads and validates a layout request body.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, graphID string) (worker.Request, error) {
	body, err := s.readBody(w, r)
	if err != nil {
		return worker.Request{}, err
	}
	msg, err := worker.DecodeMessage(body, graphID, s.opts.Simulation)
	if err != nil {
		return worker.Request{}, err
	}
	req, ok := msg.(worker.Request)
	if !ok {
		return worker.Request{}, errors.New(errors.ErrCodeInvalidInput, "expected a layout request")
	}
	if err := req.Validate(); err != nil {
		return worker.Request{}, err
	}
	return req, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	return data, nil
}
