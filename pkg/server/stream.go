package server

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

const (
	// tickBuffer is how many ticks may queue for a slow client before
	// intermediate ones are dropped. The final event is never dropped.
	tickBuffer = 256

	// writeTimeout bounds each event write on a stream.
	writeTimeout = 30 * time.Second
)

// stream buffers one graph's events between the manager's dispatcher and
// the HTTP handler.
type stream struct {
	ticks   chan worker.Tick
	final   chan worker.Event
	dropped atomic.Int64
}

func newStream() *stream {
	return &stream{
		ticks: make(chan worker.Tick, tickBuffer),
		final: make(chan worker.Event, 1),
	}
}

// deliver is the session callback. It never blocks the dispatcher.
func (st *stream) deliver(ev worker.Event) {
	if t, ok := ev.(worker.Tick); ok {
		select {
		case st.ticks <- t:
		default:
			st.dropped.Add(1)
		}
		return
	}
	select {
	case st.final <- ev:
	default:
	}
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	graphID := r.URL.Query().Get("graphId")
	if graphID == "" {
		graphID = uuid.NewString()
	}
	req, err := s.decodeRequest(w, r, graphID)
	if err != nil {
		writeError(w, err)
		return
	}
	graphID = req.GraphID

	if !s.reserve(graphID) {
		writeError(w, errors.New(errors.ErrCodeSessionConflict, "graph %q already has an active session", graphID))
		return
	}
	defer s.release(graphID)

	st := newStream()
	sess, err := s.manager.Open(graphID, st.deliver)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.Close()

	if err := sess.Post(req); err != nil {
		writeError(w, err)
		return
	}
	s.attach(graphID, sess)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Graph-ID", graphID)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_ = rc.Flush()

	s.logger.Debug("stream opened", "graph", graphID, "nodes", req.Graph.NodeCount())
	reason := s.pump(w, rc, r, st, graphID)
	s.logger.Debug("stream closed", "graph", graphID, "reason", reason, "dropped_ticks", st.dropped.Load())
}

// pump writes events until the run ends, the client goes away or the
// server shuts down, and returns why it stopped.
func (s *Server) pump(w http.ResponseWriter, rc *http.ResponseController, r *http.Request, st *stream, graphID string) string {
	for {
		select {
		case t := <-st.ticks:
			if err := writeEvent(w, rc, t); err != nil {
				return "write failed"
			}
		case ev := <-st.final:
			// Ticks dispatched before the final event are already queued.
			for drained := false; !drained; {
				select {
				case t := <-st.ticks:
					if err := writeEvent(w, rc, t); err != nil {
						return "write failed"
					}
				default:
					drained = true
				}
			}
			_ = writeEvent(w, rc, ev)
			return worker.EventType(ev)
		case <-r.Context().Done():
			return "client gone"
		case <-s.closing:
			_ = writeEvent(w, rc, worker.Failure{
				GraphID: graphID,
				Err:     errors.New(errors.ErrCodeWorkerTerminated, "server shutting down"),
			})
			return "shutdown"
		}
	}
}

// writeEvent writes one server-sent event. The event name is the wire type
// and the data is the full wire envelope.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, ev worker.Event) error {
	data, err := worker.EncodeEvent(ev)
	if err != nil {
		return err
	}
	_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", worker.EventType(ev), data); err != nil {
		return err
	}
	return rc.Flush()
}
