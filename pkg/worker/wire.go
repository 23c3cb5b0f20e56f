package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Wire event types.
const (
	TypeRequest   = "request"
	TypeStop      = "stop"
	TypeGraphData = "graphData"
	TypeDone      = "done"
	TypeError     = "error"
)

// stopLiteral is the bare stop message accepted in place of a stop object.
const stopLiteral = `"STOP"`

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wireRequest struct {
	GraphID   string          `json:"graphId"`
	Nodes     []graph.Node    `json:"nodes"`
	Links     []graph.Edge    `json:"links"`
	Edges     []graph.Edge    `json:"edges"`
	Config    json.RawMessage `json:"config,omitempty"`
	TimeoutMS int64           `json:"timeoutMs,omitempty"`
}

type wireStop struct {
	GraphID string `json:"graphId"`
}

type wireTick struct {
	GraphID string       `json:"graphId"`
	Run     uint64       `json:"run"`
	Tick    int          `json:"tick"`
	Alpha   float64      `json:"alpha"`
	Nodes   []graph.Node `json:"nodes"`
	Edges   []graph.Edge `json:"edges"`
}

type wireDone struct {
	GraphID string       `json:"graphId"`
	Run     uint64       `json:"run"`
	Reason  string       `json:"reason"`
	Ticks   int          `json:"ticks"`
	Alpha   float64      `json:"alpha"`
	Nodes   []graph.Node `json:"nodes"`
	Edges   []graph.Edge `json:"edges"`
	Skipped []graph.Edge `json:"skipped,omitempty"`
}

type wireError struct {
	GraphID string `json:"graphId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeMessage parses a wire message. graphID is used when the message does
// not name one; base is the simulation config that a request's "config"
// object is merged onto.
//
// Accepted forms:
//
//	{"type":"request","data":{"graphId":"g1","nodes":[...],"links":[...],"config":{...}}}
//	{"nodes":[...],"links":[...]}
//	{"type":"stop","data":{"graphId":"g1"}}
//	"STOP"
func DecodeMessage(data []byte, graphID string, base force.Config) (Message, error) {
	data = bytes.TrimSpace(data)
	if string(data) == stopLiteral {
		return Stop{GraphID: graphID}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode message")
	}

	switch env.Type {
	case "":
		var g graph.Graph
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode graph")
		}
		return Request{GraphID: graphID, Graph: &g, Config: base}, nil
	case TypeRequest:
		return decodeRequest(env.Data, graphID, base)
	case TypeStop:
		var s wireStop
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &s); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode stop")
			}
		}
		if s.GraphID == "" {
			s.GraphID = graphID
		}
		return Stop{GraphID: s.GraphID}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown message type %q", env.Type)
	}
}

func decodeRequest(data json.RawMessage, graphID string, base force.Config) (Message, error) {
	var wr wireRequest
	if err := json.Unmarshal(data, &wr); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	if wr.GraphID == "" {
		wr.GraphID = graphID
	}
	links := wr.Links
	if links == nil {
		links = wr.Edges
	}

	cfg := base
	if len(wr.Config) > 0 {
		if err := json.Unmarshal(wr.Config, &cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
		}
	}
	if wr.TimeoutMS < 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "timeoutMs must be >= 0, got %d", wr.TimeoutMS)
	}

	return Request{
		GraphID: wr.GraphID,
		Graph:   &graph.Graph{Nodes: wr.Nodes, Links: links},
		Config:  cfg,
		Timeout: time.Duration(wr.TimeoutMS) * time.Millisecond,
	}, nil
}

// EventType returns the wire type of an event.
func EventType(ev Event) string {
	switch ev.(type) {
	case Tick:
		return TypeGraphData
	case Done:
		return TypeDone
	default:
		return TypeError
	}
}

// EncodeEvent serializes an event as {"type": ..., "data": {...}}.
func EncodeEvent(ev Event) ([]byte, error) {
	var data any
	switch e := ev.(type) {
	case Tick:
		data = wireTick{
			GraphID: e.GraphID, Run: e.Run, Tick: e.Seq, Alpha: e.Alpha,
			Nodes: nonNilNodes(e.Nodes), Edges: nonNilEdges(e.Edges),
		}
	case Done:
		data = wireDone{
			GraphID: e.GraphID, Run: e.Run, Reason: string(e.Reason), Ticks: e.Ticks, Alpha: e.Alpha,
			Nodes: nonNilNodes(e.Nodes), Edges: nonNilEdges(e.Edges), Skipped: e.Skipped,
		}
	case Failure:
		data = wireError{
			GraphID: e.GraphID,
			Code:    string(errorCode(e.Err)),
			Message: errors.UserMessage(e.Err),
		}
	default:
		return nil, fmt.Errorf("unknown event %T", ev)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", EventType(ev), err)
	}
	return json.Marshal(envelope{Type: EventType(ev), Data: raw})
}

func errorCode(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}

func nonNilNodes(n []graph.Node) []graph.Node {
	if n == nil {
		return []graph.Node{}
	}
	return n
}

func nonNilEdges(e []graph.Edge) []graph.Edge {
	if e == nil {
		return []graph.Edge{}
	}
	return e
}
