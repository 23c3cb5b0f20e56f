// Package pkg provides the core libraries for Forcegraph force-directed layouts.
//
// # Overview
//
// Forcegraph positions the nodes of a node-link graph by running an
// iterative force simulation: links pull connected nodes toward a target
// distance, nodes repel each other, a collision force keeps them apart and a
// centering force keeps the whole drawing around the origin. Simulations run
// on a single background worker that many graph sessions share.
//
// The pkg directory is organized into these areas:
//
//  1. [graph] - Serialization types for graphs and finished layouts
//  2. [force] - The simulation itself (forces, alpha cooling, run loop)
//  3. [worker] - The background worker and the refcounted session manager
//  4. [pipeline] - Orchestration (parse → simulate → render) with caching
//  5. [render/nodelink] - DOT and SVG output of a layout
//  6. [server] - HTTP API streaming layout ticks as server-sent events
//
// # Architecture
//
// The typical data flow through Forcegraph:
//
//	graph JSON (nodes + links)
//	         ↓
//	    [graph] package (parse + validate)
//	         ↓
//	    [worker] package (session on the shared worker)
//	         ↓
//	    [force] package (tick until converged, stopped, timed out or tick limit)
//	         ↓
//	    [render/nodelink] package (DOT / SVG)
//	         ↓
//	    JSON/DOT/SVG output
//
// # Quick Start
//
// Open a session and stream positions while the simulation cools:
//
//	import (
//	    "github.com/matzehuels/forcegraph/pkg/force"
//	    "github.com/matzehuels/forcegraph/pkg/graph"
//	    "github.com/matzehuels/forcegraph/pkg/worker"
//	)
//
//	m := worker.NewManager(worker.Options{})
//	defer m.TerminateInstance()
//
//	g, _ := graph.ReadGraphFile("graph.json")
//	done := make(chan worker.Done, 1)
//	s, _ := m.Open("g1", func(ev worker.Event) {
//	    switch ev := ev.(type) {
//	    case worker.Tick:
//	        draw(ev.Nodes)
//	    case worker.Done:
//	        done <- ev
//	    }
//	})
//	defer s.Close()
//
//	_ = s.Submit(g, force.DefaultConfig())
//	layout := (<-done).Layout()
//
// For batch use, [pipeline.Runner] wraps the same steps with a cache.
//
// # Main Packages
//
// [graph] - Node, Edge and Graph types as read from JSON, plus Layout, the
// finished positions together with the reason the simulation ended.
//
// [force] - Config with link distance, charge strength, collide radius and
// the alpha schedule. [force.DefaultConfig] suits general graphs;
// [force.TreeConfig] gives tighter, stronger links for hierarchies.
//
// [worker] - One goroutine runs every active simulation in round-robin
// order. The [worker.Manager] starts it on the first session and tears it
// down when the last one closes.
//
// [pipeline] - Parse, simulate and render with layout and artifact caching.
// Shared by the CLI and the HTTP API.
//
// [render/nodelink] - DOT with pinned positions, rendered to SVG through
// Graphviz.
//
// [server] - chi router exposing layout streams, one-shot renders, the
// session list, health and Prometheus metrics.
//
// ## Infrastructure
//
// [cache] - Cache backends for layouts and artifacts: FileCache for the CLI,
// RedisCache for shared deployments, NullCache to disable caching.
//
// [config] - TOML configuration loaded from the XDG config directory.
//
// [errors] - Coded errors shared by the CLI and the HTTP API.
//
// [observability] - Hooks for metrics and tracing of layouts and requests.
//
// [buildinfo] - Version information set at build time.
//
// # Graph Format
//
// Input graphs are JSON objects with "nodes" and "links":
//
//	{
//	  "nodes": [{"id": "a"}, {"id": "b", "fx": 0, "fy": 0}],
//	  "links": [{"source": "a", "target": "b"}]
//	}
//
// Nodes with "fx"/"fy" are pinned. Links naming unknown nodes are skipped by
// the simulation; strict parsing rejects them instead.
//
// [graph]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/graph
// [force]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/force
// [worker]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/worker
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/pipeline
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/render/nodelink
// [server]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/server
// [cache]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/buildinfo
// [force.DefaultConfig]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/force#DefaultConfig
// [force.TreeConfig]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/force#TreeConfig
// [worker.Manager]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/worker#Manager
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/forcegraph/pkg/pipeline#Runner
package pkg
