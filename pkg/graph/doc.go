// Package graph provides the data model and serialization types for graphs
// submitted to the layout worker and for the layouts it produces.
//
// This package defines the canonical wire format for forcegraph's graph data,
// used for JSON files, API requests, tick events and the layout cache.
//
// # Core Types
//
//   - [Graph]: Node-link format submitted for layout
//   - [Node]: A vertex with an identifier, metadata and a mutable position
//   - [Edge]: A source/target identifier pair (a relation, not a pointer)
//   - [Layout]: The final positions of a finished simulation run
//
// # Graph Serialization
//
// Graphs use the node-link JSON format understood by browser force
// simulations:
//
//	{
//	  "nodes": [{"id": "a"}, {"id": "b", "x": 10, "y": 4}],
//	  "links": [{"source": "a", "target": "b"}]
//	}
//
// Node identifiers may be JSON strings or numbers; numbers are normalized to
// their decimal string form. Link endpoints may also be node objects (as
// produced by clients that resolved links in place), in which case the
// object's "id" is used.
//
// Common operations:
//
//	g, _ := graph.ReadGraphFile("notes.json")   // File → Graph
//	graph.WriteGraphFile(g, "output.json")      // Graph → File
//	data, _ := graph.MarshalGraph(g)            // Graph → []byte
//	parsed, _ := graph.UnmarshalGraph(data)     // []byte → Graph
//
// # Validation
//
// [Graph.Validate] reports duplicate node identifiers and links that
// reference unknown nodes. The simulation itself tolerates dangling links by
// skipping them, so validation is only needed by surfaces that want to reject
// bad input early.
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes. Use
// [Graph.Clone] before handing a graph to another goroutine.
package graph
