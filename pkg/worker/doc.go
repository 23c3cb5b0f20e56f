// Package worker runs force-directed layouts off the caller's goroutine and
// multiplexes many graph sessions onto one shared worker.
//
// # Worker
//
// A [Worker] owns a single goroutine that steps every active simulation one
// tick at a time, round-robin, handling posted messages between ticks. Each
// step emits a [Tick] with a deep copy of the positions; a run ends with a
// [Done] carrying its termination reason. Posting a [Request] for a graph that
// is already running restarts it from scratch; posting a [Stop] ends it.
//
// # Manager
//
// A [Manager] creates the worker lazily on the first [Manager.Acquire],
// routes events to the callback registered for their graph identifier, and
// terminates the worker when the last reference is released:
//
//	m := worker.NewManager(worker.Options{Logger: logger})
//	sess, err := m.Open("g1", func(ev worker.Event) {
//	    if done, ok := ev.(worker.Done); ok {
//	        fmt.Println(done.Reason, done.Ticks)
//	    }
//	})
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	err = sess.Submit(g, force.DefaultConfig())
//
// Callbacks run on the manager's dispatcher goroutine, one at a time, so the
// events of a run arrive in tick order. No ordering holds across graphs.
//
// # Wire Format
//
// [DecodeMessage] and [EncodeEvent] translate messages to and from the JSON
// shapes used by the HTTP API: {"type": "...", "data": {...}} envelopes, a
// bare {nodes, links} graph as shorthand for a request, and the literal
// "STOP".
package worker
