package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

type fakeRun struct {
	submits int
	stops   int
}

func (f *fakeRun) Submit(*graph.Graph, force.Config) error { f.submits++; return nil }
func (f *fakeRun) Stop() error                             { f.stops++; return nil }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestWatch(run runControl) watchModel {
	g := &graph.Graph{Nodes: []graph.Node{{ID: "a"}, {ID: "b", X: 10, Y: 10}}}
	return newWatchModel("g.json", g, force.DefaultConfig(), run, newEventFeed())
}

func update(t *testing.T, m watchModel, msg tea.Msg) (watchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(watchModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return wm, cmd
}

func TestWatchModelStop(t *testing.T) {
	run := &fakeRun{}
	m := newTestWatch(run)

	m, _ = update(t, m, key("s"))
	if run.stops != 1 {
		t.Fatalf("stops = %d, want 1", run.stops)
	}

	m, cmd := update(t, m, finalMsg{worker.Done{Run: 1, Reason: force.ReasonStopped, Ticks: 7}})
	if m.running || m.done == nil {
		t.Fatalf("model should hold the finished run, got running=%v done=%v", m.running, m.done)
	}
	if cmd == nil {
		t.Error("model should keep listening for events after a run ends")
	}
	if v := m.View(); !strings.Contains(v, "stopped after 7 ticks") {
		t.Errorf("View() missing the final status:\n%s", v)
	}

	m, _ = update(t, m, key("s"))
	if run.stops != 1 {
		t.Errorf("stop on a finished run should not reach the worker, stops = %d", run.stops)
	}
}

func TestWatchModelIgnoresStaleTicks(t *testing.T) {
	m := newTestWatch(&fakeRun{})
	m, _ = update(t, m, finalMsg{worker.Done{Run: 1, Reason: force.ReasonConverged, Ticks: 7}})

	m, _ = update(t, m, tickMsg{Run: 1, Seq: 99})
	if m.tick.Seq != 7 {
		t.Errorf("tick from the finished run was shown: seq = %d", m.tick.Seq)
	}

	m, _ = update(t, m, tickMsg{Run: 2, Seq: 1, Alpha: 0.9})
	if m.tick.Seq != 1 || m.tick.Run != 2 {
		t.Errorf("tick of the next run was dropped: %+v", m.tick)
	}
}

func TestWatchModelRestart(t *testing.T) {
	run := &fakeRun{}
	m := newTestWatch(run)
	m, _ = update(t, m, finalMsg{worker.Done{Run: 1, Reason: force.ReasonConverged}})

	m, _ = update(t, m, key("r"))
	if run.submits != 1 {
		t.Errorf("submits = %d, want 1", run.submits)
	}
	if !m.running || m.done != nil {
		t.Errorf("restart should clear the finished run, running=%v done=%v", m.running, m.done)
	}
}

func TestWatchModelFailure(t *testing.T) {
	m := newTestWatch(&fakeRun{})
	m, _ = update(t, m, finalMsg{worker.Failure{Err: errString("graph has no nodes")}})
	if !strings.Contains(m.View(), "error: graph has no nodes") {
		t.Errorf("View() should show the failure:\n%s", m.View())
	}
}

func TestWatchModelQuit(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		var msg tea.Msg = key(k)
		if k == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		}
		_, cmd := update(t, newTestWatch(&fakeRun{}), msg)
		if cmd == nil {
			t.Fatalf("%q: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q should quit", k)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestEventFeedKeepsLatestTick(t *testing.T) {
	f := newEventFeed()
	f.deliver(worker.Tick{Seq: 1})
	f.deliver(worker.Tick{Seq: 2})
	f.deliver(worker.Tick{Seq: 3})

	msg := f.next()()
	tm, ok := msg.(tickMsg)
	if !ok || tm.Seq != 3 {
		t.Fatalf("next() = %#v, want the latest tick", msg)
	}

	f.deliver(worker.Done{Reason: force.ReasonConverged})
	if fm, ok := f.next()().(finalMsg); !ok {
		t.Errorf("next() = %#v, want the final event", fm)
	}

	f.close()
	if msg := f.next()(); msg != nil {
		t.Errorf("next() after close = %#v, want nil", msg)
	}
}

func TestPlot(t *testing.T) {
	pinned := graph.Node{ID: "p", X: 5, Y: 5}
	pinned.Pin(5, 5)

	tests := []struct {
		name  string
		nodes []graph.Node
		w, h  int
		want  []string
	}{
		{
			name:  "corners",
			nodes: []graph.Node{{X: 0, Y: 0}, {X: 10, Y: 10}},
			w:     5, h: 3,
			want: []string{"•    ", "     ", "    •"},
		},
		{
			name:  "single node is centered",
			nodes: []graph.Node{{X: 42, Y: -7}},
			w:     5, h: 3,
			want: []string{"     ", "  •  ", "     "},
		},
		{
			name:  "pinned glyph wins",
			nodes: []graph.Node{{X: 0, Y: 0}, pinned, {X: 5, Y: 5}, {X: 10, Y: 10}},
			w:     3, h: 3,
			want: []string{"•  ", " ◆ ", "  •"},
		},
		{
			name: "empty",
			w:    3, h: 1,
			want: []string{"   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plot(tt.nodes, tt.w, tt.h)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("plot() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := plot(nil, 0, 3); got != nil {
		t.Errorf("plot() with no width = %q, want nil", got)
	}
}
