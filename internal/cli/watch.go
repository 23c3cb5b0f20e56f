package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/forcegraph/pkg/force"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
	"github.com/matzehuels/forcegraph/pkg/worker"
)

var (
	watchBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	watchNodeStyle = lipgloss.NewStyle().Foreground(colorCyan)
	watchErrStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	nodeGlyph   = '•'
	pinnedGlyph = '◆'
)

// watchCommand creates the watch command: a live terminal view of a running
// simulation.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output string
		strict bool
		sim    simFlags
	)

	cmd := &cobra.Command{
		Use:   "watch <graph.json>",
		Short: "Watch a simulation settle in the terminal",
		Long: `Run a simulation and draw the node positions live as it settles.

Keys: s stops the run, r restarts it from the initial positions, q quits.
With --output the last finished layout is written when you quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := sim.options(cmd.Flags(), c.Config.Simulation)
			return c.runWatch(cmd.Context(), args[0], opts, output, strict)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the finished layout here on quit")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject duplicate nodes and dangling links")
	sim.register(cmd.Flags())

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input string, opts pipeline.Options, output string, strict bool) error {
	g, err := pipeline.ParseFile(input, strict)
	if err != nil {
		return err
	}
	if err := opts.ValidateForLayout(); err != nil {
		return err
	}
	cfg := opts.EffectiveConfig()

	feed := newEventFeed()
	defer feed.close()

	sess, err := c.Manager().Open(uuid.NewString(), feed.deliver)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Submit(g, cfg); err != nil {
		return err
	}

	p := tea.NewProgram(newWatchModel(input, g, cfg, sess, feed), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	m := final.(watchModel)
	if m.done == nil {
		printInfo("Quit before the simulation finished")
		return nil
	}
	l := m.done.Layout()
	printStats(layoutStats{nodes: len(l.Nodes), edges: len(l.Links), ticks: l.Ticks, reason: l.Reason})
	if output != "" {
		if err := graph.WriteLayoutFile(l, output); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printSuccess("Saved layout")
		printFile(output)
	}
	return nil
}

// =============================================================================
// Event Feed
// =============================================================================

// eventFeed hands worker events to the UI. Only the latest tick is kept:
// the view cannot draw faster than the simulation runs.
type eventFeed struct {
	ticks  chan worker.Tick
	final  chan worker.Event
	closed chan struct{}
}

func newEventFeed() *eventFeed {
	return &eventFeed{
		ticks:  make(chan worker.Tick, 1),
		final:  make(chan worker.Event, 4),
		closed: make(chan struct{}),
	}
}

// deliver is the session callback. It never blocks.
func (f *eventFeed) deliver(ev worker.Event) {
	t, ok := ev.(worker.Tick)
	if !ok {
		select {
		case f.final <- ev:
		default:
		}
		return
	}
	for {
		select {
		case f.ticks <- t:
			return
		default:
		}
		select {
		case <-f.ticks:
		default:
		}
	}
}

func (f *eventFeed) close() { close(f.closed) }

type tickMsg worker.Tick

type finalMsg struct{ ev worker.Event }

// next waits for the next event.
func (f *eventFeed) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case t := <-f.ticks:
			return tickMsg(t)
		case ev := <-f.final:
			return finalMsg{ev}
		case <-f.closed:
			return nil
		}
	}
}

// =============================================================================
// Model
// =============================================================================

// runControl is the part of a session the view drives.
type runControl interface {
	Submit(g *graph.Graph, cfg force.Config) error
	Stop() error
}

// watchModel is the bubbletea model of the watch command.
type watchModel struct {
	name   string
	graph  *graph.Graph
	config force.Config
	run    runControl
	feed   *eventFeed

	width, height int

	tick     worker.Tick
	done     *worker.Done
	err      error
	lastRun  uint64 // run of the last final event; older ticks are stale
	running  bool
	started  time.Time
	finished time.Duration
}

func newWatchModel(name string, g *graph.Graph, cfg force.Config, run runControl, feed *eventFeed) watchModel {
	return watchModel{
		name:    name,
		graph:   g,
		config:  cfg,
		run:     run,
		feed:    feed,
		width:   80,
		height:  24,
		tick:    worker.Tick{Nodes: g.Nodes},
		running: true,
		started: time.Now(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.feed.next()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "s":
			if m.running {
				if err := m.run.Stop(); err != nil {
					m.err = err
				}
			}
		case "r":
			if err := m.run.Submit(m.graph, m.config); err != nil {
				m.err = err
				return m, nil
			}
			m.done, m.err = nil, nil
			m.running = true
			m.started = time.Now()
			m.tick = worker.Tick{Nodes: m.graph.Nodes}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tickMsg:
		if msg.Run > m.lastRun {
			m.tick = worker.Tick(msg)
		}
		return m, m.feed.next()

	case finalMsg:
		m.running = false
		m.finished = time.Since(m.started)
		switch ev := msg.ev.(type) {
		case worker.Done:
			m.done = &ev
			m.lastRun = ev.Run
			m.tick = worker.Tick{Run: ev.Run, Seq: ev.Ticks, Alpha: ev.Alpha, Nodes: ev.Nodes}
		case worker.Failure:
			m.err = ev.Err
		}
		return m, m.feed.next()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("forcegraph watch"))
	b.WriteString(StyleDim.Render("  " + m.name))
	b.WriteString("\n")
	b.WriteString(m.status())
	b.WriteString("\n")

	// Border and the three text lines around the plot.
	w, h := max(m.width-2, 1), max(m.height-6, 1)
	b.WriteString(watchBoxStyle.Render(watchNodeStyle.Render(strings.Join(plot(m.tick.Nodes, w, h), "\n"))))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("s stop · r restart · q quit"))
	return b.String()
}

func (m watchModel) status() string {
	switch {
	case m.err != nil:
		return watchErrStyle.Render("error: " + m.err.Error())
	case m.done != nil:
		return StyleSuccess.Render(fmt.Sprintf("%s after %d ticks", m.done.Reason, m.done.Ticks)) +
			StyleDim.Render(fmt.Sprintf(" · alpha %.4f · %s", m.done.Alpha, m.finished.Round(time.Millisecond)))
	default:
		return StyleNumber.Render(fmt.Sprintf("tick %d", m.tick.Seq)) +
			StyleDim.Render(fmt.Sprintf(" · alpha %.4f · %d nodes", m.tick.Alpha, len(m.tick.Nodes)))
	}
}

// plot draws nodes onto a w by h character grid scaled to their bounds.
// Pinned nodes are drawn with a distinct glyph.
func plot(nodes []graph.Node, w, h int) []string {
	if w < 1 || h < 1 {
		return nil
	}
	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", w))
	}

	b := graph.ComputeBounds(nodes)
	for i := range nodes {
		n := &nodes[i]
		col := scale(n.X, b.MinX, b.Width(), w)
		row := scale(n.Y, b.MinY, b.Height(), h)
		glyph := nodeGlyph
		if n.Pinned() {
			glyph = pinnedGlyph
		}
		if grid[row][col] != pinnedGlyph {
			grid[row][col] = glyph
		}
	}

	lines := make([]string, h)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}

// scale maps v within [lo, lo+span] to a cell index in [0, cells).
func scale(v, lo, span float64, cells int) int {
	if span <= 0 {
		return cells / 2
	}
	i := int((v-lo)/span*float64(cells-1) + 0.5)
	return min(max(i, 0), cells-1)
}
