// Package ui renders batch progress in the terminal.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"binforge/internal/buildpipeline"
)

const maxRecent = 6

type progressModel struct {
	title    string
	events   <-chan buildpipeline.Event
	spinner  spinner.Model
	prog     progress.Model
	mode     string
	total    int
	done     int
	failed   int
	running  map[string]struct{}
	counts   map[string]*compilerCount
	recent   []string
	width    int
	finished bool
	// stopped is set when the user asked to quit before the build ended.
	stopped bool
}

type compilerCount struct {
	ok     int
	failed int
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders compile progress
// from events until the channel is closed.
func NewProgressModel(title string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		running: make(map[string]struct{}),
		counts:  make(map[string]*compilerCount),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		// Raw mode turns ctrl+c into a key press instead of SIGINT.
		switch msg.String() {
		case "ctrl+c", "q":
			m.stopped = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.finished || m.stopped {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		model, cmd := m.prog.Update(msg)
		m.prog = model.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.mode != "" {
		header = fmt.Sprintf("%s (%s)", header, m.mode)
	}
	switch {
	case m.finished:
		header = "done: " + header
	case m.stopped:
		header = "interrupted: " + header
	default:
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	fmt.Fprintf(&b, "  %d/%d", m.done, m.total)
	if m.failed > 0 {
		b.WriteString(styleStatus("error").Render(fmt.Sprintf("  %d failed", m.failed)))
	}
	if n := len(m.running); n > 0 && !m.finished {
		b.WriteString(styleStatus("running").Render(fmt.Sprintf("  %d running", n)))
	}
	b.WriteString("\n\n")

	names := make([]string, 0, len(m.counts))
	for name := range m.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := m.counts[name]
		fmt.Fprintf(&b, "  %-12s %s %s\n",
			truncate(name, 12),
			styleStatus("done").Render(fmt.Sprintf("%6d ok", c.ok)),
			styleStatus("error").Render(fmt.Sprintf("%6d failed", c.failed)))
	}
	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, line := range m.recent {
			b.WriteString("  ")
			b.WriteString(styleStatus("error").Render(truncate(line, m.width-4)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		// Batch start: reset the counters for the new batch.
		m.mode = ev.Mode.String()
		m.total = ev.Total
		m.done, m.failed = 0, 0
		m.running = make(map[string]struct{})
		m.counts = make(map[string]*compilerCount)
		m.recent = nil
		return m.prog.SetPercent(0)
	}

	key := ev.Compiler + ":" + ev.File
	switch ev.State {
	case buildpipeline.StateAdmitted, buildpipeline.StateInvoking:
		m.running[key] = struct{}{}
		return nil
	case buildpipeline.StateCompleted:
	default:
		return nil
	}

	delete(m.running, key)
	c, ok := m.counts[ev.Compiler]
	if !ok {
		c = &compilerCount{}
		m.counts[ev.Compiler] = c
	}
	if ev.Status == buildpipeline.StatusError {
		c.failed++
		m.failed++
		m.recent = append(m.recent, fmt.Sprintf("%s %s: %s", ev.Compiler, ev.File, ev.Outcome))
		if len(m.recent) > maxRecent {
			m.recent = m.recent[len(m.recent)-maxRecent:]
		}
	} else {
		c.ok++
	}
	if ev.Done > m.done {
		m.done = ev.Done
	}
	if ev.Total > 0 {
		m.total = ev.Total
	}
	if m.total == 0 {
		return nil
	}
	return m.prog.SetPercent(float64(m.done) / float64(m.total))
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "running":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
