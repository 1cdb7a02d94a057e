package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/javanstorm/cloudmanager/internal/events"
	"github.com/javanstorm/cloudmanager/internal/logging"
	"github.com/javanstorm/cloudmanager/internal/process"
)

// eventMsg carries one broker event into the Bubble Tea loop.
type eventMsg events.Event

// subClosedMsg signals that the subscription was closed.
type subClosedMsg struct{}

// FollowModel streams the output of one handle. Ctrl+C or x cancels the
// process; q detaches and leaves it running.
type FollowModel struct {
	Detached bool

	cancel      func(id string) error
	done        bool
	err         error
	handle      *process.Handle
	lines       []string
	ready       bool
	seededUntil time.Time
	spinner     spinner.Model
	sub         *events.Subscription
	viewport    viewport.Model
}

// NewFollowModel creates a follow screen for h. sub must have been
// subscribed before the call so no line falls between the backlog and the
// live stream.
func NewFollowModel(h *process.Handle, sub *events.Subscription, cancel func(id string) error) *FollowModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSpinner)

	m := &FollowModel{
		cancel:   cancel,
		handle:   h,
		spinner:  s,
		sub:      sub,
		viewport: viewport.New(80, 20),
	}

	// Seed with output captured before the subscription existed.
	for _, l := range h.Output() {
		m.lines = append(m.lines, renderLine(l.Stream, l.Text))
		m.seededUntil = l.Time
	}
	m.done = h.State().Terminal()
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	return m
}

func waitForEvent(sub *events.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C()
		if !ok {
			return subClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init implements tea.Model
func (m *FollowModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.sub))
}

// Update implements tea.Model
func (m *FollowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.ready = true
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "x":
			if m.done {
				return m, tea.Quit
			}
			if err := m.cancel(m.handle.ID()); err != nil {
				logging.Logger.Warn("Cancel failed", "handle", m.handle.ID(), "error", err)
				m.err = err
			}
			return m, nil
		case "q", "esc":
			m.Detached = !m.done
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.sub)

	case subClosedMsg:
		m.done = true
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *FollowModel) handleEvent(ev events.Event) {
	if ev.Source != m.handle.ID() {
		return
	}

	switch ev.Kind {
	case events.KindLine:
		if ev.Stream != events.System && !ev.Time.After(m.seededUntil) {
			return
		}
		m.lines = append(m.lines, renderLine(ev.Stream, ev.Line))
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
	case events.KindStatus:
		if ev.Status == process.Succeeded.String() || ev.Status == process.Failed.String() {
			m.done = true
		}
	}
}

// View implements tea.Model
func (m *FollowModel) View() string {
	var b strings.Builder

	state := m.handle.State()
	header := TitleStyle.Render(m.handle.Descriptor().Kind().String()) + " " +
		MutedStyle.Render(m.handle.Descriptor().String())
	if m.done {
		style := OKStyle
		if state == process.Failed {
			style = ErrorStyle
		}
		fmt.Fprintf(&b, "%s %s\n", style.Render(state.String()), header)
	} else {
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), header)
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()) + "\n")
	}
	if m.done {
		b.WriteString(MutedStyle.Render("enter/q: back"))
	} else {
		b.WriteString(MutedStyle.Render("x/ctrl+c: cancel process  q: back (keeps running)  ↑/↓: scroll"))
	}
	return b.String()
}

// Done reports whether the followed handle reached a terminal state.
func (m *FollowModel) Done() bool { return m.done }

// Lines returns the rendered output lines.
func (m *FollowModel) Lines() []string { return m.lines }

func renderLine(stream events.Stream, text string) string {
	switch stream {
	case events.Stderr:
		return ErrorStyle.Render(text)
	case events.System:
		return MutedStyle.Render(text)
	default:
		return text
	}
}
