// Package tui provides the Bubble Tea countdown interface and the plain line
// renderer used when no terminal is attached.
package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tock/internal/clock"
	"github.com/verte-zerg/tock/internal/model"
)

const eventBuffer = 16

type eventMsg clock.Event

type closedMsg struct{}

type errMsg struct{ err error }

// Model implements the Bubble Tea countdown UI.
type Model struct {
	clock  *clock.Clock
	events <-chan clock.Event

	name  string
	start int64
	bell  bool
	bellW io.Writer

	snap  clock.Snapshot
	ended bool
	err   error

	keys keyMap
	help help.Model

	width  int
	height int
}

var (
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	overtimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	endedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a countdown TUI model over c. The clock is started by
// Init, and reset returns it to its value at construction time.
func NewModel(c *clock.Clock, cfg model.ClockConfig) *Model {
	snap := c.Snapshot()
	h := help.New()
	h.ShortSeparator = "  "
	return &Model{
		clock:  c,
		events: c.Subscribe(eventBuffer),
		name:   cfg.Name,
		start:  snap.Millis,
		bell:   cfg.Bell,
		bellW:  os.Stderr,
		snap:   snap,
		keys:   defaultKeyMap(),
		help:   h,
	}
}

// Ended reports whether the clock reached its target during the session.
func (m *Model) Ended() bool {
	return m.ended
}

// Err returns the error that stopped the clock from starting, if any.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.startClock)
}

func (m *Model) startClock() tea.Msg {
	if err := m.clock.Start(); err != nil {
		return errMsg{err: err}
	}
	return nil
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case eventMsg:
		return m, tea.Batch(m.handleEvent(clock.Event(msg)), m.waitForEvent())
	case closedMsg:
		return m, nil
	case errMsg:
		m.err = msg.err
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.clock.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Pause):
		if m.clock.State() == clock.StateRunning {
			m.clock.Stop()
			return m, nil
		}
		if err := m.clock.Start(); err != nil {
			m.err = err
		}
		return m, nil
	case key.Matches(msg, m.keys.Reset):
		m.clock.SetTime(m.start)
		m.snap = m.clock.Snapshot()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleEvent(ev clock.Event) tea.Cmd {
	m.snap = ev.Snapshot
	if ev.Type != clock.EventEnded {
		return nil
	}
	m.ended = true
	if !m.bell {
		return nil
	}
	w := m.bellW
	return func() tea.Msg {
		if _, err := fmt.Fprint(w, "\a"); err != nil {
			// Best-effort bell.
			_ = err
		}
		return nil
	}
}

func (m *Model) clockStyle() lipgloss.Style {
	switch {
	case m.snap.Overtime && m.snap.State == clock.StateRunning:
		return overtimeStyle
	case m.snap.Overtime:
		return endedStyle
	case m.snap.State == clock.StateRunning:
		return runningStyle
	default:
		return pausedStyle
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.clockStyle().Render(m.snap.Text)
	if m.err != nil {
		content += "\n\n" + errorStyle.Render(fitLine(m.err.Error(), m.width))
	}
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	helpLine := m.help.View(m.keys)
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1 - lipgloss.Height(helpLine)
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	helpBlock := lipgloss.PlaceHorizontal(m.width, lipgloss.Center, helpLine)
	return body + "\n" + footerLine + "\n" + helpBlock
}
