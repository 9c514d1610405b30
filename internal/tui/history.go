package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tock/internal/history"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// HistoryModel is a scrollable table of finished runs.
type HistoryModel struct {
	report history.Report
	table  table.Model
	quit   key.Binding

	width  int
	height int
}

// NewHistoryModel constructs the run history browser.
func NewHistoryModel(r history.Report) *HistoryModel {
	cols, rows := buildHistoryTableData(r)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(maxInt(1, len(rows)+1)),
	)
	t.SetStyles(historyTableStyles())
	return &HistoryModel{
		report: r,
		table:  t,
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Init implements tea.Model.
func (m *HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(maxInt(1, msg.Height-4))
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *HistoryModel) View() string {
	s := m.report.Summary
	summary := headerStyle.Render("Runs ") + valueStyle.Render(fmt.Sprintf("%d", s.Runs)) +
		headerStyle.Render("  ended ") + valueStyle.Render(fmt.Sprintf("%d", s.Ended)) +
		headerStyle.Render("  interrupted ") + valueStyle.Render(fmt.Sprintf("%d", s.Interrupted)) +
		headerStyle.Render("  total ") + valueStyle.Render(history.FormatMillis(s.TotalWallMs))
	footer := footerStyle.Render(fitLine("up/down move  q quit", m.width))
	return summary + "\n\n" + m.table.View() + "\n" + footer
}

func buildHistoryTableData(r history.Report) ([]table.Column, []table.Row) {
	headers, cells := history.TableRows(r.Runs)
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	rows := make([]table.Row, 0, len(cells))
	for _, row := range cells {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
		rows = append(rows, table.Row(row))
	}
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: widths[i] + 1}
	}
	return cols, rows
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
