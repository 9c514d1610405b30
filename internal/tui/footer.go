package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tock/internal/clock"
)

const (
	progressBarWidth = 20
	ellipsis         = "..."
)

// progressFraction reports how far the clock has moved from start toward its
// target, clamped to [0, 1]. ok is false for open-ended clocks.
func progressFraction(snap clock.Snapshot, start int64) (float64, bool) {
	if !snap.HasTarget {
		return 0, false
	}
	span := float64(snap.Target) - float64(start)
	if span == 0 {
		return 1, true
	}
	frac := (float64(snap.Millis) - float64(start)) / span
	return math.Max(0, math.Min(1, frac)), true
}

func renderProgressBar(frac float64, width int) string {
	if width < 1 {
		width = 1
	}
	filled := int(math.Round(frac * float64(width)))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func statusLabel(snap clock.Snapshot) string {
	switch {
	case snap.Overtime && snap.State == clock.StateRunning:
		return "overtime"
	case snap.Overtime:
		return "ended"
	case snap.State == clock.StateRunning:
		return "running"
	case snap.State == clock.StateStopped:
		return "paused"
	default:
		return "ready"
	}
}

// fitLine truncates s to width terminal cells.
func fitLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= len(ellipsis) {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, ellipsis)
}

func (m *Model) footerSegments() []string {
	var segments []string
	if m.name != "" {
		segments = append(segments, m.name)
	}
	segments = append(segments, statusLabel(m.snap))
	if frac, ok := progressFraction(m.snap, m.start); ok {
		segments = append(segments, fmt.Sprintf("%s %d%%", renderProgressBar(frac, progressBarWidth), int(frac*100)))
	}
	return segments
}

func (m *Model) renderFooter() string {
	footer := strings.Join(m.footerSegments(), "  ")
	return footerStyle.Render(fitLine(footer, m.width))
}
