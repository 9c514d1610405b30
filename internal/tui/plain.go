package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tock/internal/clock"
)

// PlainOptions configures RunPlain.
type PlainOptions struct {
	// Inline rewrites a single line with carriage returns instead of printing
	// one line per frame.
	Inline bool
	Width  int
	Bell   bool
}

// RunPlain starts c and writes every rendered frame to w until the clock stops
// on its own or ctx is done. It reports whether the clock reached its target.
func RunPlain(ctx context.Context, c *clock.Clock, w io.Writer, opts PlainOptions) (bool, error) {
	events := c.Subscribe(64)
	if err := c.Start(); err != nil {
		return false, err
	}
	p := &plainWriter{w: w, opts: opts}
	ended := false
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return ended, p.finish()
		case ev, ok := <-events:
			if !ok {
				return ended, p.finish()
			}
			switch ev.Type {
			case clock.EventRender:
				if err := p.frame(ev.Text); err != nil {
					return ended, err
				}
			case clock.EventEnded:
				ended = true
				if opts.Bell {
					if _, err := fmt.Fprint(w, "\a"); err != nil {
						return ended, fmt.Errorf("failed to ring bell: %w", err)
					}
				}
			case clock.EventStopped:
				return ended, p.finish()
			}
		}
	}
}

type plainWriter struct {
	w       io.Writer
	opts    PlainOptions
	written bool
	prev    int
}

func (p *plainWriter) frame(text string) error {
	if !p.opts.Inline {
		_, err := fmt.Fprintln(p.w, text)
		return err
	}
	line := fitLine(text, p.opts.Width)
	width := runewidth.StringWidth(line)
	pad := ""
	if width < p.prev {
		pad = strings.Repeat(" ", p.prev-width)
	}
	p.prev = width
	p.written = true
	_, err := fmt.Fprint(p.w, "\r"+line+pad)
	return err
}

func (p *plainWriter) finish() error {
	if !p.opts.Inline || !p.written {
		return nil
	}
	p.written = false
	_, err := fmt.Fprintln(p.w)
	return err
}
