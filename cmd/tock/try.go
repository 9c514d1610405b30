package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tock/internal/config"
	"github.com/verte-zerg/tock/internal/durfmt"
)

var formatNeglect bool

// Values rendered by the playground until :values replaces them.
var defaultSamples = []int64{0, 7_300, -65_000, 183_907_300}

func newFormatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format <template> <duration>...",
		Short: "Render durations through a template",
		Example: `  tock format '%hh:%mm:%ss' 90m
  tock format '[%d days ]%h:%mm' 2d3h 45m
  tock format --neglect-higher '%sign%m:%ss' -90s`,
		Args: cobra.MinimumNArgs(2),
		RunE: runFormatCmd,
	}
	cmd.Flags().BoolVar(&formatNeglect, "neglect-higher", false, "do not fold missing higher units into lower ones")
	// Flags go before the template so negative durations parse as arguments.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runFormatCmd(cmd *cobra.Command, args []string) error {
	p, err := durfmt.CompileWithOptions(args[0], durfmt.Options{NeglectHigherUnits: formatNeglect})
	if err != nil {
		return fmt.Errorf("failed to compile template: %w", err)
	}
	for _, arg := range args[1:] {
		ms, err := config.ParseMillis(arg)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		if err := writeLine(cmd.OutOrStdout(), p.Format(ms)); err != nil {
			return err
		}
	}
	return nil
}

func newTryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "try",
		Short: "Interactive template playground",
		Args:  cobra.NoArgs,
		RunE:  runTryCmd,
	}
}

func runTryCmd(_ *cobra.Command, _ []string) error {
	historyFile := filepath.Join(config.XDGDataHome(), config.AppName, "try_history")
	if err := os.MkdirAll(filepath.Dir(historyFile), 0o755); err != nil {
		historyFile = ""
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "template> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() {
		if cerr := rl.Close(); cerr != nil {
			// Best-effort readline close.
			_ = cerr
		}
	}()

	pg := newPlayground()
	pg.printHelp(rl.Stdout())
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}
		if pg.handle(line, rl.Stdout()) {
			return nil
		}
	}
}

type playground struct {
	samples []int64
	neglect bool
	last    string
}

func newPlayground() *playground {
	return &playground{samples: append([]int64(nil), defaultSamples...)}
}

// handle runs one input line and reports whether the session should end.
func (p *playground) handle(line string, w io.Writer) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}
	if !strings.HasPrefix(input, ":") {
		p.last = line
		p.render(w)
		return false
	}

	parts := strings.Fields(input)
	switch parts[0] {
	case ":q", ":quit", ":exit":
		return true
	case ":help", ":h":
		p.printHelp(w)
	case ":values", ":v":
		p.setValues(parts[1:], w)
	case ":neglect", ":n":
		p.neglect = !p.neglect
		printf(w, "neglect higher units: %t\n", p.neglect)
		if p.last != "" {
			p.render(w)
		}
	default:
		printf(w, "unknown command %s (try :help)\n", parts[0])
	}
	return false
}

func (p *playground) setValues(args []string, w io.Writer) {
	if len(args) == 0 {
		printf(w, "values: %s\n", joinMillis(p.samples))
		return
	}
	samples := make([]int64, 0, len(args))
	for _, arg := range args {
		ms, err := config.ParseMillis(arg)
		if err != nil {
			printf(w, "error: %v\n", err)
			return
		}
		samples = append(samples, ms)
	}
	p.samples = samples
	if p.last != "" {
		p.render(w)
	}
}

func (p *playground) render(w io.Writer) {
	pipe, err := durfmt.CompileWithOptions(p.last, durfmt.Options{NeglectHigherUnits: p.neglect})
	if err != nil {
		printf(w, "error: %v\n", err)
		return
	}
	printf(w, "tick every %s\n", pipe.TickInterval())
	width := 0
	for _, ms := range p.samples {
		if n := len(fmt.Sprint(ms)); n > width {
			width = n
		}
	}
	for _, ms := range p.samples {
		printf(w, "  %*d ms  %s\n", width, ms, pipe.Format(ms))
	}
}

func (p *playground) printHelp(w io.Writer) {
	printf(w, "Type a template to render it for %s.\n", joinMillis(p.samples))
	printf(w, "Commands: :values <duration>...  :neglect  :help  :quit\n")
}

func joinMillis(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d ms", v)
	}
	return strings.Join(parts, ", ")
}

func printf(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		// Best-effort playground output.
		_ = err
	}
}
