// Package main provides the CLI entrypoint for tock.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tock/internal/clock"
	"github.com/verte-zerg/tock/internal/config"
	"github.com/verte-zerg/tock/internal/model"
	"github.com/verte-zerg/tock/internal/store"
	"github.com/verte-zerg/tock/internal/tui"
)

const (
	defaultFormat = "[%d days ]%hh:%mm:%ss"
	defaultFrom   = "0"
)

var (
	clockFormat    string
	clockFrom      string
	clockTo        string
	clockUntil     string
	clockDirection string
	clockContinue  bool
	clockNeglect   bool
	clockBell      bool
	clockPlain     bool
	clockPreset    string
	clockName      string
	verbose        bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tock",
		Short: "Terminal countdown and timer",
		Long: `Run a countdown or timer rendered through a duration template.

Template directives: %d %h %m %s %t (modulo units), %D %H %M %S (totals),
two-letter forms like %hh pad to two digits, %sign %SIGN %nosign control the
sign, [ ... ] collapses when zero and %js{ ... } evaluates arithmetic.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runClockCmd,
	}

	rootCmd.Flags().StringVarP(&clockFormat, "format", "f", defaultFormat, "duration template")
	rootCmd.Flags().StringVar(&clockFrom, "from", defaultFrom, "start value (e.g. 25m, 1h30m, 2d, 1500)")
	rootCmd.Flags().StringVar(&clockTo, "to", "", "target value; empty counts down to 0 or up forever")
	rootCmd.Flags().StringVar(&clockUntil, "until", "", "deadline (RFC3339, 2006-01-02 15:04, 15:04)")
	rootCmd.Flags().StringVar(&clockDirection, "direction", "", "up, down or empty to infer from --from and --to")
	rootCmd.Flags().BoolVar(&clockContinue, "continue", false, "keep running past the target")
	rootCmd.Flags().BoolVar(&clockNeglect, "neglect-higher", false, "do not fold missing higher units into lower ones")
	rootCmd.Flags().BoolVar(&clockBell, "bell", false, "ring the terminal bell when the target is reached")
	rootCmd.Flags().BoolVar(&clockPlain, "plain", false, "print frames instead of the full-screen UI")
	rootCmd.Flags().StringVar(&clockPreset, "preset", "", "preset from the config file")
	rootCmd.Flags().StringVar(&clockName, "name", "", "name recorded in history (default: preset name)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	_ = rootCmd.RegisterFlagCompletionFunc("preset", completePresets)
	_ = rootCmd.RegisterFlagCompletionFunc("direction", cobra.FixedCompletions([]string{"up", "down"}, cobra.ShellCompDirectiveNoFileComp))

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newFormatCmd())
	rootCmd.AddCommand(newTryCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPresetsCmd())

	return rootCmd
}

func runClockCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	base := fileCfg.Clock
	if clockPreset != "" {
		preset, err := fileCfg.Preset(clockPreset)
		if err != nil {
			return err
		}
		base = base.Merge(preset.ClockConfig)
		if !cmd.Flags().Changed("name") {
			clockName = preset.Name
		}
	}
	applyClockConfig(cmd, base)

	now := time.Now()
	cfg, err := resolveClockConfig(now)
	if err != nil {
		return err
	}

	fullScreen := !cfg.Plain && tui.IsTerminal(os.Stdout)
	logger, closeLog, err := newLogger(verbose, fullScreen)
	if err != nil {
		return err
	}
	defer closeLog()

	c, err := buildClock(cfg, now, clock.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer c.Close()

	var ended atomic.Bool
	c.OnEnded(func(clock.Snapshot) { ended.Store(true) })
	initial := c.Snapshot()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	startedAt := time.Now()
	if fullScreen {
		err = runFullScreen(c, cfg)
	} else {
		err = runPlain(cmd, c, cfg)
	}
	if err != nil {
		return err
	}

	final := c.Snapshot()
	if final.State == clock.StateIdle {
		return nil
	}
	run := buildRunRecord(cfg, initial, final, ended.Load(), startedAt, time.Now())
	if _, err := st.InsertRun(context.Background(), run); err != nil {
		logErrf("failed to save run: %v\n", err)
	}
	return nil
}

func runFullScreen(c *clock.Clock, cfg model.ClockConfig) error {
	m := tui.NewModel(c, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.Err(); err != nil {
		return fmt.Errorf("failed to start clock: %w", err)
	}
	return nil
}

func runPlain(cmd *cobra.Command, c *clock.Clock, cfg model.ClockConfig) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()
	opts := tui.PlainOptions{
		Inline: tui.IsTerminal(out),
		Width:  tui.TerminalWidth(out),
		Bell:   cfg.Bell,
	}
	if _, err := tui.RunPlain(ctx, c, out, opts); err != nil {
		return fmt.Errorf("failed to run clock: %w", err)
	}
	return nil
}

func applyClockConfig(cmd *cobra.Command, cfg config.ClockConfig) {
	applyStringConfig(cmd, "format", &clockFormat, cfg.Format)
	applyStringConfig(cmd, "from", &clockFrom, cfg.From)
	applyStringConfig(cmd, "to", &clockTo, cfg.To)
	applyStringConfig(cmd, "until", &clockUntil, cfg.Until)
	applyStringConfig(cmd, "direction", &clockDirection, cfg.Direction)
	applyBoolConfig(cmd, "continue", &clockContinue, cfg.Continue)
	applyBoolConfig(cmd, "neglect-higher", &clockNeglect, cfg.NeglectHigher)
	applyBoolConfig(cmd, "bell", &clockBell, cfg.Bell)
}

func resolveClockConfig(now time.Time) (model.ClockConfig, error) {
	cfg := model.ClockConfig{
		Name:          clockName,
		Format:        clockFormat,
		Direction:     clockDirection,
		Continue:      clockContinue,
		NeglectHigher: clockNeglect,
		Bell:          clockBell,
		Plain:         clockPlain,
	}
	if strings.TrimSpace(cfg.Format) == "" {
		return cfg, fmt.Errorf("--format must not be empty")
	}
	if _, err := clock.ParseDirection(cfg.Direction); err != nil {
		return cfg, fmt.Errorf("invalid --direction: %w", err)
	}
	from := strings.TrimSpace(clockFrom)
	if from == "" {
		from = defaultFrom
	}
	fromMs, err := config.ParseMillis(from)
	if err != nil {
		return cfg, fmt.Errorf("invalid --from value: %w", err)
	}
	cfg.FromMs = fromMs
	if clockTo != "" && clockUntil != "" {
		return cfg, fmt.Errorf("--to and --until cannot be combined")
	}
	if clockTo != "" {
		toMs, err := config.ParseMillis(clockTo)
		if err != nil {
			return cfg, fmt.Errorf("invalid --to value: %w", err)
		}
		cfg.ToMs = &toMs
	}
	if clockUntil != "" {
		deadline, err := config.ParseDeadline(clockUntil, now)
		if err != nil {
			return cfg, fmt.Errorf("invalid --until value: %w", err)
		}
		cfg.Deadline = &deadline
	}
	return cfg, nil
}

// buildClock picks the factory for cfg. Without a target an up clock runs
// forever and any other clock counts down to zero.
func buildClock(cfg model.ClockConfig, now time.Time, opts clock.Options) (*clock.Clock, error) {
	opts.Format = cfg.Format
	opts.NeglectHigherUnits = cfg.NeglectHigher
	opts.ContinueAfterEnd = cfg.Continue
	dir, err := clock.ParseDirection(cfg.Direction)
	if err != nil {
		return nil, err
	}

	var c *clock.Clock
	switch {
	case cfg.Deadline != nil && dir == clock.Up:
		c, err = clock.TimerTo(*cfg.Deadline, now, opts)
	case cfg.Deadline != nil:
		c, err = clock.CountdownTo(*cfg.Deadline, now, opts)
	case cfg.ToMs == nil && dir == clock.Up:
		c, err = clock.NewTimer(cfg.FromMs, nil, opts)
	case cfg.ToMs == nil:
		c, err = clock.NewCountdown(cfg.FromMs, 0, opts)
	default:
		c, err = clock.New(opts)
		if err == nil {
			c.Configure(cfg.FromMs, cfg.ToMs, dir)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func buildRunRecord(cfg model.ClockConfig, initial, final clock.Snapshot, ended bool, startedAt, finishedAt time.Time) model.RunRecord {
	run := model.RunRecord{
		Name:       cfg.Name,
		Format:     cfg.Format,
		Direction:  final.Direction.String(),
		StartMs:    initial.Millis,
		FinalMs:    final.Millis,
		Ended:      ended,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if final.HasTarget {
		target := final.Target
		run.TargetMs = &target
	}
	return run
}

// newLogger logs to stderr, or to a file while the full-screen UI owns the
// terminal. The returned func closes the file.
func newLogger(debug, fullScreen bool) (*slog.Logger, func(), error) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if !fullScreen {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}, nil
	}
	if !debug {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	closeFn := func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort log file close.
			_ = cerr
		}
	}
	return slog.New(slog.NewTextHandler(f, opts)), closeFn, nil
}

func completePresets(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, p := range fileCfg.SortedPresets() {
		if strings.HasPrefix(p.Name, toComplete) {
			names = append(names, p.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// ensureConfigFile writes the commented template unless path already exists.
func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.DefaultConfigTemplate), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func writeLine(w io.Writer, args ...any) error {
	if _, err := fmt.Fprintln(w, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
