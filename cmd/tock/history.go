package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tock/internal/config"
	"github.com/verte-zerg/tock/internal/history"
	"github.com/verte-zerg/tock/internal/model"
	"github.com/verte-zerg/tock/internal/store"
	"github.com/verte-zerg/tock/internal/tui"
)

var (
	historyName   string
	historySince  string
	historyLast   int
	historyOutput string
	historyBrowse bool
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished runs",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyName, "name", "", "name filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD) or age (e.g. 24h, 7d)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N runs")
	cmd.Flags().StringVarP(&historyOutput, "output", "o", history.OutputText, "output format: text, json or yaml")
	cmd.Flags().BoolVar(&historyBrowse, "browse", false, "browse runs in a scrollable table")
	_ = cmd.RegisterFlagCompletionFunc("name", completeRunNames)
	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		[]string{history.OutputText, history.OutputJSON, history.OutputYAML}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "last", &historyLast, fileCfg.History.Last)
	applyStringConfig(cmd, "output", &historyOutput, fileCfg.History.Output)

	since, err := parseSince(historySince, time.Now())
	if err != nil {
		return err
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	cfg := model.HistoryConfig{
		Name:   historyName,
		Since:  since,
		Last:   historyLast,
		Output: historyOutput,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := history.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return err
	}
	if historyBrowse {
		program := tea.NewProgram(tui.NewHistoryModel(report), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}
	return history.Render(cmd.OutOrStdout(), report, cfg.Output)
}

// parseSince accepts a calendar date or an age relative to now.
func parseSince(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.ParseInLocation("2006-01-02", value, now.Location()); err == nil {
		return &parsed, nil
	}
	age, err := config.ParseMillis(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value %q (want YYYY-MM-DD or an age like 24h)", value)
	}
	since := now.Add(-time.Duration(age) * time.Millisecond)
	return &since, nil
}

func completeRunNames(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			// Best-effort close during completion.
			_ = cerr
		}
	}()
	names, err := st.ListNames(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	out := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List presets from the config file",
		Args:  cobra.NoArgs,
		RunE:  runPresetsCmd,
	}
}

func runPresetsCmd(cmd *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	presets := fileCfg.SortedPresets()
	if len(presets) == 0 {
		logErrf("No presets found. Add [presets.<name>] tables to %s (tock config)\n", path)
		return nil
	}
	return writePresets(cmd.OutOrStdout(), presets)
}

func writePresets(w io.Writer, presets []config.Preset) error {
	width := 0
	for _, p := range presets {
		if len(p.Name) > width {
			width = len(p.Name)
		}
	}
	for _, p := range presets {
		line := fmt.Sprintf("%-*s  %s", width, p.Name, describePreset(p.ClockConfig))
		if err := writeLine(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func describePreset(c config.ClockConfig) string {
	var parts []string
	addString := func(key string, v *string) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s=%q", key, *v))
		}
	}
	addBool := func(key string, v *bool) {
		if v != nil {
			parts = append(parts, fmt.Sprintf("%s=%t", key, *v))
		}
	}
	addString("format", c.Format)
	addString("from", c.From)
	addString("to", c.To)
	addString("until", c.Until)
	addString("direction", c.Direction)
	addBool("continue", c.Continue)
	addBool("neglect-higher", c.NeglectHigher)
	addBool("bell", c.Bell)
	return strings.Join(parts, " ")
}
