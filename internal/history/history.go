package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tock/internal/durfmt"
	"github.com/verte-zerg/tock/internal/model"
	"github.com/verte-zerg/tock/internal/store"
)

const sparkChars = " .:-=+*#%@"

// Output formats accepted by Render.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var durationFormat = durfmt.MustCompile("%sign[%d:]%hh:%mm:%ss")

// Report contains the runs and their summary.
type Report struct {
	Summary model.RunSummary  `json:"summary" yaml:"summary"`
	Runs    []model.RunRecord `json:"runs" yaml:"runs"`
}

// BuildReport loads runs matching cfg and summarizes them.
func BuildReport(ctx context.Context, st *store.Store, cfg model.HistoryConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list runs: %w", err)
	}
	return Report{Summary: Summarize(runs), Runs: runs}, nil
}

// Summarize counts finished and interrupted runs.
func Summarize(runs []model.RunRecord) model.RunSummary {
	var s model.RunSummary
	for _, r := range runs {
		s.Runs++
		if r.Ended {
			s.Ended++
		} else {
			s.Interrupted++
		}
		if wall := r.WallMs(); wall > 0 {
			s.TotalWallMs += wall
		}
	}
	return s
}

// FormatMillis renders a clock value the way history tables show it.
func FormatMillis(ms int64) string {
	return durationFormat.Format(ms)
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Render writes the report in the given output format.
func Render(w io.Writer, r Report, output string) error {
	switch output {
	case "", OutputText:
		return RenderText(w, r)
	case OutputJSON:
		return RenderJSON(w, r)
	case OutputYAML:
		return RenderYAML(w, r)
	default:
		return fmt.Errorf("unknown output %q (want text, json or yaml)", output)
	}
}

// RenderText prints a summary and a table of runs.
func RenderText(w io.Writer, r Report) error {
	if len(r.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	s := r.Summary
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Runs: %d (ended %d, interrupted %d)\n", s.Runs, s.Ended, s.Interrupted); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total time: %s\n", FormatMillis(s.TotalWallMs)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}

	headers, rows := TableRows(r.Runs)
	walls := make([]float64, 0, len(r.Runs))
	for _, run := range r.Runs {
		walls = append(walls, float64(run.WallMs()))
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if len(walls) > 1 {
		if _, err := fmt.Fprintf(w, "\nWall time trend: [%s]\n", Sparkline(walls)); err != nil {
			return err
		}
	}
	return nil
}

// TableRows returns the column titles and one formatted row per run.
func TableRows(runs []model.RunRecord) ([]string, [][]string) {
	headers := []string{"Finished", "Name", "Start", "Final", "Wall", "Ended"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		name := run.Name
		if name == "" {
			name = "-"
		}
		ended := "no"
		if run.Ended {
			ended = "yes"
		}
		rows = append(rows, []string{
			run.FinishedAt.Local().Format("2006-01-02 15:04"),
			name,
			FormatMillis(run.StartMs),
			FormatMillis(run.FinalMs),
			FormatMillis(run.WallMs()),
			ended,
		})
	}
	return headers, rows
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r Report) error {
	if r.Runs == nil {
		r.Runs = []model.RunRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// RenderYAML writes the report as YAML.
func RenderYAML(w io.Writer, r Report) error {
	if r.Runs == nil {
		r.Runs = []model.RunRecord{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
