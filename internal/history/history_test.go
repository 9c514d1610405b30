package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tock/internal/model"
	"github.com/verte-zerg/tock/internal/store"
)

func sampleRuns() []model.RunRecord {
	target := int64(0)
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	return []model.RunRecord{
		{
			ID: "a", Name: "tea", Format: "%mm:%ss", Direction: "down",
			StartMs: 180_000, TargetMs: &target, FinalMs: 0, Ended: true,
			StartedAt: base, FinishedAt: base.Add(3 * time.Minute),
		},
		{
			ID: "b", Format: "%S", Direction: "up",
			StartMs: 0, FinalMs: 65_000, Ended: false,
			StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + 65*time.Second),
		},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRuns())
	if s.Runs != 2 || s.Ended != 1 || s.Interrupted != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.TotalWallMs != 245_000 {
		t.Fatalf("expected 245000 ms total, got %d", s.TotalWallMs)
	}
}

func TestFormatMillis(t *testing.T) {
	cases := map[int64]string{
		0:                   "00:00:00",
		180_000:             "00:03:00",
		-65_000:             "-00:01:05",
		2*86_400_000 + 1000: "2:00:00:01",
	}
	for in, want := range cases {
		if got := FormatMillis(in); got != want {
			t.Fatalf("FormatMillis(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestRenderText(t *testing.T) {
	runs := sampleRuns()
	var buf bytes.Buffer
	if err := RenderText(&buf, Report{Summary: Summarize(runs), Runs: runs}); err != nil {
		t.Fatalf("render text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Runs: 2 (ended 1, interrupted 1)",
		"Total time: 00:04:05",
		"Finished",
		"tea",
		"00:03:00",
		"00:01:05",
		"yes",
		"no",
		"Wall time trend: [@ ]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, Report{}, OutputText); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No runs found.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderJSON(t *testing.T) {
	runs := sampleRuns()
	var buf bytes.Buffer
	if err := Render(&buf, Report{Summary: Summarize(runs), Runs: runs}, OutputJSON); err != nil {
		t.Fatalf("render json: %v", err)
	}
	var decoded struct {
		Summary model.RunSummary `json:"summary"`
		Runs    []map[string]any `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded.Summary.Runs != 2 || len(decoded.Runs) != 2 {
		t.Fatalf("unexpected json: %s", buf.String())
	}
	if _, ok := decoded.Runs[1]["target_ms"]; ok {
		t.Fatalf("expected target_ms to be omitted for open-ended run")
	}
	if decoded.Runs[0]["name"] != "tea" {
		t.Fatalf("unexpected first run: %v", decoded.Runs[0])
	}
}

func TestRenderYAML(t *testing.T) {
	runs := sampleRuns()
	var buf bytes.Buffer
	if err := Render(&buf, Report{Summary: Summarize(runs), Runs: runs}, OutputYAML); err != nil {
		t.Fatalf("render yaml: %v", err)
	}
	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if decoded.Summary.Ended != 1 || len(decoded.Runs) != 2 {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}
	if decoded.Runs[0].TargetMs == nil || decoded.Runs[1].TargetMs != nil {
		t.Fatalf("target pointers not preserved:\n%s", buf.String())
	}
	if !decoded.Runs[0].FinishedAt.Equal(runs[0].FinishedAt) {
		t.Fatalf("timestamp mismatch: %v", decoded.Runs[0].FinishedAt)
	}
}

func TestRenderUnknownOutput(t *testing.T) {
	if err := Render(&bytes.Buffer{}, Report{}, "xml"); err == nil {
		t.Fatalf("expected error for unknown output")
	}
}

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	for _, run := range sampleRuns() {
		if _, err := st.InsertRun(ctx, run); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	report, err := BuildReport(ctx, st, model.HistoryConfig{Name: "tea"})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 1 || report.Summary.Ended != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}
