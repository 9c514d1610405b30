package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Clock.Format != nil || len(cfg.Presets) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigClockAndPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[clock]
format = "%hh:%mm:%ss"
bell = true

[history]
last = 10
output = "yaml"

[presets.pomodoro]
format = "%mm:%ss"
from = "25m"

[presets.tea]
from = "3m"
continue = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Clock.Format == nil || *cfg.Clock.Format != "%hh:%mm:%ss" {
		t.Fatalf("unexpected clock format: %v", cfg.Clock.Format)
	}
	if cfg.Clock.Bell == nil || !*cfg.Clock.Bell {
		t.Fatalf("expected bell = true")
	}
	if cfg.History.Last == nil || *cfg.History.Last != 10 || *cfg.History.Output != "yaml" {
		t.Fatalf("unexpected history config: %+v", cfg.History)
	}

	presets := cfg.SortedPresets()
	if len(presets) != 2 || presets[0].Name != "pomodoro" || presets[1].Name != "tea" {
		t.Fatalf("unexpected presets: %+v", presets)
	}

	tea, err := cfg.Preset("tea")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	merged := cfg.Clock.Merge(tea.ClockConfig)
	if *merged.Format != "%hh:%mm:%ss" || *merged.From != "3m" || !*merged.Continue {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if _, err := cfg.Preset("missing"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[clock]\nfromat = \"%s\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "clock.fromat") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(DefaultConfigTemplate), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("default template should decode: %v", err)
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "tock", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "tock", "history.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/tmp/data", "tock", "tock.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}

func TestParseMillis(t *testing.T) {
	cases := map[string]int64{
		"1500":   1500,
		"-250":   -250,
		"90s":    90_000,
		"1h30m":  5_400_000,
		"1.5s":   1500,
		"2d":     172_800_000,
		"1.5d":   129_600_000,
		"2d3h":   183_600_000,
		"-1d12h": -129_600_000,
		" 25m ":  1_500_000,
	}
	for in, want := range cases {
		got, err := ParseMillis(in)
		if err != nil {
			t.Fatalf("ParseMillis(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseMillis(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"", "abc", "2dx", "1d-3h", "d"} {
		if _, err := ParseMillis(in); err == nil {
			t.Fatalf("ParseMillis(%q) expected error", in)
		}
	}
}

func TestParseDeadline(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2024, 5, 10, 14, 30, 0, 0, loc)

	cases := map[string]time.Time{
		"2024-05-10T16:00:00+02:00": time.Date(2024, 5, 10, 16, 0, 0, 0, loc),
		"2024-05-11 09:15":          time.Date(2024, 5, 11, 9, 15, 0, 0, loc),
		"2024-06-01":                time.Date(2024, 6, 1, 0, 0, 0, 0, loc),
		"18:00":                     time.Date(2024, 5, 10, 18, 0, 0, 0, loc),
		"09:00":                     time.Date(2024, 5, 11, 9, 0, 0, 0, loc),
		"14:30":                     time.Date(2024, 5, 11, 14, 30, 0, 0, loc),
		"14:30:05":                  time.Date(2024, 5, 10, 14, 30, 5, 0, loc),
	}
	for in, want := range cases {
		got, err := ParseDeadline(in, now)
		if err != nil {
			t.Fatalf("ParseDeadline(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDeadline(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseDeadline("tomorrow", now); err == nil {
		t.Fatalf("expected error for unknown layout")
	}
}
