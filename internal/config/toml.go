// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Clock   ClockConfig            `toml:"clock"`
	History HistoryConfig          `toml:"history"`
	Presets map[string]ClockConfig `toml:"presets"`
}

// HistoryConfig maps history command defaults.
type HistoryConfig struct {
	Last   *int    `toml:"last"`
	Output *string `toml:"output"`
}

// ClockConfig maps clock settings. It is used both for the [clock] defaults
// and for every [presets.<name>] table.
type ClockConfig struct {
	Format        *string `toml:"format"`
	From          *string `toml:"from"`
	To            *string `toml:"to"`
	Until         *string `toml:"until"`
	Direction     *string `toml:"direction"`
	Continue      *bool   `toml:"continue"`
	NeglectHigher *bool   `toml:"neglect-higher"`
	Bell          *bool   `toml:"bell"`
}

// Preset is a named clock configuration.
type Preset struct {
	Name string
	ClockConfig
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Preset returns the preset called name.
func (c FileConfig) Preset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q", name)
	}
	return Preset{Name: name, ClockConfig: p}, nil
}

// SortedPresets returns every preset ordered by name.
func (c FileConfig) SortedPresets() []Preset {
	out := make([]Preset, 0, len(c.Presets))
	for name, p := range c.Presets {
		out = append(out, Preset{Name: name, ClockConfig: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Merge returns c with every field set in over replacing the one in c.
func (c ClockConfig) Merge(over ClockConfig) ClockConfig {
	if over.Format != nil {
		c.Format = over.Format
	}
	if over.From != nil {
		c.From = over.From
	}
	if over.To != nil {
		c.To = over.To
	}
	if over.Until != nil {
		c.Until = over.Until
	}
	if over.Direction != nil {
		c.Direction = over.Direction
	}
	if over.Continue != nil {
		c.Continue = over.Continue
	}
	if over.NeglectHigher != nil {
		c.NeglectHigher = over.NeglectHigher
	}
	if over.Bell != nil {
		c.Bell = over.Bell
	}
	return c
}

// DefaultConfigTemplate is written by `tock config` when no file exists yet.
const DefaultConfigTemplate = `# tock configuration

[clock]
# format = "[%d days ]%hh:%mm:%ss"
# from = "25m"
# to = "0"
# direction = "down"
# continue = false
# neglect-higher = false
# bell = true

[history]
# last = 20
# output = "text"         # text, json or yaml

# [presets.pomodoro]
# format = "%mm:%ss"
# from = "25m"
# bell = true

# [presets.stopwatch]
# format = "%H:%mm:%ss.%ts"
# from = "0"
# direction = "up"
`
