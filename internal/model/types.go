// Package model defines shared data structures.
package model

import "time"

// ClockConfig defines the resolved settings of one clock run.
type ClockConfig struct {
	Name          string
	Format        string
	FromMs        int64
	ToMs          *int64
	Deadline      *time.Time
	Direction     string
	Continue      bool
	NeglectHigher bool
	Bell          bool
	Plain         bool
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	Name   string
	Since  *time.Time
	Last   int
	Output string
}

// RunRecord captures a finished clock run.
type RunRecord struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name,omitempty" yaml:"name,omitempty"`
	Format     string    `json:"format" yaml:"format"`
	Direction  string    `json:"direction" yaml:"direction"`
	StartMs    int64     `json:"start_ms" yaml:"start_ms"`
	TargetMs   *int64    `json:"target_ms,omitempty" yaml:"target_ms,omitempty"`
	FinalMs    int64     `json:"final_ms" yaml:"final_ms"`
	Ended      bool      `json:"ended" yaml:"ended"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// WallMs returns the real time the run took.
func (r RunRecord) WallMs() int64 {
	return r.FinishedAt.Sub(r.StartedAt).Milliseconds()
}

// RunSummary aggregates runs for reporting.
type RunSummary struct {
	Runs        int   `json:"runs" yaml:"runs"`
	Ended       int   `json:"ended" yaml:"ended"`
	Interrupted int   `json:"interrupted" yaml:"interrupted"`
	TotalWallMs int64 `json:"total_wall_ms" yaml:"total_wall_ms"`
}
