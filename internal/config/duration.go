package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayPrefix = regexp.MustCompile(`^([+-]?)(\d+(?:\.\d+)?)d(.*)$`)

// ParseMillis parses a duration argument into milliseconds. It accepts Go
// durations ("1h30m"), a day suffix ("2d", "1.5d", "2d3h") and bare integers,
// which are taken as milliseconds.
func ParseMillis(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ms, nil
	}
	if m := dayPrefix.FindStringSubmatch(value); m != nil {
		days, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d := time.Duration(days * float64(24*time.Hour))
		if m[3] != "" {
			rest, err := time.ParseDuration(m[3])
			if err != nil || strings.HasPrefix(m[3], "-") || strings.HasPrefix(m[3], "+") {
				return 0, fmt.Errorf("invalid duration %q", value)
			}
			d += rest
		}
		if m[1] == "-" {
			d = -d
		}
		return d.Milliseconds(), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d.Milliseconds(), nil
}

// ParseDeadline parses an absolute point in time. Accepted layouts are RFC3339,
// "2006-01-02 15:04", "2006-01-02" and a bare "15:04" or "15:04:05", which means
// the next such time of day after now.
func ParseDeadline(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty deadline")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	loc := now.Location()
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		clock, err := time.ParseInLocation(layout, value, loc)
		if err != nil {
			continue
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q (want RFC3339, YYYY-MM-DD [HH:MM] or HH:MM)", value)
}
