package parser

import (
	"strings"
	"time"
)

// DefaultClockLayout is the server clock format, minutes and seconds shown as
// H:MM with an optional leading zero on the first field.
const DefaultClockLayout = "15:04"

// ClockParser reads the leading clock token of a log line.
type ClockParser struct {
	layout string
	// loose accepts an unpadded minute ("1:5") when layout pads it.
	loose string
}

// NewClockParser creates a clock parser for the given Go time layout.
func NewClockParser(layout string) *ClockParser {
	if layout == "" {
		layout = DefaultClockLayout
	}
	c := &ClockParser{layout: layout}
	if loose := strings.Replace(layout, ":04", ":4", 1); loose != layout {
		c.loose = loose
	}
	return c
}

// Layout returns the time layout used for parsing.
func (c *ClockParser) Layout() string {
	return c.layout
}

// Parse extracts the first whitespace-delimited token of line and parses it
// with the configured layout. The bool is false when the line is empty or the
// token does not parse; callers treat that as "no time".
func (c *ClockParser) Parse(line string) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, false
	}

	if t, err := time.Parse(c.layout, fields[0]); err == nil {
		return t, true
	}
	if c.loose != "" {
		if t, err := time.Parse(c.loose, fields[0]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
