package detector

import "regexp"

// ClockFormat is a known leading clock token of a server log line.
type ClockFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern string for display
	Layout     string         // Go time layout, usable as clock_layout
	Examples   []string       // Example tokens
}

// DefaultFormats returns the built-in clock formats to detect.
// More specific patterns come first.
func DefaultFormats() []*ClockFormat {
	formats := []*ClockFormat{
		{
			Name:       "ISO 8601",
			PatternStr: `^\s*(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})\s`,
			Layout:     "2006-01-02T15:04:05",
			Examples:   []string{"2024-01-15T20:54:10"},
		},
		{
			Name:       "Clock with seconds",
			PatternStr: `^\s*(\d{1,2}:\d{2}:\d{2})\s`,
			Layout:     "15:04:05",
			Examples:   []string{"20:54:10", "0:05:33"},
		},
		{
			Name:       "Game clock",
			PatternStr: `^\s*(\d{1,2}:\d{2})\s`,
			Layout:     "15:04",
			Examples:   []string{"0:00", "20:54"},
		},
	}

	// Compile all patterns
	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}
