// Package parser provides log file reading and line classification.
package parser

// Line is a single raw log line with its origin.
type Line struct {
	// Raw is the line content without the trailing newline.
	Raw string

	// Source is the file path (or source name) this line came from.
	Source string

	// LineNum is the 1-based line number in the source.
	LineNum int
}

// Kill is a kill event extracted from a log line.
type Kill struct {
	Killer string
	Victim string
	Cause  string
}
