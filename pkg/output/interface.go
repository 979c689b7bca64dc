package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/fraglog/pkg/report"
)

// Formatter renders a report in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, rep *report.Report, w io.Writer) error

	// Name returns the format name (text, json, csv, parquet).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds per-match detail and run metadata.
	Verbose bool

	// Quiet reduces output to the ranking or a one-line summary.
	Quiet bool

	// Color enables ANSI colors in text output.
	Color bool
}

// Formats lists the supported format names.
var Formats = []string{"text", "json", "csv", "parquet"}

// NewFormatter returns the formatter for name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	case "csv":
		return NewCSVFormatter(opts), nil
	case "parquet":
		return NewParquetFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be one of %s)", name, strings.Join(Formats, ", "))
	}
}

// IsBinary reports whether the format writes non-text output.
func IsBinary(name string) bool {
	return strings.EqualFold(name, "parquet")
}
