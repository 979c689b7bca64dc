package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/fraglog/pkg/report"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(_ context.Context, rep *report.Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		// Quiet mode: just the ranking
		return encoder.Encode(struct {
			Ranking []string `json:"ranking"`
		}{Ranking: rep.RankingLines()})
	}

	return encoder.Encode(NewDocument(rep, f.opts.Verbose))
}
