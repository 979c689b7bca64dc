package output

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ccollicutt/fraglog/pkg/report"
)

// CSVFormatter writes the ranking as CSV. Verbose output appends one row per
// match and player.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter with the given options.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format renders the report as CSV.
func (f *CSVFormatter) Format(_ context.Context, rep *report.Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"rank", "player", "kills"}); err != nil {
		return err
	}
	for _, s := range rep.Ranking {
		if err := cw.Write([]string{strconv.Itoa(s.Rank), s.Player, strconv.Itoa(s.Score)}); err != nil {
			return err
		}
	}

	if f.opts.Verbose && !f.opts.Quiet {
		cw.Flush()
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := cw.Write([]string{"match", "status", "start_time", "end_time", "total_kills", "player", "kills"}); err != nil {
			return err
		}
		for _, e := range rep.Matches {
			rec := e.Record
			prefix := []string{e.ID, string(rec.Status), clockOrBlank(rec.StartTime), clockOrBlank(rec.EndTime), strconv.Itoa(rec.TotalKills)}
			if rec.Kills.Len() == 0 {
				if err := cw.Write(append(prefix, "", "")); err != nil {
					return err
				}
				continue
			}
			for _, p := range rec.Kills.Keys() {
				row := append(append([]string(nil), prefix...), p, strconv.Itoa(rec.Kills.Get(p)))
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
