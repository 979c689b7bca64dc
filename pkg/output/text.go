package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/report"
)

// TextFormatter formats reports as human-readable tables.
type TextFormatter struct {
	opts FormatOptions

	completedColor *color.Color
	abortedColor   *color.Color
	leaderColor    *color.Color
	negativeColor  *color.Color
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	f := &TextFormatter{
		opts:           opts,
		completedColor: color.New(color.FgGreen),
		abortedColor:   color.New(color.FgHiBlack),
		leaderColor:    color.New(color.FgYellow, color.Bold),
		negativeColor:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{f.completedColor, f.abortedColor, f.leaderColor, f.negativeColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, rep *report.Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(rep, w)
	}
	return f.formatFull(rep, w)
}

func (f *TextFormatter) formatQuiet(rep *report.Report, w io.Writer) error {
	leader := "none"
	if len(rep.Ranking) > 0 {
		leader = rep.Ranking[0].String()
	}
	_, err := fmt.Fprintf(w, "fraglog: %d matches, %d completed, %d kills, leader: %s\n",
		len(rep.Matches), rep.CompletedMatches(), rep.TotalKills(), leader)
	return err
}

func (f *TextFormatter) formatFull(rep *report.Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Fraglog Match Report ===")
	fmt.Fprintln(w)

	if rep.Empty() {
		fmt.Fprintln(w, "No matches found")
	} else {
		if err := f.matchTable(rep, w); err != nil {
			return err
		}
	}

	if f.opts.Verbose {
		for _, e := range rep.Matches {
			if err := f.matchDetail(e, w); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ranking")
	if len(rep.Ranking) == 0 {
		fmt.Fprintln(w, "  No completed matches")
	} else if err := f.rankingTable(rep.Ranking, w); err != nil {
		return err
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d matches (%d completed, %d aborted), %d kills, %d players ranked\n",
		len(rep.Matches),
		rep.CompletedMatches(),
		len(rep.Matches)-rep.CompletedMatches(),
		rep.TotalKills(),
		len(rep.Ranking))

	if f.opts.Verbose {
		fmt.Fprintf(w, "Sources: %s\n", strings.Join(rep.Metadata.Sources, ", "))
		fmt.Fprintf(w, "Lines read: %d (%d outside any match)\n", rep.Metadata.LinesRead, rep.Metadata.LinesDiscarded)
		fmt.Fprintf(w, "Tie break: %s\n", rep.Metadata.TieBreak)
		fmt.Fprintf(w, "Duration: %s\n", rep.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) matchTable(rep *report.Report, w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Match", "Status", "Start", "End", "Kills", "Players"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, e := range rep.Matches {
		rec := e.Record
		data = append(data, []string{
			e.ID,
			f.statusLabel(rec.Status),
			clockOrDash(rec.StartTime),
			clockOrDash(rec.EndTime),
			strconv.Itoa(rec.TotalKills),
			strconv.Itoa(len(rec.Players)),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func (f *TextFormatter) matchDetail(e report.Entry, w io.Writer) error {
	rec := e.Record
	fmt.Fprintln(w)
	fmt.Fprintf(w, "[%s] %s %s-%s\n", e.ID, f.statusLabel(rec.Status), clockOrDash(rec.StartTime), clockOrDash(rec.EndTime))
	if e.Source != "" {
		fmt.Fprintf(w, "  Source: %s\n", e.Source)
	}
	if !rec.Completed() {
		fmt.Fprintln(w, "  No kills")
		return nil
	}

	kills := tablewriter.NewWriter(w)
	kills.Header([]string{"Player", "Kills"})
	kills.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, p := range rec.Kills.Keys() {
		data = append(data, []string{p, f.score(rec.Kills.Get(p))})
	}
	if err := kills.Bulk(data); err != nil {
		return err
	}
	if err := kills.Render(); err != nil {
		return err
	}

	causes := tablewriter.NewWriter(w)
	causes.Header([]string{"Cause", "Count"})
	causes.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	data = nil
	for _, c := range rec.KillsByCause.Keys() {
		data = append(data, []string{c, strconv.Itoa(rec.KillsByCause.Get(c))})
	}
	if err := causes.Bulk(data); err != nil {
		return err
	}
	return causes.Render()
}

func (f *TextFormatter) rankingTable(ranking []report.Standing, w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Player", "Kills"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, s := range ranking {
		player := s.Player
		if s.Rank == 1 {
			player = f.leaderColor.Sprint(player)
		}
		data = append(data, []string{strconv.Itoa(s.Rank), player, f.score(s.Score)})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func (f *TextFormatter) statusLabel(s match.Status) string {
	if s == match.StatusCompleted {
		return f.completedColor.Sprint(string(s))
	}
	return f.abortedColor.Sprint(string(s))
}

func (f *TextFormatter) score(n int) string {
	if n < 0 {
		return f.negativeColor.Sprint(strconv.Itoa(n))
	}
	return strconv.Itoa(n)
}
