package output

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/ccollicutt/fraglog/pkg/report"
)

// ScoreRow is one parquet row: a player's score in one match. Matches without
// players produce a single row with a null player.
type ScoreRow struct {
	GeneratedAt time.Time `parquet:"generated_at,snappy"`
	MatchID     string    `parquet:"match_id,snappy"`
	Source      string    `parquet:"source,snappy"`
	Status      string    `parquet:"status,snappy"`
	StartTime   *string   `parquet:"start_time,optional,snappy"`
	EndTime     *string   `parquet:"end_time,optional,snappy"`
	TotalKills  int32     `parquet:"total_kills,snappy"`
	Player      *string   `parquet:"player,optional,snappy"`
	Kills       int32     `parquet:"kills,snappy"`
}

// ParquetFormatter writes per-match scores as a parquet file.
type ParquetFormatter struct {
	opts FormatOptions
}

// NewParquetFormatter creates a new parquet formatter with the given options.
func NewParquetFormatter(opts FormatOptions) *ParquetFormatter {
	return &ParquetFormatter{opts: opts}
}

// Name returns the format name.
func (f *ParquetFormatter) Name() string {
	return "parquet"
}

// Format renders the report as parquet.
func (f *ParquetFormatter) Format(_ context.Context, rep *report.Report, w io.Writer) error {
	writer := parquet.NewGenericWriter[ScoreRow](w)

	rows := ScoreRows(rep)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write data to parquet file: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ScoreRows flattens a report into parquet rows.
func ScoreRows(rep *report.Report) []ScoreRow {
	var rows []ScoreRow
	for _, e := range rep.Matches {
		rec := e.Record
		base := ScoreRow{
			GeneratedAt: rep.Metadata.GeneratedAt,
			MatchID:     e.ID,
			Source:      e.Source,
			Status:      string(rec.Status),
			StartTime:   FormatClock(rec.StartTime),
			EndTime:     FormatClock(rec.EndTime),
			TotalKills:  int32(rec.TotalKills), // #nosec G115 -- kill counts fit in int32
		}

		if rec.Kills.Len() == 0 {
			rows = append(rows, base)
			continue
		}
		for _, p := range rec.Kills.Keys() {
			row := base
			player := p
			row.Player = &player
			row.Kills = int32(rec.Kills.Get(p)) // #nosec G115 -- kill counts fit in int32
			rows = append(rows, row)
		}
	}
	return rows
}
