// Package output provides formatting for match reports.
package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/report"
)

// ClockFormat renders match start and end times.
const ClockFormat = "15:04"

// Document is the JSON shape of a report.
type Document struct {
	Matches  MatchSet          `json:"matches"`
	Ranking  []string          `json:"ranking"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}

// MatchDocument is the JSON shape of one match.
type MatchDocument struct {
	TotalKills   int          `json:"total_kills"`
	Players      []string     `json:"players"`
	Kills        *match.Tally `json:"kills"`
	KillsByMeans *match.Tally `json:"kills_by_means"`
	Status       match.Status `json:"status"`
	StartTime    *string      `json:"start_time"`
	EndTime      *string      `json:"end_time"`
}

// DocumentMetadata describes the run. It is only included in verbose output.
type DocumentMetadata struct {
	Sources        []string  `json:"sources"`
	LinesRead      int       `json:"lines_read"`
	LinesDiscarded int       `json:"lines_discarded"`
	TieBreak       string    `json:"tie_break"`
	GeneratedAt    time.Time `json:"generated_at"`
	DurationMs     int64     `json:"duration_ms"`
}

// MatchSet is an ordered set of matches encoded as a JSON object keyed by
// match id.
type MatchSet struct {
	IDs     []string
	Matches map[string]MatchDocument
}

// MarshalJSON encodes matches in report order.
func (m MatchSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.IDs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.Matches[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewDocument converts a report to its JSON document.
func NewDocument(rep *report.Report, withMetadata bool) *Document {
	doc := &Document{
		Matches: MatchSet{
			IDs:     make([]string, 0, len(rep.Matches)),
			Matches: make(map[string]MatchDocument, len(rep.Matches)),
		},
		Ranking: rep.RankingLines(),
	}

	for _, e := range rep.Matches {
		doc.Matches.IDs = append(doc.Matches.IDs, e.ID)
		doc.Matches.Matches[e.ID] = NewMatchDocument(e.Record)
	}

	if withMetadata {
		doc.Metadata = &DocumentMetadata{
			Sources:        rep.Metadata.Sources,
			LinesRead:      rep.Metadata.LinesRead,
			LinesDiscarded: rep.Metadata.LinesDiscarded,
			TieBreak:       string(rep.Metadata.TieBreak),
			GeneratedAt:    rep.Metadata.GeneratedAt,
			DurationMs:     rep.Metadata.Duration.Milliseconds(),
		}
	}

	return doc
}

// NewMatchDocument converts a match record to its JSON shape.
func NewMatchDocument(rec *match.Record) MatchDocument {
	return MatchDocument{
		TotalKills:   rec.TotalKills,
		Players:      rec.SortedPlayers(),
		Kills:        rec.Kills,
		KillsByMeans: rec.KillsByCause,
		Status:       rec.Status,
		StartTime:    FormatClock(rec.StartTime),
		EndTime:      FormatClock(rec.EndTime),
	}
}

// FormatClock renders t as HH:MM, or nil when t is unset.
func FormatClock(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(ClockFormat)
	return &s
}

func clockOrDash(t *time.Time) string {
	if s := FormatClock(t); s != nil {
		return *s
	}
	return "-"
}

func clockOrBlank(t *time.Time) string {
	if s := FormatClock(t); s != nil {
		return *s
	}
	return ""
}
