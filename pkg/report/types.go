// Package report segments a server log into matches and ranks players
// across them.
package report

import (
	"fmt"
	"time"

	"github.com/ccollicutt/fraglog/pkg/match"
)

// TieBreak selects how players with equal totals are ordered.
type TieBreak string

const (
	// TieBreakFirstSeen keeps the order in which players were first met
	// while summing completed matches.
	TieBreakFirstSeen TieBreak = "first_seen"

	// TieBreakName orders equal totals by player name.
	TieBreakName TieBreak = "name"
)

// ParseTieBreak converts a config or flag value to a TieBreak.
// The empty string selects TieBreakFirstSeen.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakFirstSeen:
		return TieBreakFirstSeen, nil
	case TieBreakName:
		return TieBreakName, nil
	default:
		return "", fmt.Errorf("unknown tie break %q (must be first_seen or name)", s)
	}
}

// Entry is a match record with its identifier.
type Entry struct {
	ID     string
	Record *match.Record

	// Source is the log file the match was read from.
	Source string
}

// Standing is one row of the ranking.
type Standing struct {
	Rank   int
	Player string
	Score  int
}

// String renders the standing as "<rank>. <player> - <score> kills".
func (s Standing) String() string {
	return fmt.Sprintf("%d. %s - %d kills", s.Rank, s.Player, s.Score)
}

// Stats describes the input consumed by a segmentation pass.
type Stats struct {
	// Sources lists the log sources in the order they were read.
	Sources []string

	// LinesRead counts every line returned by the source.
	LinesRead int

	// LinesDiscarded counts lines seen outside any match, i.e. before the
	// first session start of a source.
	LinesDiscarded int
}

// Metadata provides context about a report run.
type Metadata struct {
	Sources        []string
	LinesRead      int
	LinesDiscarded int
	TieBreak       TieBreak
	GeneratedAt    time.Time
	Duration       time.Duration
}

// Report is the result of segmenting a log: every match in order of
// appearance plus the cross-match ranking.
type Report struct {
	Matches  []Entry
	Ranking  []Standing
	Metadata Metadata
}

// Match returns the record with the given id.
func (r *Report) Match(id string) (*match.Record, bool) {
	for _, e := range r.Matches {
		if e.ID == id {
			return e.Record, true
		}
	}
	return nil, false
}

// Empty reports whether the report holds no matches.
func (r *Report) Empty() bool {
	return len(r.Matches) == 0
}

// CompletedMatches returns the number of matches with at least one kill.
func (r *Report) CompletedMatches() int {
	n := 0
	for _, e := range r.Matches {
		if e.Record.Completed() {
			n++
		}
	}
	return n
}

// TotalKills sums kill events over all matches.
func (r *Report) TotalKills() int {
	total := 0
	for _, e := range r.Matches {
		total += e.Record.TotalKills
	}
	return total
}

// RankingLines renders the ranking as display strings.
func (r *Report) RankingLines() []string {
	lines := make([]string, len(r.Ranking))
	for i, s := range r.Ranking {
		lines[i] = s.String()
	}
	return lines
}
