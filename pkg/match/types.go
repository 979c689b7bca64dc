// Package match turns the lines of a single game session into a match record.
package match

import (
	"sort"
	"time"
)

// Status is the outcome of a parsed match.
type Status string

const (
	// StatusCompleted marks a match with at least one kill event.
	StatusCompleted Status = "completed"

	// StatusAborted marks a match without any kill event.
	StatusAborted Status = "aborted"
)

// DefaultWorldEntity is the killer name the server uses for map hazards.
const DefaultWorldEntity = "<world>"

// Record holds the statistics of one match. It is built by a Parser and not
// modified afterwards.
type Record struct {
	// TotalKills counts every kill event, world kills included.
	TotalKills int

	// Players holds every non-world entity seen as killer or victim.
	Players map[string]struct{}

	// Kills is the net frag count per player. World kills subtract one
	// from the victim.
	Kills *Tally

	// KillsByCause counts kill events per death cause.
	KillsByCause *Tally

	Status Status

	// StartTime and EndTime are nil when the marker line is missing or its
	// clock does not parse.
	StartTime *time.Time
	EndTime   *time.Time
}

func newRecord() *Record {
	return &Record{
		Players:      make(map[string]struct{}),
		Kills:        NewTally(),
		KillsByCause: NewTally(),
		Status:       StatusAborted,
	}
}

// Completed reports whether the match counts toward the ranking.
func (r *Record) Completed() bool {
	return r.Status == StatusCompleted
}

// HasPlayer reports whether name took part in the match.
func (r *Record) HasPlayer(name string) bool {
	_, ok := r.Players[name]
	return ok
}

// SortedPlayers returns player names in ascending order.
func (r *Record) SortedPlayers() []string {
	players := make([]string, 0, len(r.Players))
	for p := range r.Players {
		players = append(players, p)
	}
	sort.Strings(players)
	return players
}
