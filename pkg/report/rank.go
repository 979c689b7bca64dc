package report

import (
	"sort"

	"github.com/ccollicutt/fraglog/pkg/match"
)

// Rank sums per-player scores over the completed matches and orders players
// by descending total. Aborted matches never contribute.
//
// With TieBreakFirstSeen, equal totals keep the order in which players were
// first met: matches in order, players in the order they entered each
// match's score tally.
func Rank(entries []Entry, tb TieBreak) []Standing {
	totals := match.NewTally()
	for _, e := range entries {
		if !e.Record.Completed() {
			continue
		}
		for _, player := range e.Record.Kills.Keys() {
			totals.Add(player, e.Record.Kills.Get(player))
		}
	}
	return RankTotals(totals, tb)
}

// RankTotals orders the players of an aggregated tally. The tally's insertion
// order is the first-seen order.
func RankTotals(totals *match.Tally, tb TieBreak) []Standing {
	players := totals.Keys()
	sort.SliceStable(players, func(i, j int) bool {
		si, sj := totals.Get(players[i]), totals.Get(players[j])
		if si != sj {
			return si > sj
		}
		if tb == TieBreakName {
			return players[i] < players[j]
		}
		return false
	})

	standings := make([]Standing, len(players))
	for i, p := range players {
		standings[i] = Standing{Rank: i + 1, Player: p, Score: totals.Get(p)}
	}
	return standings
}
