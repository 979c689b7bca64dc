package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

var twoMatchLog = []string{
	"  0:00 ------------------------------------------------------------",
	"  0:00 InitGame: \\sv_floodProtect\\1\\sv_maxPing\\0",
	"  0:10 ClientConnect: 2",
	"  0:15 Kill: 3 4 10: Isgalamido killed Dono da Bola by MOD_RAILGUN",
	"  0:20 Kill: 3 4 10: Isgalamido killed Dono da Bola by MOD_RAILGUN",
	"  1:00 Exit: Fraglimit hit.",
	"  1:05 ShutdownGame:",
	"  1:10 InitGame: \\sv_floodProtect\\1",
	"  1:20 Kill: 3 5 10: Isgalamido killed Zeh by MOD_RAILGUN",
	"  1:30 Kill: 5 3 7: Zeh killed Isgalamido by MOD_ROCKET_SPLASH",
	"  1:40 Kill: 5 3 7: Zeh killed Isgalamido by MOD_ROCKET_SPLASH",
	"  1:50 Kill: 5 3 7: Zeh killed Isgalamido by MOD_ROCKET_SPLASH",
	"  2:00 ShutdownGame:",
}

func quietLogger() logrus.FieldLogger {
	log, _ := logtest.NewNullLogger()
	return log
}

func build(t *testing.T, r *Reporter, lines []string) *Report {
	t.Helper()
	rep, err := r.Build(context.Background(), parser.NewSliceSource("games.log", lines))
	require.NoError(t, err)
	return rep
}

func TestBuild_TwoMatches(t *testing.T) {
	rep := build(t, NewReporter(WithLogger(quietLogger())), twoMatchLog)

	require.Len(t, rep.Matches, 2)
	assert.Equal(t, "match_1", rep.Matches[0].ID)
	assert.Equal(t, "match_2", rep.Matches[1].ID)

	a, ok := rep.Match("match_1")
	require.True(t, ok)
	assert.Equal(t, 2, a.Kills.Get("Isgalamido"))
	assert.Equal(t, 0, a.Kills.Get("Dono da Bola"))
	assert.Equal(t, match.StatusCompleted, a.Status)

	b, ok := rep.Match("match_2")
	require.True(t, ok)
	assert.Equal(t, 1, b.Kills.Get("Isgalamido"))
	assert.Equal(t, 3, b.Kills.Get("Zeh"))

	assert.Equal(t, []string{
		"1. Isgalamido - 3 kills",
		"2. Zeh - 3 kills",
		"3. Dono da Bola - 0 kills",
	}, rep.RankingLines())

	assert.Equal(t, 2, rep.CompletedMatches())
	assert.Equal(t, 6, rep.TotalKills())
	assert.Equal(t, len(twoMatchLog), rep.Metadata.LinesRead)
	assert.Equal(t, 1, rep.Metadata.LinesDiscarded)
	assert.Equal(t, []string{"games.log"}, rep.Metadata.Sources)
	assert.Equal(t, TieBreakFirstSeen, rep.Metadata.TieBreak)
}

func TestBuild_UnknownMatchID(t *testing.T) {
	rep := build(t, NewReporter(WithLogger(quietLogger())), twoMatchLog)
	_, ok := rep.Match("match_3")
	assert.False(t, ok)
}

func TestBuild_PreambleDiscarded(t *testing.T) {
	lines := []string{
		"  0:01 Kill: 1 2 3: Ghost killed Phantom by MOD_GAUNTLET",
		"  0:02 InitGame:",
		"  0:03 Kill: 1 2 3: Isgalamido killed Zeh by MOD_GAUNTLET",
	}
	rep := build(t, NewReporter(WithLogger(quietLogger())), lines)

	require.Len(t, rep.Matches, 1)
	rec := rep.Matches[0].Record
	assert.False(t, rec.HasPlayer("Ghost"))
	assert.False(t, rec.HasPlayer("Phantom"))
	assert.Equal(t, 1, rec.TotalKills)
	assert.Equal(t, 1, rep.Metadata.LinesDiscarded)
}

func TestBuild_NoSessionStart(t *testing.T) {
	lines := []string{
		"  0:01 Kill: 1 2 3: Isgalamido killed Zeh by MOD_GAUNTLET",
		"  0:02 ShutdownGame:",
	}
	rep := build(t, NewReporter(WithLogger(quietLogger())), lines)

	assert.True(t, rep.Empty())
	assert.Empty(t, rep.Ranking)
	assert.Equal(t, 2, rep.Metadata.LinesDiscarded)
}

func TestBuild_FinalMatchKept(t *testing.T) {
	lines := []string{
		"  0:00 InitGame:",
		"  0:05 Kill: 1 2 3: Isgalamido killed Zeh by MOD_SHOTGUN",
		"  0:10 InitGame:",
		"  0:15 Kill: 1 2 3: Zeh killed Isgalamido by MOD_SHOTGUN",
	}
	rep := build(t, NewReporter(WithLogger(quietLogger())), lines)

	require.Len(t, rep.Matches, 2)
	last := rep.Matches[1].Record
	assert.Equal(t, 1, last.Kills.Get("Zeh"))
	assert.Nil(t, last.EndTime)
	require.NotNil(t, last.StartTime)
	assert.Equal(t, "00:10", last.StartTime.Format("15:04"))
}

func TestBuild_AbortedMatchesExcludedFromRanking(t *testing.T) {
	lines := []string{
		"  0:00 InitGame:",
		"  0:01 ClientConnect: 2",
		"  0:02 ShutdownGame:",
		"  0:03 InitGame:",
		"  0:04 Kill: 1 2 3: Isgalamido killed Zeh by MOD_SHOTGUN",
		"  0:05 Exit: Timelimit hit.",
	}
	rep := build(t, NewReporter(WithLogger(quietLogger())), lines)

	require.Len(t, rep.Matches, 2)
	aborted := rep.Matches[0].Record
	assert.Equal(t, match.StatusAborted, aborted.Status)
	assert.Zero(t, aborted.TotalKills)
	assert.Empty(t, aborted.Players)
	assert.Zero(t, aborted.Kills.Len())
	assert.Zero(t, aborted.KillsByCause.Len())

	assert.Equal(t, []string{"1. Isgalamido - 1 kills", "2. Zeh - 0 kills"}, rep.RankingLines())
}

func TestBuild_TotalsMatchCauses(t *testing.T) {
	rep := build(t, NewReporter(WithLogger(quietLogger())), twoMatchLog)
	for _, e := range rep.Matches {
		assert.Equal(t, e.Record.TotalKills, e.Record.KillsByCause.Sum(), e.ID)
	}
}

func TestBuild_MatchIDPrefix(t *testing.T) {
	rep := build(t, NewReporter(WithLogger(quietLogger()), WithMatchIDPrefix("game_")), twoMatchLog)
	assert.Equal(t, "game_1", rep.Matches[0].ID)
	assert.Equal(t, "game_2", rep.Matches[1].ID)
}

func TestBuild_ReadErrorKeepsClosedMatches(t *testing.T) {
	src := &failingSource{
		lines: []string{
			"0:00 InitGame:",
			"0:01 Kill: 1 2 3: Isgalamido killed Zeh by MOD_SHOTGUN",
		},
		err: errors.New("disk gone"),
	}
	rep, err := NewReporter(WithLogger(quietLogger())).Build(context.Background(), src)
	require.Error(t, err)
	require.NotNil(t, rep)
	assert.Len(t, rep.Matches, 1)
}

func TestRank_TieBreak(t *testing.T) {
	lines := []string{
		"0:00 InitGame:",
		"0:01 Kill: 1 2 3: Zeh killed Mocinha by MOD_SHOTGUN",
		"0:02 InitGame:",
		"0:03 Kill: 1 2 3: Isgalamido killed Mocinha by MOD_SHOTGUN",
	}

	tests := []struct {
		tieBreak TieBreak
		want     []string
	}{
		{TieBreakFirstSeen, []string{"1. Zeh - 1 kills", "2. Isgalamido - 1 kills", "3. Mocinha - 0 kills"}},
		{TieBreakName, []string{"1. Isgalamido - 1 kills", "2. Zeh - 1 kills", "3. Mocinha - 0 kills"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tieBreak), func(t *testing.T) {
			rep := build(t, NewReporter(WithLogger(quietLogger()), WithTieBreak(tt.tieBreak)), lines)
			assert.Equal(t, tt.want, rep.RankingLines())
		})
	}
}

func TestRank_NegativeTotals(t *testing.T) {
	lines := []string{
		"0:00 InitGame:",
		"0:01 Kill: 1022 2 22: <world> killed Isgalamido by MOD_TRIGGER_HURT",
		"0:02 Kill: 1022 2 22: <world> killed Isgalamido by MOD_FALLING",
		"0:03 Kill: 1022 2 22: <world> killed Zeh by MOD_FALLING",
	}
	rep := build(t, NewReporter(WithLogger(quietLogger())), lines)

	assert.Equal(t, []Standing{
		{Rank: 1, Player: "Zeh", Score: -1},
		{Rank: 2, Player: "Isgalamido", Score: -2},
	}, rep.Ranking)
}

func TestRank_SumsAcrossMatches(t *testing.T) {
	lines := []string{
		"0:00 InitGame:",
		"0:01 Kill: 1 2 3: Isgalamido killed Zeh by MOD_SHOTGUN",
		"0:02 InitGame:",
		"0:03 Kill: 1 2 3: Zeh killed Mocinha by MOD_SHOTGUN",
		"0:04 InitGame:",
		"0:05 Kill: 1 2 3: Isgalamido killed Mocinha by MOD_SHOTGUN",
	}
	rep := build(t, NewReporter(WithLogger(quietLogger())), lines)

	require.Len(t, rep.Ranking, 3)
	assert.Equal(t, Standing{Rank: 1, Player: "Isgalamido", Score: 2}, rep.Ranking[0])
	assert.Equal(t, Standing{Rank: 2, Player: "Zeh", Score: 1}, rep.Ranking[1])
	assert.Equal(t, Standing{Rank: 3, Player: "Mocinha", Score: 0}, rep.Ranking[2])
}

func TestStanding_String(t *testing.T) {
	assert.Equal(t, "4. Dono da Bola - -1 kills", Standing{Rank: 4, Player: "Dono da Bola", Score: -1}.String())
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakFirstSeen, tb)

	tb, err = ParseTieBreak("name")
	require.NoError(t, err)
	assert.Equal(t, TieBreakName, tb)

	_, err = ParseTieBreak("score")
	assert.Error(t, err)
}

func TestRun_Files(t *testing.T) {
	dir := t.TempDir()
	first := writeLog(t, dir, "a.log", twoMatchLog[:7])
	second := writeLog(t, dir, "b.log", []string{
		"  0:00 InitGame:",
		"  0:01 Kill: 1 2 3: Zeh killed Isgalamido by MOD_SHOTGUN",
	})

	rep, err := NewReporter(WithLogger(quietLogger())).Run(context.Background(), []string{first, second})
	require.NoError(t, err)

	require.Len(t, rep.Matches, 2)
	assert.Equal(t, "match_2", rep.Matches[1].ID)
	assert.Equal(t, second, rep.Matches[1].Source)
	assert.Equal(t, []string{first, second}, rep.Metadata.Sources)
}

func TestRun_FileBoundaryClosesMatch(t *testing.T) {
	dir := t.TempDir()
	first := writeLog(t, dir, "a.log", []string{
		"0:00 InitGame:",
		"0:01 Kill: 1 2 3: Isgalamido killed Zeh by MOD_SHOTGUN",
	})
	second := writeLog(t, dir, "b.log", []string{
		"0:02 Kill: 1 2 3: Isgalamido killed Zeh by MOD_SHOTGUN",
	})

	rep, err := NewReporter(WithLogger(quietLogger())).Run(context.Background(), []string{first, second})
	require.NoError(t, err)

	require.Len(t, rep.Matches, 1)
	assert.Equal(t, 1, rep.Matches[0].Record.TotalKills)
	assert.Equal(t, 1, rep.Metadata.LinesDiscarded)
}

func TestRun_Glob(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "2.log", []string{"0:00 InitGame:", "0:01 Kill: 1 2 3: Zeh killed Mocinha by MOD_BFG"})
	writeLog(t, dir, "1.log", []string{"0:00 InitGame:", "0:01 Kill: 1 2 3: Isgalamido killed Mocinha by MOD_BFG"})

	rep, err := NewReporter(WithLogger(quietLogger())).Run(context.Background(), []string{filepath.Join(dir, "*.log")})
	require.NoError(t, err)

	require.Len(t, rep.Matches, 2)
	assert.True(t, rep.Matches[0].Record.HasPlayer("Isgalamido"))
	assert.True(t, rep.Matches[1].Record.HasPlayer("Zeh"))
}

func TestRun_MissingFile(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	missing := filepath.Join(t.TempDir(), "nope.log")

	rep, err := NewReporter(WithLogger(log)).Run(context.Background(), []string{missing})

	require.Error(t, err)
	var serr *SourceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, missing, serr.Source)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NotNil(t, rep)
	assert.True(t, rep.Empty())
	assert.Empty(t, rep.Ranking)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, missing, hook.LastEntry().Data["source"])
}

func TestRun_MissingSecondFileYieldsEmptyReport(t *testing.T) {
	dir := t.TempDir()
	first := writeLog(t, dir, "a.log", twoMatchLog)
	missing := filepath.Join(dir, "missing.log")

	rep, err := NewReporter(WithLogger(quietLogger())).Run(context.Background(), []string{first, missing})

	require.Error(t, err)
	assert.True(t, rep.Empty())
}

func TestRun_InvalidUTF8YieldsEmptyReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.log")
	content := "0:00 InitGame:\n0:01 Kill: 1 2 3: Is\xffgal killed Zeh by MOD_SHOTGUN\n0:02 ShutdownGame:\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rep, err := NewReporter(WithLogger(quietLogger())).Run(context.Background(), []string{path})

	var serr *SourceError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, path, serr.Source)
	assert.ErrorIs(t, err, parser.ErrInvalidEncoding)

	require.NotNil(t, rep)
	assert.True(t, rep.Empty())
	assert.Empty(t, rep.Ranking)
}

func TestRun_NoPaths(t *testing.T) {
	_, err := NewReporter(WithLogger(quietLogger())).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "a.log", twoMatchLog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := NewReporter(WithLogger(quietLogger())).Run(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rep)
}

func TestNewReporterFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorldEntity = "<hazard>"
	cfg.MatchIDPrefix = "round_"
	cfg.TieBreak = config.TieBreakName
	cfg.Markers.SessionStart = "MapStart:"
	require.NoError(t, config.Validate(cfg))

	r, err := NewReporterFromConfig(cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, TieBreakName, r.TieBreak())

	rep := build(t, r, []string{
		"0:00 MapStart: q3dm17",
		"0:01 Kill: 1022 2 22: <hazard> killed Zeh by MOD_LAVA",
		"0:02 InitGame: ignored marker",
	})
	require.Len(t, rep.Matches, 1)
	assert.Equal(t, "round_1", rep.Matches[0].ID)
	assert.Equal(t, -1, rep.Matches[0].Record.Kills.Get("Zeh"))
}

func TestNewReporterFromConfig_Unvalidated(t *testing.T) {
	_, err := NewReporterFromConfig(config.DefaultConfig())
	assert.Error(t, err)
}

func TestSourceError(t *testing.T) {
	inner := errors.New("permission denied")
	err := &SourceError{Source: "games.log", Err: inner}
	assert.Equal(t, "log source games.log: permission denied", err.Error())
	assert.ErrorIs(t, err, inner)

	assert.Equal(t, "log source: permission denied", (&SourceError{Err: inner}).Error())
}

type failingSource struct {
	lines []string
	pos   int
	err   error
}

func (f *failingSource) Next(context.Context) (*parser.Line, error) {
	if f.pos >= len(f.lines) {
		return nil, f.err
	}
	f.pos++
	return &parser.Line{Raw: f.lines[f.pos-1], Source: "broken.log", LineNum: f.pos}, nil
}

func (f *failingSource) Close() error { return nil }

func writeLog(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}
