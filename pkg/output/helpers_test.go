package output

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/ccollicutt/fraglog/pkg/parser"
	"github.com/ccollicutt/fraglog/pkg/report"
)

var sampleLog = []string{
	"0:00 InitGame: \\sv_hostname\\Code Miner Server\\mapname\\q3dm17",
	"0:15 Kill: 1022 2 22: <world> killed Isgalamido by MOD_TRIGGER_HURT",
	"0:30 Kill: 3 2 10: Isgalamido killed Dono da Bola by MOD_RAILGUN",
	"1:00 Kill: 3 2 10: Isgalamido killed Zeh by MOD_RAILGUN",
	"1:15 Exit: Fraglimit hit.",
	"1:20 InitGame: \\mapname\\q3dm6",
	"1:25 ClientConnect: 2",
	"1:30 ShutdownGame:",
}

func createTestReport(t *testing.T) *report.Report {
	t.Helper()
	return buildReport(t, sampleLog)
}

func buildReport(t *testing.T, lines []string) *report.Report {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	r := report.NewReporter(report.WithLogger(log))
	rep, err := r.Build(context.Background(), parser.NewSliceSource("games.log", lines))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return rep
}
