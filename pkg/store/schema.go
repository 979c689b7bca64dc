package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ccollicutt/fraglog/pkg/config"
)

// Table names for report history.
const (
	runsTable    = "fraglog_runs"
	matchesTable = "fraglog_matches"
	scoresTable  = "fraglog_scores"
	causesTable  = "fraglog_causes"
)

// createTableQueries returns the CREATE TABLE statements for backend.
func createTableQueries(backend config.StoreBackend) []string {
	text := "TEXT"
	if backend == config.StoreMySQL {
		// MySQL cannot index unbounded TEXT columns.
		text = "VARCHAR(255)"
	}

	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL PRIMARY KEY,
				created_at VARCHAR(40) NOT NULL,
				sources TEXT NOT NULL,
				lines_read INTEGER NOT NULL,
				tie_break VARCHAR(16) NOT NULL
			)`, runsTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL,
				match_id VARCHAR(64) NOT NULL,
				seq INTEGER NOT NULL,
				source TEXT,
				status VARCHAR(16) NOT NULL,
				total_kills INTEGER NOT NULL,
				start_time VARCHAR(8),
				end_time VARCHAR(8),
				PRIMARY KEY (run_id, match_id)
			)`, matchesTable),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL,
				match_id VARCHAR(64) NOT NULL,
				seq INTEGER NOT NULL,
				player %s NOT NULL,
				kills INTEGER NOT NULL,
				PRIMARY KEY (run_id, match_id, seq)
			)`, scoresTable, text),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) NOT NULL,
				match_id VARCHAR(64) NOT NULL,
				seq INTEGER NOT NULL,
				cause %s NOT NULL,
				kills INTEGER NOT NULL,
				PRIMARY KEY (run_id, match_id, seq)
			)`, causesTable, text),
	}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(backend config.StoreBackend, query string) string {
	if backend != config.StorePostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
