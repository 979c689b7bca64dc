// Package store keeps a history of reports in a SQL database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/output"
	"github.com/ccollicutt/fraglog/pkg/report"
)

// ErrDisabled is returned by queries against the none backend.
var ErrDisabled = errors.New("history store is disabled (backend none)")

// Run summarizes one stored report.
type Run struct {
	ID        string
	CreatedAt time.Time
	Sources   []string
	LinesRead int
	Matches   int
	Completed int
}

// Store persists reports. The zero backend (none) accepts writes and
// discards them.
type Store struct {
	db      *sql.DB
	backend config.StoreBackend
	log     logrus.FieldLogger
}

// Open connects to the configured backend and creates the tables.
func Open(ctx context.Context, cfg config.StoreConfig, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var driverName string
	switch cfg.Backend {
	case config.StoreNone, "":
		return &Store{backend: config.StoreNone, log: log}, nil
	case config.StoreSQLite:
		driverName = "sqlite"
	case config.StoreMySQL:
		driverName = "mysql"
	case config.StorePostgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}

	dsn := cfg.DSN
	if cfg.Backend == config.StoreSQLite && dsn == "" {
		dsn = config.DefaultSQLitePath
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Backend, err)
	}

	if cfg.Backend == config.StoreSQLite {
		// SQLite only supports one writer at a time; an in-memory database
		// also lives on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragmas: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", cfg.Backend, err)
	}

	for _, query := range createTableQueries(cfg.Backend) {
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	log.WithField("backend", cfg.Backend).Debug("history store opened")
	return &Store{db: db, backend: cfg.Backend, log: log}, nil
}

// Backend returns the active backend.
func (s *Store) Backend() config.StoreBackend {
	return s.backend
}

// Enabled reports whether reports are actually persisted.
func (s *Store) Enabled() bool {
	return s.db != nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveReport stores rep under a new run id and returns the id. With the none
// backend nothing is written and the id is empty.
func (s *Store) SaveReport(ctx context.Context, rep *report.Report) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	runID := uuid.NewString()
	sources, err := json.Marshal(rep.Metadata.Sources)
	if err != nil {
		return "", fmt.Errorf("encoding sources: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := rep.Metadata.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO `+runsTable+` (run_id, created_at, sources, lines_read, tie_break) VALUES (?, ?, ?, ?, ?)`),
		runID, formatTime(createdAt), string(sources), rep.Metadata.LinesRead, string(rep.Metadata.TieBreak)); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for i, e := range rep.Matches {
		if err := s.insertMatch(ctx, tx, runID, i+1, e); err != nil {
			return "", fmt.Errorf("inserting %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"run":     runID,
		"matches": len(rep.Matches),
		"backend": s.backend,
	}).Info("report stored")
	return runID, nil
}

func (s *Store) insertMatch(ctx context.Context, tx *sql.Tx, runID string, seq int, e report.Entry) error {
	rec := e.Record
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO `+matchesTable+` (run_id, match_id, seq, source, status, total_kills, start_time, end_time) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		runID, e.ID, seq, e.Source, string(rec.Status), rec.TotalKills, nullString(output.FormatClock(rec.StartTime)), nullString(output.FormatClock(rec.EndTime))); err != nil {
		return err
	}

	if err := s.insertTally(ctx, tx, scoresTable, "player", runID, e.ID, rec.Kills); err != nil {
		return err
	}
	return s.insertTally(ctx, tx, causesTable, "cause", runID, e.ID, rec.KillsByCause)
}

func (s *Store) insertTally(ctx context.Context, tx *sql.Tx, table, column, runID, matchID string, t *match.Tally) error {
	if t.Len() == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO `+table+` (run_id, match_id, seq, `+column+`, kills) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, key := range t.Keys() {
		if _, err := stmt.ExecContext(ctx, runID, matchID, i+1, key, t.Get(key)); err != nil {
			return err
		}
	}
	return nil
}

// Standings returns the all-time ranking over every stored completed match.
// First-seen order follows run creation, then match and score order.
func (s *Store) Standings(ctx context.Context, tb report.TieBreak) ([]report.Standing, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sc.player, sc.kills
		FROM `+scoresTable+` sc
		JOIN `+matchesTable+` m ON m.run_id = sc.run_id AND m.match_id = sc.match_id
		JOIN `+runsTable+` r ON r.run_id = sc.run_id
		WHERE m.status = '`+string(match.StatusCompleted)+`'
		ORDER BY r.created_at, r.run_id, m.seq, sc.seq`)
	if err != nil {
		return nil, fmt.Errorf("querying scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	totals := match.NewTally()
	for rows.Next() {
		var player string
		var kills int
		if err := rows.Scan(&player, &kills); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		totals.Add(player, kills)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scores: %w", err)
	}

	return report.RankTotals(totals, tb), nil
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.created_at, r.sources, r.lines_read,
			COUNT(m.match_id),
			COALESCE(SUM(CASE WHEN m.status = '`+string(match.StatusCompleted)+`' THEN 1 ELSE 0 END), 0)
		FROM `+runsTable+` r
		LEFT JOIN `+matchesTable+` m ON m.run_id = r.run_id
		GROUP BY r.run_id, r.created_at, r.sources, r.lines_read
		ORDER BY r.created_at, r.run_id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt string
			sources   string
		)
		if err := rows.Scan(&run.ID, &createdAt, &sources, &run.LinesRead, &run.Matches, &run.Completed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing run time %q: %w", createdAt, err)
		}
		if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
			return nil, fmt.Errorf("decoding run sources: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

func (s *Store) q(query string) string {
	return rebind(s.backend, query)
}

// timeLayout is fixed-width so stored timestamps sort lexically on every
// backend.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
