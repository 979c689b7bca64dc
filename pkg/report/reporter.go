package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/fraglog/pkg/config"
	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

// Reporter turns server logs into reports.
type Reporter struct {
	classifier *parser.Classifier
	clock      *parser.ClockParser
	world      string
	prefix     string
	tieBreak   TieBreak
	log        logrus.FieldLogger
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithTieBreak sets the ranking tie-break rule.
func WithTieBreak(tb TieBreak) Option {
	return func(r *Reporter) {
		if tb != "" {
			r.tieBreak = tb
		}
	}
}

// WithMatchIDPrefix sets the prefix of generated match ids.
func WithMatchIDPrefix(prefix string) Option {
	return func(r *Reporter) {
		r.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClassifier sets the line classifier.
func WithClassifier(c *parser.Classifier) Option {
	return func(r *Reporter) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithClock sets the clock parser for match start and end times.
func WithClock(c *parser.ClockParser) Option {
	return func(r *Reporter) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithWorldEntity sets the killer name used for world kills.
func WithWorldEntity(name string) Option {
	return func(r *Reporter) {
		if name != "" {
			r.world = name
		}
	}
}

// NewReporter creates a reporter for the stock server log format.
func NewReporter(opts ...Option) *Reporter {
	r := &Reporter{
		classifier: parser.DefaultClassifier(),
		clock:      parser.NewClockParser(parser.DefaultClockLayout),
		world:      match.DefaultWorldEntity,
		prefix:     config.DefaultMatchIDPrefix,
		tieBreak:   TieBreakFirstSeen,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewReporterFromConfig creates a reporter from a validated configuration.
// Options are applied after the configuration and override it.
func NewReporterFromConfig(cfg *config.Config, opts ...Option) (*Reporter, error) {
	classifier, err := parser.NewClassifier(cfg.Markers.SessionStart, cfg.Markers.SessionEnd, cfg.CompiledKillPattern())
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}

	tb, err := ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithClassifier(classifier),
		WithClock(parser.NewClockParser(cfg.ClockLayout)),
		WithWorldEntity(cfg.WorldEntity),
		WithMatchIDPrefix(cfg.MatchIDPrefix),
		WithTieBreak(tb),
	}
	return NewReporter(append(base, opts...)...), nil
}

// TieBreak returns the configured tie-break rule.
func (r *Reporter) TieBreak() TieBreak {
	return r.tieBreak
}

// Build segments src and ranks the result. On a read error the partial
// report built so far is returned with the error.
func (r *Reporter) Build(ctx context.Context, src parser.LineSource) (*Report, error) {
	start := time.Now()

	mp := match.NewParser(
		match.WithClassifier(r.classifier),
		match.WithClock(r.clock),
		match.WithWorldEntity(r.world),
	)
	seg := NewSegmenter(r.classifier, mp, r.prefix, r.log)

	entries, stats, err := seg.Segment(ctx, src)

	rep := &Report{
		Matches: entries,
		Ranking: Rank(entries, r.tieBreak),
		Metadata: Metadata{
			Sources:        stats.Sources,
			LinesRead:      stats.LinesRead,
			LinesDiscarded: stats.LinesDiscarded,
			TieBreak:       r.tieBreak,
			GeneratedAt:    start.UTC(),
			Duration:       time.Since(start),
		},
	}

	r.log.WithFields(logrus.Fields{
		"matches":   len(rep.Matches),
		"completed": rep.CompletedMatches(),
		"lines":     stats.LinesRead,
		"discarded": stats.LinesDiscarded,
	}).Debug("report built")

	return rep, err
}

// Run reads the given log files (globs allowed) and builds a report.
//
// A source that cannot be opened or read does not abort the caller: Run
// logs the failure and returns an empty report together with a
// *SourceError. Cancellation is returned as is, without a report.
func (r *Reporter) Run(ctx context.Context, paths []string) (*Report, error) {
	if len(paths) == 0 {
		return nil, ErrNoSources
	}

	files, err := parser.ExpandGlobs(paths)
	if err != nil {
		serr := &SourceError{Err: err}
		r.log.WithError(err).Error("log source failed, reporting no matches")
		return r.failed(paths), serr
	}

	src := parser.NewFileSource(files)
	defer src.Close()

	rep, err := r.Build(ctx, src)
	if err == nil {
		return rep, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	serr := &SourceError{Source: src.Current(), Err: err}
	r.log.WithField("source", serr.Source).WithError(err).Error("log source failed, reporting no matches")
	return r.failed(files), serr
}

// failed returns the empty report used when a source cannot be read.
func (r *Reporter) failed(sources []string) *Report {
	return &Report{
		Matches: []Entry{},
		Ranking: []Standing{},
		Metadata: Metadata{
			Sources:     sources,
			TieBreak:    r.tieBreak,
			GeneratedAt: time.Now().UTC(),
		},
	}
}
