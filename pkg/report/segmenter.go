package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

// Segmenter splits a stream of log lines into matches. A match starts at a
// session start line and runs until the next one, the end of its source file
// or the end of input. Lines before the first session start are dropped.
type Segmenter struct {
	classifier *parser.Classifier
	parser     *match.Parser
	prefix     string
	log        logrus.FieldLogger
}

// NewSegmenter creates a segmenter. The classifier must be the one used by
// the match parser so both agree on what a session start is.
func NewSegmenter(classifier *parser.Classifier, mp *match.Parser, prefix string, log logrus.FieldLogger) *Segmenter {
	if classifier == nil {
		classifier = parser.DefaultClassifier()
	}
	if mp == nil {
		mp = match.NewParser(match.WithClassifier(classifier))
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Segmenter{
		classifier: classifier,
		parser:     mp,
		prefix:     prefix,
		log:        log,
	}
}

// Segment reads src to the end and returns every match in order. On a read
// error the matches closed so far are returned with the error.
func (s *Segmenter) Segment(ctx context.Context, src parser.LineSource) ([]Entry, Stats, error) {
	var (
		entries []Entry
		stats   Stats
		open    bool
		lines   int
		source  string
	)

	s.parser.Reset()
	seen := make(map[string]bool)

	closeBlock := func() {
		if !open {
			return
		}
		rec := s.parser.Finalize()
		id := s.prefix + strconv.Itoa(len(entries)+1)
		entries = append(entries, Entry{ID: id, Record: rec, Source: source})
		s.log.WithFields(logrus.Fields{
			"match":  id,
			"lines":  lines,
			"status": rec.Status,
		}).Debug("match closed")
		open = false
		lines = 0
	}

	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			closeBlock()
			return entries, stats, fmt.Errorf("reading log source: %w", err)
		}

		stats.LinesRead++
		if !seen[line.Source] {
			seen[line.Source] = true
			stats.Sources = append(stats.Sources, line.Source)
		}

		if open && line.Source != source {
			closeBlock()
		}

		if s.classifier.IsSessionStart(line.Raw) {
			closeBlock()
			open = true
			source = line.Source
		}

		if !open {
			stats.LinesDiscarded++
			continue
		}

		s.parser.Process(line.Raw)
		lines++
	}

	closeBlock()
	return entries, stats, nil
}
