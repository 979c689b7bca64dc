// Package detector inspects a log file and reports whether it looks like an
// arena server log, which clock layout it uses and what events it carries.
package detector

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/ccollicutt/fraglog/pkg/match"
	"github.com/ccollicutt/fraglog/pkg/parser"
)

// DefaultSampleSize is the number of lines read from the head of a file.
const DefaultSampleSize = 500

// Inspection holds the result of sampling a log.
type Inspection struct {
	Clocks       []ClockMatch // Clock formats that matched, best first
	SampledLines int          // Number of non-empty lines sampled

	SessionStarts int
	SessionEnds   int
	Kills         int
	WorldKills    int
	Unrecognized  int // Lines without a recognized clock token

	SampleKill *parser.Kill
	SampleLine string // Line the sample kill came from

	// Confidence that the file is an arena server log, 0.0 to 1.0.
	Confidence float64
}

// ClockMatch is a clock format with the share of lines it parsed.
type ClockMatch struct {
	Format     *ClockFormat
	Confidence float64   // Fraction of sampled lines matched
	MatchCount int       // Number of lines that matched
	SampleLine string    // Example line that matched
	ParsedTime time.Time // Parsed clock from the sample
}

// Detector samples log files.
type Detector struct {
	formats    []*ClockFormat
	classifier *parser.Classifier
	world      string
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample.
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithClassifier sets the classifier used to count markers and kills.
func WithClassifier(c *parser.Classifier) Option {
	return func(d *Detector) {
		if c != nil {
			d.classifier = c
		}
	}
}

// WithWorldEntity sets the killer name counted as a world kill.
func WithWorldEntity(name string) Option {
	return func(d *Detector) {
		if name != "" {
			d.world = name
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		classifier: parser.DefaultClassifier(),
		world:      match.DefaultWorldEntity,
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SampleSize returns the configured sample size.
func (d *Detector) SampleSize() int {
	return d.sampleSize
}

// InspectFile samples the head of a log file.
func (d *Detector) InspectFile(ctx context.Context, path string) (*Inspection, error) {
	src := parser.NewFileSource([]string{path})
	defer src.Close()

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(line.Raw) {
			continue
		}
		lines = append(lines, line.Raw)
	}

	return d.InspectLines(lines), nil
}

// InspectLines analyzes a slice of log lines.
func (d *Detector) InspectLines(lines []string) *Inspection {
	result := &Inspection{}

	type formatStats struct {
		format     *ClockFormat
		matchCount int
		sampleLine string
		parsedTime time.Time
	}
	stats := make(map[string]*formatStats)

	for _, line := range lines {
		if isBlank(line) {
			continue
		}
		result.SampledLines++

		recognized := false
		for _, format := range d.formats {
			m := format.Pattern.FindStringSubmatch(line)
			if len(m) < 2 {
				continue
			}
			t, err := time.Parse(format.Layout, m[1])
			if err != nil {
				continue
			}
			recognized = true

			s := stats[format.Name]
			if s == nil {
				s = &formatStats{format: format, sampleLine: line, parsedTime: t}
				stats[format.Name] = s
			}
			s.matchCount++
		}
		if !recognized {
			result.Unrecognized++
		}

		if d.classifier.IsSessionStart(line) {
			result.SessionStarts++
		}
		if d.classifier.IsSessionEnd(line) {
			result.SessionEnds++
		}
		if kill, ok := d.classifier.MatchKill(line); ok {
			result.Kills++
			if kill.Killer == d.world {
				result.WorldKills++
			}
			if result.SampleKill == nil {
				k := kill
				result.SampleKill = &k
				result.SampleLine = line
			}
		}
	}

	if result.SampledLines == 0 {
		return result
	}

	for _, s := range stats {
		result.Clocks = append(result.Clocks, ClockMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(result.SampledLines),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
			ParsedTime: s.parsedTime,
		})
	}

	// Sort by confidence descending, then by pattern length (more specific first)
	sort.Slice(result.Clocks, func(i, j int) bool {
		if result.Clocks[i].Confidence != result.Clocks[j].Confidence {
			return result.Clocks[i].Confidence > result.Clocks[j].Confidence
		}
		return len(result.Clocks[i].Format.PatternStr) > len(result.Clocks[j].Format.PatternStr)
	})

	result.Confidence = d.confidence(result)
	return result
}

// confidence weighs clock coverage against the presence of session events.
func (d *Detector) confidence(r *Inspection) float64 {
	clock := 0.0
	if best := r.BestClock(); best != nil {
		clock = best.Confidence
	}

	events := 0.0
	switch {
	case r.SessionStarts > 0 && (r.Kills > 0 || r.SessionEnds > 0):
		events = 1.0
	case r.SessionStarts > 0 || r.Kills > 0:
		events = 0.5
	}

	return 0.4*clock + 0.6*events
}

// BestClock returns the highest confidence clock format, or nil if none.
func (r *Inspection) BestClock() *ClockMatch {
	if len(r.Clocks) == 0 {
		return nil
	}
	return &r.Clocks[0]
}

// HasClock returns true if at least one clock format matched.
func (r *Inspection) HasClock() bool {
	return len(r.Clocks) > 0
}

// LooksLikeArenaLog reports whether the sample is probably a server log the
// reporter can segment.
func (r *Inspection) LooksLikeArenaLog() bool {
	return r.SessionStarts > 0 && r.Confidence >= 0.5
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}
