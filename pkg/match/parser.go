package match

import (
	"time"

	"github.com/ccollicutt/fraglog/pkg/parser"
)

// Parser accumulates the lines of one session into a Record.
// It follows the Process / Finalize / Reset lifecycle and is not safe for
// concurrent use.
type Parser struct {
	classifier *parser.Classifier
	clock      *parser.ClockParser
	world      string

	rec      *Record
	hasKills bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithClassifier sets the line classifier.
func WithClassifier(c *parser.Classifier) Option {
	return func(p *Parser) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithClock sets the clock parser used for start and end times.
func WithClock(c *parser.ClockParser) Option {
	return func(p *Parser) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithWorldEntity sets the killer name that denotes a world kill.
func WithWorldEntity(name string) Option {
	return func(p *Parser) {
		if name != "" {
			p.world = name
		}
	}
}

// NewParser creates a match parser for the stock log format.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		classifier: parser.DefaultClassifier(),
		clock:      parser.NewClockParser(parser.DefaultClockLayout),
		world:      DefaultWorldEntity,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Reset()
	return p
}

// WorldEntity returns the world killer name.
func (p *Parser) WorldEntity() string {
	return p.world
}

// Process handles a single raw line. Start, end and kill checks are applied
// independently.
func (p *Parser) Process(line string) {
	if p.classifier.IsSessionStart(line) {
		if t, ok := p.clock.Parse(line); ok {
			p.rec.StartTime = timePtr(t)
		}
	}

	if p.classifier.IsSessionEnd(line) {
		if t, ok := p.clock.Parse(line); ok {
			p.rec.EndTime = timePtr(t)
		}
	}

	if kill, ok := p.classifier.MatchKill(line); ok {
		p.recordKill(kill)
	}
}

func (p *Parser) recordKill(k parser.Kill) {
	rec := p.rec
	p.hasKills = true
	rec.TotalKills++
	rec.KillsByCause.Add(k.Cause, 1)

	if k.Victim != p.world {
		rec.Players[k.Victim] = struct{}{}
		rec.Kills.Ensure(k.Victim)
	}

	if k.Killer != p.world {
		rec.Players[k.Killer] = struct{}{}
		rec.Kills.Add(k.Killer, 1)
	} else {
		rec.Kills.Add(k.Victim, -1)
	}
}

// Finalize completes the current match and returns its record. The parser
// starts a fresh record afterwards.
func (p *Parser) Finalize() *Record {
	rec := p.rec
	if p.hasKills {
		rec.Status = StatusCompleted
	} else {
		rec.Status = StatusAborted
	}
	p.Reset()
	return rec
}

// Reset discards the current record.
func (p *Parser) Reset() {
	p.rec = newRecord()
	p.hasKills = false
}

// Parse runs the full lifecycle over lines belonging to one match.
func (p *Parser) Parse(lines []string) *Record {
	p.Reset()
	for _, line := range lines {
		p.Process(line)
	}
	return p.Finalize()
}

func timePtr(t time.Time) *time.Time {
	return &t
}
