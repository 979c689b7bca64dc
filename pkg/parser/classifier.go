package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Default line markers for the arena server log.
const (
	DefaultSessionStart = "InitGame:"
	DefaultKillPattern  = `Kill: \d+ \d+ \d+: (.+) killed (.+) by (.+)`
)

// DefaultSessionEnd lists the markers that close a session.
var DefaultSessionEnd = []string{"Exit:", "ShutdownGame:"}

// Classifier recognizes session boundaries and kill events in raw lines.
// The three checks are independent; a line may satisfy any number of them.
type Classifier struct {
	sessionStart string
	sessionEnd   []string
	kill         *regexp.Regexp
}

// NewClassifier builds a classifier from markers and a compiled kill pattern.
// The kill pattern must capture killer, victim and cause in that order.
func NewClassifier(sessionStart string, sessionEnd []string, kill *regexp.Regexp) (*Classifier, error) {
	if sessionStart == "" {
		return nil, fmt.Errorf("session start marker is empty")
	}
	if len(sessionEnd) == 0 {
		return nil, fmt.Errorf("at least one session end marker is required")
	}
	if kill == nil {
		return nil, fmt.Errorf("kill pattern is nil")
	}
	if kill.NumSubexp() != 3 {
		return nil, fmt.Errorf("kill pattern must have 3 capture groups, got %d", kill.NumSubexp())
	}

	return &Classifier{
		sessionStart: sessionStart,
		sessionEnd:   append([]string(nil), sessionEnd...),
		kill:         kill,
	}, nil
}

// DefaultClassifier returns the classifier for the stock server log format.
func DefaultClassifier() *Classifier {
	return &Classifier{
		sessionStart: DefaultSessionStart,
		sessionEnd:   append([]string(nil), DefaultSessionEnd...),
		kill:         regexp.MustCompile(DefaultKillPattern),
	}
}

// IsSessionStart reports whether line contains the session start marker.
func (c *Classifier) IsSessionStart(line string) bool {
	return strings.Contains(line, c.sessionStart)
}

// IsSessionEnd reports whether line contains any session end marker.
func (c *Classifier) IsSessionEnd(line string) bool {
	for _, marker := range c.sessionEnd {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// MatchKill extracts a kill event from line.
func (c *Classifier) MatchKill(line string) (Kill, bool) {
	m := c.kill.FindStringSubmatch(line)
	if m == nil {
		return Kill{}, false
	}
	return Kill{Killer: m[1], Victim: m[2], Cause: m[3]}, true
}
