package report

import (
	"errors"
	"fmt"
)

// ErrNoSources is returned when a run is started without any log path.
var ErrNoSources = errors.New("no log sources given")

// SourceError reports a log source that could not be opened or read.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("log source: %v", e.Err)
	}
	return fmt.Sprintf("log source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
