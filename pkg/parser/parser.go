package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrInvalidEncoding is returned for a line that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("invalid UTF-8")

// FileSource implements LineSource for reading from log files.
// Files are read in the order given and every line is returned.
type FileSource struct {
	files []string

	currentFile   *os.File
	currentReader *bufio.Reader
	currentSource string
	currentLine    int
	fileIndex      int
}

// NewFileSource creates a LineSource that reads from the given files.
func NewFileSource(files []string) *FileSource {
	return &FileSource{
		files:     files,
		fileIndex: -1,
	}
}

// Next returns the next log line.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*Line, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentReader == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		// Lines have no length limit; InitGame lines carry the full
		// server info string.
		raw, err := s.currentReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}
		if raw != "" {
			s.currentLine++
			if !utf8.ValidString(raw) {
				return nil, fmt.Errorf("reading %s line %d: %w", s.currentSource, s.currentLine, ErrInvalidEncoding)
			}
			return &Line{
				Raw:     strings.TrimRight(raw, "\r\n"),
				Source:  s.currentSource,
				LineNum: s.currentLine,
			}, nil
		}

		// Current file exhausted, try next
		if err := s.closeCurrentFile(); err != nil {
			return nil, err
		}
	}
}

// Current returns the path being read, or the path that last failed to open.
func (s *FileSource) Current() string {
	return s.currentSource
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	s.currentSource = path
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	s.currentFile = f
	s.currentReader = bufio.NewReaderSize(f, 64*1024)
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrentFile() error {
	if s.currentFile != nil {
		err := s.currentFile.Close()
		s.currentFile = nil
		s.currentReader = nil
		return err
	}
	return nil
}

// SliceSource serves lines held in memory.
type SliceSource struct {
	name  string
	lines []string
	pos   int
}

// NewSliceSource creates a LineSource over the given lines, reported under name.
func NewSliceSource(name string, lines []string) *SliceSource {
	return &SliceSource{name: name, lines: lines}
}

// Next returns the next line or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (*Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.lines) {
		return nil, io.EOF
	}
	s.pos++
	return &Line{
		Raw:     strings.TrimRight(s.lines[s.pos-1], "\r\n"),
		Source:  s.name,
		LineNum: s.pos,
	}, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error {
	return nil
}
