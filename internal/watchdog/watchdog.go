// Package watchdog is the append-only log sink of the bolt server.
// Each entry is one line: TIME:PROJECT[LEVEL]:MESSAGE.
package watchdog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders entries by severity; a sink writes entries whose level is <= its own.
type Level int

const (
	LevelError Level = iota + 1
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	ErrSinkOpen   = errors.New("unable to open log file")
	ErrSinkClosed = errors.New("log sink is closed")
	ErrBadLevel   = errors.New("unknown log level")
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts error, warning (or warn), info and debug in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadLevel, s)
}

// Sink writes leveled lines to a single file opened once.
type Sink struct {
	mu      sync.Mutex
	w       io.WriteCloser
	level   Level
	project string
	now     func() time.Time
	closed  bool
}

// Open opens path for appending, creating it when missing.
func Open(path string, level Level, project string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrSinkOpen, path, err)
	}
	return newSink(f, level, project), nil
}

func newSink(w io.WriteCloser, level Level, project string) *Sink {
	return &Sink{w: w, level: level, project: project, now: time.Now}
}

func (s *Sink) Level() Level { return s.level }

// Enabled reports whether an entry at l would be written.
func (s *Sink) Enabled(l Level) bool { return l <= s.level }

func (s *Sink) Error(message string) error { return s.Log(LevelError, message) }
func (s *Sink) Warn(message string) error  { return s.Log(LevelWarning, message) }
func (s *Sink) Info(message string) error  { return s.Log(LevelInfo, message) }
func (s *Sink) Debug(message string) error { return s.Log(LevelDebug, message) }

// Log writes message at level l. Embedded newlines are escaped so an entry is always one line.
func (s *Sink) Log(l Level, message string) error {
	if !s.Enabled(l) {
		return nil
	}
	message = strings.ReplaceAll(message, "\n", `\n`)
	line := fmt.Sprintf("%s:%s[%s]:%s\n", s.now().Format(time.RFC3339Nano), s.project, l, message)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	_, err := io.WriteString(s.w, line)
	return err
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true
	return s.w.Close()
}
