// Package session records what a gotest run did with each failure, one
// JSON object per line, and renders those logs back as a timeline.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrClosed is returned by Log after Close.
var ErrClosed = errors.New("session log is closed")

// Logger defines the interface for session event logging.
type Logger interface {
	Log(event Event) error
	Close() error
}

// JSONLogger appends events to a file as newline-delimited JSON. It is safe
// for concurrent use by the plugin's workers.
type JSONLogger struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	path   string
	count  int
	closed bool
}

// NewJSONLogger opens path for appending, creating it and its parent
// directories as needed.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating session log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	return &JSONLogger{file: f, enc: json.NewEncoder(f), path: path}, nil
}

// Log writes event as one line. A zero timestamp is filled in with the
// current time.
func (l *JSONLogger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if err := l.enc.Encode(event); err != nil {
		return fmt.Errorf("writing session log: %w", err)
	}
	l.count++
	return nil
}

// Count returns how many events this logger has written.
func (l *JSONLogger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close closes the file. Later calls do nothing.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Path returns the file path of the session log.
func (l *JSONLogger) Path() string {
	return l.path
}

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) Log(Event) error { return nil }

func (NopLogger) Close() error { return nil }

// DefaultLogPath returns a timestamped session log path inside dir.
func DefaultLogPath(dir string) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	return filepath.Join(dir, ts+logSuffix)
}
