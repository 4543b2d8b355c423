// Package gotest hosts the prompt generator inside `go test -json`: it reads
// the test2json stream, rebuilds each failed test as a FailureRecord and
// fires it through an events.Dispatcher.
package gotest

import (
	"encoding/json"
	"strings"
	"time"
)

// Actions emitted by test2json.
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionCont   = "cont"
	ActionPass   = "pass"
	ActionBench  = "bench"
	ActionFail   = "fail"
	ActionOutput = "output"
	ActionSkip   = "skip"
)

// Event is one line of `go test -json` output.
type Event struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package,omitempty"`
	Test    string    `json:"Test,omitempty"`
	Elapsed float64   `json:"Elapsed,omitempty"`
	Output  string    `json:"Output,omitempty"`
}

// ParseEvent decodes a single test2json line. ok is false for lines that are
// not test2json events, such as build output printed around the stream.
func ParseEvent(line []byte) (ev Event, ok bool) {
	trimmed := strings.TrimSpace(string(line))
	if !strings.HasPrefix(trimmed, "{") {
		return Event{}, false
	}
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil || ev.Action == "" {
		return Event{}, false
	}
	return ev, true
}

// IsTopLevel reports whether the event belongs to a top-level test rather
// than a subtest or the package itself.
func (e Event) IsTopLevel() bool {
	return e.Test != "" && !strings.Contains(e.Test, "/")
}

// Duration converts Elapsed seconds into a time.Duration.
func (e Event) Duration() time.Duration {
	return time.Duration(e.Elapsed * float64(time.Second))
}

// Parent returns the enclosing test name, or "" for top-level tests.
func Parent(test string) string {
	i := strings.LastIndex(test, "/")
	if i < 0 {
		return ""
	}
	return test[:i]
}
