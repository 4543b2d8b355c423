package gotest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spboyer/debugprompt/internal/events"
)

const maxLineSize = 4 << 20

// FailureResult is a failed scenario and the details listeners attached.
type FailureResult struct {
	Scenario string
	Package  string
	Test     string
	Type     string
	Message  string
	Details  []string
}

// Summary is the outcome of a whole test2json stream.
type Summary struct {
	Packages []PackageResult
	Tests    []TestResult
	Failures []FailureResult
}

// Failed reports whether any package or test failed.
func (s *Summary) Failed() bool {
	if len(s.Failures) > 0 {
		return true
	}
	for _, p := range s.Packages {
		if p.Status == ActionFail {
			return true
		}
	}
	return false
}

// Runner feeds a test2json stream to a dispatcher.
type Runner struct {
	Dispatcher *events.Dispatcher

	// Workers bounds how many failures are handled at once. Zero means
	// GOMAXPROCS.
	Workers int

	// Output receives the test output as it streams. Nil discards it.
	Output io.Writer

	// Progress, if set, is called from Run's goroutine each time a
	// top-level test finishes.
	Progress func(finished, failed int)
}

// Run reads in until EOF, firing a ScenarioFailed event for every failed
// test. Listeners run on up to Workers goroutines; Run returns once all of
// them have finished.
func (r *Runner) Run(ctx context.Context, in io.Reader) (*Summary, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var (
		mu       sync.Mutex
		failures []FailureResult
	)

	c := NewCollector()
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := sc.Bytes()
		ev, ok := ParseEvent(line)
		if !ok {
			r.write(string(line) + "\n")
			continue
		}
		if ev.Action == ActionOutput {
			r.write(ev.Output)
		}

		before := len(c.Tests())
		fails := c.Add(ev)
		if r.Progress != nil && len(c.Tests()) != before {
			r.Progress(len(c.Tests()), countFailed(c.Tests()))
		}

		for _, f := range fails {
			rec := f.Record
			mu.Lock()
			idx := len(failures)
			failures = append(failures, FailureResult{
				Scenario: rec.Scenario,
				Package:  f.Package,
				Test:     f.Test,
				Type:     rec.Exception.Type,
				Message:  rec.Exception.Message,
			})
			mu.Unlock()

			slog.Debug("Scenario failed", "scenario", rec.Scenario, "type", rec.Exception.Type)
			g.Go(func() error {
				e := events.NewScenarioFailed(rec)
				if r.Dispatcher != nil {
					r.Dispatcher.Fire(e)
				}
				mu.Lock()
				failures[idx].Details = e.ExtraDetails()
				mu.Unlock()
				return nil
			})
		}
	}

	// Listeners never return errors; Wait only joins them.
	_ = g.Wait()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading test2json stream: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Summary{Packages: c.Packages(), Tests: c.Tests(), Failures: failures}, nil
}

func countFailed(tests []TestResult) int {
	n := 0
	for _, t := range tests {
		if t.Status == ActionFail {
			n++
		}
	}
	return n
}

func (r *Runner) write(s string) {
	if r.Output == nil {
		return
	}
	_, _ = io.WriteString(r.Output, s)
}
