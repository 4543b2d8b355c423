// Package spinner draws a one-line progress indicator on a terminal.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner redraws its message on w until stopped. The message can change
// while it runs.
type Spinner struct {
	w    io.Writer
	mu   sync.Mutex
	msg  string
	wide int

	done    chan struct{}
	cleared chan struct{}
	once    sync.Once
}

// Start begins drawing message on w.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		msg:     message,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Set replaces the message shown from the next frame on.
func (s *Spinner) Set(message string) {
	s.mu.Lock()
	s.msg = message
	s.mu.Unlock()
}

// Stop clears the line and returns once the spinner is gone. It is safe to
// call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	<-s.cleared
}

func (s *Spinner) loop() {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case <-s.done:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.wide)) //nolint:errcheck
			s.mu.Unlock()
			close(s.cleared)
			return
		case <-tick.C:
			s.mu.Lock()
			line := frames[i%len(frames)] + " " + s.msg
			// pad over a longer previous message
			width := runewidth.StringWidth(line)
			pad := max(s.wide-width, 0)
			s.wide = max(s.wide, width)
			fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", pad)) //nolint:errcheck
			s.mu.Unlock()
		}
	}
}
