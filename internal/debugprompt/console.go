package debugprompt

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spboyer/debugprompt/internal/hooks"
	"github.com/spboyer/debugprompt/internal/template"
)

//go:generate go tool mockgen -source=console.go -destination=mocks_test.go -package=debugprompt

// AnnouncePrefix starts every line that points at a generated prompt.
const AnnouncePrefix = "AI Debug Prompt: "

// Console receives the plugin's user-facing output.
type Console interface {
	// Announce reports the path of a freshly written prompt.
	Announce(path string)

	// Warn reports a problem that did not stop the test run.
	Warn(msg string)
}

// HookRunner runs the after_prompt hooks.
type HookRunner interface {
	Execute(ctx context.Context, name string, cmds []hooks.HookConfig, tctx *template.Context) error
}

// NewConsole returns a Console that writes one line per call to w.
// Lines from concurrent callers never interleave.
func NewConsole(w io.Writer) Console {
	return &writerConsole{w: w}
}

type writerConsole struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *writerConsole) Announce(path string) {
	c.println(AnnouncePrefix + path)
}

func (c *writerConsole) Warn(msg string) {
	c.println("[WARN] debugprompt: " + msg)
}

func (c *writerConsole) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.w, line)
}

var _ HookRunner = (*hooks.Runner)(nil)
