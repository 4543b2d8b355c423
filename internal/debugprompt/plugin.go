// Package debugprompt is the prompt generator plugin: it listens for failed
// scenarios and turns each one into a Markdown prompt file.
package debugprompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spboyer/debugprompt/internal/events"
	"github.com/spboyer/debugprompt/internal/hooks"
	"github.com/spboyer/debugprompt/internal/models"
	"github.com/spboyer/debugprompt/internal/projectconfig"
	"github.com/spboyer/debugprompt/internal/prompt"
	"github.com/spboyer/debugprompt/internal/promptfile"
	"github.com/spboyer/debugprompt/internal/session"
	"github.com/spboyer/debugprompt/internal/template"
	"github.com/spboyer/debugprompt/internal/tokens"
	"github.com/spboyer/debugprompt/internal/utils"
)

// HookAfterPrompt is the lifecycle point name used for after_prompt hooks.
const HookAfterPrompt = "after_prompt"

// Plugin generates one prompt file per failed scenario. Every error is
// reported as a console warning; none escapes to the host runner.
type Plugin struct {
	mu        sync.RWMutex
	cfg       *projectconfig.ProjectConfig
	builder   *prompt.Builder
	writer    *promptfile.Writer
	configErr error

	console     Console
	hookRunner  HookRunner
	sessionLog  session.Logger
	displayBase string
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithConsole sets where announcements and warnings go.
func WithConsole(c Console) Option {
	return func(p *Plugin) {
		p.console = c
	}
}

// WithHookRunner replaces the after_prompt hook runner.
func WithHookRunner(r HookRunner) Option {
	return func(p *Plugin) {
		p.hookRunner = r
	}
}

// WithSessionLogger records every prompt written or skipped.
func WithSessionLogger(l session.Logger) Option {
	return func(p *Plugin) {
		p.sessionLog = l
	}
}

// WithDisplayBase sets the directory announced paths are made relative to.
// Defaults to the working directory.
func WithDisplayBase(dir string) Option {
	return func(p *Plugin) {
		p.displayBase = dir
	}
}

// New creates a Plugin. A nil cfg means all defaults. Configuration
// problems are reported on the console and disable prompt generation.
func New(cfg *projectconfig.ProjectConfig, opts ...Option) *Plugin {
	p := &Plugin{}
	for _, o := range opts {
		o(p)
	}
	if p.console == nil {
		p.console = NewConsole(os.Stderr)
	}
	if p.hookRunner == nil {
		p.hookRunner = &hooks.Runner{Out: os.Stderr}
	}
	if p.sessionLog == nil {
		p.sessionLog = session.NopLogger{}
	}
	if p.displayBase == "" {
		if wd, err := os.Getwd(); err == nil {
			p.displayBase = wd
		}
	}
	if cfg == nil {
		cfg = projectconfig.New()
	}
	p.Configure(cfg)
	return p
}

// Subscribe registers the plugin's handlers.
func (p *Plugin) Subscribe(d *events.Dispatcher) {
	d.Listen(events.KindConfigLoaded, p.onConfigLoaded).
		Listen(events.KindScenarioFailed, p.onScenarioFailed)
}

func (p *Plugin) onConfigLoaded(e events.Event) {
	if ev, ok := e.(events.ConfigLoaded); ok && ev.Config != nil {
		p.Configure(ev.Config)
	}
}

func (p *Plugin) onScenarioFailed(e events.Event) {
	if ev, ok := e.(*events.ScenarioFailed); ok {
		p.OnScenarioFailed(ev)
	}
}

// Configure swaps in a new configuration. An invalid configuration is
// reported once and leaves the plugin unable to write prompts until a valid
// one arrives.
func (p *Plugin) Configure(cfg *projectconfig.ProjectConfig) {
	err := cfg.Validate()

	p.mu.Lock()
	p.cfg = cfg
	p.configErr = err
	if err == nil {
		p.builder = prompt.NewBuilder(prompt.OptionsFromConfig(cfg))
		p.writer = promptfile.NewWriter(cfg.OutputDir)
	} else {
		p.builder = nil
		p.writer = nil
	}
	p.mu.Unlock()

	if err != nil {
		p.console.Warn(err.Error())
	}
}

// Enabled reports whether the current configuration turns prompts on.
func (p *Plugin) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.IsEnabled()
}

// OnScenarioFailed renders, writes and announces the prompt for one failed
// scenario. It never panics and never returns an error: failures become a
// single warning line and no file.
func (p *Plugin) OnScenarioFailed(e *events.ScenarioFailed) {
	if e == nil || !p.Enabled() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("prompt generation panicked: %v", r)
			p.console.Warn(msg)
			p.logSession(session.EventPromptFailed, session.PromptFailedData(e.Record.Scenario, msg))
		}
	}()

	rec := e.Record.Clone()
	utils.RecordToSlog(&rec)

	path, size, err := p.generate(rec)
	if err != nil {
		msg := describe(err)
		p.console.Warn(msg)
		p.logSession(session.EventPromptFailed, session.PromptFailedData(rec.Scenario, msg))
		return
	}

	display := utils.DisplayPath(path, p.displayBase)
	p.console.Announce(display)
	e.AddExtraDetails(AnnouncePrefix + display)
	p.logSession(session.EventPromptWritten, session.PromptWrittenData(rec.Scenario, display, size))

	p.runHooks(&rec, path)
}

// Generate renders rec and writes it to a fresh file, returning the path.
// Errors are *prompt.RenderError, *promptfile.WriteError or
// *projectconfig.ConfigError.
func (p *Plugin) Generate(rec models.FailureRecord) (string, error) {
	path, _, err := p.generate(rec)
	return path, err
}

// generate also returns the estimated token size of the prompt.
func (p *Plugin) generate(rec models.FailureRecord) (string, int, error) {
	p.mu.RLock()
	builder, writer, configErr := p.builder, p.writer, p.configErr
	p.mu.RUnlock()

	if configErr != nil {
		return "", 0, configErr
	}

	doc, err := builder.Build(rec)
	if err != nil {
		return "", 0, err
	}

	path, err := writer.Write(doc)
	if err != nil {
		return "", 0, err
	}

	size := tokens.Estimate(doc)
	slog.Debug("Prompt written", "scenario", rec.Scenario, "path", path, "bytes", len(doc), "tokens", size)
	return path, size, nil
}

func (p *Plugin) logSession(t session.EventType, data map[string]any) {
	if err := p.sessionLog.Log(session.NewEvent(t, data)); err != nil {
		slog.Debug("Session log write failed", "error", err)
	}
}

func (p *Plugin) runHooks(rec *models.FailureRecord, path string) {
	p.mu.RLock()
	cmds := p.cfg.Hooks.AfterPrompt
	p.mu.RUnlock()

	if len(cmds) == 0 {
		return
	}

	tctx := &template.Context{
		ScenarioName: rec.Scenario,
		Location:     rec.Location,
		ErrorType:    rec.Exception.Type,
		PromptPath:   path,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Vars:         rec.Extra,
	}
	if err := p.hookRunner.Execute(context.Background(), HookAfterPrompt, cmds, tctx); err != nil {
		p.console.Warn(err.Error())
	}
}

// describe prefixes an error with the kind of failure it is.
func describe(err error) string {
	var (
		renderErr *prompt.RenderError
		writeErr  *promptfile.WriteError
		configErr *projectconfig.ConfigError
	)
	switch {
	case errors.As(err, &renderErr):
		return "skipped malformed failure record: " + err.Error()
	case errors.As(err, &writeErr):
		if promptfile.IsPermission(err) {
			return "could not save prompt: " + err.Error() + " (check that output_dir is writable)"
		}
		return "could not save prompt: " + err.Error()
	case errors.As(err, &configErr):
		return "prompts disabled by invalid configuration: " + err.Error()
	}
	return err.Error()
}
