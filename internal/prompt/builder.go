// Package prompt renders failure records into the Markdown document handed
// to an LLM assistant.
package prompt

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spboyer/debugprompt/internal/models"
	"github.com/spboyer/debugprompt/internal/projectconfig"
	"github.com/spboyer/debugprompt/internal/template"
	"github.com/spboyer/debugprompt/internal/utils"
)

// Section headings. Tooling downstream keys off these, so they are part of
// the file format.
const (
	HeadingSteps        = "Steps"
	HeadingError        = "Error"
	HeadingTraceback    = "Traceback"
	HeadingDiff         = "Diff"
	HeadingSource       = "Source"
	HeadingVariables    = "Variables"
	HeadingInstructions = "Instructions"
)

// DefaultInstructions is what the assistant is asked to do when the project
// does not configure its own text.
const DefaultInstructions = `You are a senior Go engineer helping me debug a failed automated test.
- Analyse the information above.
- Identify the most likely root cause.
- Propose the **smallest** code or test change that would make the test pass.
- Answer in markdown with the sections:
  1. **Root cause**
  2. **Suggested fix (code)**: show only the diff or patched snippet
  3. **Why this works**`

// RenderError reports a record that cannot be turned into a prompt.
type RenderError struct {
	Scenario string
	Err      error
}

func (e *RenderError) Error() string {
	if e.Scenario == "" {
		return fmt.Sprintf("rendering prompt: %v", e.Err)
	}
	return fmt.Sprintf("rendering prompt for %q: %v", e.Scenario, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options controls which sections are rendered and how.
type Options struct {
	// ProjectDir is replaced by "." wherever it appears in messages and
	// tracebacks.
	ProjectDir string

	// TracebackLimit caps the traceback at this many lines; 0 is unlimited.
	TracebackLimit int

	IncludeSteps        bool
	IncludeTraceback    bool
	IncludeDiff         bool
	IncludeSource       bool
	IncludeVariables    bool
	IncludeInstructions bool

	// Instructions is a template.Render template; empty means
	// DefaultInstructions.
	Instructions string

	// Runtime describes the toolchain; empty means the running binary's.
	Runtime string
}

// DefaultOptions mirrors the projectconfig defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(projectconfig.New())
}

// OptionsFromConfig derives builder options from a project configuration.
func OptionsFromConfig(cfg *projectconfig.ProjectConfig) Options {
	s := cfg.Sections
	return Options{
		ProjectDir:          cfg.ProjectDir,
		TracebackLimit:      cfg.Limit(),
		IncludeSteps:        projectconfig.BoolValue(s.Steps, projectconfig.DefaultStepsSection),
		IncludeTraceback:    projectconfig.BoolValue(s.Traceback, projectconfig.DefaultTracebackSection),
		IncludeDiff:         projectconfig.BoolValue(s.Diff, projectconfig.DefaultDiffSection),
		IncludeSource:       projectconfig.BoolValue(s.Source, projectconfig.DefaultSourceSection),
		IncludeVariables:    projectconfig.BoolValue(s.Variables, projectconfig.DefaultVariablesSection),
		IncludeInstructions: projectconfig.BoolValue(s.Instructions, projectconfig.DefaultInstructionsSection),
		Instructions:        cfg.Instructions,
	}
}

// Builder renders FailureRecords. A Builder holds no per-record state and
// is safe for concurrent use.
type Builder struct {
	opts Options
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	if opts.Runtime == "" {
		opts.Runtime = RuntimeInfo()
	}
	if opts.Instructions == "" {
		opts.Instructions = DefaultInstructions
	}
	return &Builder{opts: opts}
}

// RuntimeInfo summarizes the Go toolchain and platform.
func RuntimeInfo() string {
	return fmt.Sprintf("Go %s · %s/%s", strings.TrimPrefix(runtime.Version(), "go"), runtime.GOOS, runtime.GOARCH)
}

// Build renders rec into Markdown. The output depends only on rec and the
// builder's options.
func (b *Builder) Build(rec models.FailureRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", &RenderError{Scenario: rec.Scenario, Err: err}
	}

	var sb strings.Builder

	b.writeTitle(&sb, &rec)

	if b.opts.IncludeSteps {
		writeHeading(&sb, HeadingSteps)
		writeSteps(&sb, rec.Steps)
	}

	writeHeading(&sb, HeadingError)
	writeFenced(&sb, "text", b.errorText(&rec))

	if b.opts.IncludeTraceback {
		writeHeading(&sb, HeadingTraceback)
		tb := b.traceback(rec.Exception.Traceback)
		if tb == "" {
			sb.WriteString("_No traceback captured._\n")
		} else {
			writeFenced(&sb, "text", tb)
		}
	}

	if b.opts.IncludeDiff && !rec.Diff.Empty() {
		writeHeading(&sb, HeadingDiff)
		writeFenced(&sb, "diff", diffText(rec.Diff))
	}

	if b.opts.IncludeSource && rec.Source != nil && strings.TrimSpace(rec.Source.Code) != "" {
		writeHeading(&sb, HeadingSource)
		writeFenced(&sb, "go", numberLines(rec.Source.Code, rec.Source.StartLine))
	}

	if b.opts.IncludeVariables {
		writeHeading(&sb, HeadingVariables)
		writeVariables(&sb, rec.Variables)
	}

	if b.opts.IncludeInstructions {
		text, err := template.Render(b.opts.Instructions, b.templateContext(&rec))
		if err != nil {
			return "", &RenderError{Scenario: rec.Scenario, Err: err}
		}
		writeHeading(&sb, HeadingInstructions)
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func (b *Builder) writeTitle(sb *strings.Builder, rec *models.FailureRecord) {
	sb.WriteString(fmt.Sprintf("# %s\n", singleLine(rec.Scenario)))

	var meta []string
	if rec.Location != "" {
		meta = append(meta, fmt.Sprintf("- **Location:** %s", b.cleanup(rec.Location)))
	}
	if b.opts.Runtime != "" {
		meta = append(meta, fmt.Sprintf("- **Runtime:** %s", b.opts.Runtime))
	}

	// Sort extra labels for deterministic output
	keys := make([]string, 0, len(rec.Extra))
	for k := range rec.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		meta = append(meta, fmt.Sprintf("- **%s:** %s", singleLine(k), singleLine(rec.Extra[k])))
	}

	if len(meta) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(meta, "\n"))
		sb.WriteString("\n")
	}
}

func (b *Builder) errorText(rec *models.FailureRecord) string {
	msg := b.cleanup(rec.Exception.Message)
	line := msg
	if rec.Exception.Type != "" {
		line = rec.Exception.Type + ": " + msg
	}

	if a := rec.Assertion; a != nil && a.Left != "" {
		if a.Operator == "" || a.Right == "" {
			line += "\nassert " + a.Left
		} else {
			line += fmt.Sprintf("\nassert %s %s %s", a.Left, a.Operator, a.Right)
		}
	}
	return line
}

func (b *Builder) traceback(tb string) string {
	tb = strings.TrimRight(b.cleanup(tb), "\n ")
	if tb == "" {
		return ""
	}
	lines := strings.Split(tb, "\n")
	if b.opts.TracebackLimit > 0 && len(lines) > b.opts.TracebackLimit {
		omitted := len(lines) - b.opts.TracebackLimit
		lines = append(lines[:b.opts.TracebackLimit], fmt.Sprintf("... (%d more lines)", omitted))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) cleanup(s string) string {
	return utils.CleanupPaths(s, b.opts.ProjectDir)
}

func (b *Builder) templateContext(rec *models.FailureRecord) *template.Context {
	return &template.Context{
		ScenarioName: rec.Scenario,
		Location:     rec.Location,
		ErrorType:    rec.Exception.Type,
		Vars:         rec.Extra,
	}
}

func writeHeading(sb *strings.Builder, title string) {
	sb.WriteString(fmt.Sprintf("\n## %s\n\n", title))
}

func writeSteps(sb *strings.Builder, steps []models.StepRecord) {
	if len(steps) == 0 {
		sb.WriteString("_No steps recorded._\n")
		return
	}
	for _, s := range steps {
		box := "[ ]"
		if s.Status == models.StepPassed {
			box = "[x]"
		}
		annotation := string(s.Status)
		if annotation == "" {
			annotation = "unknown"
		}
		if s.Elapsed > 0 {
			annotation += ", " + formatElapsed(s.Elapsed)
		}
		sb.WriteString(fmt.Sprintf("- %s %s (%s)\n", box, singleLine(s.Name), annotation))
	}
}

func writeVariables(sb *strings.Builder, vars []models.Variable) {
	if len(vars) == 0 {
		sb.WriteString("_No variables found._\n")
		return
	}
	lines := make([]string, 0, len(vars))
	for _, v := range vars {
		lines = append(lines, fmt.Sprintf("%s = %s", v.Name, v.Value))
	}
	writeFenced(sb, "text", strings.Join(lines, "\n"))
}

// writeFenced writes body in a code fence long enough that no backtick run
// inside body can close it.
func writeFenced(sb *strings.Builder, lang, body string) {
	fence := strings.Repeat("`", max(3, longestBacktickRun(body)+1))
	sb.WriteString(fence)
	sb.WriteString(lang)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(body, "\n"))
	sb.WriteString("\n")
	sb.WriteString(fence)
	sb.WriteString("\n")
}

func longestBacktickRun(s string) int {
	longest, cur := 0, 0
	for _, r := range s {
		if r == '`' {
			cur++
			longest = max(longest, cur)
			continue
		}
		cur = 0
	}
	return longest
}

func diffText(d *models.Diff) string {
	if d.Text != "" {
		return d.Text
	}
	var sb strings.Builder
	sb.WriteString("--- expected\n+++ actual\n")
	for _, line := range strings.Split(d.Expected, "\n") {
		sb.WriteString("-" + line + "\n")
	}
	for _, line := range strings.Split(d.Actual, "\n") {
		sb.WriteString("+" + line + "\n")
	}
	return sb.String()
}

func numberLines(code string, start int) string {
	if start < 1 {
		start = 1
	}
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(fmt.Sprintf("%4d: %s\n", start+i, line))
	}
	return sb.String()
}

// formatElapsed formats a duration in a consistent, human-readable way.
func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
