package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spboyer/debugprompt/internal/debugprompt"
	"github.com/spboyer/debugprompt/internal/events"
	"github.com/spboyer/debugprompt/internal/gotest"
	"github.com/spboyer/debugprompt/internal/hooks"
	"github.com/spboyer/debugprompt/internal/projectconfig"
	"github.com/spboyer/debugprompt/internal/reporting"
	"github.com/spboyer/debugprompt/internal/session"
	"github.com/spboyer/debugprompt/internal/spinner"
)

type goTestOptions struct {
	workers    int
	quiet      bool
	outputDir  string
	noPrompts  bool
	dir        string
	format     string
	junitPath  string
	sessionLog string
}

func newGoTestCommand() *cobra.Command {
	var opts goTestOptions

	cmd := &cobra.Command{
		Use:   "gotest",
		Short: "Write a prompt for every failed test in a `go test -json` stream",
		Long: `Read the output of "go test -json" from stdin, echo the test output, and
write one prompt file per failed test.

Subtests become the prompt's steps. Assertion output from testify is parsed
into an expected/actual diff; panics keep their goroutine trace.

The exit code is 1 when any test failed, so the command can stand in for
"go test" in CI.`,
		Example: `  go test -json ./... | debugprompt gotest
  go test -json ./... | debugprompt gotest --quiet --output-dir .prompts
  go test -json ./... | debugprompt gotest --junit results.xml --session-log .debugprompt/sessions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoTest(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Failures handled concurrently (default: GOMAXPROCS)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not echo test output")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for prompt files (overrides config)")
	cmd.Flags().BoolVar(&opts.noPrompts, "no-prompts", false, "Only summarize, do not write prompts")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory to search for "+projectconfig.FileName+" (default: working directory)")
	cmd.Flags().StringVar(&opts.format, "format", "default", "Summary format: default, markdown")
	cmd.Flags().StringVar(&opts.junitPath, "junit", "", "Also write a JUnit XML report to this path")
	cmd.Flags().StringVar(&opts.sessionLog, "session-log", "", "Append a JSONL log of written prompts to this file, or to a new file in this directory")

	return cmd
}

func runGoTest(cmd *cobra.Command, opts goTestOptions) error {
	if opts.format != "default" && opts.format != "markdown" {
		return fmt.Errorf("unknown format %q (want default or markdown)", opts.format)
	}

	in := cmd.InOrStdin()
	if isTerminal(in) {
		return errors.New("stdin is a terminal: pipe `go test -json` into debugprompt gotest")
	}

	// A bad .debugprompt.yaml or environment value must not break the test
	// run: the plugin warns about it and writes no prompts.
	cfg, err := loadConfig(opts.dir)
	var cfgErr *projectconfig.ConfigError
	if errors.As(err, &cfgErr) {
		slog.Debug("Config rejected, prompts disabled", "error", err)
		cfg = projectconfig.Broken(err)
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideOutputDir(cfg, opts.outputDir)
	if opts.noPrompts {
		off := false
		cfg.Enabled = &off
	}

	var logger session.Logger = session.NopLogger{}
	if opts.sessionLog != "" {
		jl, err := session.NewJSONLogger(sessionLogPath(opts.sessionLog))
		if err != nil {
			return err
		}
		defer jl.Close() //nolint:errcheck
		logger = jl
	}

	workers := opts.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	start := time.Now()
	logSession(logger, session.EventRunStart, session.RunStartData("stdin", cfg.OutputDir, workers))

	out := &lockedWriter{w: cmd.OutOrStdout()}
	plugin := debugprompt.New(nil,
		debugprompt.WithConsole(debugprompt.NewConsole(out)),
		debugprompt.WithHookRunner(&hooks.Runner{Out: cmd.ErrOrStderr()}),
		debugprompt.WithSessionLogger(logger),
	)

	d := events.NewDispatcher()
	plugin.Subscribe(d)
	d.Fire(events.ConfigLoaded{Config: cfg})

	runner := &gotest.Runner{Dispatcher: d, Workers: workers}
	if !opts.quiet {
		runner.Output = out
	}

	// Quiet runs on a terminal show live counts instead of the test output.
	stopSpinner := func() {}
	if opts.quiet && isTerminal(cmd.ErrOrStderr()) {
		spin := spinner.Start(cmd.ErrOrStderr(), "waiting for test results")
		runner.Progress = func(finished, failed int) {
			spin.Set(fmt.Sprintf("%d test(s) finished, %d failed", finished, failed))
		}
		stopSpinner = spin.Stop
	}

	sum, err := runner.Run(cmd.Context(), in)
	stopSpinner()
	if err != nil {
		return err
	}

	logSession(logger, session.EventRunComplete, session.RunCompleteData(
		len(sum.Packages), failedCount(sum), promptCount(sum), time.Since(start).Milliseconds()))

	if opts.junitPath != "" {
		if err := reporting.WriteJUnitXML(sum, start, opts.junitPath); err != nil {
			return err
		}
	}

	if opts.format == "markdown" {
		fmt.Fprint(out, FormatMarkdownSummary(sum)) //nolint:errcheck
	} else {
		printSummary(out, sum)
	}

	if sum.Failed() {
		return &TestFailureError{Message: fmt.Sprintf("%d test(s) failed", failedCount(sum))}
	}
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// sessionLogPath picks a fresh timestamped file when target is a directory.
func sessionLogPath(target string) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return session.DefaultLogPath(target)
	}
	return target
}

func logSession(l session.Logger, t session.EventType, data map[string]any) {
	if err := l.Log(session.NewEvent(t, data)); err != nil {
		slog.Debug("Session log write failed", "error", err)
	}
}
