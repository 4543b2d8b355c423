package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debugprompt",
		Short: "debugprompt - turn failed tests into LLM debugging prompts",
		Long: `debugprompt writes a Markdown prompt for every failed test, ready to hand
to a language model.

Each prompt collects the test's steps, error, traceback, diff and source, and
is saved as prompt_<token>.md in the output directory. The path is printed as
"AI Debug Prompt: <path>" next to the failure.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newGoTestCommand())
	cmd.AddCommand(newRenderCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newSessionCommand())

	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}
