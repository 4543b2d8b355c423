package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spboyer/debugprompt/internal/session"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session <log.jsonl|dir>",
		Short: "Show the timeline of a gotest session log",
		Long: `Render a session log written by "debugprompt gotest --session-log" as a
timeline of the prompts it wrote and skipped.

Given a directory, list the session logs inside it, newest first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.OutOrStdout(), args[0])
		},
	}
	return cmd
}

func runSession(w io.Writer, target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		evs, err := session.ReadEvents(target)
		if err != nil {
			return err
		}
		session.RenderTimeline(w, evs)
		return nil
	}

	files, err := session.ListSessions(target)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "No session logs in %s\n", target) //nolint:errcheck
		return nil
	}
	for _, f := range files {
		fmt.Fprintf(w, "%s  %s  %d prompt(s)  %d skipped  %d event(s)\n", //nolint:errcheck
			padRight(f.Name, 34), f.ModTime.Format("2006-01-02 15:04:05"), f.Written, f.Failed, f.NumEvents)
	}
	return nil
}
