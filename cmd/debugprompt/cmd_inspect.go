package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spboyer/debugprompt/internal/prompt"
	"github.com/spboyer/debugprompt/internal/promptfile"
	"github.com/spboyer/debugprompt/internal/tokens"
)

type inspectOptions struct {
	quiet     bool
	maxTokens int
}

func newInspectCommand() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect <prompt.md|dir>...",
		Short: "List the sections of prompt files and check their layout",
		Long: `Parse prompt files as Markdown, list their headings, and check that each
starts with a title followed by Steps, Error, Traceback and Diff in that order.

A directory argument inspects every prompt_<token>.md file inside it.
With --max-tokens, prompts estimated to be larger than the budget also fail.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only report files that fail the check")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Fail prompts estimated above this many tokens (0 = no limit)")

	return cmd
}

func runInspect(w io.Writer, args []string, opts inspectOptions) error {
	files, err := expandPromptArgs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no prompt files found")
	}

	counter := tokens.NewEstimatingCounter()
	failed := 0
	for _, path := range files {
		doc, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading prompt: %w", err)
		}
		checkErr := prompt.CheckContract(doc)
		size := counter.Count(string(doc))
		oversized := tokens.Exceeds(counter, string(doc), opts.maxTokens)
		if checkErr != nil || oversized {
			failed++
		}
		if opts.quiet && checkErr == nil && !oversized {
			continue
		}

		fmt.Fprintf(w, "%s (~%d tokens)\n", path, size) //nolint:errcheck
		for _, s := range prompt.Sections(doc) {
			fmt.Fprintf(w, "  %s %s\n", strings.Repeat("#", s.Level), s.Title) //nolint:errcheck
		}
		if checkErr != nil {
			for _, line := range strings.Split(checkErr.Error(), "\n") {
				fmt.Fprintf(w, "  ✗ %s\n", line) //nolint:errcheck
			}
		} else {
			fmt.Fprintln(w, "  ✓ layout ok") //nolint:errcheck
		}
		if oversized {
			fmt.Fprintf(w, "  ✗ ~%d tokens exceeds the budget of %d\n", size, opts.maxTokens) //nolint:errcheck
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d prompt(s) failed the check", failed, len(files))
	}
	return nil
}

// expandPromptArgs replaces directory arguments with the prompt files they
// contain.
func expandPromptArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && promptfile.IsPromptName(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
