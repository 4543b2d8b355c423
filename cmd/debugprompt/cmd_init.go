package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spboyer/debugprompt/internal/projectconfig"
	"github.com/spboyer/debugprompt/internal/wizard"
)

// runWizard is a test hook for replacing the interactive form.
var runWizard = wizard.RunConfigWizard

type initOptions struct {
	yes       bool
	force     bool
	outputDir string
	sections  string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a " + projectconfig.FileName + " file",
		Long: `Create a ` + projectconfig.FileName + ` file in dir (default: the working directory).

On a terminal an interactive form asks for the settings. With --yes, or when
stdin is not a terminal, defaults and flags are used instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for prompt files")
	cmd.Flags().StringVar(&opts.sections, "sections", "", "Comma-separated sections to include (e.g. steps,traceback,diff)")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts initOptions) error {
	path := filepath.Join(dir, projectconfig.FileName)
	if _, err := os.Stat(path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	defaults := projectconfig.New()
	defaults.OutputDir = ".debugprompt"
	answers := wizard.DefaultAnswers(defaults)

	if opts.outputDir != "" {
		answers.OutputDir = opts.outputDir
	}
	if opts.sections != "" {
		sections, err := wizard.ParseSections(opts.sections)
		if err != nil {
			return err
		}
		answers.Sections = sections
	}

	if !opts.yes && isTerminal(cmd.InOrStdin()) {
		a, err := runWizard(cmd.InOrStdin(), cmd.OutOrStdout(), answers)
		if err != nil {
			return err
		}
		answers = a
	}

	content, err := wizard.GenerateConfigYAML(answers)
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Initialized debugprompt:") //nolint:errcheck
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", path)              //nolint:errcheck
	return nil
}
