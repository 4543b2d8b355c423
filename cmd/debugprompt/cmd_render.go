package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spboyer/debugprompt/internal/debugprompt"
	"github.com/spboyer/debugprompt/internal/models"
	"github.com/spboyer/debugprompt/internal/prompt"
	"github.com/spboyer/debugprompt/internal/validation"
)

type renderOptions struct {
	stdout    bool
	outputDir string
	dir       string
}

func newRenderCommand() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render <record.yaml|->",
		Short: "Render a prompt from a failure record file",
		Long: `Render a prompt from a failure record written as YAML or JSON.

The record is checked against the failure record schema first. By default the
prompt is saved to the output directory like any other; --stdout prints it
instead. Use "-" to read the record from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "Print the prompt instead of writing a file")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory for the prompt file (overrides config)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directory to search for config (default: working directory)")

	return cmd
}

func runRender(cmd *cobra.Command, source string, opts renderOptions) error {
	rec, err := readRecord(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideOutputDir(cfg, opts.outputDir)

	if opts.stdout {
		doc, err := prompt.NewBuilder(prompt.OptionsFromConfig(cfg)).Build(rec)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), doc) //nolint:errcheck
		return nil
	}

	plugin := debugprompt.New(cfg, debugprompt.WithConsole(debugprompt.NewConsole(cmd.ErrOrStderr())))
	path, err := plugin.Generate(rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), debugprompt.AnnouncePrefix+path) //nolint:errcheck
	return nil
}

// readRecord validates and decodes a record from a file, or from in when
// source is "-".
func readRecord(in io.Reader, source string) (models.FailureRecord, error) {
	var (
		data []byte
		errs []string
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(in)
		if err != nil {
			return models.FailureRecord{}, fmt.Errorf("reading stdin: %w", err)
		}
		errs = validation.ValidateRecordBytes(data)
	} else {
		errs, err = validation.ValidateRecordFile(source)
		if err != nil {
			return models.FailureRecord{}, err
		}
	}
	if len(errs) > 0 {
		return models.FailureRecord{}, fmt.Errorf("%s does not match the failure record schema:\n  - %s", source, strings.Join(errs, "\n  - "))
	}

	if source == "-" {
		return models.ParseRecord(data)
	}
	return models.LoadRecordFile(source)
}
