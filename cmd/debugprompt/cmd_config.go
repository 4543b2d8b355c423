package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spboyer/debugprompt/internal/projectconfig"
)

func newConfigCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration debugprompt would use, after merging
` + projectconfig.FileName + `, defaults and environment overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dir)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "[WARN] debugprompt: %v\n", err) //nolint:errcheck
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to search for config (default: working directory)")

	return cmd
}
