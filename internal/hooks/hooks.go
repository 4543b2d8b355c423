package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spboyer/debugprompt/internal/template"
)

// HookConfig defines a single hook command. Command and WorkingDirectory
// are templates rendered against the prompt's template.Context, so a hook
// can refer to {{.PromptPath}} or {{.ScenarioName}}.
type HookConfig struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// Runner executes hook commands at lifecycle points.
type Runner struct {
	Verbose bool

	// Out receives hook output and warnings. Defaults to os.Stderr.
	Out io.Writer
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stderr
	}
	return r.Out
}

// Execute runs all hooks for a given lifecycle point.
// name identifies the lifecycle point (e.g. "after_prompt") for logging and error context.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig, tctx *template.Context) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}

		if err := r.runHook(ctx, name, i, h, tctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h HookConfig, tctx *template.Context) error {
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}
	if tctx == nil {
		tctx = &template.Context{}
	}

	command, err := template.Render(h.Command, tctx)
	if err != nil {
		return fmt.Errorf("hook %s[%d]: %w", name, index, err)
	}
	workDir, err := template.Render(h.WorkingDirectory, tctx)
	if err != nil {
		return fmt.Errorf("hook %s[%d]: %w", name, index, err)
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return fmt.Errorf("hook %s[%d]: command rendered empty", name, index)
	}
	//nolint:gosec // hook commands are user-configured in .debugprompt.yaml, not untrusted input
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	if workDir != "" {
		cmd.Dir = workDir
	}

	output, err := cmd.CombinedOutput()

	if r.Verbose && len(output) > 0 {
		fmt.Fprintf(r.out(), "[hook:%s] %s\n", name, string(output))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			exitCode := exitErr.ExitCode()

			if !isAcceptableExit(exitCode, h.ExitCodes) {
				if h.ErrorOnFail {
					return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, exitCode)
				}
				fmt.Fprintf(r.out(), "[WARN] hook %s[%d] exited with code %d (continuing)\n", name, index, exitCode)
			}
		} else {
			// Non-exit error (e.g. command not found)
			if h.ErrorOnFail {
				return fmt.Errorf("hook %s[%d]: %w", name, index, err)
			}
			fmt.Fprintf(r.out(), "[WARN] hook %s[%d] failed: %v\n", name, index, err)
		}
		return nil
	}

	// err == nil means exit code 0; verify 0 is acceptable
	if !isAcceptableExit(0, h.ExitCodes) {
		if h.ErrorOnFail {
			return fmt.Errorf("hook %s[%d]: command exited with code 0 but expected %v", name, index, h.ExitCodes)
		}
		fmt.Fprintf(r.out(), "[WARN] hook %s[%d] exited with code 0 but expected %v (continuing)\n", name, index, h.ExitCodes)
	}

	return nil
}

// isAcceptableExit checks whether exitCode is in the allowed list.
// An empty allowedCodes list defaults to allowing only exit code 0.
func isAcceptableExit(exitCode int, allowedCodes []int) bool {
	if len(allowedCodes) == 0 {
		return exitCode == 0
	}
	for _, code := range allowedCodes {
		if exitCode == code {
			return true
		}
	}
	return false
}
