// Package projectconfig provides the ProjectConfig struct and loader for
// .debugprompt.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spboyer/debugprompt/internal/hooks"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".debugprompt.yaml"

// Default values for project configuration. These are the single source of
// truth: New() references them and no other code should duplicate them.
const (
	DefaultEnabled        = true
	DefaultOutputSubdir   = "debugprompt"
	DefaultTracebackLimit = 10

	DefaultStepsSection        = true
	DefaultTracebackSection    = true
	DefaultDiffSection         = true
	DefaultSourceSection       = true
	DefaultVariablesSection    = false
	DefaultInstructionsSection = true
)

// Environment variables that override the file.
const (
	EnvEnabled   = "DEBUGPROMPT_ENABLED"
	EnvOutputDir = "DEBUGPROMPT_OUTPUT_DIR"
)

// DefaultOutputDir is where prompts go when nothing else is configured.
func DefaultOutputDir() string {
	return filepath.Join(os.TempDir(), DefaultOutputSubdir)
}

// SectionsConfig toggles the optional parts of the prompt document.
type SectionsConfig struct {
	Steps        *bool `yaml:"steps,omitempty"`
	Traceback    *bool `yaml:"traceback,omitempty"`
	Diff         *bool `yaml:"diff,omitempty"`
	Source       *bool `yaml:"source,omitempty"`
	Variables    *bool `yaml:"variables,omitempty"`
	Instructions *bool `yaml:"instructions,omitempty"`
}

// HooksConfig holds commands run after a prompt has been written.
type HooksConfig struct {
	AfterPrompt []hooks.HookConfig `yaml:"after_prompt,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .debugprompt.yaml.
type ProjectConfig struct {
	Enabled        *bool          `yaml:"enabled,omitempty"`
	OutputDir      string         `yaml:"output_dir,omitempty"`
	ProjectDir     string         `yaml:"project_dir,omitempty"`
	TracebackLimit *int           `yaml:"traceback_limit,omitempty"`
	Instructions   string         `yaml:"instructions,omitempty"`
	Sections       SectionsConfig `yaml:"sections,omitempty"`
	Hooks          HooksConfig    `yaml:"hooks,omitempty"`

	// loadErr is set by Broken and reported by Validate.
	loadErr error
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Enabled:        boolPtr(DefaultEnabled),
		OutputDir:      DefaultOutputDir(),
		TracebackLimit: intPtr(DefaultTracebackLimit),
		Sections: SectionsConfig{
			Steps:        boolPtr(DefaultStepsSection),
			Traceback:    boolPtr(DefaultTracebackSection),
			Diff:         boolPtr(DefaultDiffSection),
			Source:       boolPtr(DefaultSourceSection),
			Variables:    boolPtr(DefaultVariablesSection),
			Instructions: boolPtr(DefaultInstructionsSection),
		},
	}
}

// IsEnabled reports whether prompts should be generated at all.
func (c *ProjectConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Limit returns the traceback line limit; 0 means unlimited.
func (c *ProjectConfig) Limit() int {
	if c.TracebackLimit == nil {
		return DefaultTracebackLimit
	}
	return *c.TracebackLimit
}

// Load finds .debugprompt.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. ProjectDir
// defaults to the directory holding the file, or startDir when there is no
// file. A relative OutputDir is resolved against ProjectDir.
// If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", startDir, err)
	}

	data, cfgDir, err := findConfigFile(absStart)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ProjectDir = absStart
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("parsing %s: %w", FileName, err)}
	}

	mergeConfig(cfg, &fileCfg)

	if cfg.ProjectDir == "" {
		cfg.ProjectDir = cfgDir
	} else if !filepath.IsAbs(cfg.ProjectDir) {
		cfg.ProjectDir = filepath.Join(cfgDir, cfg.ProjectDir)
	}
	if !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(cfg.ProjectDir, cfg.OutputDir)
	}
	return cfg, nil
}

// findConfigFile walks up from dir looking for .debugprompt.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Real I/O
// errors (e.g. permission denied) are propagated.
func findConfigFile(dir string) ([]byte, string, error) {
	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

// ApplyEnv overlays environment overrides. lookup is usually os.LookupEnv.
func (c *ProjectConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEnabled); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return &ConfigError{Field: EnvEnabled, Value: v, Err: err}
		}
		c.Enabled = &b
	}
	if v, ok := lookup(EnvOutputDir); ok && strings.TrimSpace(v) != "" {
		c.OutputDir = v
		if !filepath.IsAbs(v) && c.ProjectDir != "" {
			c.OutputDir = filepath.Join(c.ProjectDir, v)
		}
	}
	return nil
}

// Broken returns a default configuration that fails Validate with err. Hosts
// use it when .debugprompt.yaml or the environment cannot be read, so the
// plugin reports the problem as a warning and the test run carries on.
func Broken(err error) *ProjectConfig {
	c := New()
	c.loadErr = err
	return c
}

// Validate checks values that would make every prompt write fail.
func (c *ProjectConfig) Validate() error {
	if c.loadErr != nil {
		return c.loadErr
	}
	if c.TracebackLimit != nil && *c.TracebackLimit < 0 {
		return &ConfigError{
			Field: "traceback_limit",
			Value: strconv.Itoa(*c.TracebackLimit),
			Err:   errors.New("must be zero (unlimited) or positive"),
		}
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return &ConfigError{Field: "output_dir", Err: errors.New("must not be empty")}
	}
	info, err := os.Stat(c.OutputDir)
	switch {
	case err == nil && !info.IsDir():
		return &ConfigError{Field: "output_dir", Value: c.OutputDir, Err: errors.New("exists and is not a directory")}
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return &ConfigError{Field: "output_dir", Value: c.OutputDir, Err: err}
	}
	for i, h := range c.Hooks.AfterPrompt {
		if strings.TrimSpace(h.Command) == "" {
			return &ConfigError{Field: fmt.Sprintf("hooks.after_prompt[%d].command", i), Err: errors.New("empty command")}
		}
	}
	return nil
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Enabled != nil {
		dst.Enabled = src.Enabled
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if src.ProjectDir != "" {
		dst.ProjectDir = src.ProjectDir
	}
	if src.TracebackLimit != nil {
		dst.TracebackLimit = src.TracebackLimit
	}
	if src.Instructions != "" {
		dst.Instructions = src.Instructions
	}

	// Sections
	if src.Sections.Steps != nil {
		dst.Sections.Steps = src.Sections.Steps
	}
	if src.Sections.Traceback != nil {
		dst.Sections.Traceback = src.Sections.Traceback
	}
	if src.Sections.Diff != nil {
		dst.Sections.Diff = src.Sections.Diff
	}
	if src.Sections.Source != nil {
		dst.Sections.Source = src.Sections.Source
	}
	if src.Sections.Variables != nil {
		dst.Sections.Variables = src.Sections.Variables
	}
	if src.Sections.Instructions != nil {
		dst.Sections.Instructions = src.Sections.Instructions
	}

	// Hooks
	if len(src.Hooks.AfterPrompt) > 0 {
		dst.Hooks.AfterPrompt = src.Hooks.AfterPrompt
	}
}

// Marshal renders the config as YAML, for `debugprompt init`.
func (c *ProjectConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// BoolValue dereferences a tri-state toggle, falling back to def.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}

// SectionNames lists the toggleable prompt sections in document order.
var SectionNames = []string{"steps", "traceback", "diff", "source", "variables", "instructions"}

var sectionDefaults = map[string]bool{
	"steps":        DefaultStepsSection,
	"traceback":    DefaultTracebackSection,
	"diff":         DefaultDiffSection,
	"source":       DefaultSourceSection,
	"variables":    DefaultVariablesSection,
	"instructions": DefaultInstructionsSection,
}

func (s *SectionsConfig) field(name string) **bool {
	switch name {
	case "steps":
		return &s.Steps
	case "traceback":
		return &s.Traceback
	case "diff":
		return &s.Diff
	case "source":
		return &s.Source
	case "variables":
		return &s.Variables
	case "instructions":
		return &s.Instructions
	}
	return nil
}

// Set turns the named section on or off.
func (s *SectionsConfig) Set(name string, on bool) error {
	f := s.field(name)
	if f == nil {
		return &ConfigError{Field: "sections", Value: name, Err: errors.New("unknown section")}
	}
	*f = boolPtr(on)
	return nil
}

// IsOn reports whether the named section is enabled. Unknown names are off.
func (s *SectionsConfig) IsOn(name string) bool {
	f := s.field(name)
	if f == nil {
		return false
	}
	return BoolValue(*f, sectionDefaults[name])
}
