package wizard

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/spboyer/debugprompt/internal/hooks"
	"github.com/spboyer/debugprompt/internal/projectconfig"
)

// Answers holds all fields collected during the interactive wizard.
type Answers struct {
	Enabled        bool
	OutputDir      string
	TracebackLimit int
	Sections       []string
	AfterPrompt    []string
}

// DefaultAnswers seeds the wizard from cfg.
func DefaultAnswers(cfg *projectconfig.ProjectConfig) *Answers {
	a := &Answers{
		Enabled:        cfg.IsEnabled(),
		OutputDir:      cfg.OutputDir,
		TracebackLimit: cfg.Limit(),
	}
	for _, name := range projectconfig.SectionNames {
		if cfg.Sections.IsOn(name) {
			a.Sections = append(a.Sections, name)
		}
	}
	for _, h := range cfg.Hooks.AfterPrompt {
		a.AfterPrompt = append(a.AfterPrompt, h.Command)
	}
	return a
}

const configTemplate = `# debugprompt writes an LLM debugging prompt for every failed test.
# Environment overrides: DEBUGPROMPT_ENABLED, DEBUGPROMPT_OUTPUT_DIR.
enabled: {{ .Enabled }}
output_dir: {{ printf "%q" .OutputDir }}
traceback_limit: {{ .TracebackLimit }}
sections:
{{- range .Toggles }}
  {{ .Name }}: {{ .On }}
{{- end }}
{{- if .AfterPrompt }}
hooks:
  after_prompt:
{{- range .AfterPrompt }}
    - command: {{ printf "%q" . }}
{{- end }}
{{- end }}
`

type toggle struct {
	Name string
	On   bool
}

// RunConfigWizard runs an interactive huh form seeded with defaults.
func RunConfigWizard(in io.Reader, out io.Writer, defaults *Answers) (*Answers, error) {
	var (
		enabled     = defaults.Enabled
		outputDir   = defaults.OutputDir
		limitRaw    = strconv.Itoa(defaults.TracebackLimit)
		sections    = slices.Clone(defaults.Sections)
		afterPrompt = strings.Join(defaults.AfterPrompt, ", ")
	)

	options := make([]huh.Option[string], 0, len(projectconfig.SectionNames))
	for _, name := range projectconfig.SectionNames {
		options = append(options, huh.NewOption(name, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Generate prompts for failed tests?").
				Affirmative("Yes").
				Negative("No").
				Value(&enabled),
			huh.NewInput().
				Title("Output directory").
				Description("Where prompt_<token>.md files are written").
				Value(&outputDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("output directory is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Traceback limit").
				Description("Maximum traceback lines per prompt, 0 for no limit").
				Value(&limitRaw).
				Validate(func(s string) error {
					_, err := parseLimit(s)
					return err
				}),
			huh.NewMultiSelect[string]().
				Title("Prompt sections").
				Options(options...).
				Value(&sections),
			huh.NewInput().
				Title("After-prompt hooks").
				Description("Comma-separated commands run after each prompt, e.g. code {{.PromptPath}}").
				Value(&afterPrompt),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	limit, err := parseLimit(limitRaw)
	if err != nil {
		return nil, err
	}
	return &Answers{
		Enabled:        enabled,
		OutputDir:      strings.TrimSpace(outputDir),
		TracebackLimit: limit,
		Sections:       sections,
		AfterPrompt:    splitAndTrim(afterPrompt),
	}, nil
}

// ParseSections turns a comma-separated list of section names into a
// validated slice.
func ParseSections(s string) ([]string, error) {
	names := splitAndTrim(s)
	for _, n := range names {
		if !slices.Contains(projectconfig.SectionNames, n) {
			return nil, fmt.Errorf("unknown section %q (want one of %s)", n, strings.Join(projectconfig.SectionNames, ", "))
		}
	}
	return names, nil
}

// Apply writes the answers onto cfg.
func (a *Answers) Apply(cfg *projectconfig.ProjectConfig) error {
	enabled := a.Enabled
	limit := a.TracebackLimit
	cfg.Enabled = &enabled
	cfg.OutputDir = a.OutputDir
	cfg.TracebackLimit = &limit
	for _, name := range projectconfig.SectionNames {
		if err := cfg.Sections.Set(name, slices.Contains(a.Sections, name)); err != nil {
			return err
		}
	}
	cfg.Hooks.AfterPrompt = nil
	for _, cmd := range a.AfterPrompt {
		cfg.Hooks.AfterPrompt = append(cfg.Hooks.AfterPrompt, hooks.HookConfig{Command: cmd})
	}
	return nil
}

// GenerateConfigYAML renders a commented .debugprompt.yaml from the answers.
func GenerateConfigYAML(a *Answers) (string, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	toggles := make([]toggle, 0, len(projectconfig.SectionNames))
	for _, name := range projectconfig.SectionNames {
		toggles = append(toggles, toggle{Name: name, On: slices.Contains(a.Sections, name)})
	}

	var buf strings.Builder
	err = tmpl.Execute(&buf, struct {
		*Answers
		Toggles []toggle
	}{a, toggles})
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func parseLimit(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("traceback limit must be a non-negative integer, got %q", s)
	}
	return n, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
