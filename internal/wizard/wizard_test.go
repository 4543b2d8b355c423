package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/debugprompt/internal/hooks"
	"github.com/spboyer/debugprompt/internal/projectconfig"
)

func TestDefaultAnswers(t *testing.T) {
	cfg := projectconfig.New()
	cfg.OutputDir = "/tmp/prompts"
	cfg.Hooks.AfterPrompt = []hooks.HookConfig{{Command: "code {{.PromptPath}}"}}

	a := DefaultAnswers(cfg)

	assert.True(t, a.Enabled)
	assert.Equal(t, "/tmp/prompts", a.OutputDir)
	assert.Equal(t, projectconfig.DefaultTracebackLimit, a.TracebackLimit)
	assert.Equal(t, []string{"steps", "traceback", "diff", "source", "instructions"}, a.Sections)
	assert.Equal(t, []string{"code {{.PromptPath}}"}, a.AfterPrompt)
}

func TestApply(t *testing.T) {
	cfg := projectconfig.New()
	a := &Answers{
		Enabled:        false,
		OutputDir:      "prompts",
		TracebackLimit: 25,
		Sections:       []string{"steps", "variables"},
		AfterPrompt:    []string{"echo {{.PromptPath}}"},
	}

	require.NoError(t, a.Apply(cfg))

	assert.False(t, cfg.IsEnabled())
	assert.Equal(t, "prompts", cfg.OutputDir)
	assert.Equal(t, 25, cfg.Limit())
	for _, name := range projectconfig.SectionNames {
		want := name == "steps" || name == "variables"
		assert.Equal(t, want, cfg.Sections.IsOn(name), name)
	}
	assert.Equal(t, []hooks.HookConfig{{Command: "echo {{.PromptPath}}"}}, cfg.Hooks.AfterPrompt)
}

func TestGenerateConfigYAML_LoadsBack(t *testing.T) {
	a := &Answers{
		Enabled:        true,
		OutputDir:      "out/prompts",
		TracebackLimit: 0,
		Sections:       []string{"steps", "traceback", "instructions"},
		AfterPrompt:    []string{`notify "{{.ScenarioName}}"`},
	}

	content, err := GenerateConfigYAML(a)
	require.NoError(t, err)
	assert.Contains(t, content, "# debugprompt writes an LLM debugging prompt")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, projectconfig.FileName), []byte(content), 0o644))

	cfg, err := projectconfig.Load(dir)
	require.NoError(t, err)

	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, filepath.Join(dir, "out", "prompts"), cfg.OutputDir)
	assert.Equal(t, 0, cfg.Limit())
	assert.True(t, cfg.Sections.IsOn("steps"))
	assert.False(t, cfg.Sections.IsOn("diff"))
	assert.False(t, cfg.Sections.IsOn("source"))
	require.Len(t, cfg.Hooks.AfterPrompt, 1)
	assert.Equal(t, `notify "{{.ScenarioName}}"`, cfg.Hooks.AfterPrompt[0].Command)
}

func TestGenerateConfigYAML_NoHooks(t *testing.T) {
	content, err := GenerateConfigYAML(&Answers{OutputDir: "p"})
	require.NoError(t, err)
	assert.NotContains(t, content, "hooks:")
	assert.Contains(t, content, "enabled: false")
	assert.Contains(t, content, "  variables: false")
}

func TestParseSections(t *testing.T) {
	got, err := ParseSections("steps, diff")
	require.NoError(t, err)
	assert.Equal(t, []string{"steps", "diff"}, got)

	_, err = ParseSections("steps,footer")
	assert.ErrorContains(t, err, `unknown section "footer"`)
}

func TestParseLimit(t *testing.T) {
	n, err := parseLimit(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	for _, bad := range []string{"", "-1", "ten"} {
		_, err := parseLimit(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "hello", []string{"hello"}},
		{"multiple", "a, b, c", []string{"a", "b", "c"}},
		{"with blanks", "a,, b, ,c", []string{"a", "b", "c"}},
		{"whitespace only", "  ,  ,  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
