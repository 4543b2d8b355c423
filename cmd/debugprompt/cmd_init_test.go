package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spboyer/debugprompt/internal/projectconfig"
)

func TestInitCommand_WritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")

	var buf bytes.Buffer
	cmd := newInitCommand()
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{dir, "--yes"})
	require.NoError(t, cmd.Execute())

	path := filepath.Join(dir, projectconfig.FileName)
	assert.FileExists(t, path)
	assert.Contains(t, buf.String(), "Initialized debugprompt:")
	assert.Contains(t, buf.String(), path)

	cfg, err := projectconfig.Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, filepath.Join(dir, ".debugprompt"), cfg.OutputDir)
	assert.Equal(t, projectconfig.DefaultTracebackLimit, cfg.Limit())
	assert.False(t, cfg.Sections.IsOn("variables"))
}

func TestInitCommand_Flags(t *testing.T) {
	dir := t.TempDir()

	cmd := newInitCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{dir, "--output-dir", "/var/tmp/prompts", "--sections", "steps,variables"})
	require.NoError(t, cmd.Execute())

	cfg, err := projectconfig.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/prompts", cfg.OutputDir)
	assert.True(t, cfg.Sections.IsOn("variables"))
	assert.False(t, cfg.Sections.IsOn("traceback"))
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, projectconfig.FileName)
	require.NoError(t, os.WriteFile(path, []byte("enabled: false\n"), 0o644))

	cmd := newInitCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--yes"})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "enabled: false\n", string(data))

	cmd = newInitCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--yes", "--force"})
	require.NoError(t, cmd.Execute())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "enabled: true")
}

func TestInitCommand_BadSections(t *testing.T) {
	cmd := newInitCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir(), "--yes", "--sections", "steps,footer"})
	assert.ErrorContains(t, cmd.Execute(), `unknown section "footer"`)
}

func TestConfigCommand_PrintsMergedConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, projectconfig.FileName), []byte("traceback_limit: 3\n"), 0o644))

	var buf bytes.Buffer
	cmd := newConfigCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--dir", dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "traceback_limit: 3")
	assert.Contains(t, buf.String(), "project_dir: "+dir)
}
