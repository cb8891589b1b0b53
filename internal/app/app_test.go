package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mdscript/internal/forcefield"
	"github.com/vk/mdscript/internal/script"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const baseDefs = `
forcefield "lj_base" {
  params = {
    cutoff  = 2.5
    epsilon = 0.1
    sigma   = 3.4
  }
  required = ["cutoff"]
}

section "pair_style" {
  template = "pair_style lj/cut ${field.cutoff}"
  before   = ["pair_coeff"]
}

section "pair_coeff" {
  template = "pair_coeff 1 1 ${field.epsilon} ${field.sigma}"
}
`

func TestRun_WritesScriptFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defs.hcl", baseDefs)
	outPath := filepath.Join(dir, "in.script")

	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, OutputPath: outPath, LogLevel: "error"})
	require.NoError(t, err)

	require.NoError(t, New(&stdout, &stderr, cfg).Run(context.Background()))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "pair_style lj/cut 2.5\npair_coeff 1 1 0.1 3.4\n", string(data))
	assert.Empty(t, stdout.String(), "script went to the file, not stdout")
}

func TestRun_StdoutWhenNoOutputPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defs.hcl", baseDefs)

	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	require.NoError(t, New(&stdout, &stderr, cfg).Run(context.Background()))
	assert.Equal(t, "pair_style lj/cut 2.5\npair_coeff 1 1 0.1 3.4\n", stdout.String())
}

func TestRun_YamlTableOverridesHCL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defs.hcl", baseDefs)
	writeFile(t, dir, "override.yaml", "name: site_tuning\nparams:\n  cutoff: 5.0\n")

	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	require.NoError(t, New(&stdout, &stderr, cfg).Run(context.Background()))
	assert.Contains(t, stdout.String(), "pair_style lj/cut 5")
}

func TestRun_InvalidDefinitionAbortsBeforeOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defs.hcl", `
forcefield "bad" {
  params = {
    cutoff = -1
  }
  rule "cutoff" {
    type = "number"
    min  = 0
  }
}

section "pair_style" {
  template = "pair_style lj/cut ${field.cutoff}"
}
`)
	outPath := filepath.Join(dir, "in.script")

	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, OutputPath: outPath, LogLevel: "error"})
	require.NoError(t, err)

	err = New(&stdout, &stderr, cfg).Run(context.Background())
	var verr *forcefield.ValidationError
	require.ErrorAs(t, err, &verr)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "no partial script file may exist")
}

func TestRun_UnresolvedPlaceholderAbortsBeforeOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defs.hcl", `
forcefield "base" {
  params = {
    cutoff = 2.5
  }
}

section "pair_coeff" {
  template = "pair_coeff 1 1 ${field.epsilon}"
}
`)
	outPath := filepath.Join(dir, "in.script")

	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, OutputPath: outPath, LogLevel: "error"})
	require.NoError(t, err)

	err = New(&stdout, &stderr, cfg).Run(context.Background())
	var unresolved *script.UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolved)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, stdout.String())
}

func TestRun_DerivationFlowsIntoScript(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defs.hcl", `
forcefield "geom" {
  params = {
    cutoff_inner = 2.0
  }
}

derive "cutoff_outer" {
  expression = field.cutoff_inner * 2
}

section "pair_style" {
  template = "pair_style lj/cut ${field.cutoff_inner} ${field.cutoff_outer}"
}
`)

	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	require.NoError(t, New(&stdout, &stderr, cfg).Run(context.Background()))
	assert.Equal(t, "pair_style lj/cut 2 4\n", stdout.String())
}

func TestRun_EmptyInputDirFails(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	cfg, err := NewConfig(Config{InputPath: dir, LogLevel: "error"})
	require.NoError(t, err)

	require.Error(t, New(&stdout, &stderr, cfg).Run(context.Background()))
}

func TestNewConfig_RequiresInputPath(t *testing.T) {
	_, err := NewConfig(Config{})
	require.Error(t, err)
}
