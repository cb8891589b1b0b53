package hclloader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mdscript/internal/forcefield"
)

func writeHCL(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_ForcefieldBlock(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "base.hcl", `
forcefield "lj_base" {
  params = {
    stiffness = 10
    damping   = 1
    pair = {
      epsilon = 0.1
      sigma   = 3.4
    }
  }
  required = ["stiffness"]

  rule "stiffness" {
    type = "number"
    min  = 0
  }
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Definitions, 1)

	def := model.Definitions[0]
	assert.Equal(t, "lj_base", def.Name())
	require.NoError(t, def.Validate())

	rec := def.Record()
	assert.Equal(t, []string{"stiffness", "damping", "pair"}, rec.Keys(), "author order preserved")
	assert.True(t, rec.Has("pair.epsilon"))
}

func TestLoad_RuleViolationSurfacesOnValidate(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "bad.hcl", `
forcefield "bad" {
  params = {
    stiffness = -5
  }

  rule "stiffness" {
    type = "number"
    min  = 0
  }
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	err = model.Definitions[0].Validate()
	var verr *forcefield.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLoad_DerivationInferredDeps(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "derive.hcl", `
derive "radius" {
  expression = pow(3 * field.volume / (4 * 3.14159265358979), 0.3333333333)
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Derivations, 1)

	der := model.Derivations[0]
	assert.Equal(t, "radius", der.Name)
	assert.Equal(t, []string{"volume"}, der.Deps, "deps inferred from expression variables")
}

func TestLoad_DerivationEvaluates(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "geom.hcl", `
forcefield "geom" {
  params = {
    volume = 10
  }
}

derive "radius" {
  expression = pow(3 * field.volume / (4 * 3.14159265358979), 0.3333333333333333)
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	dyn, err := model.Dynamic()
	require.NoError(t, err)
	rec, err := dyn.Resolve()
	require.NoError(t, err)

	v, err := rec.GetCty("radius")
	require.NoError(t, err)
	f, _ := v.AsBigFloat().Float64()
	want := math.Cbrt(3 * 10 / (4 * math.Pi))
	assert.InDelta(t, want, f, 1e-9)
}

func TestLoad_SectionBlocks(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "sections.hcl", `
section "pair_style" {
  template = "pair_style lj/cut ${field.cutoff}"
  before   = ["pair_coeff"]
}

section "pair_coeff" {
  template = "pair_coeff 1 1 ${field.pair.epsilon} ${field.pair.sigma}"
  after    = ["pair_style"]
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, model.Sections, 2)
	assert.Equal(t, "pair_style", model.Sections[0].Name)
	assert.Equal(t, []string{"pair_coeff"}, model.Sections[0].Before)
	assert.Equal(t, []string{"pair_style"}, model.Sections[1].After)
	assert.NotNil(t, model.Sections[0].Expr, "template captured unevaluated")
}

func TestLoad_ExplicitUsesOverridesInference(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "derive.hcl", `
derive "skin" {
  uses       = ["cutoff_outer"]
  expression = field.cutoff_outer * 1.1
}
`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"cutoff_outer"}, model.Derivations[0].Deps)
}

func TestLoad_RejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "broken.hcl", `forcefield "x" {`)

	_, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestLoad_SingleFilePath(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "one.hcl", `
forcefield "only" {
  params = {
    mass = 1
  }
}
`)

	model, err := NewLoader().Load(context.Background(), filepath.Join(dir, "one.hcl"))
	require.NoError(t, err)
	require.Len(t, model.Definitions, 1)
	assert.Equal(t, "only", model.Definitions[0].Name())
}
