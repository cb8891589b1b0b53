package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mdscript/internal/record"
)

func bindRecord(t *testing.T, b *Builder, entity string, pairs map[string]record.Value) {
	t.Helper()
	rec := record.New()
	for path, v := range pairs {
		require.NoError(t, rec.Set(path, v))
	}
	b.Bind(entity, rec)
}

func TestBuild_SubstitutesPlaceholders(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{
		Name:     "pair_style",
		Template: "pair_style lj/cut ${field.cutoff}",
	}))
	bindRecord(t, b, "field", map[string]record.Value{"cutoff": record.Number(2.5)})

	script, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pair_style lj/cut 2.5"}, script.Lines())
	assert.Equal(t, "pair_style lj/cut 2.5\n", script.String())
	assert.Equal(t, StateEmitted, b.State())
}

func TestBuild_OrderingConstraintBeatsRegistrationOrder(t *testing.T) {
	b := NewBuilder()
	// Registered in reverse of the required order on purpose.
	require.NoError(t, b.Register(&Section{
		Name:     "pair_coeff",
		Template: "pair_coeff 1 1 ${field.epsilon} ${field.sigma}",
		After:    []string{"pair_style"},
	}))
	require.NoError(t, b.Register(&Section{
		Name:     "pair_style",
		Template: "pair_style lj/cut ${field.cutoff}",
		Before:   []string{"pair_coeff"},
	}))
	bindRecord(t, b, "field", map[string]record.Value{
		"cutoff":  record.Number(2.5),
		"epsilon": record.Number(0.1),
		"sigma":   record.Number(3.4),
	})

	script, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"pair_style lj/cut 2.5",
		"pair_coeff 1 1 0.1 3.4",
	}, script.Lines())
}

func TestBuild_UnconstrainedSectionsKeepRegistrationOrder(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{Name: "units", Template: "units lj"}))
	require.NoError(t, b.Register(&Section{Name: "boundary", Template: "boundary p p p"}))
	require.NoError(t, b.Register(&Section{Name: "atom_style", Template: "atom_style atomic"}))

	script, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"units lj", "boundary p p p", "atom_style atomic"}, script.Lines())
}

func TestRegister_Duplicate(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{Name: "run", Template: "run 1000"}))

	err := b.Register(&Section{Name: "run", Template: "run 2000"})
	var dup *DuplicateSectionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "run", dup.Name)
}

func TestBuild_UnresolvedPlaceholderEmitsNothing(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{Name: "first", Template: "units lj"}))
	require.NoError(t, b.Register(&Section{
		Name:     "pair_style",
		Template: "pair_style lj/cut ${field.cutoff}",
	}))
	bindRecord(t, b, "field", map[string]record.Value{"stiffness": record.Number(1)})

	script, err := b.Build(context.Background())
	var unresolved *UnresolvedPlaceholderError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "pair_style", unresolved.Section)
	assert.Equal(t, "field.cutoff", unresolved.Field)
	assert.Nil(t, script, "no partial output may surface")
	assert.Equal(t, StateFailed, b.State())
}

func TestBuild_MissingBinding(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{
		Name:     "mass",
		Template: "mass 1 ${typeA.mass}",
	}))

	_, err := b.Build(context.Background())
	var missing *MissingBindingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "typeA", missing.EntityID)
}

func TestBuild_ConstraintCycle(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{Name: "a", Template: "a", After: []string{"b"}}))
	require.NoError(t, b.Register(&Section{Name: "b", Template: "b", After: []string{"a"}}))

	_, err := b.Build(context.Background())
	var ordering *OrderingError
	require.ErrorAs(t, err, &ordering)
	assert.Equal(t, "constraint cycle", ordering.Reason)
}

func TestBuild_UnknownConstraintTarget(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{Name: "a", Template: "a", After: []string{"ghost"}}))

	_, err := b.Build(context.Background())
	var ordering *OrderingError
	require.ErrorAs(t, err, &ordering)
	assert.Equal(t, "a", ordering.SectionA)
	assert.Equal(t, "ghost", ordering.SectionB)
}

func TestBuild_MultipleEntities(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{
		Name:     "masses",
		Template: "mass 1 ${typeA.mass}\nmass 2 ${typeB.mass}",
	}))
	bindRecord(t, b, "typeA", map[string]record.Value{"mass": record.Number(1)})
	bindRecord(t, b, "typeB", map[string]record.Value{"mass": record.Number(12)})

	script, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mass 1 1", "mass 2 12"}, script.Lines())
}

func TestBuild_TemplateFunctions(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{
		Name:     "pair_style",
		Template: "pair_style ${lower(field.style)} ${max(field.cutoff, field.skin)}",
	}))
	bindRecord(t, b, "field", map[string]record.Value{
		"style":  record.String("LJ/CUT"),
		"cutoff": record.Number(2.5),
		"skin":   record.Number(3.0),
	})

	script, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pair_style lj/cut 3"}, script.Lines())
}

func TestBuilder_ReusableAcrossBuilds(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{
		Name:     "pair_style",
		Template: "pair_style lj/cut ${field.cutoff}",
	}))

	bindRecord(t, b, "field", map[string]record.Value{"cutoff": record.Number(2.5)})
	first, err := b.Build(context.Background())
	require.NoError(t, err)

	bindRecord(t, b, "field", map[string]record.Value{"cutoff": record.Number(5.0)})
	second, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"pair_style lj/cut 2.5"}, first.Lines())
	assert.Equal(t, []string{"pair_style lj/cut 5"}, second.Lines())
}

func TestBuild_NestedFieldReference(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register(&Section{
		Name:     "pair_coeff",
		Template: "pair_coeff 1 1 ${field.pair.epsilon} ${field.pair.sigma}",
	}))
	bindRecord(t, b, "field", map[string]record.Value{
		"pair.epsilon": record.Number(0.1),
		"pair.sigma":   record.Number(3.4),
	})

	script, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pair_coeff 1 1 0.1 3.4"}, script.Lines())
}
