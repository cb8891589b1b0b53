package script

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/mdscript/internal/ctxlog"
	"github.com/vk/mdscript/internal/dag"
	"github.com/vk/mdscript/internal/record"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// State tracks the phase of one build call.
type State int

const (
	StateCollecting State = iota
	StateOrdering
	StateResolving
	StateEmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateOrdering:
		return "ordering"
	case StateResolving:
		return "resolving"
	case StateEmitted:
		return "emitted"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// templateFuncs are the functions available inside section templates.
var templateFuncs = map[string]function.Function{
	"abs":    stdlib.AbsoluteFunc,
	"format": stdlib.FormatFunc,
	"join":   stdlib.JoinFunc,
	"lower":  stdlib.LowerFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
	"upper":  stdlib.UpperFunc,
}

// Script is the emitted result of one successful build: the script text as
// an ordered sequence of command lines.
type Script struct {
	lines []string
}

// Lines returns the script's lines in emission order.
func (s *Script) Lines() []string {
	lines := make([]string, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// String returns the full script text, one command per line, with a
// trailing newline.
func (s *Script) String() string {
	return strings.Join(s.lines, "\n") + "\n"
}

// Builder accumulates named template sections and entity bindings, then
// emits the final script. A builder is reusable across builds with
// different bindings; it is not safe for concurrent use.
type Builder struct {
	sections []*Section
	byName   map[string]*Section
	bindings map[string]*record.Record
	state    State
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		byName:   make(map[string]*Section),
		bindings: make(map[string]*record.Record),
		state:    StateCollecting,
	}
}

// Register adds a section. Registration order is the tie-breaker when the
// ordering constraints leave sections unordered relative to each other.
func (b *Builder) Register(s *Section) error {
	if _, dup := b.byName[s.Name]; dup {
		return &DuplicateSectionError{Name: s.Name}
	}
	b.sections = append(b.sections, s)
	b.byName[s.Name] = s
	b.state = StateCollecting
	return nil
}

// Bind associates a resolved parameter record with a logical entity that
// section templates may reference by name. Binding the same entity again
// replaces the previous record.
func (b *Builder) Bind(entityID string, rec *record.Record) {
	b.bindings[entityID] = rec
	b.state = StateCollecting
}

// State returns the phase the builder reached in its last build call.
func (b *Builder) State() State {
	return b.state
}

// Build orders the sections, resolves every placeholder, and emits the
// script. On any failure it returns nil and the specific error; no partial
// script is ever produced.
func (b *Builder) Build(ctx context.Context) (*Script, error) {
	logger := ctxlog.FromContext(ctx)

	b.state = StateOrdering
	order, err := b.orderSections()
	if err != nil {
		b.state = StateFailed
		return nil, err
	}
	logger.Debug("Section ordering complete.", "sections", order)

	b.state = StateResolving
	evalCtx := b.evalContext()

	var lines []string
	for _, name := range order {
		text, err := b.resolveSection(b.byName[name], evalCtx)
		if err != nil {
			b.state = StateFailed
			return nil, err
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	logger.Debug("All sections resolved.", "line_count", len(lines))

	b.state = StateEmitted
	return &Script{lines: lines}, nil
}

// orderSections runs a stable topological sort over the declared
// constraints. Constraints naming unknown sections, and constraint cycles,
// both surface as OrderingError.
func (b *Builder) orderSections() ([]string, error) {
	g := dag.New()
	for _, s := range b.sections {
		g.AddNode(s.Name)
	}
	for _, s := range b.sections {
		for _, after := range s.After {
			if !g.HasNode(after) {
				return nil, &OrderingError{SectionA: s.Name, SectionB: after, Reason: "unknown section in must-follow constraint"}
			}
			if err := g.AddEdge(after, s.Name); err != nil {
				return nil, &OrderingError{SectionA: s.Name, SectionB: after, Reason: err.Error()}
			}
		}
		for _, before := range s.Before {
			if !g.HasNode(before) {
				return nil, &OrderingError{SectionA: s.Name, SectionB: before, Reason: "unknown section in must-precede constraint"}
			}
			if err := g.AddEdge(s.Name, before); err != nil {
				return nil, &OrderingError{SectionA: s.Name, SectionB: before, Reason: err.Error()}
			}
		}
	}

	order, rem := g.Sort()
	if rem != nil {
		return nil, &OrderingError{SectionA: rem.EdgeFrom, SectionB: rem.EdgeTo, Reason: "constraint cycle"}
	}
	return order, nil
}

// evalContext exposes every bound record as a template variable.
func (b *Builder) evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(b.bindings))
	for entity, rec := range b.bindings {
		vars[entity] = rec.Object()
	}
	return &hcl.EvalContext{Variables: vars, Functions: templateFuncs}
}

// resolveSection substitutes one section's placeholders. References are
// checked against the bindings before evaluation so failures carry the
// entity and field names rather than a bare syntax position.
func (b *Builder) resolveSection(s *Section, evalCtx *hcl.EvalContext) (string, error) {
	expr := s.Expr
	if expr == nil {
		parsed, diags := hclsyntax.ParseTemplate([]byte(s.Template), s.Name, hcl.Pos{Line: 1, Column: 1})
		if diags.HasErrors() {
			return "", &UnresolvedPlaceholderError{Section: s.Name, Detail: diags.Error()}
		}
		expr = parsed
	}

	for _, trav := range expr.Variables() {
		entity := trav.RootName()
		rec, bound := b.bindings[entity]
		if !bound {
			return "", &MissingBindingError{EntityID: entity}
		}
		path := attrPath(trav)
		if path != "" && !rec.Has(path) {
			return "", &UnresolvedPlaceholderError{Section: s.Name, Field: entity + "." + path}
		}
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", &UnresolvedPlaceholderError{Section: s.Name, Detail: diags.Error()}
	}
	if val.IsNull() || !val.IsKnown() {
		return "", &UnresolvedPlaceholderError{Section: s.Name, Detail: "template produced no value"}
	}

	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", &UnresolvedPlaceholderError{Section: s.Name, Detail: err.Error()}
	}

	return strings.TrimRight(str.AsString(), "\n"), nil
}

// attrPath renders the attribute steps of a traversal as a dotted record
// path, stopping at the first non-attribute step (such as an index).
func attrPath(trav hcl.Traversal) string {
	var parts []string
	for _, step := range trav[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			break
		}
		parts = append(parts, attr.Name)
	}
	return strings.Join(parts, ".")
}
