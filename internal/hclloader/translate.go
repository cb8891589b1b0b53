package hclloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/mdscript/internal/forcefield"
	"github.com/vk/mdscript/internal/record"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// exprFuncs are the functions available inside derivation expressions.
var exprFuncs = map[string]function.Function{
	"abs":    stdlib.AbsoluteFunc,
	"ceil":   stdlib.CeilFunc,
	"floor":  stdlib.FloorFunc,
	"format": stdlib.FormatFunc,
	"log":    stdlib.LogFunc,
	"max":    stdlib.MaxFunc,
	"min":    stdlib.MinFunc,
	"pow":    stdlib.PowFunc,
}

// translateForcefield converts one forcefield block into a validated-capable
// static definition.
func translateForcefield(block *forcefieldBlock) (*forcefield.Definition, error) {
	params, err := recordFromExpr(block.Params)
	if err != nil {
		return nil, err
	}

	opts := []forcefield.DefinitionOption{forcefield.WithRequired(block.Required...)}
	for _, rb := range block.Rules {
		rule := forcefield.Rule{Min: rb.Min, Max: rb.Max}
		if rb.Type != "" {
			ty, err := typeFromName(rb.Type)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rb.Field, err)
			}
			rule.Type = ty
		}
		opts = append(opts, forcefield.WithRule(rb.Field, rule))
	}

	return forcefield.NewDefinition(block.Name, params, opts...), nil
}

// translateDerivation converts a derive block into a named derivation whose
// function evaluates the block's HCL expression against the composed record
// exposed as the `field` variable. Dependencies come from the explicit
// `uses` list when present, otherwise from the variables the expression
// references.
func translateDerivation(block *deriveBlock) Derivation {
	deps := block.Uses
	if deps == nil {
		deps = inferDeps(block.Expression)
	}

	expr := block.Expression
	fn := func(rec *record.Record) (cty.Value, error) {
		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{"field": rec.Object()},
			Functions: exprFuncs,
		}
		v, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		return v, nil
	}

	return Derivation{Name: block.Name, Deps: deps, Fn: fn}
}

// inferDeps collects the record paths referenced through the `field`
// variable, sorted for a deterministic result.
func inferDeps(expr hcl.Expression) []string {
	set := make(map[string]struct{})
	for _, trav := range expr.Variables() {
		if trav.RootName() != "field" {
			continue
		}
		path := traversalPath(trav)
		if path != "" {
			set[path] = struct{}{}
		}
	}

	deps := make([]string, 0, len(set))
	for path := range set {
		deps = append(deps, path)
	}
	sort.Strings(deps)
	return deps
}

// traversalPath renders the attribute steps after the root as a dotted
// record path, stopping at the first non-attribute step.
func traversalPath(trav hcl.Traversal) string {
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

// recordFromExpr converts a params attribute into a record. Object
// constructor syntax is walked directly so the record preserves the
// author's field order; any other expression form is evaluated and read
// back in sorted-key order.
func recordFromExpr(expr hcl.Expression) (*record.Record, error) {
	if obj, ok := unwrapObjectCons(expr); ok {
		return recordFromObjectCons(obj)
	}

	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return recordFromValue(v)
}

func unwrapObjectCons(expr hcl.Expression) (*hclsyntax.ObjectConsExpr, bool) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		return e, true
	case *hclsyntax.ParenthesesExpr:
		return unwrapObjectCons(e.Expression)
	}
	return nil, false
}

func recordFromObjectCons(obj *hclsyntax.ObjectConsExpr) (*record.Record, error) {
	rec := record.New()
	for _, item := range obj.Items {
		keyVal, diags := item.KeyExpr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		if !keyVal.Type().Equals(cty.String) {
			return nil, fmt.Errorf("parameter keys must be strings, got %s", keyVal.Type().FriendlyName())
		}
		key := keyVal.AsString()

		if nested, ok := unwrapObjectCons(item.ValueExpr); ok {
			child, err := recordFromObjectCons(nested)
			if err != nil {
				return nil, err
			}
			if err := rec.Set(key, record.Nested(child)); err != nil {
				return nil, err
			}
			continue
		}

		v, diags := item.ValueExpr.Value(&hcl.EvalContext{Functions: exprFuncs})
		if diags.HasErrors() {
			return nil, diags
		}
		if err := rec.Set(key, record.Val(v)); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// recordFromValue converts an already-evaluated object or map value into a
// record. Key order is sorted because cty values carry no syntax order.
func recordFromValue(v cty.Value) (*record.Record, error) {
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", v.Type().FriendlyName())
	}

	valueMap := v.AsValueMap()
	keys := make([]string, 0, len(valueMap))
	for key := range valueMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rec := record.New()
	for _, key := range keys {
		elem := valueMap[key]
		if elem.Type().IsObjectType() || elem.Type().IsMapType() {
			child, err := recordFromValue(elem)
			if err != nil {
				return nil, err
			}
			if err := rec.Set(key, record.Nested(child)); err != nil {
				return nil, err
			}
			continue
		}
		if err := rec.Set(key, record.Val(elem)); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// typeFromName maps a rule's type keyword to a cty type.
func typeFromName(name string) (cty.Type, error) {
	switch name {
	case "number":
		return cty.Number, nil
	case "string":
		return cty.String, nil
	case "bool":
		return cty.Bool, nil
	}
	return cty.NilType, fmt.Errorf("unknown type %q (want number, string, or bool)", name)
}
