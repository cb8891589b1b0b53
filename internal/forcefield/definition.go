package forcefield

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/vk/mdscript/internal/record"
	"github.com/zclconf/go-cty/cty"
)

// Rule is one per-field validation rule: an expected cty type and an
// optional inclusive numeric range. A NilType skips the type check.
type Rule struct {
	Type cty.Type
	Min  *float64
	Max  *float64
}

// Definition is a named, static forcefield: a read-only parameter record
// plus the required fields and validation rules that make it usable.
// Construction takes a defensive copy, so a Definition never observes later
// mutation of the record it was built from.
type Definition struct {
	name     string
	params   *record.Record
	required []string
	rules    map[string]Rule
}

// DefinitionOption configures a Definition at construction time.
type DefinitionOption func(*Definition)

// WithRequired declares fields (dotted paths) that must be present for the
// definition to validate.
func WithRequired(fields ...string) DefinitionOption {
	return func(d *Definition) {
		d.required = append(d.required, fields...)
	}
}

// WithRule attaches a validation rule to a field path.
func WithRule(field string, rule Rule) DefinitionOption {
	return func(d *Definition) {
		d.rules[field] = rule
	}
}

// NewDefinition builds a static forcefield definition over a copy of params.
func NewDefinition(name string, params *record.Record, opts ...DefinitionOption) *Definition {
	d := &Definition{
		name:   name,
		params: params.Copy(),
		rules:  make(map[string]Rule),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the definition's identifier.
func (d *Definition) Name() string {
	return d.name
}

// Record returns a defensive deep-copy snapshot of the parameters.
func (d *Definition) Record() *record.Record {
	return d.params.Copy()
}

// Validate checks that every required field is present and every rule
// passes. All violations found are collected into a single ValidationError
// rather than stopping at the first, so authors get the full diagnostic in
// one pass. Returns nil when the definition is usable.
func (d *Definition) Validate() error {
	var problems []Problem

	for _, field := range d.required {
		if !d.params.Has(field) {
			problems = append(problems, Problem{Field: field, Reason: "required field is missing"})
		}
	}

	ruleFields := make([]string, 0, len(d.rules))
	for field := range d.rules {
		ruleFields = append(ruleFields, field)
	}
	sort.Strings(ruleFields)

	for _, field := range ruleFields {
		rule := d.rules[field]
		v, err := d.params.GetCty(field)
		if err != nil {
			// Absence is reported by the required check; a rule on an
			// absent optional field is not a violation.
			continue
		}
		problems = append(problems, checkRule(field, v, rule)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Definition: d.name, Problems: problems}
	}
	return nil
}

// checkRule applies one rule to one present value.
func checkRule(field string, v cty.Value, rule Rule) []Problem {
	var problems []Problem

	if rule.Type != cty.NilType && !v.Type().Equals(rule.Type) {
		problems = append(problems, Problem{
			Field:  field,
			Reason: fmt.Sprintf("expected %s, got %s", rule.Type.FriendlyName(), v.Type().FriendlyName()),
		})
		return problems
	}

	if (rule.Min != nil || rule.Max != nil) && v.Type().Equals(cty.Number) {
		f, _ := v.AsBigFloat().Float64()
		if rule.Min != nil && f < *rule.Min {
			problems = append(problems, Problem{
				Field:  field,
				Reason: fmt.Sprintf("value %s is below minimum %v", trimFloat(v.AsBigFloat()), *rule.Min),
			})
		}
		if rule.Max != nil && f > *rule.Max {
			problems = append(problems, Problem{
				Field:  field,
				Reason: fmt.Sprintf("value %s is above maximum %v", trimFloat(v.AsBigFloat()), *rule.Max),
			})
		}
	}

	return problems
}

func trimFloat(f *big.Float) string {
	return f.Text('g', 10)
}
