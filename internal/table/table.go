// Package table constructs static forcefield definitions from YAML
// parameter tables, the tabular alternative to the HCL authoring format.
package table

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/mdscript/internal/forcefield"
	"github.com/vk/mdscript/internal/record"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// RuleSpec is the YAML form of one validation rule.
type RuleSpec struct {
	Type string   `yaml:"type"`
	Min  *float64 `yaml:"min"`
	Max  *float64 `yaml:"max"`
}

// Table is one YAML document describing a static forcefield.
type Table struct {
	Name     string              `yaml:"name"`
	Params   yaml.Node           `yaml:"params"`
	Required []string            `yaml:"required"`
	Rules    map[string]RuleSpec `yaml:"rules"`
}

// Load reads one YAML file containing one or more documents and returns a
// definition per document, in file order.
func Load(path string) ([]*forcefield.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter table %s: %w", path, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parameter table %s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes a YAML stream into definitions, one per document.
func Parse(data []byte) ([]*forcefield.Definition, error) {
	var defs []*forcefield.Definition

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for i := 0; ; i++ {
		var tbl Table
		if err := dec.Decode(&tbl); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		def, err := tbl.definition()
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (t Table) definition() (*forcefield.Definition, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	params, err := recordFromNode(&t.Params)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	opts := []forcefield.DefinitionOption{forcefield.WithRequired(t.Required...)}

	ruleFields := make([]string, 0, len(t.Rules))
	for field := range t.Rules {
		ruleFields = append(ruleFields, field)
	}
	sort.Strings(ruleFields)
	for _, field := range ruleFields {
		spec := t.Rules[field]
		rule := forcefield.Rule{Min: spec.Min, Max: spec.Max}
		if spec.Type != "" {
			ty, err := typeFromName(spec.Type)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", field, err)
			}
			rule.Type = ty
		}
		opts = append(opts, forcefield.WithRule(field, rule))
	}

	return forcefield.NewDefinition(t.Name, params, opts...), nil
}

// recordFromNode converts a YAML mapping node into a record, preserving the
// author's key order.
func recordFromNode(node *yaml.Node) (*record.Record, error) {
	rec := record.New()
	if node == nil || node.Kind == 0 {
		return rec, nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		return recordFromNode(node.Content[0])
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got YAML kind %d", node.Kind)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		key := keyNode.Value

		if valNode.Kind == yaml.MappingNode {
			child, err := recordFromNode(valNode)
			if err != nil {
				return nil, err
			}
			if err := rec.Set(key, record.Nested(child)); err != nil {
				return nil, err
			}
			continue
		}

		v, err := valueFromNode(valNode)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		if err := rec.Set(key, record.Val(v)); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// valueFromNode converts a YAML scalar or sequence into a cty value.
func valueFromNode(node *yaml.Node) (cty.Value, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return cty.NilVal, err
	}
	return ctyFromGo(raw)
}

// ctyFromGo maps decoded YAML values onto cty values. Sequences become
// tuples so mixed element types are allowed.
func ctyFromGo(raw any) (cty.Value, error) {
	switch v := raw.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case string:
		return cty.StringVal(v), nil
	case []any:
		if len(v) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(v))
		for i, e := range v {
			ev, err := ctyFromGo(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	}

	// Fall back to reflection for anything exotic.
	ty, err := gocty.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(raw, ty)
}

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
