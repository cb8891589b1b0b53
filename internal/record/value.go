package record

import "github.com/zclconf/go-cty/cty"

// Value is one field value: either a cty value (scalar or sequence) or a
// nested record. Exactly one of the two is set.
type Value struct {
	prim   cty.Value
	nested *Record
}

// Val wraps a cty value (scalar or sequence) as a field value.
func Val(v cty.Value) Value {
	return Value{prim: v}
}

// Nested wraps a record as a field value. The record is stored as-is, not
// copied; callers who need isolation should pass r.Copy().
func Nested(r *Record) Value {
	return Value{nested: r}
}

// String is shorthand for Val(cty.StringVal(s)).
func String(s string) Value {
	return Val(cty.StringVal(s))
}

// Number is shorthand for Val(cty.NumberFloatVal(f)).
func Number(f float64) Value {
	return Val(cty.NumberFloatVal(f))
}

// Bool is shorthand for Val(cty.BoolVal(b)).
func Bool(b bool) Value {
	return Val(cty.BoolVal(b))
}

// IsNested reports whether the value holds a nested record.
func (v Value) IsNested() bool {
	return v.nested != nil
}

// Record returns the nested record, or nil for a plain value.
func (v Value) Record() *Record {
	return v.nested
}

// Cty returns the value as a cty.Value. Nested records are converted to
// cty object values, so the result is always usable in an evaluation
// context.
func (v Value) Cty() cty.Value {
	if v.nested != nil {
		return v.nested.Object()
	}
	return v.prim
}

// copyValue returns a value independent of the original. cty values are
// immutable and shared freely; nested records are deep-copied.
func (v Value) copyValue() Value {
	if v.nested != nil {
		return Value{nested: v.nested.Copy()}
	}
	return v
}
