package record

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Precedence selects which side of a merge wins a plain key conflict.
type Precedence int

const (
	// PreferSelf keeps the receiver's value on conflict.
	PreferSelf Precedence = iota
	// PreferOther takes the other record's value on conflict.
	PreferOther
)

// MergeOption adjusts the behavior of Merge.
type MergeOption func(*mergeOpts)

type mergeOpts struct {
	carryLocks bool
}

// CarryLocks makes Merge propagate the lock sets of both inputs into the
// merged record. Without it the result starts with no locked fields.
func CarryLocks() MergeOption {
	return func(o *mergeOpts) { o.carryLocks = true }
}

// Record is an ordered mapping from field name to Value. Field names are
// unique within one record; nested records are addressed by dotted path.
// A Record is not safe for concurrent mutation.
type Record struct {
	order  []string
	fields map[string]Value
	locked map[string]bool
}

// New creates an empty record.
func New() *Record {
	return &Record{
		fields: make(map[string]Value),
		locked: make(map[string]bool),
	}
}

// Len returns the number of immediate fields.
func (r *Record) Len() int {
	return len(r.order)
}

// Keys returns the immediate field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Has reports whether a field exists at the given dotted path.
func (r *Record) Has(path string) bool {
	_, err := r.Get(path)
	return err == nil
}

// Get returns the value at a dotted field path.
func (r *Record) Get(path string) (Value, error) {
	parts := strings.Split(path, ".")
	cur := r
	for i, name := range parts {
		v, ok := cur.fields[name]
		if !ok {
			return Value{}, &FieldNotFoundError{Path: path}
		}
		if i == len(parts)-1 {
			return v, nil
		}
		if !v.IsNested() {
			return Value{}, &FieldNotFoundError{Path: path}
		}
		cur = v.Record()
	}
	return Value{}, &FieldNotFoundError{Path: path}
}

// GetCty returns the value at a dotted path as a cty.Value.
func (r *Record) GetCty(path string) (cty.Value, error) {
	v, err := r.Get(path)
	if err != nil {
		return cty.NilVal, err
	}
	return v.Cty(), nil
}

// Set creates or overwrites the field at a dotted path, creating
// intermediate nested records as needed. Overwriting a locked field, or
// replacing a locked plain field with an intermediate record, fails with
// FieldLockedError.
func (r *Record) Set(path string, v Value) error {
	parts := strings.Split(path, ".")
	cur := r
	for i, name := range parts {
		last := i == len(parts)-1

		existing, exists := cur.fields[name]
		if last {
			if exists && cur.locked[name] {
				return &FieldLockedError{Path: path}
			}
			if !exists {
				cur.order = append(cur.order, name)
			}
			cur.fields[name] = v
			return nil
		}

		if exists && existing.IsNested() {
			cur = existing.Record()
			continue
		}
		// The intermediate is absent or a plain value; replace it with a
		// fresh nested record unless it is locked.
		if exists && cur.locked[name] {
			return &FieldLockedError{Path: strings.Join(parts[:i+1], ".")}
		}
		child := New()
		if !exists {
			cur.order = append(cur.order, name)
		}
		cur.fields[name] = Nested(child)
		cur = child
	}
	return nil
}

// Lock marks the field at a dotted path immutable in this record. The field
// must exist. Locks do not propagate through Merge unless requested.
func (r *Record) Lock(path string) error {
	parts := strings.Split(path, ".")
	cur := r
	for i, name := range parts {
		v, ok := cur.fields[name]
		if !ok {
			return &FieldNotFoundError{Path: path}
		}
		if i == len(parts)-1 {
			cur.locked[name] = true
			return nil
		}
		if !v.IsNested() {
			return &FieldNotFoundError{Path: path}
		}
		cur = v.Record()
	}
	return nil
}

// IsLocked reports whether the field at a dotted path is locked. A missing
// field is not locked.
func (r *Record) IsLocked(path string) bool {
	parts := strings.Split(path, ".")
	cur := r
	for i, name := range parts {
		if i == len(parts)-1 {
			return cur.locked[name]
		}
		v, ok := cur.fields[name]
		if !ok || !v.IsNested() {
			return false
		}
		cur = v.Record()
	}
	return false
}

// Copy returns a deep copy. Lock markings are preserved.
func (r *Record) Copy() *Record {
	out := New()
	out.order = make([]string, len(r.order))
	copy(out.order, r.order)
	for name, v := range r.fields {
		out.fields[name] = v.copyValue()
	}
	for name := range r.locked {
		out.locked[name] = true
	}
	return out
}

// Merge returns a new record containing the union of fields from the
// receiver and other. On a plain key conflict the side selected by prec
// wins. When both sides hold nested records under the same key, the nested
// records are merged recursively rather than replaced wholesale. Neither
// input is mutated. Field order is the receiver's order followed by other's
// new keys in their order.
func (r *Record) Merge(other *Record, prec Precedence, opts ...MergeOption) *Record {
	var o mergeOpts
	for _, opt := range opts {
		opt(&o)
	}
	return r.merge(other, prec, o)
}

func (r *Record) merge(other *Record, prec Precedence, o mergeOpts) *Record {
	out := New()

	for _, name := range r.order {
		self := r.fields[name]
		theirs, both := other.fields[name]

		switch {
		case !both:
			out.put(name, self.copyValue())
		case self.IsNested() && theirs.IsNested():
			out.put(name, Nested(self.Record().merge(theirs.Record(), prec, o)))
		case prec == PreferOther:
			out.put(name, theirs.copyValue())
		default:
			out.put(name, self.copyValue())
		}
	}

	for _, name := range other.order {
		if _, seen := r.fields[name]; seen {
			continue
		}
		out.put(name, other.fields[name].copyValue())
	}

	if o.carryLocks {
		for name := range r.locked {
			out.locked[name] = true
		}
		for name := range other.locked {
			out.locked[name] = true
		}
	}

	return out
}

// put appends a field without lock checks; callers guarantee uniqueness.
func (r *Record) put(name string, v Value) {
	r.order = append(r.order, name)
	r.fields[name] = v
}

// Paths returns every leaf field as a dotted path, depth-first in insertion
// order. Nested records contribute their leaves, not themselves.
func (r *Record) Paths() []string {
	var paths []string
	r.walk("", &paths)
	return paths
}

func (r *Record) walk(prefix string, paths *[]string) {
	for _, name := range r.order {
		full := name
		if prefix != "" {
			full = prefix + "." + name
		}
		v := r.fields[name]
		if v.IsNested() {
			v.Record().walk(full, paths)
			continue
		}
		*paths = append(*paths, full)
	}
}

// Object converts the whole record into a cty object value, nested records
// included, suitable for use as an evaluation-context variable.
func (r *Record) Object() cty.Value {
	if len(r.order) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(r.order))
	for name, v := range r.fields {
		attrs[name] = v.Cty()
	}
	return cty.ObjectVal(attrs)
}

// JSON serializes the record as a JSON object, mainly for inspection and
// debug logging.
func (r *Record) JSON() ([]byte, error) {
	obj := r.Object()
	return ctyjson.Marshal(obj, obj.Type())
}
