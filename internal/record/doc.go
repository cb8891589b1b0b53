// Package record implements the ordered, dynamically typed key/value
// container underlying every parameter set. Field values are cty values
// (scalars and sequences) or nested records, addressable by dotted path.
// Records merge with explicit precedence and copy-then-overwrite semantics:
// Merge never mutates either input.
package record
