// Package script assembles solver input scripts from templated sections
// bound to resolved parameter records. Sections declare ordering
// constraints; the builder orders them deterministically, substitutes every
// placeholder from the bound records, and emits the final command text
// all-or-nothing: any unresolved reference or ordering conflict aborts the
// build before a single line is produced.
package script
