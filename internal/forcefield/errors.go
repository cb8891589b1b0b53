package forcefield

import (
	"fmt"
	"strings"
)

// Problem is one validation finding for a single field.
type Problem struct {
	Field  string
	Reason string
}

// ValidationError aggregates every validation finding for one definition.
// Validation is total: all problems are collected in one pass so a
// hand-authored parameter table gets a complete diagnostic at once.
type ValidationError struct {
	Definition string
	Problems   []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, fmt.Sprintf("%s: %s", p.Field, p.Reason))
	}
	return fmt.Sprintf("forcefield %q is invalid:\n- %s", e.Definition, strings.Join(lines, "\n- "))
}

// AmbiguousFieldError reports a field name that is both a composed base
// field and a derived-field name. The collision is an authoring mistake and
// is never resolved silently by precedence.
type AmbiguousFieldError struct {
	Field string
}

func (e *AmbiguousFieldError) Error() string {
	return fmt.Sprintf("field %q is both a composed field and a derivation", e.Field)
}

// CycleError reports a cyclic derivation dependency graph. No derived field
// is evaluated when a cycle is present.
type CycleError struct {
	Fields []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("derivation cycle among: %s", strings.Join(e.Fields, ", "))
}

// DerivationError wraps a failure raised by one derivation function.
type DerivationError struct {
	Name string
	Err  error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation %q failed: %v", e.Name, e.Err)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}
