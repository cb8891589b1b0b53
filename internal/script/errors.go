package script

import "fmt"

// DuplicateSectionError reports a second registration under an existing
// section name.
type DuplicateSectionError struct {
	Name string
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("section %q is already registered", e.Name)
}

// UnresolvedPlaceholderError reports a template reference that could not be
// substituted with a concrete value.
type UnresolvedPlaceholderError struct {
	Section string
	Field   string
	Detail  string
}

func (e *UnresolvedPlaceholderError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("section %q: unresolved placeholder %q", e.Section, e.Field)
	}
	return fmt.Sprintf("section %q: unresolved template: %s", e.Section, e.Detail)
}

// OrderingError reports ordering constraints that cannot be satisfied,
// either because they form a cycle or because they name an unknown section.
type OrderingError struct {
	SectionA string
	SectionB string
	Reason   string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("ordering conflict between %q and %q: %s", e.SectionA, e.SectionB, e.Reason)
}

// MissingBindingError reports a template referencing an entity that was
// never bound.
type MissingBindingError struct {
	EntityID string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("no binding for entity %q", e.EntityID)
}
