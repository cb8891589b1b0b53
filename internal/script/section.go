package script

import "github.com/hashicorp/hcl/v2"

// Section is one templated, orderable block of the generated script. The
// template is HCL template syntax: literal command text with
// ${entity.field} interpolations referencing bound records.
type Section struct {
	// Name uniquely identifies the section within one builder.
	Name string
	// Template is the section's command text with placeholders.
	Template string
	// Expr, when set, is an already-parsed template expression and takes
	// precedence over Template. Loaders that decode sections from source
	// files set it so the template is only parsed once.
	Expr hcl.Expression
	// After lists section names this section must follow.
	After []string
	// Before lists section names this section must precede.
	Before []string
}
