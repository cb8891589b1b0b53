// Package hclloader loads forcefield definitions, derivations, and script
// sections from HCL files. Derivation expressions are ordinary HCL
// expressions over the composed record; their dependencies are inferred
// from the variables the expression references, so authors rarely need to
// spell them out.
package hclloader
