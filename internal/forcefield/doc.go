// Package forcefield models interaction-parameter sets. A Definition is a
// named, immutable, validated static parameter set. A Dynamic composes
// several definitions with declared precedence and layers derived fields on
// top, resolving them lazily in dependency order into one effective record.
package forcefield
