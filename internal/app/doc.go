// Package app wires the loaders, forcefield resolution, and the script
// builder into one run of the generator: load definitions, validate them,
// resolve the effective record, build the script, write the output file.
package app
