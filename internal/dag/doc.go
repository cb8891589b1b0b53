// Package dag provides a small directed acyclic graph used to order
// dependent computations: derived forcefield fields and script sections.
// It offers cycle detection and a deterministic topological sort in which
// ties between independent nodes are broken by insertion order.
package dag
