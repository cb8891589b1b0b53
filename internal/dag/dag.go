package dag

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a collection of nodes and their dependency edges.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// seq counts insertions so Sort can break ties deterministically.
	seq int
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	id string
	// seq is the insertion sequence number, used as the tie-breaker in Sort.
	seq int
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		seq:        g.seq,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.seq++
}

// HasNode reports whether a node with the given ID exists in the graph.
func (g *Graph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.nodes[id]
	return ok
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Dependencies returns a slice of node IDs that the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps, nil
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, indicating the first node involved in the detected cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited, known not to be part of a cycle.
	// temporary: currently in the recursion stack.
	// unvisited: everything else.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// A node already in the recursion stack means a cycle.
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true

		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}

		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}

// Sort returns all node IDs in a topological order: every node appears after
// the nodes it depends on. When several nodes are simultaneously ready, the
// one inserted first is emitted first, so the order is fully deterministic.
// If the graph contains a cycle, Sort returns the IDs of the nodes stuck in
// it as the error's remainder, and no partial order.
func (g *Graph) Sort() ([]string, *CycleRemainder) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		indegree[id] = len(n.deps)
	}

	order := make([]string, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		// Pick the ready node with the smallest insertion sequence.
		var next *node
		for id, n := range g.nodes {
			if indegree[id] != 0 {
				continue
			}
			if next == nil || n.seq < next.seq {
				next = n
			}
		}
		if next == nil {
			// No ready node left: everything remaining is part of, or
			// downstream of, a cycle.
			return nil, g.remainder(indegree)
		}

		order = append(order, next.id)
		indegree[next.id] = -1 // consumed
		for _, dep := range next.dependents {
			indegree[dep.id]--
		}
	}

	return order, nil
}

// CycleRemainder describes the nodes that could not be ordered because of a
// dependency cycle. Edge names one concrete unsatisfiable dependency inside
// the stuck set, picked deterministically.
type CycleRemainder struct {
	Stuck    []string
	EdgeFrom string
	EdgeTo   string
}

func (c *CycleRemainder) Error() string {
	return fmt.Sprintf("dependency cycle: %s -> %s cannot be satisfied", c.EdgeFrom, c.EdgeTo)
}

// remainder collects the unordered nodes and one representative edge among
// them. Caller holds at least a read lock. indegree values of -1 mark nodes
// already emitted by Sort.
func (g *Graph) remainder(indegree map[string]int) *CycleRemainder {
	rem := &CycleRemainder{}

	var first *node
	for id, n := range g.nodes {
		if indegree[id] < 0 {
			continue
		}
		rem.Stuck = append(rem.Stuck, id)
		if first == nil || n.seq < first.seq {
			first = n
		}
	}

	sort.Slice(rem.Stuck, func(i, j int) bool {
		return g.nodes[rem.Stuck[i]].seq < g.nodes[rem.Stuck[j]].seq
	})

	// Name the lowest-sequence unsatisfied dependency of the earliest stuck
	// node so the same cycle always reports the same edge.
	if first != nil {
		rem.EdgeTo = first.id
		var from *node
		for id, dep := range first.deps {
			if indegree[id] < 0 {
				continue
			}
			if from == nil || dep.seq < from.seq {
				from = dep
			}
		}
		if from != nil {
			rem.EdgeFrom = from.id
		}
	}

	return rem
}
