// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed acyclic graph operations for topological
// sorting and cycle detection. The command graph builder uses it to reject
// cyclic depends/before wiring, and the execution engine uses it to reject
// cyclic forwarding between project elements before anything runs.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle. When produced by Order the
		// first and last entries are the same node, so the slice reads as a path.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. Edges represent "must run before" relationships:
	// an edge from A to B means A must complete before B starts.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// predecessors maps each node to the nodes that must run before it, in edge insertion order.
		predecessors map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency:    make(map[string][]string),
		predecessors: make(map[string][]string),
		nodeSet:      make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must run before "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
	g.predecessors[to] = append(g.predecessors[to], from)
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// Order returns the nodes reachable from roots in depth-first,
// predecessors-first order: every node appears after all the nodes that must
// run before it, and predecessors are visited in the order their edges were
// added. Each node appears once. A cycle on any visited path is reported as a
// CycleError whose Cycle reads as the offending path.
func (g *Graph) Order(roots ...string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(g.nodes))
	var (
		result []string
		path   []string
	)

	var visit func(node string) error
	visit = func(node string) error {
		switch state[node] {
		case visited:
			return nil
		case visiting:
			start := 0
			for i, n := range path {
				if n == node {
					start = i
					break
				}
			}
			cycle := append([]string{}, path[start:]...)
			return &CycleError{Cycle: append(cycle, node)}
		}

		state[node] = visiting
		path = append(path, node)
		for _, pred := range g.predecessors[node] {
			if err := visit(pred); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[node] = visited
		result = append(result, node)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return result, nil
}
