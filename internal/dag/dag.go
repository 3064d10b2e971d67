package dag

import (
	"fmt"
	"sort"
)

// Graph is a collection of nodes and their dependencies, representing a DAG.
type Graph struct {
	// Nodes stores all nodes in the graph, keyed by their unique ID.
	Nodes map[string]*Node

	// byRun groups nodes by run name, in variant order. Singular runs hold
	// exactly one node.
	byRun map[string][]*Node
}

func newGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
		byRun: make(map[string][]*Node),
	}
}

// add inserts a node, rejecting duplicate IDs. Two runs resolving to the
// same address would also race for the same store, so this is an error
// rather than an overwrite.
func (g *Graph) add(n *Node) error {
	id := n.ID()
	if _, exists := g.Nodes[id]; exists {
		return fmt.Errorf("duplicate run name '%s'", n.id.Run)
	}
	g.Nodes[id] = n
	g.byRun[n.id.Run] = append(g.byRun[n.id.Run], n)
	return nil
}

// RunNodes returns the nodes expanded from the named run, in variant order.
// It returns nil when no such run exists.
func (g *Graph) RunNodes(name string) []*Node {
	return g.byRun[name]
}

// RunNames returns every run name in the graph, sorted.
func (g *Graph) RunNames() []string {
	names := make([]string, 0, len(g.byRun))
	for name := range g.byRun {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// link creates a directed edge so that n waits for dep. Linking twice is a
// no-op; self-references surface through detectCycles with the offending ID.
func link(n, dep *Node) {
	if _, exists := n.Deps[dep.ID()]; exists {
		return
	}
	n.Deps[dep.ID()] = dep
	if n != dep {
		dep.Dependents[n.ID()] = n
	}
}

// detectCycles checks for circular dependencies in the graph using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID()] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID()] {
				return fmt.Errorf("cycle detected involving '%s'", dep.ID())
			}
			if !visited[dep.ID()] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID())
		visited[node.ID()] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID()] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
