// Package graph builds the dependency graph for a run and levels it into
// topological waves, grounded on spec.md §4.1.
package graph

import (
	"sort"

	"github.com/checkrun-dev/engine/pkg/models"
)

// Node is one check's position in the graph: its forward edges
// (dependents — checks that depend on it) and backward edges
// (dependencies — checks it depends on), addressed by id only so the
// graph stays an arena rather than a web of pointers (spec.md §9).
type Node struct {
	ID           string
	Dependencies []string
	Dependents   []string
}

// Graph is the resolved dependency graph: a DAG leveled into waves.
type Graph struct {
	Nodes map[string]*Node
	Waves [][]string
}

// AllAncestors returns the full transitive set of dependencies of id,
// including indirect ones, used to expand a requested check list into the
// executable set (spec.md §4.1).
func (g *Graph) AllAncestors(id string) map[string]bool {
	seen := map[string]bool{}
	var visit func(string)
	visit = func(cur string) {
		node, ok := g.Nodes[cur]
		if !ok {
			return
		}
		for _, dep := range node.Dependencies {
			if !seen[dep] {
				seen[dep] = true
				visit(dep)
			}
		}
	}
	visit(id)
	return seen
}

// IsAncestor reports whether candidate is a (possibly indirect) dependency
// of id — the rule goto targets must satisfy (spec.md §4.4).
func (g *Graph) IsAncestor(id, candidate string) bool {
	return g.AllAncestors(id)[candidate]
}

// Build constructs a Graph from id -> dependency-ids, restricted to the
// subset of checks named in ids (plus their transitive ancestors, which the
// caller is expected to have already expanded into ids). Returns
// RuleGraphUnknownDep for a dangling dependency and RuleGraphCycle (with the
// offending node set) if the subgraph is not acyclic.
func Build(checks map[string]*models.CheckDefinition, ids []string) (*Graph, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	nodes := make(map[string]*Node, len(wanted))
	for id := range wanted {
		def, ok := checks[id]
		if !ok {
			return nil, models.NewEngineError(models.RuleGraphUnknownDep, "requested check %q is not defined", id)
		}
		nodes[id] = &Node{ID: id}
		for _, dep := range def.DependsOn {
			if _, ok := checks[dep]; !ok {
				return nil, models.NewEngineError(models.RuleGraphUnknownDep, "check %q depends on unknown check %q", id, dep)
			}
			nodes[id].Dependencies = append(nodes[id].Dependencies, dep)
		}
	}

	// Forward edges, only among nodes actually in this subgraph.
	for id, node := range nodes {
		for _, dep := range node.Dependencies {
			if depNode, ok := nodes[dep]; ok {
				depNode.Dependents = append(depNode.Dependents, id)
			} else {
				return nil, models.NewEngineError(models.RuleGraphUnknownDep, "check %q depends on %q which was not expanded into the run set", id, dep)
			}
		}
	}

	waves, err := level(nodes)
	if err != nil {
		return nil, err
	}

	return &Graph{Nodes: nodes, Waves: waves}, nil
}

// level runs Kahn's algorithm: repeatedly emit every node whose unresolved
// dependency set is empty, remove them, and start a new level. If a pass
// emits nothing while nodes remain, the subgraph has a cycle.
func level(nodes map[string]*Node) ([][]string, error) {
	remaining := make(map[string]int, len(nodes))
	for id, node := range nodes {
		remaining[id] = len(node.Dependencies)
	}

	var waves [][]string
	done := make(map[string]bool, len(nodes))

	for len(done) < len(nodes) {
		var level []string
		for id, count := range remaining {
			if done[id] {
				continue
			}
			if resolvedCount(nodes[id], done) >= count {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			return nil, findCycle(nodes, done)
		}
		sort.Strings(level)
		for _, id := range level {
			done[id] = true
		}
		waves = append(waves, level)
	}

	return waves, nil
}

func resolvedCount(node *Node, done map[string]bool) int {
	n := 0
	for _, dep := range node.Dependencies {
		if done[dep] {
			n++
		}
	}
	return n
}

// findCycle runs a DFS with a recursion stack over the undone subset of
// nodes to report one concrete cycle's node set, per spec.md §4.1.
func findCycle(nodes map[string]*Node, done map[string]bool) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range nodes[id].Dependencies {
			if done[dep] {
				continue
			}
			switch color[dep] {
			case gray:
				// Found the back-edge; extract the cycle from the stack.
				for i, s := range stack {
					if s == dep {
						cycle = append([]string{}, stack[i:]...)
						break
					}
				}
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		if !done[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				sort.Strings(cycle)
				return models.NewCycleError(cycle)
			}
		}
	}
	// Should be unreachable: level() only calls findCycle when stuck.
	sort.Strings(ids)
	return models.NewCycleError(ids)
}
