package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/strata/internal/ir"
)

// CycleWarning represents a potential cycle in activity spawns and calls.
//
// Cycles are warnings, not errors, because they may be intentional:
//   - A repeating orbit activity that re-spawns itself after a delay
//   - Mutually scheduling activities that terminate on a resource condition
//
// A cycle made only of call steps with no delay can never finish and is
// reported at the higher "error" level; it is still not a compile failure,
// because a wait_until in the loop may break it.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Downlink", "Slew", "Downlink"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "error"
}

// AnalyzeCycles performs static cycle analysis on a model's activities.
//
// The algorithm:
//  1. Build activity → activity graph from spawn and call steps
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle warning
//
// Nodes are visited in declaration order so the warnings are deterministic.
// A DAG (no cycles) returns an empty warning list.
func AnalyzeCycles(model *ir.ModelSpec) []CycleWarning {
	if len(model.Activities) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildDependencyGraph(model)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warning := cycleSCCToWarning(scc, graph)
			if instantLoop(scc, model) {
				warning.Level = "error"
				warning.Message += " (no step in the loop advances time)"
			}
			warnings = append(warnings, warning)
		}
	}

	return warnings
}

// dependencyGraph maps activity → activities it spawns or calls.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the activity dependency graph and returns
// the activities in declaration order.
func buildDependencyGraph(model *ir.ModelSpec) (dependencyGraph, []string) {
	graph := make(dependencyGraph)
	order := make([]string, 0, len(model.Activities))

	for _, act := range model.Activities {
		order = append(order, act.Name)
		// Initialize with empty slice if no edges (ensures node exists in graph)
		if graph[act.Name] == nil {
			graph[act.Name] = []string{}
		}
		for _, step := range act.Steps {
			if step.Op != ir.OpSpawn && step.Op != ir.OpCall {
				continue
			}
			if _, ok := model.Activity(step.Activity); !ok {
				continue // reported by Validate (E110)
			}
			graph[act.Name] = append(graph[act.Name], step.Activity)
		}
	}

	return graph, order
}

// instantLoop reports whether every activity in scc reaches the next one
// without any step that lets time pass.
func instantLoop(scc []string, model *ir.ModelSpec) bool {
	for _, name := range scc {
		act, ok := model.Activity(name)
		if !ok {
			return false
		}
		for _, step := range act.Steps {
			switch step.Op {
			case ir.OpDelay, ir.OpWaitUntil:
				return false
			}
		}
	}
	return true
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of activity names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes
	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
//
// The path shows the cycle sequence by reconstructing a path through the SCC.
// For self-loops, the path is [activity, activity].
// For multi-node cycles, the path shows a cycle traversal.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		// Self-loop
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Activity starts itself: %s → %s", name, name),
			Level:   "warning",
		}
	}

	// Multi-node cycle - reconstruct a cycle path
	path := reconstructCyclePath(scc, graph)

	pathStr := strings.Join(path, " → ")
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential cycle detected: %s", pathStr),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	// Build set of SCC members for fast lookup
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at first node
	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	// Follow edges within SCC until we return to start
	for {
		visited[current] = true

		// Find next SCC member reachable from current
		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			// No more unvisited neighbors in SCC
			break
		}

		path = append(path, next)

		if next == start {
			// Completed the cycle
			break
		}

		current = next
	}

	return path
}
