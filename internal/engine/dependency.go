package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wpine215/a32nx/internal/ir"
)

// DependencyWarning describes a rule ordering hazard found at build time.
type DependencyWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning" or "info"
}

// AnalyzeDependencies inspects rules for two hazards:
//
//   - a rule reading another rule's destination in the same phase. It is
//     reported as a warning because the reader observes the phase-start value,
//     not the value written in that phase.
//   - variable feedback loops across phases (A -> B -> A). They are normal
//     when the model closes the loop and are reported as info.
//
// Rules without hazards yield an empty list.
func AnalyzeDependencies(rules []ir.Rule) []DependencyWarning {
	warnings := []DependencyWarning{}

	for _, phase := range ir.Phases {
		writers := make(map[ir.Variable]ir.Rule)
		for _, r := range rules {
			if r.Phase == phase {
				writers[r.Destination] = r
			}
		}
		for _, r := range rules {
			if r.Phase != phase {
				continue
			}
			w, ok := writers[r.Source]
			if !ok || w.Destination == r.Destination {
				continue
			}
			warnings = append(warnings, DependencyWarning{
				Path: []string{w.String(), r.String()},
				Message: fmt.Sprintf("%s reads %s, which is written in the same phase; it observes the phase-start value",
					r.String(), r.Source),
				Level: "warning",
			})
		}
	}

	graph := buildVariableGraph(rules)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !slices.Contains(graph[scc[0]], scc[0]) {
			continue
		}
		path := reconstructCyclePath(scc, graph)
		warnings = append(warnings, DependencyWarning{
			Path:    path,
			Message: fmt.Sprintf("variable feedback loop: %s", strings.Join(path, " -> ")),
			Level:   "info",
		})
	}
	return warnings
}

// variableGraph maps a variable to the variables rules copy it into.
type variableGraph map[string][]string

func buildVariableGraph(rules []ir.Rule) variableGraph {
	graph := make(variableGraph)
	for _, r := range rules {
		src, dst := r.Source.String(), r.Destination.String()
		if !slices.Contains(graph[src], dst) {
			graph[src] = append(graph[src], dst)
		}
		if _, ok := graph[dst]; !ok {
			graph[dst] = nil
		}
	}
	return graph
}

// tarjanSCC finds strongly connected components. Nodes are visited in sorted
// order so the result is deterministic.
func tarjanSCC(graph variableGraph) [][]string {
	var (
		index   int
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath walks from the smallest node of scc back to itself,
// staying inside the component.
func reconstructCyclePath(scc []string, graph variableGraph) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, n := range graph[current] {
			if n == start && len(path) > 1 {
				return append(path, start)
			}
			if members[n] && !visited[n] && next == "" {
				next = n
			}
		}
		if next == "" {
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		current = next
	}
}
