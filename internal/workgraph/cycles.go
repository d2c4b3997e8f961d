// File: internal/workgraph/cycles.go
// Brief: Cycle extraction and reachability over dependency edges.

package workgraph

import "sort"

// FindCycle returns one dependency cycle as an ordered id path whose first
// and last elements are equal, or nil when the graph is acyclic. It exists to
// make stall errors debuggable; scheduling itself never calls it on the happy
// path.
func (g *WorkGraph) FindCycle() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := map[string]bool{}
	onPath := map[string]bool{}
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onPath[id] = true
		path = append(path, id)
		n := g.nodes[id]
		for _, dep := range n.Dependencies() {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			if onPath[dep] {
				for i, p := range path {
					if p == dep {
						cycle = append(append([]string(nil), path[i:]...), dep)
						return true
					}
				}
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}
		onPath[id] = false
		path = path[:len(path)-1]
		return false
	}

	for _, id := range ids {
		if !visited[id] && visit(id) {
			return cycle
		}
	}
	return nil
}

// reachable reports whether end can be reached from start by following
// dependency edges. The builder uses it to find the cosmetic publish edges
// that closed a cycle; it is not part of the scheduling contract.
func (g *WorkGraph) reachable(start, end string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reachableLocked(start, end)
}

func (g *WorkGraph) reachableLocked(start, end string) bool {
	seen := map[string]struct{}{}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == end {
			return true
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for dep := range n.core().deps {
			stack = append(stack, dep)
		}
	}
	return false
}
