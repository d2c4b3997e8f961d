// File: internal/workgraph/print.go
// Brief: DOT rendering for stall/cycle debugging.

package workgraph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// String renders the graph as GraphViz DOT: nodes as labeled vertices with
// completed ones filled, dependency edges as arcs pointing from prerequisite
// to dependent. Meant for humans staring at a stalled schedule, not as a
// stable machine format.
func (g *WorkGraph) String() string {
	var b strings.Builder
	_ = g.WriteDOT(&b)
	return b.String()
}

func (g *WorkGraph) WriteDOT(w io.Writer) error {
	g.mu.Lock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if _, err := fmt.Fprintln(w, "digraph workgraph {"); err != nil {
		g.mu.Unlock()
		return err
	}
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")
	for _, id := range ids {
		n := g.nodes[id]
		attrs := fmt.Sprintf("label=%q", fmt.Sprintf("%s\n%s", n.Note(), n.Type()))
		if n.State() == StateCompleted {
			attrs += ",style=filled"
		}
		fmt.Fprintf(w, "  %q [%s];\n", id, attrs)
	}
	for _, id := range ids {
		for _, dep := range g.nodes[id].Dependencies() {
			// Arrow follows execution order: prerequisite before dependent.
			fmt.Fprintf(w, "  %q -> %q;\n", dep, id)
		}
	}
	_, err := fmt.Fprintln(w, "}")
	g.mu.Unlock()
	return err
}
