// File: internal/deploy/progress.go
// Brief: Colorized node lifecycle reporting.

package deploy

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/example/skylift/internal/workgraph"
)

var (
	deployingColor = color.New(color.FgCyan)
	completedColor = color.New(color.FgGreen)
	failedColor    = color.New(color.FgRed, color.Bold)
	skippedColor   = color.New(color.FgYellow)
)

// Progress renders node state transitions as they happen and a final summary
// that tells failed nodes apart from the ones that were never attempted.
type Progress struct {
	Out     io.Writer
	NoColor bool

	mu sync.Mutex
}

func (p *Progress) ObserveNodeState(node workgraph.WorkNode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch node.State() {
	case workgraph.StateDeploying:
		p.printf(deployingColor, "start    %s (%s)\n", node.Note(), node.ID())
	case workgraph.StateCompleted:
		p.printf(completedColor, "done     %s\n", node.Note())
	case workgraph.StateFailed:
		p.printf(failedColor, "failed   %s\n", node.Note())
	case workgraph.StateSkipped:
		p.printf(skippedColor, "skipped  %s\n", node.Note())
	}
}

// Summary prints the per-state totals and names every failed and skipped
// node, so an operator can tell "this failed" from "this was never attempted".
func (p *Progress) Summary(g *workgraph.WorkGraph) {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := map[workgraph.DeploymentState]int{}
	var failed, skipped []workgraph.WorkNode
	for _, t := range []workgraph.WorkNodeType{workgraph.AssetBuildNodeType, workgraph.AssetPublishNodeType, workgraph.StackNodeType} {
		for _, n := range g.NodesOfType(t) {
			counts[n.State()]++
			switch n.State() {
			case workgraph.StateFailed:
				failed = append(failed, n)
			case workgraph.StateSkipped:
				skipped = append(skipped, n)
			}
		}
	}

	fmt.Fprintf(p.Out, "\n%d completed, %d failed, %d skipped\n",
		counts[workgraph.StateCompleted], counts[workgraph.StateFailed], counts[workgraph.StateSkipped])
	for _, n := range failed {
		p.printf(failedColor, "  failed:  %s (%s)\n", n.Note(), n.ID())
	}
	for _, n := range skipped {
		p.printf(skippedColor, "  skipped: %s (%s)\n", n.Note(), n.ID())
	}
}

func (p *Progress) printf(c *color.Color, format string, args ...any) {
	if p.NoColor {
		fmt.Fprintf(p.Out, format, args...)
		return
	}
	c.Fprintf(p.Out, format, args...)
}
