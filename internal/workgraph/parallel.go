// File: internal/workgraph/parallel.go
// Brief: Concurrency-bounded graph execution engine.

package workgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Concurrency caps the number of in-flight operations, per node type and in
// total. Zero or negative values are treated as 1.
type Concurrency struct {
	Total        int
	Stack        int
	AssetBuild   int
	AssetPublish int
}

// MaxConcurrency applies a single number as both the per-type and the total
// cap, the convenience form most callers want.
func MaxConcurrency(n int) Concurrency {
	return Concurrency{Total: n, Stack: n, AssetBuild: n, AssetPublish: n}
}

func (c Concurrency) limitFor(t WorkNodeType) int64 {
	var n int
	switch t {
	case StackNodeType:
		n = c.Stack
	case AssetBuildNodeType:
		n = c.AssetBuild
	case AssetPublishNodeType:
		n = c.AssetPublish
	}
	if n < 1 {
		n = 1
	}
	return int64(n)
}

func (c Concurrency) totalLimit() int64 {
	if c.Total < 1 {
		return 1
	}
	return int64(c.Total)
}

// WorkActions holds the injected callbacks, one per node type. The engine
// does not know what they do, only whether they fail and how long they take.
type WorkActions struct {
	DeployStack  func(ctx context.Context, node *StackNode) error
	BuildAsset   func(ctx context.Context, node *AssetBuildNode) error
	PublishAsset func(ctx context.Context, node *AssetPublishNode) error
}

// CycleError reports that the schedule cannot make progress: the ready pool
// is empty, nothing is in flight, and work remains pending.
type CycleError struct {
	// Path is the offending cycle (first and last ids equal), or nil when no
	// cycle could be extracted.
	Path []string
	// Pending lists the stuck node ids when Path is nil.
	Pending []string
}

func (e *CycleError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("unable to make progress: dependency cycle detected: %s", strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("unable to make progress: %d node(s) remain pending: %s", len(e.Pending), strings.Join(e.Pending, ", "))
}

// budgets wraps the per-type and total semaphores. Acquisition is always
// non-blocking: a node that does not fit stays in the ready pool.
type budgets struct {
	total  *semaphore.Weighted
	byType map[WorkNodeType]*semaphore.Weighted
}

func newBudgets(limits Concurrency) *budgets {
	return &budgets{
		total: semaphore.NewWeighted(limits.totalLimit()),
		byType: map[WorkNodeType]*semaphore.Weighted{
			StackNodeType:        semaphore.NewWeighted(limits.limitFor(StackNodeType)),
			AssetBuildNodeType:   semaphore.NewWeighted(limits.limitFor(AssetBuildNodeType)),
			AssetPublishNodeType: semaphore.NewWeighted(limits.limitFor(AssetPublishNodeType)),
		},
	}
}

func (b *budgets) tryAcquire(t WorkNodeType) bool {
	if !b.byType[t].TryAcquire(1) {
		return false
	}
	if !b.total.TryAcquire(1) {
		b.byType[t].Release(1)
		return false
	}
	return true
}

func (b *budgets) release(t WorkNodeType) {
	b.total.Release(1)
	b.byType[t].Release(1)
}

type nodeResult struct {
	node WorkNode
	err  error
}

// DoParallel drains the graph: it dispatches every node whose dependencies
// have completed, highest priority first, within the concurrency budgets, and
// returns once every node is terminal. On the first callback failure all
// pending and queued nodes are skipped, but in-flight callbacks run to
// completion before the first error is returned; the engine never abandons a
// deployment mid-flight. An empty-pool/nothing-in-flight/work-pending state
// is a real dependency cycle and fails with a CycleError.
func (g *WorkGraph) DoParallel(ctx context.Context, limits Concurrency, actions WorkActions) error {
	sems := newBudgets(limits)
	results := make(chan nodeResult)
	inFlight := 0
	var firstErr error

	for {
		g.refreshAndNotify()

		if firstErr == nil {
			for _, n := range g.dispatchBatch(sems) {
				inFlight++
				g.notifyObservers(n)
				go func(n WorkNode) {
					results <- nodeResult{node: n, err: runAction(ctx, actions, n)}
				}(n)
			}
		}

		if inFlight == 0 {
			if firstErr != nil {
				return firstErr
			}
			if g.allTerminal() {
				return nil
			}
			if cycle := g.FindCycle(); cycle != nil {
				return &CycleError{Path: cycle}
			}
			return &CycleError{Pending: g.pendingIDs()}
		}

		res := <-results
		inFlight--
		sems.release(res.node.Type())
		if res.err == nil {
			g.setState(res.node, StateCompleted)
			g.notifyObservers(res.node)
			continue
		}
		g.setState(res.node, StateFailed)
		g.notifyObservers(res.node)
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", res.node.ID(), res.err)
		}
		g.notifyObservers(g.skipRest()...)
	}
}

// refreshAndNotify moves newly eligible nodes into the ready pool and informs
// observers of the pending -> queued transition.
func (g *WorkGraph) refreshAndNotify() []WorkNode {
	g.mu.Lock()
	queued := g.refreshReadyLocked()
	g.mu.Unlock()
	g.notifyObservers(queued...)
	return queued
}

// dispatchBatch takes as many ready nodes as the budgets allow, marking each
// one deploying. The pool is already sorted by descending priority.
func (g *WorkGraph) dispatchBatch(sems *budgets) []WorkNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	var batch []WorkNode
	remaining := g.ready[:0]
	for _, n := range g.ready {
		if sems.tryAcquire(n.Type()) {
			n.core().state = StateDeploying
			batch = append(batch, n)
			continue
		}
		remaining = append(remaining, n)
	}
	for i := len(remaining); i < len(g.ready); i++ {
		g.ready[i] = nil
	}
	g.ready = remaining
	return batch
}

func (g *WorkGraph) setState(n WorkNode, state DeploymentState) {
	g.mu.Lock()
	n.core().state = state
	g.mu.Unlock()
}

// skipRest bulk-transitions every pending or queued node to skipped and
// empties the ready pool. Deploying nodes are left alone.
func (g *WorkGraph) skipRest() []WorkNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	var skipped []WorkNode
	for _, n := range g.nodes {
		switch n.State() {
		case StatePending, StateQueued:
			n.core().state = StateSkipped
			skipped = append(skipped, n)
		}
	}
	g.ready = nil
	sortNodesByID(skipped)
	return skipped
}

func (g *WorkGraph) allTerminal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if !n.State().Terminal() {
			return false
		}
	}
	return true
}

func (g *WorkGraph) pendingIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for id, n := range g.nodes {
		if n.State() == StatePending {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (g *WorkGraph) notifyObservers(nodes ...WorkNode) {
	for _, n := range nodes {
		for _, obs := range g.observers {
			obs.ObserveNodeState(n)
		}
	}
}

func runAction(ctx context.Context, actions WorkActions, n WorkNode) error {
	switch node := n.(type) {
	case *StackNode:
		if actions.DeployStack == nil {
			return fmt.Errorf("no deploy-stack action registered")
		}
		return actions.DeployStack(ctx, node)
	case *AssetBuildNode:
		if actions.BuildAsset == nil {
			return fmt.Errorf("no build-asset action registered")
		}
		return actions.BuildAsset(ctx, node)
	case *AssetPublishNode:
		if actions.PublishAsset == nil {
			return fmt.Errorf("no publish-asset action registered")
		}
		return actions.PublishAsset(ctx, node)
	default:
		return fmt.Errorf("unknown work node type %q", n.Type())
	}
}
