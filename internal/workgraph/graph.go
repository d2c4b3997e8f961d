// File: internal/workgraph/graph.go
// Brief: Work graph node store, lazy dependencies, and pruning.

// Package workgraph turns a synthesized assembly into a dependency graph of
// typed work nodes (stack deploys, asset builds, asset publishes) and executes
// that graph with bounded concurrency. The actual deployment operations are
// injected as callbacks; the graph only tracks ordering and lifecycle.
package workgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// assetPredicateLimit bounds the fan-out of RemoveUnnecessaryAssets.
const assetPredicateLimit = 8

// StateObserver receives a callback after every node state transition made by
// the execution engine. Observers run on the scheduling goroutine and must
// not block.
type StateObserver interface {
	ObserveNodeState(node WorkNode)
}

// WorkGraph owns the full node set plus a side table of dependencies
// registered before their source node exists. All mutation goes through the
// graph; callers must not hold on to nodes they have added.
type WorkGraph struct {
	mu       sync.Mutex
	nodes    map[string]WorkNode
	lazyDeps map[string]map[string]struct{}
	ready    []WorkNode

	observers []StateObserver
}

func NewWorkGraph(initial ...WorkNode) (*WorkGraph, error) {
	g := &WorkGraph{
		nodes:    map[string]WorkNode{},
		lazyDeps: map[string]map[string]struct{}{},
	}
	if err := g.AddNodes(initial...); err != nil {
		return nil, err
	}
	return g, nil
}

// AddObserver registers a state observer. Not safe to call once DoParallel is
// running.
func (g *WorkGraph) AddObserver(obs StateObserver) {
	g.observers = append(g.observers, obs)
}

// AddNodes inserts nodes into the graph. Dependencies buffered for a node's
// id are merged into the node and the buffer entry dropped. A duplicate id is
// a configuration error and leaves the graph unchanged.
func (g *WorkGraph) AddNodes(nodes ...WorkNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	seen := map[string]struct{}{}
	for _, n := range nodes {
		if _, exists := g.nodes[n.ID()]; exists {
			return fmt.Errorf("work graph already contains node %q", n.ID())
		}
		if _, dup := seen[n.ID()]; dup {
			return fmt.Errorf("work graph already contains node %q", n.ID())
		}
		seen[n.ID()] = struct{}{}
	}
	for _, n := range nodes {
		if pending, ok := g.lazyDeps[n.ID()]; ok {
			for dep := range pending {
				n.core().addDependency(dep)
			}
			delete(g.lazyDeps, n.ID())
		}
		g.nodes[n.ID()] = n
	}
	return nil
}

// RemoveNode deletes the node and strips its id from every other node's
// dependency set and from the lazy-dependency table.
func (g *WorkGraph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeNodeLocked(id)
}

func (g *WorkGraph) removeNodeLocked(id string) {
	delete(g.nodes, id)
	delete(g.lazyDeps, id)
	for _, n := range g.nodes {
		n.core().removeDependency(id)
	}
	for from, deps := range g.lazyDeps {
		delete(deps, id)
		if len(deps) == 0 {
			delete(g.lazyDeps, from)
		}
	}
}

// AddDependency records "fromID must wait for toID". When fromID's node is
// not in the graph yet the edge is buffered and applied the moment that node
// is added, so edges may be registered in any order relative to their
// endpoints.
func (g *WorkGraph) AddDependency(fromID, toID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[fromID]; ok {
		n.core().addDependency(toID)
		return
	}
	pending, ok := g.lazyDeps[fromID]
	if !ok {
		pending = map[string]struct{}{}
		g.lazyDeps[fromID] = pending
	}
	pending[toID] = struct{}{}
}

func (g *WorkGraph) TryGetNode(id string) (WorkNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Node is the strict accessor: a missing id is a configuration error.
func (g *WorkGraph) Node(id string) (WorkNode, error) {
	n, ok := g.TryGetNode(id)
	if !ok {
		return nil, fmt.Errorf("no such work graph node: %q", id)
	}
	return n, nil
}

// NodesOfType returns every node of the given type, sorted by id.
func (g *WorkGraph) NodesOfType(t WorkNodeType) []WorkNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []WorkNode
	for _, n := range g.nodes {
		if n.Type() == t {
			out = append(out, n)
		}
	}
	sortNodesByID(out)
	return out
}

// Dependees returns the nodes that depend on the given id, sorted by id.
func (g *WorkGraph) Dependees(id string) []WorkNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dependeesLocked(id)
}

func (g *WorkGraph) dependeesLocked(id string) []WorkNode {
	var out []WorkNode
	for _, n := range g.nodes {
		if n.DependsOn(id) {
			out = append(out, n)
		}
	}
	sortNodesByID(out)
	return out
}

// Count returns the number of nodes in the graph.
func (g *WorkGraph) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Absorb merges all nodes of another graph into this one. Used to fold
// nested-assembly sub-graphs (whose ids are namespaced by the builder) into
// the parent graph.
func (g *WorkGraph) Absorb(other *WorkGraph) error {
	other.mu.Lock()
	nodes := make([]WorkNode, 0, len(other.nodes))
	for _, n := range other.nodes {
		nodes = append(nodes, n)
	}
	other.mu.Unlock()
	sortNodesByID(nodes)
	return g.AddNodes(nodes...)
}

// RemoveUnavailableDependencies drops every dependency id that does not refer
// to a node in the graph. Must run once after all artifacts are added: with a
// partial stack selection, edges to deliberately excluded artifacts would
// otherwise deadlock the schedule.
func (g *WorkGraph) RemoveUnavailableDependencies() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		for _, dep := range n.Dependencies() {
			if _, ok := g.nodes[dep]; !ok {
				n.core().removeDependency(dep)
			}
		}
	}
}

// RemoveUnnecessaryAssets evaluates isUnnecessary over every asset-publish
// node with bounded parallelism, removes the nodes it approves, then removes
// any asset-build node left without dependants.
func (g *WorkGraph) RemoveUnnecessaryAssets(ctx context.Context, isUnnecessary func(ctx context.Context, node *AssetPublishNode) (bool, error)) error {
	var publishes []*AssetPublishNode
	for _, n := range g.NodesOfType(AssetPublishNodeType) {
		publishes = append(publishes, n.(*AssetPublishNode))
	}

	unnecessary := make([]bool, len(publishes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(assetPredicateLimit)
	for i, node := range publishes {
		eg.Go(func() error {
			drop, err := isUnnecessary(ctx, node)
			if err != nil {
				return fmt.Errorf("asset %s: %w", node.Asset.ID, err)
			}
			unnecessary[i] = drop
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i, node := range publishes {
		if unnecessary[i] {
			g.removeNodeLocked(node.ID())
		}
	}
	var builds []string
	for id, n := range g.nodes {
		if n.Type() == AssetBuildNodeType {
			builds = append(builds, id)
		}
	}
	sort.Strings(builds)
	for _, id := range builds {
		if len(g.dependeesLocked(id)) == 0 {
			g.removeNodeLocked(id)
		}
	}
	return nil
}

// Ready refreshes the ready pool and returns it: every node whose
// dependencies are all completed, sorted by descending priority.
func (g *WorkGraph) Ready() []WorkNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshReadyLocked()
	return append([]WorkNode(nil), g.ready...)
}

func (g *WorkGraph) refreshReadyLocked() []WorkNode {
	// Drop nodes that have left the queued state since the last refresh.
	kept := g.ready[:0]
	for _, n := range g.ready {
		if n.State() == StateQueued {
			kept = append(kept, n)
		}
	}
	g.ready = kept

	var queued []WorkNode
	for _, n := range g.nodes {
		if n.State() != StatePending {
			continue
		}
		if !g.depsCompletedLocked(n) {
			continue
		}
		n.core().state = StateQueued
		g.ready = append(g.ready, n)
		queued = append(queued, n)
	}
	sort.SliceStable(g.ready, func(i, j int) bool {
		if g.ready[i].Priority() != g.ready[j].Priority() {
			return g.ready[i].Priority() > g.ready[j].Priority()
		}
		return g.ready[i].ID() < g.ready[j].ID()
	})
	sortNodesByID(queued)
	return queued
}

func (g *WorkGraph) depsCompletedLocked(n WorkNode) bool {
	for dep := range n.core().deps {
		depNode, ok := g.nodes[dep]
		if !ok || depNode.State() != StateCompleted {
			return false
		}
	}
	return true
}

func sortNodesByID(nodes []WorkNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}
