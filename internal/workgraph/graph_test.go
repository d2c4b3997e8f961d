package workgraph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/skylift/internal/assembly"
)

func stackNode(id string, deps ...string) *StackNode {
	return NewStackNode(id, nil, deps)
}

func assetEntry(id string) assembly.AssetEntry {
	return assembly.AssetEntry{
		ID:     id,
		Type:   assembly.FileAsset,
		Source: assembly.AssetSource{Path: id + ".zip"},
	}
}

func buildNode(id string, deps ...string) *AssetBuildNode {
	return NewAssetBuildNode(id, nil, nil, assetEntry(id), deps)
}

func publishNode(id string, deps ...string) *AssetPublishNode {
	return NewAssetPublishNode(id, nil, nil, assetEntry(id), deps)
}

func mustGraph(t *testing.T, nodes ...WorkNode) *WorkGraph {
	t.Helper()
	g, err := NewWorkGraph(nodes...)
	if err != nil {
		t.Fatalf("NewWorkGraph: %v", err)
	}
	return g
}

func TestAddNodesRejectsDuplicateID(t *testing.T) {
	g := mustGraph(t, stackNode("a"))
	err := g.AddNodes(stackNode("a"))
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if g.Count() != 1 {
		t.Fatalf("graph changed after rejected insert: %d nodes", g.Count())
	}
}

func TestAddNodesRejectsDuplicateIDWithinOneBatch(t *testing.T) {
	g := mustGraph(t)
	err := g.AddNodes(stackNode("a", "x"), stackNode("a", "y"))
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if g.Count() != 0 {
		t.Fatalf("graph changed after rejected insert: %d nodes", g.Count())
	}
}

func TestAddNodesBatchWithDuplicateLeavesGraphUnchanged(t *testing.T) {
	g := mustGraph(t, stackNode("a"))
	if err := g.AddNodes(stackNode("b"), stackNode("a")); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, ok := g.TryGetNode("b"); ok {
		t.Fatalf("partial insert: b was added despite batch failure")
	}
}

func TestLazyDependencyResolvesWhenNodeArrives(t *testing.T) {
	g := mustGraph(t)
	g.AddDependency("late", "dep-1")
	g.AddDependency("late", "dep-2")

	if err := g.AddNodes(stackNode("late", "dep-3")); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	n, err := g.Node("late")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	want := []string{"dep-1", "dep-2", "dep-3"}
	if diff := cmp.Diff(want, n.Dependencies()); diff != "" {
		t.Fatalf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestLazyDependencyOrderIndependence(t *testing.T) {
	before := mustGraph(t)
	before.AddDependency("a", "b")
	if err := before.AddNodes(stackNode("a")); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}

	after := mustGraph(t, stackNode("a"))
	after.AddDependency("a", "b")

	na, _ := before.TryGetNode("a")
	nb, _ := after.TryGetNode("a")
	if diff := cmp.Diff(na.Dependencies(), nb.Dependencies()); diff != "" {
		t.Fatalf("lazy and direct registration disagree:\n%s", diff)
	}
}

func TestRemoveNodeStripsEdgesAndLazyRecords(t *testing.T) {
	g := mustGraph(t, stackNode("a"), stackNode("b", "a"))
	g.AddDependency("future", "a")

	g.RemoveNode("a")

	if _, ok := g.TryGetNode("a"); ok {
		t.Fatalf("a still present")
	}
	b, _ := g.TryGetNode("b")
	if b.DependsOn("a") {
		t.Fatalf("b still depends on removed node")
	}
	if err := g.AddNodes(stackNode("future")); err != nil {
		t.Fatalf("AddNodes: %v", err)
	}
	future, _ := g.TryGetNode("future")
	if future.DependsOn("a") {
		t.Fatalf("lazy record for removed node survived")
	}
}

func TestNodeStrictAccessor(t *testing.T) {
	g := mustGraph(t)
	if _, err := g.Node("missing"); err == nil {
		t.Fatalf("expected error for missing node")
	}
}

func TestNodesOfTypeAndDependees(t *testing.T) {
	g := mustGraph(t,
		stackNode("stack-a", "pub-x"),
		buildNode("build-x"),
		publishNode("pub-x", "build-x"),
	)
	stacks := g.NodesOfType(StackNodeType)
	if len(stacks) != 1 || stacks[0].ID() != "stack-a" {
		t.Fatalf("NodesOfType(stack) = %v", stacks)
	}
	deps := g.Dependees("build-x")
	if len(deps) != 1 || deps[0].ID() != "pub-x" {
		t.Fatalf("Dependees(build-x) = %v", deps)
	}
}

func TestAbsorbMergesNodes(t *testing.T) {
	parent := mustGraph(t, stackNode("a"))
	child := mustGraph(t, stackNode("sub.b"), stackNode("sub.c", "sub.b"))
	if err := parent.Absorb(child); err != nil {
		t.Fatalf("Absorb: %v", err)
	}
	if parent.Count() != 3 {
		t.Fatalf("expected 3 nodes after absorb, got %d", parent.Count())
	}
	c, _ := parent.TryGetNode("sub.c")
	if !c.DependsOn("sub.b") {
		t.Fatalf("absorbed node lost its dependencies")
	}
}

func TestAbsorbRejectsCollidingIDs(t *testing.T) {
	parent := mustGraph(t, stackNode("a"))
	child := mustGraph(t, stackNode("a"))
	if err := parent.Absorb(child); err == nil {
		t.Fatalf("expected collision error")
	}
}

func TestRemoveUnavailableDependenciesIsIdempotent(t *testing.T) {
	g := mustGraph(t,
		stackNode("a", "gone", "b"),
		stackNode("b", "also-gone"),
	)
	g.RemoveUnavailableDependencies()
	first := map[string][]string{}
	for _, n := range g.NodesOfType(StackNodeType) {
		first[n.ID()] = n.Dependencies()
	}
	g.RemoveUnavailableDependencies()
	second := map[string][]string{}
	for _, n := range g.NodesOfType(StackNodeType) {
		second[n.ID()] = n.Dependencies()
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second run changed the graph:\n%s", diff)
	}
	a, _ := g.TryGetNode("a")
	if diff := cmp.Diff([]string{"b"}, a.Dependencies()); diff != "" {
		t.Fatalf("a dependencies (-want +got):\n%s", diff)
	}
}

func TestRemoveUnnecessaryAssetsDropsPublishesAndOrphanBuilds(t *testing.T) {
	g := mustGraph(t,
		buildNode("build-x"),
		publishNode("pub-x", "build-x"),
		buildNode("build-y"),
		publishNode("pub-y", "build-y"),
		stackNode("stack-a", "pub-x", "pub-y"),
	)
	err := g.RemoveUnnecessaryAssets(context.Background(), func(_ context.Context, node *AssetPublishNode) (bool, error) {
		return node.ID() == "pub-x", nil
	})
	if err != nil {
		t.Fatalf("RemoveUnnecessaryAssets: %v", err)
	}
	if _, ok := g.TryGetNode("pub-x"); ok {
		t.Fatalf("pub-x not removed")
	}
	if _, ok := g.TryGetNode("build-x"); ok {
		t.Fatalf("orphaned build-x not removed")
	}
	for _, id := range []string{"build-y", "pub-y"} {
		if _, ok := g.TryGetNode(id); !ok {
			t.Fatalf("%s removed although still needed", id)
		}
	}
	a, _ := g.TryGetNode("stack-a")
	if a.DependsOn("pub-x") {
		t.Fatalf("stack-a still depends on removed publish node")
	}
}

func TestRemoveUnnecessaryAssetsKeepsBuildWithOtherDependants(t *testing.T) {
	g := mustGraph(t,
		buildNode("build-x"),
		publishNode("pub-x", "build-x"),
		stackNode("stack-a", "pub-x"),
		// A second consumer depends on the build node directly.
		stackNode("stack-b", "build-x"),
	)
	err := g.RemoveUnnecessaryAssets(context.Background(), func(context.Context, *AssetPublishNode) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("RemoveUnnecessaryAssets: %v", err)
	}
	if _, ok := g.TryGetNode("build-x"); !ok {
		t.Fatalf("build-x removed despite remaining dependant")
	}
}

func TestRemoveUnnecessaryAssetsPropagatesPredicateError(t *testing.T) {
	g := mustGraph(t, buildNode("build-x"), publishNode("pub-x", "build-x"))
	boom := errors.New("lookup failed")
	err := g.RemoveUnnecessaryAssets(context.Background(), func(context.Context, *AssetPublishNode) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected predicate error, got %v", err)
	}
	if _, ok := g.TryGetNode("pub-x"); !ok {
		t.Fatalf("graph mutated despite predicate failure")
	}
}

func TestReadyReturnsEligibleNodesByPriority(t *testing.T) {
	g := mustGraph(t,
		stackNode("stack-a"),
		buildNode("build-x"),
		publishNode("pub-x", "build-x"),
	)
	ready := g.Ready()
	var ids []string
	for _, n := range ready {
		ids = append(ids, n.ID())
	}
	// build (10) before stack (5); pub-x is not eligible at all.
	want := []string{"build-x", "stack-a"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("ready pool (-want +got):\n%s", diff)
	}
	for _, n := range ready {
		if n.State() != StateQueued {
			t.Fatalf("ready node %s in state %s", n.ID(), n.State())
		}
	}
}

func TestStringRendersDOT(t *testing.T) {
	g := mustGraph(t, stackNode("a"), stackNode("b", "a"))
	dot := g.String()
	for _, want := range []string{"digraph workgraph", `"a" -> "b"`} {
		if !strings.Contains(dot, want) {
			t.Fatalf("DOT output missing %q:\n%s", want, dot)
		}
	}
}
