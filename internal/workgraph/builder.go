// File: internal/workgraph/builder.go
// Brief: Work graph construction from an assembly artifact tree.

package workgraph

import (
	"fmt"

	"github.com/example/skylift/internal/assembly"
)

// nestedIDSeparator joins a nested-assembly artifact id with the ids of the
// sub-graph it produces.
const nestedIDSeparator = "."

// WorkGraphBuilder populates a WorkGraph from a synthesized assembly: one
// stack node per stack artifact, one deduplicated build node and one publish
// node per unique asset, with edges derived from artifact dependency metadata
// and stack/asset relationships. Nested assemblies become namespaced
// sub-graphs absorbed into the parent.
type WorkGraphBuilder struct {
	prebuildAssets bool
	idPrefix       string
	graph          *WorkGraph
}

// NewWorkGraphBuilder returns a builder for a top-level assembly. With
// prebuildAssets set, asset builds do not wait for their owning stack's
// prerequisites and can start immediately.
func NewWorkGraphBuilder(prebuildAssets bool) *WorkGraphBuilder {
	return newWorkGraphBuilder(prebuildAssets, "")
}

func newWorkGraphBuilder(prebuildAssets bool, idPrefix string) *WorkGraphBuilder {
	g, _ := NewWorkGraph()
	return &WorkGraphBuilder{prebuildAssets: prebuildAssets, idPrefix: idPrefix, graph: g}
}

// Build consumes the artifact tree and returns the populated graph. Artifact
// kinds the builder does not recognize are ignored.
func (b *WorkGraphBuilder) Build(asm *assembly.Assembly) (*WorkGraph, error) {
	for _, art := range asm.Artifacts {
		var err error
		switch a := art.(type) {
		case *assembly.StackArtifact:
			err = b.addStack(asm, a)
		case *assembly.AssetManifestArtifact:
			err = b.addAssets(asm, a)
		case *assembly.NestedAssemblyArtifact:
			err = b.addNested(a)
		}
		if err != nil {
			return nil, err
		}
	}

	// Edges into artifacts excluded from this run must not deadlock the
	// schedule; after pruning them, break the cycles the cosmetic publish
	// edges may have introduced.
	b.graph.RemoveUnavailableDependencies()
	b.removePublishCycles()
	return b.graph, nil
}

func (b *WorkGraphBuilder) addStack(asm *assembly.Assembly, art *assembly.StackArtifact) error {
	deps := make([]string, 0, len(art.Depends))
	for _, depID := range asm.StackDependencyIDs(art) {
		deps = append(deps, b.idPrefix+depID)
	}
	return b.graph.AddNodes(NewStackNode(b.idPrefix+art.ID, art, deps))
}

func (b *WorkGraphBuilder) addAssets(asm *assembly.Assembly, art *assembly.AssetManifestArtifact) error {
	parent := b.parentStack(asm, art)
	if parent == nil {
		return fmt.Errorf("no stack depends on asset manifest %q: unable to determine its parent stack", art.ID)
	}

	stackDeps := make([]string, 0, len(parent.Depends))
	for _, depID := range asm.StackDependencyIDs(parent) {
		stackDeps = append(stackDeps, b.idPrefix+depID)
	}
	manifestDeps := make([]string, 0, len(art.Depends))
	for _, depID := range art.Depends {
		manifestDeps = append(manifestDeps, b.idPrefix+depID)
	}

	for _, asset := range art.Manifest.Assets {
		key := asset.ContentKey()
		buildID := fmt.Sprintf("%sbuild-%s-%s", b.idPrefix, asset.ID, key)
		publishID := fmt.Sprintf("%spublish-%s-%s", b.idPrefix, asset.ID, key)

		if _, exists := b.graph.TryGetNode(buildID); !exists {
			deps := append([]string(nil), manifestDeps...)
			if !b.prebuildAssets {
				// Without pre-building, assets wait for the same
				// prerequisites as the stack that owns them.
				deps = append(deps, stackDeps...)
			}
			if err := b.graph.AddNodes(NewAssetBuildNode(buildID, parent, art, asset, deps)); err != nil {
				return err
			}
		}

		if _, exists := b.graph.TryGetNode(publishID); !exists {
			// The stack dependencies keep publish progress output from
			// interleaving with a prerequisite stack's deploy output. They
			// are cosmetic and get pruned again if they close a cycle.
			deps := append([]string{buildID}, stackDeps...)
			if err := b.graph.AddNodes(NewAssetPublishNode(publishID, parent, art, asset, deps)); err != nil {
				return err
			}
		}

		// The stack node may not exist yet; the edge is buffered until it
		// does.
		b.graph.AddDependency(b.idPrefix+parent.ID, publishID)
	}
	return nil
}

func (b *WorkGraphBuilder) addNested(art *assembly.NestedAssemblyArtifact) error {
	if art.Assembly == nil {
		return fmt.Errorf("nested assembly %q was not loaded", art.ID)
	}
	sub := newWorkGraphBuilder(b.prebuildAssets, b.idPrefix+art.ID+nestedIDSeparator)
	subGraph, err := sub.Build(art.Assembly)
	if err != nil {
		return err
	}
	return b.graph.Absorb(subGraph)
}

// parentStack resolves the stack that owns an asset manifest: the stack
// artifact whose dependency list names the manifest.
func (b *WorkGraphBuilder) parentStack(asm *assembly.Assembly, art *assembly.AssetManifestArtifact) *assembly.StackArtifact {
	for _, candidate := range asm.Artifacts {
		s, ok := candidate.(*assembly.StackArtifact)
		if !ok {
			continue
		}
		for _, depID := range s.Depends {
			if depID == art.ID {
				return s
			}
		}
	}
	return nil
}

// removePublishCycles drops every publish-node dependency that can reach the
// publish node back through dependency edges. Only the cosmetic publish-side
// edges are eligible for removal, so correctness-relevant ordering is never
// lost.
func (b *WorkGraphBuilder) removePublishCycles() {
	for _, n := range b.graph.NodesOfType(AssetPublishNodeType) {
		for _, dep := range n.Dependencies() {
			if b.graph.reachable(dep, n.ID()) {
				n.core().removeDependency(dep)
			}
		}
	}
}
