// File: internal/workgraph/node.go
// Brief: Typed work nodes and their deployment state machine.

package workgraph

import (
	"sort"

	"github.com/example/skylift/internal/assembly"
)

type WorkNodeType string

const (
	StackNodeType        WorkNodeType = "stack"
	AssetBuildNodeType   WorkNodeType = "asset-build"
	AssetPublishNodeType WorkNodeType = "asset-publish"
)

// DeploymentState is the per-node lifecycle. It is linear with one branch:
// pending -> queued -> deploying -> completed|failed, and pending/queued ->
// skipped once any sibling fails. Deploying nodes are never interrupted.
type DeploymentState string

const (
	StatePending   DeploymentState = "pending"
	StateQueued    DeploymentState = "queued"
	StateDeploying DeploymentState = "deploying"
	StateCompleted DeploymentState = "completed"
	StateFailed    DeploymentState = "failed"
	StateSkipped   DeploymentState = "skipped"
)

// Terminal reports whether a node in this state will never run.
func (s DeploymentState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateSkipped:
		return true
	}
	return false
}

// Default scheduling priorities per node type. Higher runs first among
// simultaneously eligible nodes. Builds outrank stacks so asset work starts
// early; publishes yield to stack deploys so upload chatter does not delay
// control-plane calls.
const (
	PriorityAssetBuild   = 10
	PriorityStack        = 5
	PriorityAssetPublish = 0
)

// nodeCore is the envelope shared by all node variants: identity, mutable
// dependency set, lifecycle state, and scheduling priority. It is owned
// exclusively by the graph once the node is added.
type nodeCore struct {
	id       string
	note     string
	priority int
	deps     map[string]struct{}
	state    DeploymentState
}

func newNodeCore(id, note string, priority int, deps []string) nodeCore {
	set := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		set[d] = struct{}{}
	}
	return nodeCore{id: id, note: note, priority: priority, deps: set, state: StatePending}
}

func (c *nodeCore) ID() string             { return c.id }
func (c *nodeCore) Note() string           { return c.note }
func (c *nodeCore) Priority() int          { return c.priority }
func (c *nodeCore) State() DeploymentState { return c.state }

// Dependencies returns a sorted copy of the dependency id set.
func (c *nodeCore) Dependencies() []string {
	out := make([]string, 0, len(c.deps))
	for d := range c.deps {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (c *nodeCore) DependsOn(id string) bool {
	_, ok := c.deps[id]
	return ok
}

func (c *nodeCore) addDependency(id string)    { c.deps[id] = struct{}{} }
func (c *nodeCore) removeDependency(id string) { delete(c.deps, id) }

// core seals the WorkNode interface to the three variants in this package.
func (c *nodeCore) core() *nodeCore { return c }

// WorkNode is the tagged union over the three node kinds. Consumers that need
// variant payloads switch on the concrete type; the switch is exhaustive
// because the interface cannot be implemented outside this package.
type WorkNode interface {
	ID() string
	Type() WorkNodeType
	Note() string
	Priority() int
	State() DeploymentState
	Dependencies() []string
	DependsOn(id string) bool

	core() *nodeCore
}

// StackNode deploys one stack artifact.
type StackNode struct {
	nodeCore
	Stack *assembly.StackArtifact
}

func NewStackNode(id string, stack *assembly.StackArtifact, deps []string) *StackNode {
	note := id
	if stack != nil && stack.DisplayName != "" {
		note = stack.DisplayName
	}
	return &StackNode{nodeCore: newNodeCore(id, note, PriorityStack, deps), Stack: stack}
}

func (n *StackNode) Type() WorkNodeType { return StackNodeType }

// AssetBuildNode produces the deployable form of one unique asset. Exactly
// one exists per content-addressed asset identity.
type AssetBuildNode struct {
	nodeCore
	ParentStack   *assembly.StackArtifact
	AssetManifest *assembly.AssetManifestArtifact
	Asset         assembly.AssetEntry
}

func NewAssetBuildNode(id string, parent *assembly.StackArtifact, manifest *assembly.AssetManifestArtifact, asset assembly.AssetEntry, deps []string) *AssetBuildNode {
	return &AssetBuildNode{
		nodeCore:      newNodeCore(id, assetNote(asset, "build"), PriorityAssetBuild, deps),
		ParentStack:   parent,
		AssetManifest: manifest,
		Asset:         asset,
	}
}

func (n *AssetBuildNode) Type() WorkNodeType { return AssetBuildNodeType }

// AssetPublishNode uploads one built asset to its destination. It always
// depends on the corresponding build node.
type AssetPublishNode struct {
	nodeCore
	ParentStack   *assembly.StackArtifact
	AssetManifest *assembly.AssetManifestArtifact
	Asset         assembly.AssetEntry
}

func NewAssetPublishNode(id string, parent *assembly.StackArtifact, manifest *assembly.AssetManifestArtifact, asset assembly.AssetEntry, deps []string) *AssetPublishNode {
	return &AssetPublishNode{
		nodeCore:      newNodeCore(id, assetNote(asset, "publish"), PriorityAssetPublish, deps),
		ParentStack:   parent,
		AssetManifest: manifest,
		Asset:         asset,
	}
}

func (n *AssetPublishNode) Type() WorkNodeType { return AssetPublishNodeType }

func assetNote(asset assembly.AssetEntry, verb string) string {
	name := asset.DisplayName
	if name == "" {
		name = asset.ID
	}
	return verb + " " + name
}
