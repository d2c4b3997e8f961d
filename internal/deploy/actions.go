// File: internal/deploy/actions.go
// Brief: Executor boundary between the work graph and real operations.

// Package deploy defines the boundary the work-graph engine hands work
// across: an Executor performs the actual stack deploys and asset work, and
// this package adapts one into the callback set the engine consumes.
package deploy

import (
	"context"

	"github.com/example/skylift/internal/workgraph"
)

// Executor performs the three deployment operations. Implementations own
// retries, timeouts, and cancellation; the engine only observes success or
// failure.
type Executor interface {
	DeployStack(ctx context.Context, node *workgraph.StackNode) error
	BuildAsset(ctx context.Context, node *workgraph.AssetBuildNode) error
	PublishAsset(ctx context.Context, node *workgraph.AssetPublishNode) error
}

// Actions adapts an Executor to the engine's callback set.
func Actions(e Executor) workgraph.WorkActions {
	return workgraph.WorkActions{
		DeployStack:  e.DeployStack,
		BuildAsset:   e.BuildAsset,
		PublishAsset: e.PublishAsset,
	}
}
