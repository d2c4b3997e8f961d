// File: internal/deploy/dryrun.go
// Brief: Executor that walks the graph without touching anything.

package deploy

import (
	"context"
	"sync"
	"time"

	"github.com/example/skylift/internal/workgraph"
)

// DryRun is an Executor that performs no operation. It records the order
// work was handed to it, which makes it useful both for --dry-run rehearsals
// and for exercising the engine in tests. FailIDs forces specific nodes to
// fail.
type DryRun struct {
	Delay   time.Duration
	FailIDs map[string]error

	mu    sync.Mutex
	calls []string
}

func (d *DryRun) DeployStack(ctx context.Context, node *workgraph.StackNode) error {
	return d.record(ctx, node)
}

func (d *DryRun) BuildAsset(ctx context.Context, node *workgraph.AssetBuildNode) error {
	return d.record(ctx, node)
}

func (d *DryRun) PublishAsset(ctx context.Context, node *workgraph.AssetPublishNode) error {
	return d.record(ctx, node)
}

// Calls returns the node ids in the order they were dispatched.
func (d *DryRun) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *DryRun) record(ctx context.Context, node workgraph.WorkNode) error {
	d.mu.Lock()
	d.calls = append(d.calls, node.ID())
	err := d.FailIDs[node.ID()]
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if d.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.Delay):
		}
	}
	return nil
}
