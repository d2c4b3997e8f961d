// File: cmd/skylift/deploy.go
// Brief: CLI command wiring for 'deploy'.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/skylift/internal/assembly"
	"github.com/example/skylift/internal/config"
	"github.com/example/skylift/internal/deploy"
	"github.com/example/skylift/internal/logging"
	"github.com/example/skylift/internal/workgraph"
)

func newDeployCommand(opts *config.Options, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Execute the assembly's work graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			log, err := logging.New(*logLevel)
			if err != nil {
				return err
			}
			graph, err := buildGraph(opts)
			if err != nil {
				return err
			}
			executor, err := newExecutor(opts)
			if err != nil {
				return err
			}

			log.V(1).Info("built work graph", "app", opts.App, "nodes", graph.Count())
			progress := &deploy.Progress{Out: cmd.OutOrStdout(), NoColor: opts.NoColor}
			graph.AddObserver(progress)
			runErr := graph.DoParallel(cmd.Context(), opts.GraphConcurrency(), deploy.Actions(executor))
			progress.Summary(graph)
			if runErr != nil {
				log.Error(runErr, "deployment failed")
			}
			return runErr
		},
	}
	opts.BindFlags(cmd.Flags())
	return cmd
}

func newExecutor(opts *config.Options) (deploy.Executor, error) {
	if opts.DryRun {
		return &deploy.DryRun{}, nil
	}
	// Real deploy/build/publish executors live in the toolchains that embed
	// this module; the standalone CLI only rehearses plans.
	return nil, fmt.Errorf("no executor is configured in the standalone CLI; re-run with --dry-run")
}

func buildGraph(opts *config.Options) (*workgraph.WorkGraph, error) {
	if _, err := os.Stat(opts.App); err != nil {
		return nil, fmt.Errorf("assembly directory: %w", err)
	}
	asm, err := assembly.Load(opts.App)
	if err != nil {
		return nil, err
	}
	return workgraph.NewWorkGraphBuilder(opts.PrebuildAssets).Build(asm)
}
