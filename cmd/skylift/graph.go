// File: cmd/skylift/graph.go
// Brief: CLI command wiring for 'graph' and 'list'.

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/skylift/internal/config"
	"github.com/example/skylift/internal/workgraph"
)

func newGraphCommand(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the assembly's work graph in GraphViz DOT form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := buildGraph(opts)
			if err != nil {
				return err
			}
			return graph.WriteDOT(cmd.OutOrStdout())
		},
	}
	opts.BindFlags(cmd.Flags())
	return cmd
}

func newListCommand(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the work nodes the assembly produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := buildGraph(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			typeColor := color.New(color.FgCyan)
			for _, t := range []workgraph.WorkNodeType{workgraph.AssetBuildNodeType, workgraph.AssetPublishNodeType, workgraph.StackNodeType} {
				for _, n := range graph.NodesOfType(t) {
					tag := string(t)
					if !opts.NoColor {
						tag = typeColor.Sprint(tag)
					}
					fmt.Fprintf(out, "%-14s %s", tag, n.ID())
					if deps := n.Dependencies(); len(deps) > 0 {
						fmt.Fprintf(out, "  (waits for %d)", len(deps))
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	opts.BindFlags(cmd.Flags())
	return cmd
}
