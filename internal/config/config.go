// File: internal/config/config.go
// Brief: Runtime options shared by the skylift CLI commands.

// Package config defines the flag plumbing and runtime options shared by
// skylift's commands, translating Cobra/Viper flag values into the typed
// knobs the work-graph engine consumes.
package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/example/skylift/internal/workgraph"
)

// Options holds all CLI configuration for driving a deployment run.
type Options struct {
	App      string
	LogLevel string
	NoColor  bool

	Concurrency        int
	StackConcurrency   int
	BuildConcurrency   int
	PublishConcurrency int

	PrebuildAssets bool
	DryRun         bool
}

func NewOptions() *Options {
	return &Options{
		App:            ".",
		LogLevel:       "info",
		Concurrency:    4,
		PrebuildAssets: true,
	}
}

// BindFlags registers the deployment flags and returns their names so callers
// can group them in help output.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	fs.StringVarP(&o.App, "app", "a", o.App, "Directory containing the synthesized assembly")
	fs.IntVarP(&o.Concurrency, "concurrency", "c", o.Concurrency, "Maximum number of simultaneous operations (applies per type and in total)")
	fs.IntVar(&o.StackConcurrency, "stack-concurrency", 0, "Cap simultaneous stack deployments (overrides --concurrency for stacks)")
	fs.IntVar(&o.BuildConcurrency, "build-concurrency", 0, "Cap simultaneous asset builds (overrides --concurrency for builds)")
	fs.IntVar(&o.PublishConcurrency, "publish-concurrency", 0, "Cap simultaneous asset publishes (overrides --concurrency for publishes)")
	fs.BoolVar(&o.PrebuildAssets, "prebuild-assets", o.PrebuildAssets, "Build assets before their owning stack's prerequisites have deployed")
	fs.BoolVar(&o.DryRun, "dry-run", o.DryRun, "Walk the work graph without performing any operation")
	fs.BoolVar(&o.NoColor, "no-color", o.NoColor, "Disable colorized progress output")
	return []string{"app", "concurrency", "stack-concurrency", "build-concurrency", "publish-concurrency", "prebuild-assets", "dry-run", "no-color"}
}

func (o *Options) Validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", o.Concurrency)
	}
	for name, v := range map[string]int{
		"stack-concurrency":   o.StackConcurrency,
		"build-concurrency":   o.BuildConcurrency,
		"publish-concurrency": o.PublishConcurrency,
	} {
		if v < 0 {
			return fmt.Errorf("--%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// GraphConcurrency translates the flag values into engine caps: the single
// --concurrency number is applied as both the per-type and total limit, with
// the per-type flags overriding it where set.
func (o *Options) GraphConcurrency() workgraph.Concurrency {
	c := workgraph.MaxConcurrency(o.Concurrency)
	if o.StackConcurrency > 0 {
		c.Stack = o.StackConcurrency
	}
	if o.BuildConcurrency > 0 {
		c.AssetBuild = o.BuildConcurrency
	}
	if o.PublishConcurrency > 0 {
		c.AssetPublish = o.PublishConcurrency
	}
	return c
}
