// main.go bootstraps skylift: it builds the root Cobra command, wires Viper
// config, and executes with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/skylift/internal/config"
	"github.com/example/skylift/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	logLevel := "info"
	cmd := &cobra.Command{
		Use:           "skylift",
		Short:         "Deploy synthesized cloud assemblies as an ordered work graph",
		Long:          "skylift turns a synthesized assembly (stacks, assets, nested assemblies) into a dependency graph of typed work nodes and drives it to completion with bounded concurrency.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initViper(cmd, &logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for skylift output (debug, info, warn, or error)")
	cmd.AddCommand(
		newDeployCommand(opts, &logLevel),
		newGraphCommand(opts),
		newListCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// initViper layers a skylift.yaml config file and SKYLIFT_* environment
// variables underneath the flag values.
func initViper(cmd *cobra.Command, logLevel *string) error {
	v := viper.New()
	v.SetConfigName("skylift")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SKYLIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	flags := cmd.Flags()
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := flags.Set(f.Name, v.GetString(f.Name)); err != nil {
			bindErr = fmt.Errorf("apply config value for --%s: %w", f.Name, err)
		}
	})
	if bindErr != nil {
		return bindErr
	}
	if _, err := logging.New(*logLevel); err != nil {
		return err
	}
	return nil
}
