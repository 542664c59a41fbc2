package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-kgbuild/internal/app"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/shutdown"
)

var rootCmd = &cobra.Command{
	Use:   "kgbuild",
	Short: "kgbuild enriches brain-region names with an LLM and loads the results as a knowledge graph",
	Long: `kgbuild runs resumable enrichment stages (describe, extract) against an
OpenAI-compatible service, checkpointing every result, then aggregates the
extracted relation triples and merges them into a graph store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

// Execute runs the root command and exits with status 1 on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kgbuild:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file (default: $KG_CONFIG_PATH, then ./config/kgbuild.yaml)")
}

// withApp builds the App, runs fn under a signal-aware context and always
// closes the App afterwards, so the metrics textfile is written on failure too.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	a, err := app.New(configPath)
	if err != nil {
		return err
	}
	ctx, stop := shutdown.NotifyContext(cmd.Context())
	defer stop()
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}
