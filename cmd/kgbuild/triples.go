package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-kgbuild/internal/app"
)

var triplesOut string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Concatenate the extracted triples of every key into one file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			triples, err := a.Aggregate(ctx, triplesOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d triples to %s\n", len(triples), triplesOut)
			return nil
		})
	},
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror FILE...",
	Short: "Turn location-relation files into forward and backward triples",
	Long: `Each FILE maps a region to neighbouring regions with a forward and a backward
relation: {"a": {"b": {"forward": "r", "backward": "r2"}}}. Every pair yields
["a", "r", "b"] and ["b", "r2", "a"].`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			triples, err := a.Mirror(triplesOut, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d triples to %s\n", len(triples), triplesOut)
			return nil
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load FILE...",
	Short: "Merge triple files into the configured graph store",
	Long:  `Each FILE is loaded in one transaction. Records that are not exactly [subject, relation, object] are skipped.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			stats, err := a.Load(ctx, args)
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d triples, skipped %d\n", stats.Triples, stats.Skipped)
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{aggregateCmd, mirrorCmd} {
		c.Flags().StringVarP(&triplesOut, "out", "o", "relation_triples.json", "Output triple file")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(loadCmd)
}
