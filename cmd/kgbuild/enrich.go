package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-kgbuild/internal/app"
	"github.com/yungbote/neurobridge-kgbuild/internal/batch"
)

var (
	universePatterns []string
	dryRun           bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Ask the model for a structured description of every region name",
	Long: `Reads region names from the --universe files (glob patterns; .json files hold
a string array, anything else one name per line) and records one description
per name in the describe checkpoint. Names already in the checkpoint are
skipped, so an interrupted run resumes where it stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Describe(ctx, universePatterns, app.RunOptions{DryRun: dryRun})
			printReport(cmd, report)
			return err
		})
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract relation triples from every recorded description",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Extract(ctx, app.RunOptions{DryRun: dryRun})
			printReport(cmd, report)
			return err
		})
	},
}

func init() {
	describeCmd.Flags().StringSliceVar(&universePatterns, "universe", []string{"data/region_names/*_region_names.txt"}, "Glob patterns of region-name files")
	for _, c := range []*cobra.Command{describeCmd, extractCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "Answer every prompt with an empty result instead of calling the service")
		rootCmd.AddCommand(c)
	}
}

func printReport(cmd *cobra.Command, r *batch.Report) {
	if r == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s run %s: %s (universe=%d already_done=%d succeeded=%d calls=%d)\n",
		r.Stage, r.RunID, r.State, r.Universe, r.AlreadyDone, len(r.Succeeded), r.Calls)
}
