package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-kgbuild/internal/app"
)

var forgetCmd = &cobra.Command{
	Use:   "forget STAGE KEY...",
	Short: "Remove keys from a stage checkpoint so the next run processes them again",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			removed, err := a.Forget(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d of %d keys from %s\n", len(removed), len(args)-1, args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
