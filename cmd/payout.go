package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
)

var payoutAt string

var payoutCmd = &cobra.Command{
	Use:   "payout",
	Short: "Run a single payout tick",
	RunE: func(cmd *cobra.Command, _ []string) error {
		now := time.Now()
		if payoutAt != "" {
			t, err := time.Parse(time.RFC3339, payoutAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			now = t
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Payout.RunTick(ctx, now)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		})
	},
}

func init() {
	payoutCmd.Flags().StringVar(&payoutAt, "at", "", "tick time (RFC3339), defaults to now")
	rootCmd.AddCommand(payoutCmd)
}
