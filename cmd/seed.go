package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
	"github.com/kilianp07/lineauction/core/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load lines, vehicles and accounts from a fixture file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := store.LoadFixtures(seedFile)
		if err != nil {
			return fmt.Errorf("fixtures: %w", err)
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := store.Seed(ctx, svc.Store, f); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %d lines, %d vehicles, %d accounts\n",
				len(f.Lines), len(f.Vehicles), len(f.Accounts))
			return err
		})
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "fixtures.yaml", "fixture file")
	rootCmd.AddCommand(seedCmd)
}
