package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			return svc.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
