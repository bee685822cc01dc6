package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
	"github.com/kilianp07/lineauction/core/auction"
	"github.com/kilianp07/lineauction/core/model"
)

var resolveOpts struct {
	line  string
	frame string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the auction of one line and frame",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			ctx = auction.WithTrigger(ctx, auction.TriggerManual)
			id, ok, err := svc.Resolver.Resolve(ctx, resolveOpts.line, model.Frame(resolveOpts.frame))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				_, err = fmt.Fprintf(out, "%s/%s: no winner\n", resolveOpts.line, resolveOpts.frame)
				return err
			}
			_, err = fmt.Fprintf(out, "%s/%s: schedule %d wins\n", resolveOpts.line, resolveOpts.frame, id)
			return err
		})
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveOpts.line, "line", "", "line name")
	resolveCmd.Flags().StringVar(&resolveOpts.frame, "frame", "", "frame name")
	_ = resolveCmd.MarkFlagRequired("line")
	_ = resolveCmd.MarkFlagRequired("frame")
	rootCmd.AddCommand(resolveCmd)
}
