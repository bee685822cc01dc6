package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
	"github.com/kilianp07/lineauction/app/plugins"
	"github.com/kilianp07/lineauction/core/auction/journal"
	"github.com/kilianp07/lineauction/core/model"
)

var journalOpts struct {
	line  string
	frame string
	since time.Duration
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded auction resolutions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		q := journal.Query{Line: journalOpts.line, Frame: model.Frame(journalOpts.frame)}
		if journalOpts.since > 0 {
			q.Start = time.Now().Add(-journalOpts.since)
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			recs, err := svc.Journal.Query(ctx, q)
			if err != nil {
				return fmt.Errorf("query journal: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), recs)
		})
	},
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the store backends and metrics sinks compiled in",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(cmd.OutOrStdout(), plugins.Available())
	},
}

func init() {
	journalCmd.Flags().StringVar(&journalOpts.line, "line", "", "filter by line")
	journalCmd.Flags().StringVar(&journalOpts.frame, "frame", "", "filter by frame")
	journalCmd.Flags().DurationVar(&journalOpts.since, "since", 0, "only records newer than this")
	rootCmd.AddCommand(journalCmd, modulesCmd)
}
