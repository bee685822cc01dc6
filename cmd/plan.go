package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/pkg/export"
)

var planOpts struct {
	start, end   string
	frequency    int
	garageTravel int
	lineTravel   int
	schedule     int64
	format       string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the duty plan of a window or of a stored schedule",
	Example: `  lineauction plan --start 08:00 --end 12:00 --frequency 15 --garage-travel 10 --line-travel 30
  lineauction plan --schedule 42 --format csv`,
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planOpts.start, "start", "", "first departure (HH:MM)")
	f.StringVar(&planOpts.end, "end", "", "last departure (HH:MM, 24:00 allowed)")
	f.IntVar(&planOpts.frequency, "frequency", 0, "minutes between departures")
	f.IntVar(&planOpts.garageTravel, "garage-travel", 0, "garage to line travel minutes")
	f.IntVar(&planOpts.lineTravel, "line-travel", 0, "one-way line travel minutes")
	f.Int64Var(&planOpts.schedule, "schedule", 0, "plan a stored schedule with its assignments")
	f.StringVar(&planOpts.format, "format", export.FormatJSON, "output format: json, yaml or csv")
	planCmd.MarkFlagsMutuallyExclusive("schedule", "start")
	planCmd.MarkFlagsMutuallyExclusive("schedule", "end")
	planCmd.MarkFlagsMutuallyExclusive("schedule", "frequency")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	if planOpts.schedule != 0 {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			p, err := svc.Schedules.PlanDuties(ctx, planOpts.schedule)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), planOpts.format, p)
		})
	}

	start, err := model.ParseClock(planOpts.start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := model.ParseClock(planOpts.end)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tr := duty.Travel{Garage: planOpts.garageTravel, Line: planOpts.lineTravel}
	p, err := duty.NewPlanner(cfg.Duty).PlanWindow(start, end, planOpts.frequency, tr)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), planOpts.format, p)
}
