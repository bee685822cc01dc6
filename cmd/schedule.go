package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage schedules",
}

var (
	schedOwner  string
	schedLine   string
	createReq   schedule.CreateRequest
	createFrame string
	assignments []string
)

var scheduleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Bid for a line and frame",
	RunE: func(cmd *cobra.Command, _ []string) error {
		createReq.Frame = model.Frame(createFrame)
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			s, err := svc.Schedules.Create(ctx, schedOwner, createReq)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		})
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules of an owner, of a line, or the current winners",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			var (
				out []model.Schedule
				err error
			)
			switch {
			case schedOwner != "":
				out, err = svc.Schedules.ListForOwner(ctx, schedOwner)
			case schedLine != "":
				out, err = svc.Schedules.ListForLine(ctx, schedLine)
			default:
				out, err = svc.Schedules.Winners(ctx)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	},
}

var scheduleFrequencyCmd = &cobra.Command{
	Use:   "frequency ID MINUTES",
	Short: "Change the departure frequency of a schedule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("schedule id: %w", err)
		}
		freq, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("frequency: %w", err)
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			s, err := svc.Schedules.UpdateFrequency(ctx, id, freq)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		})
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a schedule and release its vehicles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("schedule id: %w", err)
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			return svc.Schedules.Delete(ctx, id, schedOwner)
		})
	},
}

var scheduleAssignCmd = &cobra.Command{
	Use:   "assign ID",
	Short: "Save manual block assignments, e.g. --block 0=AB-123-CD",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("schedule id: %w", err)
		}
		blocks, err := parseBlocks(assignments)
		if err != nil {
			return err
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			return svc.Schedules.SaveManualAssignments(ctx, id, schedOwner, blocks)
		})
	},
}

func parseBlocks(pairs []string) (map[int]string, error) {
	out := make(map[int]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("block %q: want BLOCK=PLATE", p)
		}
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", p, err)
		}
		out[n] = v
	}
	return out, nil
}

func init() {
	scheduleCmd.PersistentFlags().StringVar(&schedOwner, "owner", "", "acting user")

	f := scheduleCreateCmd.Flags()
	f.StringVar(&createReq.LineName, "line", "", "line name")
	f.StringVar(&createFrame, "frame", "", "frame name")
	f.IntVar(&createReq.Frequency, "frequency", 0, "minutes between departures")
	f.Int64Var(&createReq.BidPrice, "bid", 0, "bid price")

	scheduleListCmd.Flags().StringVar(&schedLine, "line", "", "list schedules of a line")
	scheduleAssignCmd.Flags().StringArrayVar(&assignments, "block", nil, "BLOCK=PLATE, repeatable")

	scheduleCmd.AddCommand(scheduleCreateCmd, scheduleListCmd, scheduleFrequencyCmd, scheduleDeleteCmd, scheduleAssignCmd)
	rootCmd.AddCommand(scheduleCmd)
}
