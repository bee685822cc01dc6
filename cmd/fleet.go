package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lineauction/app"
	"github.com/kilianp07/lineauction/core/fleet"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Vehicle status and ownership commands",
}

var fleetBreakdownCmd = &cobra.Command{
	Use:   "breakdown PLATE",
	Short: "Report a vehicle breakdown and re-resolve the affected pools",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Fleet.ReportBreakdown(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		})
	},
}

var fleetRepairCmd = &cobra.Command{
	Use:   "repair PLATE",
	Short: "Return a vehicle from maintenance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			return svc.Fleet.Repair(ctx, args[0])
		})
	},
}

var transferReq fleet.TransferRequest

var fleetTransferCmd = &cobra.Command{
	Use:   "transfer PLATE",
	Short: "Sell a vehicle to another user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transferReq.Plate = args[0]
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			rep, err := svc.Fleet.Transfer(ctx, transferReq)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		})
	},
}

func init() {
	f := fleetTransferCmd.Flags()
	f.StringVar(&transferReq.Seller, "seller", "", "current owner")
	f.StringVar(&transferReq.Buyer, "buyer", "", "new owner")
	f.Int64Var(&transferReq.GarageID, "garage", 0, "buyer garage id")
	f.Int64Var(&transferReq.Price, "price", 0, "sale price")
	_ = fleetTransferCmd.MarkFlagRequired("seller")
	_ = fleetTransferCmd.MarkFlagRequired("buyer")

	fleetCmd.AddCommand(fleetBreakdownCmd, fleetRepairCmd, fleetTransferCmd)
	rootCmd.AddCommand(fleetCmd)
}
