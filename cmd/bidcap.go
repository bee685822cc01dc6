package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	capFrequency int
	capJSON      bool
)

var bidcapCmd = &cobra.Command{
	Use:   "bidcap",
	Short: "Print the bid cap of a frequency in every frame",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if capFrequency <= 0 {
			return fmt.Errorf("--frequency must be positive")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		caps, err := cfg.Auction.Caps()
		if err != nil {
			return err
		}
		table := caps.Table(capFrequency)
		if capJSON {
			return printJSON(cmd.OutOrStdout(), table)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FRAME\tCAP")
		for _, e := range table {
			fmt.Fprintf(tw, "%s\t%.2f\n", e.Frame, e.Cap)
		}
		return tw.Flush()
	},
}

func init() {
	bidcapCmd.Flags().IntVar(&capFrequency, "frequency", 0, "minutes between departures")
	bidcapCmd.Flags().BoolVar(&capJSON, "json", false, "print JSON")
	_ = bidcapCmd.MarkFlagRequired("frequency")
	rootCmd.AddCommand(bidcapCmd)
}
