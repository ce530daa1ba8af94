package cmd

import (
	"fmt"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <scenario.yaml>",
	Short: "Checks a scenario file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadScenario(args[0])
		if err != nil {
			return err
		}
		links, err := cfg.GetLinks()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scenario is valid: %d routers, %d links, %d steps\n", len(cfg.Routers), len(links), len(cfg.Steps))
		for _, l := range links {
			fmt.Fprintf(out, "\t%s <-> %s (%s)\n", l.A, l.B, l.Weight)
		}
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
