package cmd

import (
	"fmt"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario",
	Long:  `Builds the scenario's topology, applies every step in order, then prints the final routing tables.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadScenario(args[0])
		if err != nil {
			return err
		}

		ctx, log, stop, err := bootstrap()
		if err != nil {
			return err
		}
		defer stop()

		n, err := core.BuildNetwork(cfg, log)
		if err != nil {
			return err
		}
		defer n.Close()
		log.Info("network ready", "routers", len(cfg.Routers), "steps", len(cfg.Steps))

		out := cmd.OutOrStdout()
		err = n.RunScenario(ctx, cfg.Steps, func(idx int, kind state.StepKind) {
			log.Debug("applied step", "step", idx, "kind", kind)
			if state.DBG_log_route_table {
				fmt.Fprintf(out, "--- after step %d (%s) ---\n%s", idx, kind, n.StringTables())
			}
		})
		if err != nil {
			return err
		}

		fmt.Fprint(out, n.StringTables())
		fmt.Fprintln(out, n.StringStatus())
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Outputs route tables after every step")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_changes, "lrchange", "g", false, "Outputs route changes to the console")
	runCmd.Flags().BoolVar(&state.DBG_debug, "debug", false, "Serve pprof and metrics on "+core.DebugAddr)
}
