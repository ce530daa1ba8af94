package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var overwrite bool

// sampleScenario is the three router line 10.0.0.1 --5-- 10.0.0.2 --3-- 10.0.0.3, driven to convergence,
// then broken in the middle.
func sampleScenario() state.ScenarioCfg {
	rounds := 16
	return state.ScenarioCfg{
		Routers:       []state.RouterId{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		Links: []state.LinkCfg{
			{A: "10.0.0.1", B: "10.0.0.2", Weight: 5},
			{A: "10.0.0.2", B: "10.0.0.3", Weight: 3},
		},
		Steps: []state.StepCfg{
			{Propagate: "10.0.0.2"},
			{Propagate: "10.0.0.1"},
			{Propagate: "10.0.0.3"},
			{Propagate: "10.0.0.2"},
			{Converge: &rounds},
			{Unlink: []state.RouterId{"10.0.0.2", "10.0.0.3"}},
			{Converge: &rounds},
		},
	}
}

var newScenarioCmd = &cobra.Command{
	Use:   "new-scenario [path]",
	Short: "Writes a sample scenario file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "scenario.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := state.PathValidator(path); err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !overwrite {
			return fmt.Errorf("%s already exists, pass --force to overwrite it", path)
		}

		cfg := sampleScenario()
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample scenario to %s\n", path)
		return nil
	},
	GroupID: "cfg",
}

func init() {
	rootCmd.AddCommand(newScenarioCmd)
	newScenarioCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "Overwrite an existing file")
}
