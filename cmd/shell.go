package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/netip"
	"slices"
	"strconv"
	"strings"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var errQuit = errors.New("quit")

const shellHelp = `add ID            add a router
del ID            remove a router and reset every table
link A B W        create or re-weight a link
unlink A B        delete a link and withdraw routes over it
prop ID           propagate pending changes of ID to its neighbours
converge [N]      propagate until nothing is pending, at most N rounds
show [ID]         print one or every routing table
pending ID        print the changes ID has not propagated yet
status            list routers with pending changes
nh ID ADDR        forwarding lookup of ADDR at ID
neigh ID          list the links of ID
quit              exit
`

var shellCmd = &cobra.Command{
	Use:   "shell [scenario.yaml]",
	Short: "Drive a network one command at a time",
	Long: `Reads commands from stdin and applies them to a network, which starts empty or from the topology of a scenario file.
Steps of the scenario are not run. Type 'help' for the list of commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &state.ScenarioCfg{}
		if len(args) == 1 {
			var err error
			cfg, err = state.ReadScenario(args[0])
			if err != nil {
				return err
			}
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
		return runShell(ctx, n, cmd.InOrStdin(), cmd.OutOrStdout())
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().BoolVarP(&state.DBG_log_route_changes, "lrchange", "g", false, "Outputs route changes to the console")
}

// runShell executes lines from in until quit, end of input, or ctx is cancelled.
// Input is read on its own goroutine so an interrupt does not wait for the next newline.
func runShell(ctx context.Context, n *core.Network, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	var readErr error
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		readErr = sc.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return readErr
			}
			err := execLine(ctx, n, line, out)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
			}
		}
	}
}

func usage(fields []string, lo, hi int, syntax string) error {
	if len(fields)-1 < lo || len(fields)-1 > hi {
		return fmt.Errorf("usage: %s", syntax)
	}
	return nil
}

// execLine runs one shell command against n. Blank lines and lines starting with '#' are ignored.
func execLine(ctx context.Context, n *core.Network, line string, out io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	id := func(i int) state.RouterId {
		return state.RouterId(fields[i])
	}

	switch fields[0] {
	case "add":
		if err := usage(fields, 1, 1, "add ID"); err != nil {
			return err
		}
		if err := state.IdValidator(fields[1]); err != nil {
			return err
		}
		return n.AddRouter(id(1))
	case "del":
		if err := usage(fields, 1, 1, "del ID"); err != nil {
			return err
		}
		return n.RemoveRouterAndReset(id(1))
	case "link":
		if err := usage(fields, 3, 3, "link A B WEIGHT"); err != nil {
			return err
		}
		w, err := state.ParseWeight(fields[3])
		if err != nil {
			return err
		}
		return n.SetConnection(id(1), id(2), w)
	case "unlink":
		if err := usage(fields, 2, 2, "unlink A B"); err != nil {
			return err
		}
		return n.DeleteConnectionAndReset(id(1), id(2))
	case "prop":
		if err := usage(fields, 1, 1, "prop ID"); err != nil {
			return err
		}
		return n.Propagate(id(1))
	case "converge":
		if err := usage(fields, 0, 1, "converge [ROUNDS]"); err != nil {
			return err
		}
		rounds := 0
		if len(fields) == 2 {
			var err error
			rounds, err = strconv.Atoi(fields[1])
			if err != nil || rounds < 0 {
				return fmt.Errorf("rounds must be a non-negative integer, got %q", fields[1])
			}
		}
		used, err := n.Converge(ctx, rounds)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "converged after %d rounds\n", used)
	case "show":
		if err := usage(fields, 0, 1, "show [ID]"); err != nil {
			return err
		}
		if len(fields) == 1 {
			fmt.Fprint(out, n.StringTables())
			return nil
		}
		routes, err := n.ExportTable(id(1))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, core.StringRoutes(routes))
	case "pending":
		if err := usage(fields, 1, 1, "pending ID"); err != nil {
			return err
		}
		changes, err := n.PendingChanges(id(1))
		if err != nil {
			return err
		}
		for _, target := range slices.Sorted(maps.Keys(changes)) {
			fmt.Fprintf(out, "%s: %s\n", target, changes[target])
		}
	case "status":
		fmt.Fprintln(out, n.StringStatus())
	case "nh":
		if err := usage(fields, 2, 2, "nh ID ADDR"); err != nil {
			return err
		}
		dst, err := netip.ParseAddr(fields[2])
		if err != nil {
			return err
		}
		route, err := n.NextHop(id(1), dst)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, route)
	case "neigh":
		if err := usage(fields, 1, 1, "neigh ID"); err != nil {
			return err
		}
		neigh, err := n.NeighboursOf(id(1))
		if err != nil {
			return err
		}
		for _, other := range neigh {
			w, _ := n.GetConnection(id(1), other)
			fmt.Fprintf(out, "%s (%s)\n", other, w)
		}
	case "help":
		fmt.Fprint(out, shellHelp)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try 'help'", fields[0])
	}
	return nil
}
