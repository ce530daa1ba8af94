package core

import (
	"context"
	"fmt"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// Converge drives propagation until no router has pending changes.
// Each round propagates every router that had pending changes at the start of the round, in id order.
// Returns the number of rounds that propagated something.
func (n *Network) Converge(ctx context.Context, maxRounds int) (int, error) {
	if maxRounds <= 0 {
		maxRounds = state.MaxConvergeRound
	}
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return round, err
		}
		pending := n.pendingRouters()
		if len(pending) == 0 {
			perf.ConvergeRounds.Add(float64(round))
			n.Log.Debug("network converged", "rounds", round)
			return round, nil
		}
		if round == maxRounds {
			return round, fmt.Errorf("%w after %d rounds, pending: %v", state.ErrNotConverged, round, pending)
		}
		for _, id := range pending {
			n.routers[id].Propagate(n)
		}
	}
}

func (n *Network) pendingRouters() []state.RouterId {
	out := make([]state.RouterId, 0)
	for _, id := range n.Routers() {
		if n.routers[id].HasPendingChanges() {
			out = append(out, id)
		}
	}
	return out
}
