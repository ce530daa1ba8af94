package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/encodeous/dvsim/state"
)

// BuildNetwork registers every router of the scenario and creates its links. Steps are not run.
func BuildNetwork(cfg *state.ScenarioCfg, log *slog.Logger) (*Network, error) {
	n := NewNetwork(log)
	for _, id := range cfg.Routers {
		if err := n.AddRouter(id); err != nil {
			return nil, err
		}
	}
	links, err := cfg.GetLinks()
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if err := n.SetConnection(l.A, l.B, l.Weight); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// ApplyStep performs one driver action against the network
func (n *Network) ApplyStep(ctx context.Context, step state.StepCfg) error {
	kind, err := step.Kind()
	if err != nil {
		return err
	}
	switch kind {
	case state.StepAdd:
		return n.AddRouter(step.Add)
	case state.StepRemove:
		return n.RemoveRouterAndReset(step.Remove)
	case state.StepLink:
		return n.SetConnection(step.Link.A, step.Link.B, step.Link.Weight)
	case state.StepUnlink:
		if len(step.Unlink) != 2 {
			return fmt.Errorf("unlink expects exactly two routers, got %v", step.Unlink)
		}
		return n.DeleteConnectionAndReset(step.Unlink[0], step.Unlink[1])
	case state.StepPropagate:
		return n.Propagate(step.Propagate)
	case state.StepConverge:
		_, err := n.Converge(ctx, *step.Converge)
		return err
	}
	return fmt.Errorf("unknown step kind %s", kind)
}

// RunScenario applies every step in order, calling after (if not nil) once each step succeeds
func (n *Network) RunScenario(ctx context.Context, steps []state.StepCfg, after func(idx int, kind state.StepKind)) error {
	for idx, step := range steps {
		if err := n.ApplyStep(ctx, step); err != nil {
			return fmt.Errorf("step %d: %w", idx, err)
		}
		if after != nil {
			kind, _ := step.Kind()
			after(idx, kind)
		}
	}
	return nil
}
