package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records every route change it observes
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) RouteChanged(ev state.RouteEvent) {
	switch ev.Kind {
	case state.TableReset:
		h.actions = append(h.actions, MakeEvent(ev.Kind.String(), ev.Owner))
	case state.RouteWithdrawn:
		h.actions = append(h.actions, MakeEvent(ev.Kind.String(), ev.Owner, ev.Route.Target))
	default:
		h.actions = append(h.actions, MakeEvent(ev.Kind.String(), ev.Owner, ev.Route.Target, ev.Route.Nh, ev.Route.Metric))
	}
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg, cmpopts.EquateEmpty()) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func MakeRouters(ids ...state.RouterId) map[state.RouterId]*Router {
	routers := make(map[state.RouterId]*Router, len(ids))
	for _, id := range ids {
		routers[id] = NewRouter(id)
	}
	return routers
}

// MakeNetwork builds a network with the given routers, failing the test on any error
func MakeNetwork(t *testing.T, ids ...state.RouterId) *Network {
	t.Helper()
	n := NewNetwork(nil)
	for _, id := range ids {
		if err := n.AddRouter(id); err != nil {
			t.Fatal(err)
		}
	}
	return n
}

func route(target, nh state.RouterId, metric state.Metric) state.Route {
	return state.Route{Target: target, Nh: nh, Metric: metric}
}

func self(id state.RouterId) state.Route {
	return state.Route{Target: id, Nh: state.NoHop, Metric: 0}
}
