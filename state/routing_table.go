package state

import (
	"maps"
	"slices"
)

// RoutingTable holds what a single router believes about the network, and the
// changes it has not yet told its neighbours about.
//
// A RoutingTable is owned by exactly one router and must only be accessed from one goroutine.
type RoutingTable struct {
	Id      RouterId
	routes  map[RouterId]Route
	pending map[RouterId]Metric
}

// NewRoutingTable creates a table containing only the self route of id.
// The self route is pending, so the first propagation announces the router to its neighbours.
func NewRoutingTable(id RouterId) *RoutingTable {
	t := &RoutingTable{
		Id:      id,
		routes:  make(map[RouterId]Route),
		pending: make(map[RouterId]Metric),
	}
	t.accept(id, NoHop, 0)
	return t
}

// accept is the only place routes and pending changes are written.
//
// A finite candidate replaces the current route only when it is strictly shorter,
// so ties never change the next hop. An infinite candidate is a withdrawal:
//   - if the current route goes through nh, the route is deleted (forced withdrawal);
//   - if we hold a route through another next hop, that route is queued again so the
//     withdrawing neighbour can re-learn the destination through us;
//   - if we hold no route, the withdrawal is ignored.
//
// The queued route may itself lead back through nh. Nothing here detects that, so a cut
// in a cyclic graph can leave a forwarding loop behind.
func (t *RoutingTable) accept(target, nh RouterId, candidate Metric) (RouteEvent, bool) {
	cur, ok := t.routes[target]

	if candidate.IsInf() {
		if !ok {
			return RouteEvent{}, false // withdrawal of a route we do not know about
		}
		if cur.Nh != nh || cur.IsSelf() {
			t.pending[target] = cur.Metric
			return RouteEvent{}, false
		}
		t.pending[target] = INF
		delete(t.routes, target)
		return RouteEvent{
			Kind:   RouteWithdrawn,
			Owner:  t.Id,
			Route:  Route{Target: target, Nh: nh, Metric: INF},
			Metric: cur.Metric,
		}, true
	}

	if ok && cur.Metric <= candidate {
		return RouteEvent{}, false // existing route is at least as good
	}

	route := Route{Target: target, Nh: nh, Metric: candidate}
	t.pending[target] = candidate
	t.routes[target] = route
	if !ok {
		return RouteEvent{Kind: RouteAdded, Owner: t.Id, Route: route}, true
	}
	return RouteEvent{Kind: RouteImproved, Owner: t.Id, Route: route, Metric: cur.Metric}, true
}

// ApplyNeighbourUpdate relaxes the table against the changes advertised by neigh,
// which is reachable over a direct link of the given weight.
func (t *RoutingTable) ApplyNeighbourUpdate(changes map[RouterId]Metric, neigh RouterId, weight Metric) []RouteEvent {
	events := make([]RouteEvent, 0)
	record := func(ev RouteEvent, ok bool) {
		if ok {
			events = append(events, ev)
		}
	}

	// (re)confirm the direct route, superseding any longer indirect one
	record(t.accept(neigh, neigh, weight))

	viaNeigh := t.routes[neigh]

	for _, target := range slices.Sorted(maps.Keys(changes)) {
		if target == viaNeigh.Nh {
			// never learn a route back through the node we use to reach neigh
			continue
		}
		record(t.accept(target, viaNeigh.Nh, changes[target]+viaNeigh.Metric))
	}
	return events
}

// WithdrawRoutesVia withdraws every route whose next hop is via
func (t *RoutingTable) WithdrawRoutesVia(via RouterId) []RouteEvent {
	events := make([]RouteEvent, 0)
	for _, target := range slices.Sorted(maps.Keys(t.routes)) {
		if t.routes[target].Nh != via {
			continue
		}
		if ev, ok := t.accept(target, via, INF); ok {
			events = append(events, ev)
		}
	}
	return events
}

// DrainPendingChanges returns the accumulated changes and empties the buffer
func (t *RoutingTable) DrainPendingChanges() map[RouterId]Metric {
	if len(t.pending) == 0 {
		return map[RouterId]Metric{}
	}
	c := t.pending
	t.pending = make(map[RouterId]Metric)
	return c
}

func (t *RoutingTable) HasPendingChanges() bool {
	return len(t.pending) != 0
}

// PendingChanges returns a copy of the undrained changes
func (t *RoutingTable) PendingChanges() map[RouterId]Metric {
	return maps.Clone(t.pending)
}

func (t *RoutingTable) Lookup(target RouterId) (Route, bool) {
	r, ok := t.routes[target]
	return r, ok
}

// ExportRoutes returns a snapshot of every route, ordered by target
func (t *RoutingTable) ExportRoutes() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, target := range slices.Sorted(maps.Keys(t.routes)) {
		out = append(out, t.routes[target])
	}
	return out
}
