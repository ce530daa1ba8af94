package core

import (
	"maps"
	"slices"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// Observer receives every change accepted into a routing table
type Observer interface {
	RouteChanged(ev state.RouteEvent)
}

type Neighbour struct {
	Router *Router
	Weight state.Metric
}

// Router owns one routing table and the links to its direct neighbours
type Router struct {
	Id         state.RouterId
	neighbours map[state.RouterId]Neighbour
	table      *state.RoutingTable
}

func NewRouter(id state.RouterId) *Router {
	return &Router{
		Id:         id,
		neighbours: make(map[state.RouterId]Neighbour),
		table:      state.NewRoutingTable(id),
	}
}

// ConnectTo creates or re-weights the link between r and other, on both sides.
// Neither routing table is touched; the weight takes effect on the next update exchanged over the link.
func (r *Router) ConnectTo(other *Router, weight state.Metric) {
	r.neighbours[other.Id] = Neighbour{Router: other, Weight: weight}
	other.neighbours[r.Id] = Neighbour{Router: r, Weight: weight}
}

// DisconnectFrom removes the link between r and other, then withdraws every route either side learned over it.
// The withdrawals stay pending until each side propagates.
func (r *Router) DisconnectFrom(other *Router, o Observer) {
	delete(r.neighbours, other.Id)
	delete(other.neighbours, r.Id)
	notify(o, r.table.WithdrawRoutesVia(other.Id))
	notify(o, other.table.WithdrawRoutesVia(r.Id))
}

// Propagate sends the pending changes of r to every neighbour, one hop only.
// Changes the neighbours accept stay in their own pending buffers.
// Returns false if there was nothing to send.
func (r *Router) Propagate(o Observer) bool {
	changes := r.table.DrainPendingChanges()
	if len(changes) == 0 {
		return false
	}
	perf.Propagations.Add(1)
	for _, id := range r.NeighbourIds() {
		neigh := r.neighbours[id]
		perf.UpdatesSent.Add(float64(len(changes)))
		notify(o, neigh.Router.table.ApplyNeighbourUpdate(changes, r.Id, neigh.Weight))
	}
	return true
}

// Reset replaces the routing table with a fresh one containing only the self route
func (r *Router) Reset(o Observer) {
	r.table = state.NewRoutingTable(r.Id)
	if o != nil {
		o.RouteChanged(state.RouteEvent{
			Kind:  state.TableReset,
			Owner: r.Id,
			Route: state.Route{Target: r.Id, Nh: state.NoHop},
		})
	}
}

func (r *Router) forget(id state.RouterId) {
	delete(r.neighbours, id)
}

func (r *Router) Weight(other state.RouterId) (state.Metric, bool) {
	n, ok := r.neighbours[other]
	return n.Weight, ok
}

// NeighbourIds returns the ids of the direct neighbours, sorted
func (r *Router) NeighbourIds() []state.RouterId {
	return slices.Sorted(maps.Keys(r.neighbours))
}

func (r *Router) HasPendingChanges() bool {
	return r.table.HasPendingChanges()
}

func (r *Router) PendingChanges() map[state.RouterId]state.Metric {
	return r.table.PendingChanges()
}

func (r *Router) ExportTable() []state.Route {
	return r.table.ExportRoutes()
}

func (r *Router) Lookup(target state.RouterId) (state.Route, bool) {
	return r.table.Lookup(target)
}

func notify(o Observer, events []state.RouteEvent) {
	if o == nil {
		return
	}
	for _, ev := range events {
		o.RouteChanged(ev)
	}
}
