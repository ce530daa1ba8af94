package core

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// Network is the registry of simulated routers, and the only surface used to change or inspect them.
//
// Network access must be done only on a single Goroutine. A failed operation leaves every router unchanged.
type Network struct {
	routers map[state.RouterId]*Router
	Log     *slog.Logger
	trace   *RouteTrace
}

func NewNetwork(log *slog.Logger) *Network {
	if log == nil {
		log = slog.Default()
	}
	return &Network{
		routers: make(map[state.RouterId]*Router),
		Log:     log,
	}
}

func (n *Network) RouteChanged(ev state.RouteEvent) {
	perf.RouteChanges.Add(1)
	if state.DBG_log_route_changes {
		n.Log.Info("route change", "router", ev.Owner, "event", ev.Kind, "target", ev.Route.Target, "nh", ev.Route.Nh, "metric", ev.Route.Metric, "prev", ev.Metric)
	} else {
		n.Log.Debug("route change", "router", ev.Owner, "event", ev.Kind, "target", ev.Route.Target, "nh", ev.Route.Nh, "metric", ev.Route.Metric)
	}
	if n.trace != nil && !n.trace.Offer(ev) {
		n.Log.Warn("route trace is full, dropped event", "event", ev.String())
	}
}

func (n *Network) get(id state.RouterId) (*Router, error) {
	r, ok := n.routers[id]
	if !ok {
		return nil, fmt.Errorf("%w: router %s", state.ErrNotFound, id)
	}
	return r, nil
}

func (n *Network) getPair(id1, id2 state.RouterId) (*Router, *Router, error) {
	r1, err := n.get(id1)
	if err != nil {
		return nil, nil, err
	}
	r2, err := n.get(id2)
	if err != nil {
		return nil, nil, err
	}
	return r1, r2, nil
}

// AddRouter registers a router whose table contains only its self route
func (n *Network) AddRouter(id state.RouterId) error {
	if id == state.NoHop {
		return fmt.Errorf("%w: empty id", state.ErrInvalidId)
	}
	if _, ok := n.routers[id]; ok {
		return fmt.Errorf("%w: %s", state.ErrDuplicateId, id)
	}
	n.routers[id] = NewRouter(id)
	n.Log.Debug("added router", "router", id)
	return nil
}

// RemoveRouterAndReset deletes a router, then resets the table of every remaining router.
// The whole network has to converge again from scratch, even routers that were never adjacent to id.
func (n *Network) RemoveRouterAndReset(id state.RouterId) error {
	if _, err := n.get(id); err != nil {
		return err
	}
	delete(n.routers, id)
	for _, rid := range n.Routers() {
		r := n.routers[rid]
		r.forget(id)
		r.Reset(n)
	}
	n.Log.Debug("removed router, reset all tables", "router", id, "remaining", len(n.routers))
	return nil
}

// SetConnection creates or re-weights a link. No propagation is triggered.
func (n *Network) SetConnection(id1, id2 state.RouterId, weight state.Metric) error {
	r1, r2, err := n.getPair(id1, id2)
	if err != nil {
		return err
	}
	if id1 == id2 {
		return fmt.Errorf("%w: %s cannot link to itself", state.ErrInvalidLink, id1)
	}
	if err := state.WeightValidator(weight); err != nil {
		return err
	}
	r1.ConnectTo(r2, weight)
	n.Log.Debug("set connection", "a", id1, "b", id2, "weight", weight)
	return nil
}

// DeleteConnectionAndReset removes a link and withdraws every route that used it.
// The withdrawals are sent on the next propagation of each side.
func (n *Network) DeleteConnectionAndReset(id1, id2 state.RouterId) error {
	r1, r2, err := n.getPair(id1, id2)
	if err != nil {
		return err
	}
	if _, ok := r1.Weight(id2); !ok {
		return fmt.Errorf("%w: no link between %s and %s", state.ErrNotFound, id1, id2)
	}
	r1.DisconnectFrom(r2, n)
	n.Log.Debug("deleted connection", "a", id1, "b", id2)
	return nil
}

// Propagate pushes the pending changes of id to its direct neighbours
func (n *Network) Propagate(id state.RouterId) error {
	r, err := n.get(id)
	if err != nil {
		return err
	}
	if !r.Propagate(n) {
		n.Log.Debug("nothing to propagate", "router", id)
	}
	return nil
}

// GetConnection returns the weight of the link between id1 and id2
func (n *Network) GetConnection(id1, id2 state.RouterId) (state.Metric, bool) {
	r, ok := n.routers[id1]
	if !ok {
		return 0, false
	}
	return r.Weight(id2)
}

func (n *Network) NeighboursOf(id state.RouterId) ([]state.RouterId, error) {
	r, err := n.get(id)
	if err != nil {
		return nil, err
	}
	return r.NeighbourIds(), nil
}

// PendingChangeStatus reports, for every router, whether it still has changes to propagate
func (n *Network) PendingChangeStatus() map[state.RouterId]bool {
	status := make(map[state.RouterId]bool, len(n.routers))
	for id, r := range n.routers {
		status[id] = r.HasPendingChanges()
	}
	return status
}

// PendingChanges returns a copy of the changes id will send on its next propagation
func (n *Network) PendingChanges(id state.RouterId) (map[state.RouterId]state.Metric, error) {
	r, err := n.get(id)
	if err != nil {
		return nil, err
	}
	return r.PendingChanges(), nil
}

func (n *Network) ExportTable(id state.RouterId) ([]state.Route, error) {
	r, err := n.get(id)
	if err != nil {
		return nil, err
	}
	return r.ExportTable(), nil
}

func (n *Network) ExportAllTables() map[state.RouterId][]state.Route {
	tables := make(map[state.RouterId][]state.Route, len(n.routers))
	for id, r := range n.routers {
		tables[id] = r.ExportTable()
	}
	return tables
}

// Routers returns every registered id, sorted
func (n *Network) Routers() []state.RouterId {
	return slices.Sorted(maps.Keys(n.routers))
}

// Subscribe registers ch to receive every state.RouteEvent from now on.
// ch must be drained by the caller.
func (n *Network) Subscribe(ch chan<- any) {
	if n.trace == nil {
		n.trace = NewRouteTrace()
	}
	n.trace.Register(ch)
}

func (n *Network) Unsubscribe(ch chan<- any) {
	if n.trace != nil {
		n.trace.Unregister(ch)
	}
}

// Close stops the route trace, if any
func (n *Network) Close() error {
	if n.trace == nil {
		return nil
	}
	err := n.trace.Close()
	n.trace = nil
	return err
}
