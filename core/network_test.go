package core

import (
	"math"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeRouters builds A --5-- B --3-- C
func threeRouters(t *testing.T) *Network {
	t.Helper()
	n := MakeNetwork(t, "A", "B", "C")
	require.NoError(t, n.SetConnection("A", "B", 5))
	require.NoError(t, n.SetConnection("B", "C", 3))
	return n
}

func assertSelfRoutes(t *testing.T, n *Network) {
	t.Helper()
	for id, routes := range n.ExportAllTables() {
		assert.Contains(t, routes, self(id), "router %s lost its self route", id)
	}
}

func TestAddRouter(t *testing.T) {
	n := MakeNetwork(t, "A")
	assert.ErrorIs(t, n.AddRouter("A"), state.ErrDuplicateId)
	assert.ErrorIs(t, n.AddRouter(""), state.ErrInvalidId)
	assert.Equal(t, []state.RouterId{"A"}, n.Routers())

	routes, err := n.ExportTable("A")
	require.NoError(t, err)
	assert.Equal(t, []state.Route{self("A")}, routes)
}

func TestUnknownIds(t *testing.T) {
	n := threeRouters(t)
	before := n.ExportAllTables()

	assert.ErrorIs(t, n.RemoveRouterAndReset("X"), state.ErrNotFound)
	assert.ErrorIs(t, n.SetConnection("A", "X", 1), state.ErrNotFound)
	assert.ErrorIs(t, n.SetConnection("X", "A", 1), state.ErrNotFound)
	assert.ErrorIs(t, n.DeleteConnectionAndReset("A", "X"), state.ErrNotFound)
	assert.ErrorIs(t, n.DeleteConnectionAndReset("A", "C"), state.ErrNotFound)
	assert.ErrorIs(t, n.Propagate("X"), state.ErrNotFound)
	_, err := n.NeighboursOf("X")
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, err = n.ExportTable("X")
	assert.ErrorIs(t, err, state.ErrNotFound)
	_, ok := n.GetConnection("X", "A")
	assert.False(t, ok)
	_, ok = n.GetConnection("A", "C")
	assert.False(t, ok)

	assert.Equal(t, before, n.ExportAllTables())
	assert.Equal(t, []state.RouterId{"A", "B", "C"}, n.Routers())
}

func TestSetConnection_Invalid(t *testing.T) {
	n := threeRouters(t)
	for _, w := range []state.Metric{-1, state.INF, state.Metric(math.NaN()), state.Metric(math.Inf(-1))} {
		assert.ErrorIs(t, n.SetConnection("A", "C", w), state.ErrInvalidWeight)
		assert.ErrorIs(t, n.SetConnection("A", "B", w), state.ErrInvalidWeight)
	}
	assert.ErrorIs(t, n.SetConnection("A", "A", 1), state.ErrInvalidLink)

	_, ok := n.GetConnection("A", "C")
	assert.False(t, ok)
	w, _ := n.GetConnection("A", "B")
	assert.Equal(t, state.Metric(5), w)
	neigh, err := n.NeighboursOf("A")
	require.NoError(t, err)
	assert.Equal(t, []state.RouterId{"B"}, neigh)
}

func TestSetConnection_Symmetry(t *testing.T) {
	n := threeRouters(t)
	require.NoError(t, n.SetConnection("C", "A", 2.5))

	ac, ok := n.GetConnection("A", "C")
	assert.True(t, ok)
	ca, ok := n.GetConnection("C", "A")
	assert.True(t, ok)
	assert.Equal(t, state.Metric(2.5), ac)
	assert.Equal(t, ac, ca)

	// re-weighting keeps both sides in step
	require.NoError(t, n.SetConnection("A", "C", 7))
	ac, _ = n.GetConnection("A", "C")
	ca, _ = n.GetConnection("C", "A")
	assert.Equal(t, state.Metric(7), ac)
	assert.Equal(t, ac, ca)

	neigh, err := n.NeighboursOf("A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []state.RouterId{"B", "C"}, neigh)
}

func TestConvergenceScenario(t *testing.T) {
	n := threeRouters(t)
	assert.Equal(t, map[state.RouterId]bool{"A": true, "B": true, "C": true}, n.PendingChangeStatus())

	require.NoError(t, n.Propagate("B"))
	assert.Equal(t, map[state.RouterId][]state.Route{
		"A": {self("A"), route("B", "B", 5)},
		"B": {self("B")},
		"C": {route("B", "B", 3), self("C")},
	}, n.ExportAllTables())

	require.NoError(t, n.Propagate("A"))
	require.NoError(t, n.Propagate("C"))
	assert.Equal(t, map[state.RouterId][]state.Route{
		"A": {self("A"), route("B", "B", 5)},
		"B": {route("A", "A", 5), self("B"), route("C", "C", 3)},
		"C": {route("B", "B", 3), self("C")},
	}, n.ExportAllTables())

	require.NoError(t, n.Propagate("B"))
	assert.Equal(t, map[state.RouterId][]state.Route{
		"A": {self("A"), route("B", "B", 5), route("C", "B", 8)},
		"B": {route("A", "A", 5), self("B"), route("C", "C", 3)},
		"C": {route("A", "B", 8), route("B", "B", 3), self("C")},
	}, n.ExportAllTables())
	assert.Equal(t, map[state.RouterId]bool{"A": true, "B": false, "C": true}, n.PendingChangeStatus())

	// A and C announce what they just learned; B already knows better
	converged := n.ExportAllTables()
	require.NoError(t, n.Propagate("A"))
	require.NoError(t, n.Propagate("C"))
	assert.Equal(t, converged, n.ExportAllTables())
	assert.Equal(t, map[state.RouterId]bool{"A": false, "B": false, "C": false}, n.PendingChangeStatus())

	// re-propagating anything is now a no-op
	for _, id := range n.Routers() {
		require.NoError(t, n.Propagate(id))
	}
	assert.Equal(t, converged, n.ExportAllTables())
	assert.Equal(t, map[state.RouterId]bool{"A": false, "B": false, "C": false}, n.PendingChangeStatus())
	assertSelfRoutes(t, n)
}

func TestPropagate_NoopIdempotence(t *testing.T) {
	n := threeRouters(t)
	h := &RouterHarness{}
	require.NoError(t, n.Propagate("B"))
	before := n.ExportAllTables()
	status := n.PendingChangeStatus()

	n.routers["B"].Propagate(h)
	assert.Empty(t, h.GetActions())
	require.NoError(t, n.Propagate("B"))
	assert.Equal(t, before, n.ExportAllTables())
	assert.Equal(t, status, n.PendingChangeStatus())
}

func TestRemoveRouterAndReset(t *testing.T) {
	n := threeRouters(t)
	_, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)

	require.NoError(t, n.RemoveRouterAndReset("B"))
	assert.Equal(t, map[state.RouterId][]state.Route{
		"A": {self("A")},
		"C": {self("C")},
	}, n.ExportAllTables())
	neigh, err := n.NeighboursOf("A")
	require.NoError(t, err)
	assert.Empty(t, neigh)
	_, ok := n.GetConnection("A", "B")
	assert.False(t, ok)
	assert.Equal(t, []state.RouterId{"A", "C"}, n.Routers())

	// fresh tables announce themselves again
	assert.Equal(t, map[state.RouterId]bool{"A": true, "C": true}, n.PendingChangeStatus())
}

func TestRemoveRouterAndReset_ResetsUnrelatedRouters(t *testing.T) {
	// A --1-- B    C --1-- D
	n := MakeNetwork(t, "A", "B", "C", "D")
	require.NoError(t, n.SetConnection("A", "B", 1))
	require.NoError(t, n.SetConnection("C", "D", 1))
	_, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)

	require.NoError(t, n.RemoveRouterAndReset("A"))
	tables := n.ExportAllTables()
	assert.Equal(t, []state.Route{self("C")}, tables["C"])
	assert.Equal(t, []state.Route{self("D")}, tables["D"])
	// the C-D link is untouched
	w, ok := n.GetConnection("C", "D")
	assert.True(t, ok)
	assert.Equal(t, state.Metric(1), w)
}

func TestDeleteConnectionAndReset_Withdrawal(t *testing.T) {
	// A --5-- B --3-- C
	n := threeRouters(t)
	_, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)

	require.NoError(t, n.DeleteConnectionAndReset("B", "C"))
	_, ok := n.GetConnection("B", "C")
	assert.False(t, ok)
	_, ok = n.GetConnection("C", "B")
	assert.False(t, ok)
	assert.Equal(t, map[state.RouterId]bool{"A": false, "B": true, "C": true}, n.PendingChangeStatus())

	_, err = n.Converge(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, map[state.RouterId][]state.Route{
		"A": {self("A"), route("B", "B", 5)},
		"B": {route("A", "A", 5), self("B")},
		"C": {self("C")},
	}, n.ExportAllTables())
	assertSelfRoutes(t, n)
}

func TestDeleteConnectionAndReset_Reroutes(t *testing.T) {
	//   A --1-- B
	//    \     /
	//     5   1
	//      \ /
	//       C
	n := MakeNetwork(t, "A", "B", "C")
	require.NoError(t, n.SetConnection("A", "B", 1))
	require.NoError(t, n.SetConnection("B", "C", 1))
	require.NoError(t, n.SetConnection("A", "C", 5))
	_, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, map[state.RouterId][]state.Route{
		"A": {self("A"), route("B", "B", 1), route("C", "B", 2)},
		"B": {route("A", "A", 1), self("B"), route("C", "C", 1)},
		"C": {route("A", "B", 2), route("B", "B", 1), self("C")},
	}, n.ExportAllTables())

	require.NoError(t, n.DeleteConnectionAndReset("B", "C"))
	_, err = n.Converge(t.Context(), 0)
	require.NoError(t, err)

	want := map[state.RouterId][]state.Route{
		"A": {self("A"), route("B", "B", 1), route("C", "C", 5)},
		"B": {route("A", "A", 1), self("B"), route("C", "A", 6)},
		"C": {route("A", "A", 5), route("B", "A", 6), self("C")},
	}
	if diff := cmp.Diff(want, n.ExportAllTables()); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
	assertSelfRoutes(t, n)
}

func TestReconnectAfterDelete(t *testing.T) {
	n := threeRouters(t)
	require.NoError(t, n.AddRouter("D"))
	_, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)
	require.NoError(t, n.DeleteConnectionAndReset("A", "B"))
	_, err = n.Converge(t.Context(), 0)
	require.NoError(t, err)

	// nothing is pending, so the new link carries no updates
	require.NoError(t, n.SetConnection("A", "B", 1))
	rounds, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)
	assert.Zero(t, rounds)
	routes, _ := n.ExportTable("A")
	assert.Equal(t, []state.Route{self("A")}, routes)

	// a reset makes every router announce itself again
	require.NoError(t, n.RemoveRouterAndReset("D"))
	_, err = n.Converge(t.Context(), 0)
	require.NoError(t, err)
	routes, _ = n.ExportTable("A")
	assert.Equal(t, []state.Route{self("A"), route("B", "B", 1), route("C", "B", 4)}, routes)
}

func TestDeleteConnectionAndReset_SettlesIntoLoop(t *testing.T) {
	// t --1-- a --3-- b
	//         |       |
	//         1       1
	//         |       |
	//         e --1-- d --1-- c   (c-d and b-c close the ring)
	n := MakeNetwork(t, "a", "b", "c", "d", "e", "t")
	require.NoError(t, n.SetConnection("t", "a", 1))
	require.NoError(t, n.SetConnection("a", "b", 3))
	require.NoError(t, n.SetConnection("b", "c", 1))
	require.NoError(t, n.SetConnection("c", "d", 1))
	require.NoError(t, n.SetConnection("d", "e", 1))
	require.NoError(t, n.SetConnection("e", "a", 1))
	_, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)

	routeTo := func(id, target state.RouterId) (state.Route, bool) {
		routes, err := n.ExportTable(id)
		require.NoError(t, err)
		for _, r := range routes {
			if r.Target == target {
				return r, true
			}
		}
		return state.Route{}, false
	}
	before := map[state.RouterId]state.Route{
		"a": route("t", "t", 1),
		"b": route("t", "a", 4),
		"c": route("t", "d", 4),
		"d": route("t", "e", 3),
		"e": route("t", "a", 2),
	}
	for id, want := range before {
		got, ok := routeTo(id, "t")
		require.True(t, ok)
		assert.Equal(t, want, got, "router %s", id)
	}

	// b hears the withdrawal before c's next hop d does, so c re-advertises
	// its old route and d, which has just dropped t, takes it
	require.NoError(t, n.DeleteConnectionAndReset("a", "t"))
	rounds, err := n.Converge(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, rounds)

	after := map[state.RouterId]state.Route{
		"a": route("t", "e", 7),
		"b": route("t", "c", 5),
		"c": route("t", "d", 4),
		"d": route("t", "c", 5),
		"e": route("t", "d", 6),
	}
	for id, want := range after {
		got, ok := routeTo(id, "t")
		require.True(t, ok, "router %s dropped t", id)
		assert.Equal(t, want, got, "router %s", id)
	}
	assert.Equal(t, []state.Route{self("t")}, n.ExportAllTables()["t"])
	assertSelfRoutes(t, n)
}
