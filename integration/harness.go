//go:build integration

package integration

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/stretchr/testify/require"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

type VirtualLink struct {
	Edge   state.Pair[state.RouterId, state.RouterId]
	Weight state.Metric
}

func (v *VirtualLink) WithWeight(w state.Metric) *VirtualLink {
	v.Weight = w
	return v
}

// VirtualHarness describes a topology, builds it into a core.Network and checks the converged tables
// against a shortest path oracle.
type VirtualHarness struct {
	Scenario state.ScenarioCfg
	Links    []*VirtualLink
	Net      *core.Network
}

func (v *VirtualHarness) NewNode(id state.RouterId) {
	v.Scenario.Routers = append(v.Scenario.Routers, id)
}

func (v *VirtualHarness) AddLink(a, b state.RouterId) *VirtualLink {
	link := &VirtualLink{
		Edge:   state.Pair[state.RouterId, state.RouterId]{V1: a, V2: b},
		Weight: state.DefaultWeight,
	}
	v.Links = append(v.Links, link)
	return link
}

// RandomHarness builds a connected graph of n routers: a random spanning tree, plus every other pair with probability extra.
// Weights are whole numbers so that distances add up exactly.
func RandomHarness(seed uint64, n int, extra float64) *VirtualHarness {
	rng := rand.New(rand.NewPCG(seed, seed))
	vh := &VirtualHarness{}
	for i := range n {
		vh.NewNode(state.RouterId(fmt.Sprintf("10.0.%d.%d", i/250, i%250+1)))
	}
	ids := vh.Scenario.Routers
	weight := func() state.Metric {
		return state.Metric(rng.IntN(20) + 1)
	}
	for i := 1; i < n; i++ {
		vh.AddLink(ids[rng.IntN(i)], ids[i]).WithWeight(weight())
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < extra {
				vh.AddLink(ids[i], ids[j]).WithWeight(weight())
			}
		}
	}
	return vh
}

func (v *VirtualHarness) Start(t *testing.T) *core.Network {
	t.Helper()
	v.Scenario.Links = v.Scenario.Links[:0]
	for _, l := range v.Links {
		v.Scenario.Links = append(v.Scenario.Links, state.LinkCfg{A: l.Edge.V1, B: l.Edge.V2, Weight: l.Weight})
	}
	require.NoError(t, state.ScenarioValidator(&v.Scenario))
	n, err := core.BuildNetwork(&v.Scenario, nil)
	require.NoError(t, err)
	v.Net = n
	return n
}

func (v *VirtualHarness) Stop() {
	if v.Net != nil {
		_ = v.Net.Close()
	}
}

// Converge runs the network to a fixed point, allowing a round per router and then some
func (v *VirtualHarness) Converge(t *testing.T) int {
	t.Helper()
	rounds, err := v.Net.Converge(t.Context(), 4*len(v.Net.Routers())+4)
	require.NoError(t, err)
	return rounds
}

// ShortestPaths runs Dijkstra from src over the links currently in the network
func (v *VirtualHarness) ShortestPaths(src state.RouterId) map[state.RouterId]state.Metric {
	dist := map[state.RouterId]state.Metric{src: 0}
	done := make(map[state.RouterId]bool)
	for {
		cur := state.NoHop
		for id, d := range dist {
			if done[id] {
				continue
			}
			if cur == state.NoHop || d < dist[cur] || (d == dist[cur] && id < cur) {
				cur = id
			}
		}
		if cur == state.NoHop {
			return dist
		}
		done[cur] = true
		neigh, _ := v.Net.NeighboursOf(cur)
		for _, other := range neigh {
			w, _ := v.Net.GetConnection(cur, other)
			if d, ok := dist[other]; !ok || dist[cur]+w < d {
				dist[other] = dist[cur] + w
			}
		}
	}
}

// AssertOptimal checks that every router reaches exactly the routers Dijkstra reaches, at the same distance,
// through a direct neighbour
func (v *VirtualHarness) AssertOptimal(t *testing.T) {
	t.Helper()
	for _, src := range v.Net.Routers() {
		want := v.ShortestPaths(src)
		routes, err := v.Net.ExportTable(src)
		require.NoError(t, err)
		neigh, err := v.Net.NeighboursOf(src)
		require.NoError(t, err)

		got := make(map[state.RouterId]state.Metric, len(routes))
		for _, r := range routes {
			got[r.Target] = r.Metric
			if r.IsSelf() {
				require.Equal(t, src, r.Target, "%s has a self route to another router", src)
				continue
			}
			require.True(t, slices.Contains(neigh, r.Nh), "%s routes to %s via %s, which is not a neighbour", src, r.Target, r.Nh)
		}
		require.Equal(t, want, got, "routing table of %s is not optimal", src)
	}
}

// ConvergeWithin is Converge with an explicit round limit
func (v *VirtualHarness) ConvergeWithin(t *testing.T, maxRounds int) int {
	t.Helper()
	rounds, err := v.Net.Converge(t.Context(), maxRounds)
	require.NoError(t, err)
	return rounds
}

// AssertNextHopsAreNeighbours checks that every router keeps its self route and forwards only to routers it is linked to.
// Unlike AssertOptimal it says nothing about the metrics.
func (v *VirtualHarness) AssertNextHopsAreNeighbours(t *testing.T) {
	t.Helper()
	for _, src := range v.Net.Routers() {
		routes, err := v.Net.ExportTable(src)
		require.NoError(t, err)
		neigh, err := v.Net.NeighboursOf(src)
		require.NoError(t, err)
		hasSelf := false
		for _, r := range routes {
			if r.IsSelf() {
				require.Equal(t, src, r.Target, "%s has a self route to another router", src)
				hasSelf = true
				continue
			}
			require.False(t, r.Metric.IsInf(), "%s keeps a withdrawn route to %s", src, r.Target)
			require.True(t, slices.Contains(neigh, r.Nh), "%s routes to %s via %s, which is not a neighbour", src, r.Target, r.Nh)
		}
		require.True(t, hasSelf, "%s lost its self route", src)
	}
}

// ForwardingLoops follows next hops from every router towards every target and returns the (router, target) pairs
// whose walk revisits a router before arriving
func (v *VirtualHarness) ForwardingLoops() []state.Pair[state.RouterId, state.RouterId] {
	tables := v.Net.ExportAllTables()
	nextHop := func(at, target state.RouterId) (state.RouterId, bool) {
		for _, r := range tables[at] {
			if r.Target == target {
				return r.Nh, true
			}
		}
		return "", false
	}
	loops := make([]state.Pair[state.RouterId, state.RouterId], 0)
	for _, src := range v.Net.Routers() {
		for _, r := range tables[src] {
			if r.IsSelf() {
				continue
			}
			seen := map[state.RouterId]bool{src: true}
			at := r.Nh
			for at != r.Target {
				if seen[at] {
					loops = append(loops, state.Pair[state.RouterId, state.RouterId]{V1: src, V2: r.Target})
					break
				}
				seen[at] = true
				nh, ok := nextHop(at, r.Target)
				if !ok {
					break
				}
				at = nh
			}
		}
	}
	return loops
}
