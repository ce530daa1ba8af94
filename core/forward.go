package core

import (
	"fmt"
	"net/netip"

	"github.com/encodeous/dvsim/state"
	"github.com/gaissmai/bart"
)

func AddrToPrefix(addr netip.Addr) netip.Prefix {
	res, err := addr.Prefix(addr.BitLen())
	if err != nil {
		panic(err)
	}
	return res
}

// ForwardTable builds a longest prefix match table over every route whose target is an IPv4 router id
func (r *Router) ForwardTable() *bart.Table[state.Route] {
	tbl := new(bart.Table[state.Route])
	for _, route := range r.table.ExportRoutes() {
		addr, ok := state.IdAddr(route.Target)
		if !ok {
			continue
		}
		tbl.Insert(AddrToPrefix(addr), route)
	}
	return tbl
}

// NextHop finds the route router id would use to forward a packet to dst
func (n *Network) NextHop(id state.RouterId, dst netip.Addr) (state.Route, error) {
	r, err := n.get(id)
	if err != nil {
		return state.Route{}, err
	}
	route, ok := r.ForwardTable().Lookup(dst)
	if !ok {
		return state.Route{}, fmt.Errorf("%w: %s has no route to %s", state.ErrNotFound, id, dst)
	}
	return route, nil
}
