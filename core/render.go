package core

import (
	"fmt"
	"strings"

	"github.com/encodeous/dvsim/state"
)

// StringRoutes renders one router's table, one route per line
func StringRoutes(routes []state.Route) string {
	lines := make([]string, 0, len(routes))
	for _, r := range routes {
		lines = append(lines, r.String())
	}
	return strings.Join(lines, "\n")
}

// StringTables renders every table, marking routers with pending changes with a '*'
func (n *Network) StringTables() string {
	sb := strings.Builder{}
	for _, id := range n.Routers() {
		r := n.routers[id]
		mark := ""
		if r.HasPendingChanges() {
			mark = " *"
		}
		sb.WriteString(fmt.Sprintf("[%s]%s\n", id, mark))
		for _, route := range r.ExportTable() {
			sb.WriteString(fmt.Sprintf("\t%s\n", route))
		}
	}
	return sb.String()
}

// StringStatus lists the routers that still need a propagation step
func (n *Network) StringStatus() string {
	pending := n.pendingRouters()
	if len(pending) == 0 {
		return "converged"
	}
	ids := make([]string, 0, len(pending))
	for _, id := range pending {
		ids = append(ids, string(id))
	}
	return "pending: " + strings.Join(ids, ", ")
}
