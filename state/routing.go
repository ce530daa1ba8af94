package state

import (
	"fmt"
	"math"
	"strconv"
)

type RouterId string

// Metric is a cumulative link distance. Stored metrics are finite and non-negative.
type Metric float64

func (m Metric) IsInf() bool {
	return math.IsInf(float64(m), 1)
}

func (m Metric) String() string {
	if m.IsInf() {
		return "inf"
	}
	return strconv.FormatFloat(float64(m), 'g', -1, 64)
}

type Route struct {
	Target RouterId
	Nh     RouterId // next hop node, NoHop for the self route
	Metric Metric
}

func (r Route) IsSelf() bool {
	return r.Nh == NoHop
}

func (r Route) String() string {
	if r.IsSelf() {
		return fmt.Sprintf("%s via (self, metric: %s)", r.Target, r.Metric)
	}
	return fmt.Sprintf("%s via (nh: %s, metric: %s)", r.Target, r.Nh, r.Metric)
}

type RouteEventKind int

// trace events

const (
	RouteAdded RouteEventKind = iota
	RouteImproved
	RouteWithdrawn
	TableReset
)

func (k RouteEventKind) String() string {
	switch k {
	case RouteAdded:
		return "ROUTE_ADDED"
	case RouteImproved:
		return "ROUTE_IMPROVED"
	case RouteWithdrawn:
		return "ROUTE_WITHDRAWN"
	case TableReset:
		return "TABLE_RESET"
	}
	return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
}

// RouteEvent records a change accepted into the table of router Owner.
type RouteEvent struct {
	Kind   RouteEventKind
	Owner  RouterId
	Route  Route
	Metric Metric // previous metric for RouteImproved and RouteWithdrawn
}

func (e RouteEvent) String() string {
	switch e.Kind {
	case RouteImproved:
		return fmt.Sprintf("%s %s %s (was %s)", e.Kind, e.Owner, e.Route, e.Metric)
	case RouteWithdrawn:
		return fmt.Sprintf("%s %s %s (was %s)", e.Kind, e.Owner, e.Route.Target, e.Metric)
	case TableReset:
		return fmt.Sprintf("%s %s", e.Kind, e.Owner)
	}
	return fmt.Sprintf("%s %s %s", e.Kind, e.Owner, e.Route)
}
