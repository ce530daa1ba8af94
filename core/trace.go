package core

import (
	"github.com/dustin/go-broadcast"
)

// RouteTrace fans route events out to subscribers.
// Events are offered without blocking, so a slow subscriber misses events instead of stalling the network.
type RouteTrace struct {
	broadcast.Broadcaster
}

func NewRouteTrace() *RouteTrace {
	return &RouteTrace{
		Broadcaster: broadcast.NewBroadcaster(1024),
	}
}

func (t *RouteTrace) Offer(ev any) bool {
	return t.Broadcaster.TrySubmit(ev)
}
