package state

import "math"

// INF is the withdrawal sentinel. It only ever appears inside an update, never in a stored route.
var INF = Metric(math.Inf(1))

// NoHop is the next hop of a self route
const NoHop RouterId = ""

var (
	DefaultWeight    = Metric(1)
	MaxConvergeRound = 64 // larger than the diameter of any sane simulated network
)
