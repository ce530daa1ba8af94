package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	Propagations   = metric.NewCounter("1m1s")
	UpdatesSent    = metric.NewCounter("1m1s")
	RouteChanges   = metric.NewCounter("1m1s")
	ConvergeRounds = metric.NewHistogram("1m1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvsim:Propagations", Propagations)
	expvar.Publish("dvsim:UpdatesSent", UpdatesSent)
	expvar.Publish("dvsim:RouteChanges", RouteChanges)
	expvar.Publish("dvsim:ConvergeRounds", ConvergeRounds)
}
