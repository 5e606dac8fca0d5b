package heal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var healRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "voltix_heal_runs_total",
	Help: "Auto-heal invocations by action taken and outcome.",
}, []string{"action", "fixed"})
