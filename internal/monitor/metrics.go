package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var monitorCycles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "voltix_monitor_cycles_total",
	Help: "Watchdog observation cycles by observed state and transition kind.",
}, []string{"state", "transition"})
