// Package monitor runs the background watchdog loop: it polls the network
// state on a fixed cadence, raises alerts on downward transitions, and
// records recoveries. It observes and reports only; remediation stays with
// the decision engine so a single component owns action side effects.
package monitor

import (
	"context"
	"log"
	"time"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/internal/netdrv"
)

const (
	// DefaultInterval is the poll cadence.
	DefaultInterval = 15 * time.Second
	// DefaultGrace delays the first poll past process startup so the stack
	// has settled before the watchdog starts judging it.
	DefaultGrace = 10 * time.Second
)

// Monitor is the background state watchdog.
type Monitor struct {
	driver netdrv.Driver
	alerts *alerts.Store

	// Interval and Grace are overridable before Run for tests.
	Interval time.Duration
	Grace    time.Duration
}

// New returns a monitor with production timing.
func New(driver netdrv.Driver, alertStore *alerts.Store) *Monitor {
	return &Monitor{
		driver:   driver,
		alerts:   alertStore,
		Interval: DefaultInterval,
		Grace:    DefaultGrace,
	}
}

// Run polls until ctx is cancelled. A panic inside one cycle is logged and
// the loop keeps going; the watchdog must outlive any single bad poll.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("[Monitor] background monitoring started (interval %s)", m.Interval)

	select {
	case <-ctx.Done():
		return
	case <-time.After(m.Grace):
	}

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		m.cycle()
		select {
		case <-ctx.Done():
			log.Printf("[Monitor] background monitoring stopped")
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) cycle() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Monitor] cycle panic recovered: %v", r)
		}
	}()
	m.Check()
}

// Check performs one observation cycle: read state, compare against the
// shared last-observed-state cell, alert on transitions, update the cell.
func (m *Monitor) Check() {
	state := m.driver.State()
	prev := netdrv.State(m.alerts.LastState())

	if state == prev {
		m.alerts.SetLastState(string(state))
		monitorCycles.WithLabelValues(string(state), "steady").Inc()
		return
	}

	transition := "changed"
	switch {
	case state == netdrv.StateDisabled:
		m.alerts.Push(alerts.LevelCritical, "WiFi Disabled Detected",
			"Background monitor detected the WiFi adapter is off.", string(state))
		transition = "degraded"
	case state == netdrv.StateUpNoNet:
		m.alerts.Push(alerts.LevelWarning, "Internet Lost",
			"WiFi is up but internet connectivity was lost.", string(state))
		transition = "degraded"
	case state.Healthy() && prev.Degraded():
		m.alerts.Push(alerts.LevelResolved, "Connection Restored",
			"Network connectivity is back to normal.", string(state))
		transition = "recovered"
	}

	m.alerts.SetLastState(string(state))
	monitorCycles.WithLabelValues(string(state), transition).Inc()
}
