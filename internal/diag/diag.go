// Package diag produces point-in-time connectivity snapshots for the
// diagnostics endpoint.
package diag

import (
	"runtime"
	"time"

	"github.com/voltix/agent/internal/config"
	"github.com/voltix/agent/internal/netdrv"
)

// Snapshot is one diagnostics read: observed state plus live probes.
type Snapshot struct {
	Version   string       `json:"version"`
	Platform  string       `json:"platform"`
	Adapter   string       `json:"adapter"`
	State     netdrv.State `json:"wifi_state"`
	PingOK    bool         `json:"ping_ok"`
	DNSOK     bool         `json:"dns_ok"`
	Healthy   bool         `json:"healthy"`
	Timestamp string       `json:"timestamp"`
}

// Collector runs diagnostics against a driver. Probes are injectable so
// tests avoid real network traffic.
type Collector struct {
	driver netdrv.Driver
	ping   netdrv.Prober
	dns    func(host string) bool
}

// NewCollector returns a collector with the real probes.
func NewCollector(driver netdrv.Driver) *Collector {
	return &Collector{driver: driver, ping: netdrv.PingHost, dns: netdrv.ResolveDNS}
}

// Collect runs one full diagnostics pass. Probes only run when the observed
// state says traffic could flow; a disabled radio fails them by definition.
func (c *Collector) Collect() Snapshot {
	state := c.driver.State()

	var pingOK, dnsOK bool
	if state.Healthy() {
		pingOK = c.ping(1, 2000)
		dnsOK = c.dns("")
	}

	return Snapshot{
		Version:   config.Version,
		Platform:  runtime.GOOS,
		Adapter:   c.driver.AdapterName(),
		State:     state,
		PingOK:    pingOK,
		DNSOK:     dnsOK,
		Healthy:   state == netdrv.StateConnected && pingOK,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
