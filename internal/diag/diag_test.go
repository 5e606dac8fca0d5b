package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voltix/agent/internal/netdrv"
)

type stubDriver struct {
	state netdrv.State
}

func (d *stubDriver) AdapterName() string               { return "wlan0" }
func (d *stubDriver) State() netdrv.State               { return d.state }
func (d *stubDriver) EnableWiFi() netdrv.EnableResult   { return netdrv.EnableResult{} }
func (d *stubDriver) RestartNetwork() netdrv.RestartResult {
	return netdrv.RestartResult{}
}
func (d *stubDriver) FlushDNS() (bool, string) { return true, "" }

func TestCollectHealthy(t *testing.T) {
	c := NewCollector(&stubDriver{state: netdrv.StateConnected})
	c.ping = func(count, timeoutMS int) bool { return true }
	c.dns = func(host string) bool { return true }

	snap := c.Collect()

	assert.Equal(t, netdrv.StateConnected, snap.State)
	assert.True(t, snap.PingOK)
	assert.True(t, snap.DNSOK)
	assert.True(t, snap.Healthy)
	assert.Equal(t, "wlan0", snap.Adapter)
	assert.NotEmpty(t, snap.Version)
}

func TestCollectDisabledSkipsProbes(t *testing.T) {
	probed := false
	c := NewCollector(&stubDriver{state: netdrv.StateDisabled})
	c.ping = func(count, timeoutMS int) bool { probed = true; return true }
	c.dns = func(host string) bool { probed = true; return true }

	snap := c.Collect()

	assert.False(t, probed, "probes must not run against a disabled radio")
	assert.False(t, snap.PingOK)
	assert.False(t, snap.Healthy)
}

func TestCollectConnectedButPingDown(t *testing.T) {
	c := NewCollector(&stubDriver{state: netdrv.StateConnected})
	c.ping = func(count, timeoutMS int) bool { return false }
	c.dns = func(host string) bool { return false }

	snap := c.Collect()

	assert.False(t, snap.Healthy)
}
