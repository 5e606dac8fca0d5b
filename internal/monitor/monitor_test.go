package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/internal/netdrv"
	"github.com/voltix/agent/internal/strategy"
)

type scriptedDriver struct {
	states []netdrv.State
	idx    int
}

func (d *scriptedDriver) AdapterName() string { return "wlan0" }

func (d *scriptedDriver) State() netdrv.State {
	s := d.states[d.idx]
	if d.idx < len(d.states)-1 {
		d.idx++
	}
	return s
}

func (d *scriptedDriver) EnableWiFi() netdrv.EnableResult {
	return netdrv.EnableResult{Steps: []strategy.Step{}, FinalState: d.states[d.idx]}
}

func (d *scriptedDriver) RestartNetwork() netdrv.RestartResult {
	return netdrv.RestartResult{Internet: true}
}

func (d *scriptedDriver) FlushDNS() (bool, string) { return true, "" }

func TestCheckSteadyHealthyIsQuiet(t *testing.T) {
	store := alerts.NewStore()
	store.SetLastState(string(netdrv.StateConnected))
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateConnected}}, store)

	m.Check()

	assert.Empty(t, store.GetAll())
	assert.Equal(t, string(netdrv.StateConnected), store.LastState())
}

func TestCheckDisabledRaisesCritical(t *testing.T) {
	store := alerts.NewStore()
	store.SetLastState(string(netdrv.StateConnected))
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateDisabled}}, store)

	m.Check()

	all := store.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, alerts.LevelCritical, all[0].Level)
	assert.Equal(t, "WiFi Disabled Detected", all[0].Title)
	assert.Equal(t, string(netdrv.StateDisabled), store.LastState())
}

func TestCheckInternetLostRaisesWarning(t *testing.T) {
	store := alerts.NewStore()
	store.SetLastState(string(netdrv.StateConnected))
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateUpNoNet}}, store)

	m.Check()

	all := store.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, alerts.LevelWarning, all[0].Level)
	assert.Equal(t, "Internet Lost", all[0].Title)
}

func TestCheckRecoveryRaisesResolved(t *testing.T) {
	store := alerts.NewStore()
	store.SetLastState(string(netdrv.StateDisabled))
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateConnected}}, store)

	m.Check()

	all := store.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, alerts.LevelResolved, all[0].Level)
	assert.Equal(t, "Connection Restored", all[0].Title)
}

func TestCheckRepeatedDegradedDoesNotSpam(t *testing.T) {
	store := alerts.NewStore()
	store.SetLastState(string(netdrv.StateConnected))
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateDisabled, netdrv.StateDisabled}}, store)

	m.Check()
	m.Check()

	// second cycle sees no transition, so only the first alerts
	assert.Len(t, store.GetAll(), 1)
}

func TestCheckHealthyFromUnknownIsQuiet(t *testing.T) {
	store := alerts.NewStore() // lastState starts at "unknown"
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateConnected}}, store)

	m.Check()

	// unknown is not degraded, so first observation raises nothing
	assert.Empty(t, store.GetAll())
	assert.Equal(t, string(netdrv.StateConnected), store.LastState())
}

func TestRunStopsOnCancel(t *testing.T) {
	store := alerts.NewStore()
	m := New(&scriptedDriver{states: []netdrv.State{netdrv.StateConnected}}, store)
	m.Grace = time.Millisecond
	m.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
