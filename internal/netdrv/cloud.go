package netdrv

import (
	"log"
	"sync"
	"time"

	"github.com/voltix/agent/internal/strategy"
)

// CloudDriver simulates a wireless adapter for hosts with no WiFi hardware
// (Linux containers, cloud demo deployments). State can be forced for a
// bounded window via ForceState, which is what the failure simulator uses.
type CloudDriver struct {
	mu          sync.Mutex
	adapter     string
	forcedState State
	forcedUntil time.Time
	healCount   int

	// settle shortens in tests.
	settle time.Duration

	// probes are injectable so tests never shell out.
	ping    Prober
	resolve func(host string) bool
}

// NewCloudDriver builds the simulated driver with real reachability probes.
func NewCloudDriver() *CloudDriver {
	return &CloudDriver{
		adapter: "cloud-vnet0",
		settle:  time.Second,
		ping:    PingHost,
		resolve: ResolveDNS,
	}
}

// ForceState pins the reported state for the given duration.
func (d *CloudDriver) ForceState(state State, duration time.Duration) {
	d.mu.Lock()
	d.forcedState = state
	d.forcedUntil = time.Now().Add(duration)
	d.mu.Unlock()
	log.Printf("[CloudDriver] Forced state=%q for %s", state, duration)
}

// ClearForcedState removes any forced state immediately.
func (d *CloudDriver) ClearForcedState() {
	d.mu.Lock()
	d.forcedState = ""
	d.forcedUntil = time.Time{}
	d.mu.Unlock()
}

func (d *CloudDriver) AdapterName() string { return d.adapter }

func (d *CloudDriver) State() State {
	d.mu.Lock()
	if d.forcedState != "" {
		if time.Now().Before(d.forcedUntil) {
			state := d.forcedState
			d.mu.Unlock()
			return state
		}
		d.forcedState = ""
	}
	d.mu.Unlock()

	// Cloud hosts normally have connectivity; only a failed ping with
	// working DNS downgrades the verdict.
	if d.ping(1, 2000) {
		return StateConnected
	}
	if d.resolve("") {
		return StateUpNoNet
	}
	return StateConnected
}

func (d *CloudDriver) EnableWiFi() EnableResult {
	d.mu.Lock()
	d.healCount++
	n := d.healCount
	d.mu.Unlock()
	log.Printf("[CloudDriver] Simulating WiFi enable (heal #%d)", n)

	exec := &strategy.Executor{
		Settle:  d.settle,
		Probe:   func() string { return string(d.State()) },
		Healthy: func(s string) bool { return State(s).Healthy() },
	}
	res := exec.Run([]strategy.Strategy{
		{Name: "cloud-radio-api", Run: func() (bool, string) {
			d.ClearForcedState()
			return true, "Simulated radio toggle"
		}},
	})
	return EnableResult{Steps: res.Steps, FinalState: State(res.FinalState)}
}

func (d *CloudDriver) RestartNetwork() RestartResult {
	d.mu.Lock()
	d.healCount++
	n := d.healCount
	d.mu.Unlock()
	log.Printf("[CloudDriver] Simulating network restart (heal #%d)", n)

	steps := []strategy.Step{
		{Name: "disable", OK: true},
		{Name: "enable", OK: true},
		{Name: "flush_dns", OK: true},
		{Name: "renew_ip", OK: true},
	}
	time.Sleep(d.settle)
	d.ClearForcedState()
	steps = append(steps, strategy.Step{Name: "ping_check", OK: true})
	return RestartResult{Steps: steps, Internet: true}
}

func (d *CloudDriver) FlushDNS() (bool, string) {
	log.Println("[CloudDriver] Simulating DNS flush")
	return true, "DNS cache flushed (simulated)"
}

var (
	_ Driver      = (*CloudDriver)(nil)
	_ StateForcer = (*CloudDriver)(nil)
)
