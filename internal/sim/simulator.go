// Package sim provides deterministic failure injection for demos: forced
// WiFi failures healed through the full verification chain, a blocked
// unsafe-action demonstration, and an optional background generator.
package sim

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/internal/intent"
	"github.com/voltix/agent/internal/netdrv"
)

const forcedStateDuration = 12 * time.Second

// Simulator drives failure injection against a driver.
type Simulator struct {
	driver   netdrv.Driver
	alerts   *alerts.Store
	pipeline *intent.Pipeline

	// sleep is swappable in tests so the demo loop can be driven fast.
	sleep func(time.Duration)
}

// New wires a simulator.
func New(driver netdrv.Driver, alertStore *alerts.Store, pipeline *intent.Pipeline) *Simulator {
	return &Simulator{
		driver:   driver,
		alerts:   alertStore,
		pipeline: pipeline,
		sleep:    time.Sleep,
	}
}

// FailureReport is the outcome of one simulated failure plus its heal.
type FailureReport struct {
	Simulation   bool           `json:"simulation"`
	StateBefore  netdrv.State   `json:"wifi_state_before"`
	StateAfter   netdrv.State   `json:"wifi_state_after"`
	Action       string         `json:"action"`
	Adapter      string         `json:"adapter"`
	Fixed        bool           `json:"fixed"`
	Result       interface{}    `json:"result"`
	Verification *intent.Record `json:"intent_verification"`
}

// SimulateWiFiFailure forces the radio off, then heals it through the full
// verification chain. Drivers without forced-state support still run the
// heal path; the forced state is just skipped.
func (s *Simulator) SimulateWiFiFailure() FailureReport {
	log.Printf("[Simulator] WiFi failure simulation triggered")

	if forcer, ok := s.driver.(netdrv.StateForcer); ok {
		forcer.ForceState(netdrv.StateDisabled, forcedStateDuration)
	} else {
		log.Printf("[Simulator] driver does not support forced state; simulating in-memory only")
	}

	adapter := s.driver.AdapterName()
	s.alerts.Push(alerts.LevelCritical, "Simulated WiFi Failure",
		"WiFi adapter "+adapter+" forced offline for demo. Auto-healing initiated.",
		string(netdrv.StateDisabled))

	result, rec := s.pipeline.VerifyAndExecute(
		"enable_wifi",
		"[DEMO] Re-enable WiFi adapter "+adapter+" after simulated failure",
		map[string]interface{}{"adapter": adapter, "state": string(netdrv.StateDisabled), "simulated": true},
		func() interface{} { return s.driver.EnableWiFi() },
	)

	enable := result.(netdrv.EnableResult)
	fixed := enable.FinalState.Healthy()

	if fixed {
		s.alerts.Push(alerts.LevelResolved, "WiFi Restored (Demo)",
			"WiFi adapter "+adapter+" recovered after simulated failure.", string(enable.FinalState))
	} else {
		s.alerts.Push(alerts.LevelWarning, "Healing In Progress",
			"WiFi adapter "+adapter+" is being restored.", string(netdrv.StateDisabled))
	}
	log.Printf("[Simulator] simulation complete: fixed=%t", fixed)

	return FailureReport{
		Simulation:   true,
		StateBefore:  netdrv.StateDisabled,
		StateAfter:   enable.FinalState,
		Action:       "enable_wifi",
		Adapter:      adapter,
		Fixed:        fixed,
		Result:       enable,
		Verification: rec,
	}
}

// BlockReport describes a denied action attempt.
type BlockReport struct {
	Status         string         `json:"status"`
	Action         string         `json:"action"`
	Reason         string         `json:"reason"`
	Recommendation string         `json:"recommendation"`
	BlockedEntry   *intent.Record `json:"blocked_entry"`
}

// UnsafeActionAttempt demonstrates the security-enforcement path: an action
// with no captured plan and no token is denied before any side effect. The
// pipeline records the block and raises the security alert.
func (s *Simulator) UnsafeActionAttempt() BlockReport {
	const action = "escalate_privileges"
	const reason = "No intent token provided. Action was not declared in any execution plan. " +
		"Cryptographic verification is required before system actions can execute."

	log.Printf("[Security] BLOCKED unsafe action: %s", action)
	rec := s.pipeline.LogBlockedAction(action, reason)

	return BlockReport{
		Status:         "blocked",
		Action:         action,
		Reason:         reason,
		Recommendation: "Declare the action in a captured plan and obtain an intent token first",
		BlockedEntry:   rec,
	}
}

// RunDemoLoop generates failures on a random 60-120s cadence until ctx is
// cancelled. Every third cycle demonstrates a security block instead of a
// heal. Intended for demo deployments only.
func (s *Simulator) RunDemoLoop(ctx context.Context) {
	s.sleep(15 * time.Second)
	log.Printf("[DemoMode] auto-failure generation started (60-120s interval)")

	for cycle := 1; ; cycle++ {
		wait := time.Duration(60+rand.Intn(61)) * time.Second
		log.Printf("[DemoMode] next failure in %s (cycle #%d)", wait, cycle)

		select {
		case <-ctx.Done():
			log.Printf("[DemoMode] stopped")
			return
		default:
		}
		s.sleep(wait)
		if ctx.Err() != nil {
			log.Printf("[DemoMode] stopped")
			return
		}
		s.demoCycle(cycle)
	}
}

func (s *Simulator) demoCycle(cycle int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[DemoMode] cycle panic recovered: %v", r)
		}
	}()

	if cycle%3 == 0 {
		log.Printf("[DemoMode] triggering security block demo")
		s.UnsafeActionAttempt()
		return
	}

	state := netdrv.StateDisabled
	action := "enable_wifi"
	level := alerts.LevelCritical
	desc := "WiFi adapter offline"
	if rand.Intn(2) == 1 {
		state = netdrv.StateUpNoNet
		action = "restart_network"
		level = alerts.LevelWarning
		desc = "WiFi connected but no internet"
	}

	if forcer, ok := s.driver.(netdrv.StateForcer); ok {
		forcer.ForceState(state, forcedStateDuration)
	}

	adapter := s.driver.AdapterName()
	s.alerts.Push(level, "Demo: "+desc,
		"Auto-generated failure on "+adapter, string(state))

	result, _ := s.pipeline.VerifyAndExecute(
		action,
		"[DEMO] Auto-heal: "+desc,
		map[string]interface{}{"adapter": adapter, "state": string(state), "demo_cycle": cycle},
		func() interface{} {
			if action == "enable_wifi" {
				return s.driver.EnableWiFi()
			}
			return s.driver.RestartNetwork()
		},
	)

	fixed := false
	switch r := result.(type) {
	case netdrv.EnableResult:
		fixed = r.FinalState.Healthy()
	case netdrv.RestartResult:
		fixed = r.Internet
	}
	if fixed {
		s.alerts.Push(alerts.LevelResolved, "Demo: Auto-Healed",
			"System recovered automatically.", string(netdrv.StateConnected))
	}
}
