// Package heal is the auto-heal decision engine: it reads the observed
// network state, picks the remediation for it, and routes every action
// through the intent verification pipeline.
package heal

import (
	"fmt"
	"log"

	"github.com/voltix/agent/internal/alerts"
	"github.com/voltix/agent/internal/intent"
	"github.com/voltix/agent/internal/netdrv"
)

// Report is the outcome of one auto-heal invocation, including the full
// verification record for the action taken (if any).
type Report struct {
	State        netdrv.State   `json:"wifi_state"`
	Action       string         `json:"action"`
	Reason       string         `json:"reason,omitempty"`
	Adapter      string         `json:"adapter,omitempty"`
	Result       interface{}    `json:"result,omitempty"`
	Fixed        bool           `json:"fixed"`
	FlushOK      bool           `json:"flush_ok,omitempty"`
	Verification *intent.Record `json:"intent_verification,omitempty"`
}

// Engine dispatches remediation based on observed state. It never lets a
// capability failure escape: drivers report failures in-band and the
// pipeline is fail-open, so AutoHeal always returns a Report.
type Engine struct {
	alerts   *alerts.Store
	pipeline *intent.Pipeline

	// ping is the live reachability probe, injectable for tests.
	ping netdrv.Prober
}

// NewEngine wires the decision engine to its collaborators.
func NewEngine(alertStore *alerts.Store, pipeline *intent.Pipeline) *Engine {
	return &Engine{alerts: alertStore, pipeline: pipeline, ping: netdrv.PingHost}
}

// AutoHeal is the main healing entry point. Dispatch is in fixed priority
// order; the first matching state wins. The last-observed-state cell is
// updated to the state seen at entry (not the post-action state) so the
// monitor and the next invocation can detect genuine transitions.
func (e *Engine) AutoHeal(drv netdrv.Driver) Report {
	state := drv.State()
	log.Printf("Auto-heal triggered. Current state: %s", state)
	defer e.alerts.SetLastState(string(state))

	switch state {
	case netdrv.StateNoWLAN:
		e.alerts.Push(alerts.LevelWarning, "No Wireless Hardware",
			"No WLAN adapter found on this system.", string(state))
		healRunsTotal.WithLabelValues("none", "false").Inc()
		return Report{State: state, Action: "none", Reason: "No wireless hardware"}

	case netdrv.StateDisabled:
		return e.healDisabled(drv, state)

	case netdrv.StateUpNoNet:
		return e.healNoInternet(drv, state)
	}

	// State looks healthy; trust nothing and probe live reachability.
	if e.ping(2, 2000) {
		prev := e.alerts.LastState()
		if netdrv.State(prev).Degraded() {
			e.alerts.Push(alerts.LevelResolved, "Connection Healthy",
				"All systems are operating normally.", string(state))
		}
		healRunsTotal.WithLabelValues("none", "true").Inc()
		return Report{State: state, Action: "none", Reason: "Everything looks fine"}
	}

	return e.healBlip(drv, state)
}

func (e *Engine) healDisabled(drv netdrv.Driver, state netdrv.State) Report {
	adapter := drv.AdapterName()
	e.alerts.Push(alerts.LevelCritical, "WiFi Disabled",
		fmt.Sprintf("WiFi adapter %q is turned off. Attempting to re-enable.", adapter), string(state))

	result, rec := e.pipeline.VerifyAndExecute(
		"enable_wifi",
		fmt.Sprintf("Re-enable WiFi adapter %q via multi-strategy fallback", adapter),
		map[string]interface{}{"adapter": adapter, "state": string(state)},
		func() interface{} { return drv.EnableWiFi() },
	)

	enable := result.(netdrv.EnableResult)
	fixed := enable.FinalState.Healthy()

	if fixed {
		e.alerts.Push(alerts.LevelResolved, "WiFi Restored",
			fmt.Sprintf("WiFi adapter %q is back online.", adapter), string(enable.FinalState))
	} else {
		e.alerts.Push(alerts.LevelCritical, "WiFi Fix Failed",
			"Could not re-enable WiFi automatically. Manual action required.", string(state))
	}
	healRunsTotal.WithLabelValues("enable_wifi", fmt.Sprint(fixed)).Inc()

	return Report{
		State:        state,
		Action:       "enable_wifi",
		Adapter:      adapter,
		Result:       enable,
		Fixed:        fixed,
		Verification: rec,
	}
}

func (e *Engine) healNoInternet(drv netdrv.Driver, state netdrv.State) Report {
	adapter := drv.AdapterName()
	e.alerts.Push(alerts.LevelWarning, "No Internet Access",
		"WiFi connected but no internet. Restarting network stack.", string(state))

	result, rec := e.pipeline.VerifyAndExecute(
		"restart_network",
		fmt.Sprintf("Restart network stack on adapter %q (disable, enable, flush, renew)", adapter),
		map[string]interface{}{"adapter": adapter, "state": string(state)},
		func() interface{} { return drv.RestartNetwork() },
	)

	restart := result.(netdrv.RestartResult)
	fixed := restart.Internet

	if fixed {
		e.alerts.Push(alerts.LevelResolved, "Internet Restored",
			"Network stack restarted. Internet is back.", string(netdrv.StateConnected))
	} else {
		e.alerts.Push(alerts.LevelCritical, "Network Fix Failed",
			"Could not restore internet automatically.", string(state))
	}
	healRunsTotal.WithLabelValues("restart_network", fmt.Sprint(fixed)).Inc()

	return Report{
		State:        state,
		Action:       "restart_network",
		Adapter:      adapter,
		Result:       restart,
		Fixed:        fixed,
		Verification: rec,
	}
}

// healBlip handles a healthy-looking state that fails the live probe: a
// minor blip, remediated with a DNS-cache flush only.
func (e *Engine) healBlip(drv netdrv.Driver, state netdrv.State) Report {
	result, rec := e.pipeline.VerifyAndExecute(
		"flush_dns",
		"Flush OS DNS cache to resolve intermittent connectivity",
		map[string]interface{}{"state": string(state)},
		func() interface{} {
			ok, out := drv.FlushDNS()
			return map[string]interface{}{"ok": ok, "output": out}
		},
	)

	flush := result.(map[string]interface{})
	flushOK, _ := flush["ok"].(bool)

	e.alerts.Push(alerts.LevelInfo, "DNS Flushed",
		"Connectivity issue detected. DNS cache cleared.", string(state))
	healRunsTotal.WithLabelValues("flush_dns_only", fmt.Sprint(flushOK)).Inc()

	return Report{
		State:        state,
		Action:       "flush_dns_only",
		Result:       flush,
		FlushOK:      flushOK,
		Verification: rec,
	}
}
