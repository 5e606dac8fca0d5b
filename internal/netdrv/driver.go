// Package netdrv defines the platform capability contract the healing core
// drives, plus cross-platform probe helpers. Platform drivers translate the
// contract into netsh/PowerShell (Windows), networksetup (macOS), or a
// deterministic simulation (cloud/Linux). Driver calls may block for the
// duration of their subprocess timeouts; none of them return errors — every
// failure is represented in-band as an ok flag or a state value.
package netdrv

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/voltix/agent/internal/strategy"
)

// State is the discrete connectivity state observed by a driver.
type State string

const (
	StateConnected State = "wifi_connected" // connected and internet reachable
	StateUpNoNet   State = "wifi_up_no_net" // adapter up but no internet
	StateDisabled  State = "wifi_disabled"  // adapter/radio is off
	StateNoWLAN    State = "no_wlan"        // no WLAN hardware
	StateUnknown   State = "unknown"
)

// Healthy reports whether the radio is on and associated — the success
// condition for the enable-WiFi chain.
func (s State) Healthy() bool {
	return s == StateConnected || s == StateUpNoNet
}

// Degraded reports whether the state warrants escalation alerts.
func (s State) Degraded() bool {
	return s == StateDisabled || s == StateUpNoNet
}

// EnableResult is the outcome of an enable-WiFi chain run.
type EnableResult struct {
	Steps      []strategy.Step `json:"steps"`
	FinalState State           `json:"final_state"`
}

// RestartResult is the outcome of a network-stack restart.
type RestartResult struct {
	Steps    []strategy.Step `json:"steps"`
	Internet bool            `json:"internet"`
}

// Driver is the platform capability consumed by the healing core.
type Driver interface {
	AdapterName() string
	State() State
	EnableWiFi() EnableResult
	RestartNetwork() RestartResult
	FlushDNS() (ok bool, output string)
}

// StateForcer is implemented by drivers that can simulate failures
// (the cloud driver). The simulator feature-detects it.
type StateForcer interface {
	ForceState(state State, duration time.Duration)
	ClearForcedState()
}

// Detect returns the driver for the current platform.
func Detect() Driver {
	return newPlatformDriver()
}

// RunCmd runs a command with a bounded timeout and returns success plus the
// combined output. It never returns an error; failures come back as
// (false, message).
func RunCmd(timeout time.Duration, name string, args ...string) (bool, string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		if text == "" {
			text = err.Error()
		}
		return false, text
	}
	return true, text
}

// PingHost pings 8.8.8.8 and reports reachability.
func PingHost(count, timeoutMS int) bool {
	const host = "8.8.8.8"
	budget := time.Duration(count*(timeoutMS+1000)) * time.Millisecond

	if runtime.GOOS == "windows" {
		ok, _ := RunCmd(budget, "ping", "-n", strconv.Itoa(count), "-w", strconv.Itoa(timeoutMS), host)
		return ok
	}
	sec := timeoutMS / 1000
	if sec < 1 {
		sec = 1
	}
	ok, _ := RunCmd(budget, "ping", "-c", strconv.Itoa(count), "-W", strconv.Itoa(sec), host)
	return ok
}

// ResolveDNS checks name resolution via nslookup.
func ResolveDNS(host string) bool {
	if host == "" {
		host = "google.com"
	}
	ok, _ := RunCmd(10*time.Second, "nslookup", host)
	return ok
}

// Prober is the live reachability probe signature used by the decision
// engine; injectable so tests control the verdict.
type Prober func(count, timeoutMS int) bool
