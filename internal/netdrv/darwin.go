//go:build darwin

package netdrv

import (
	"strings"
	"time"

	"github.com/voltix/agent/internal/strategy"
)

// DarwinDriver drives the adapter through networksetup / ifconfig, with
// dscacheutil for the DNS cache.
type DarwinDriver struct {
	settle time.Duration
}

// NewDarwinDriver returns the macOS driver.
func NewDarwinDriver() *DarwinDriver {
	return &DarwinDriver{settle: 5 * time.Second}
}

func newPlatformDriver() Driver { return NewDarwinDriver() }

func (d *DarwinDriver) AdapterName() string {
	_, out := RunCmd(15*time.Second, "networksetup", "-listallhardwareports")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		ll := strings.ToLower(line)
		if !strings.Contains(ll, "wi-fi") && !strings.Contains(ll, "airport") && !strings.Contains(ll, "wireless") {
			continue
		}
		for j := i + 1; j < len(lines) && j < i+4; j++ {
			if strings.Contains(strings.ToLower(lines[j]), "device:") {
				return strings.TrimSpace(strings.SplitN(lines[j], ":", 2)[1])
			}
		}
	}
	return "en0"
}

func (d *DarwinDriver) State() State {
	adapter := d.AdapterName()

	ok, out := RunCmd(15*time.Second, "networksetup", "-getairportpower", adapter)
	if ok && strings.Contains(out, "Off") {
		return StateDisabled
	}

	// ifconfig is the more reliable status source on modern macOS.
	ok, out = RunCmd(15*time.Second, "ifconfig", adapter)
	if !ok {
		return StateDisabled
	}
	hasInet := strings.Contains(out, "inet ")
	statusUp := strings.Contains(strings.ToLower(out), "status: active") || strings.Contains(out, "flags=")
	if !hasInet || !statusUp {
		return StateDisabled
	}

	if PingHost(1, 2000) {
		return StateConnected
	}
	return StateUpNoNet
}

func (d *DarwinDriver) EnableWiFi() EnableResult {
	adapter := d.AdapterName()
	exec := &strategy.Executor{
		Settle:  d.settle,
		Probe:   func() string { return string(d.State()) },
		Healthy: func(s string) bool { return State(s).Healthy() },
	}
	res := exec.Run([]strategy.Strategy{
		{Name: "setairportpower-on", Run: func() (bool, string) {
			return RunCmd(15*time.Second, "networksetup", "-setairportpower", adapter, "on")
		}},
	})
	return EnableResult{Steps: res.Steps, FinalState: State(res.FinalState)}
}

func (d *DarwinDriver) RestartNetwork() RestartResult {
	adapter := d.AdapterName()
	var steps []strategy.Step

	ok1, _ := RunCmd(15*time.Second, "networksetup", "-setairportpower", adapter, "off")
	steps = append(steps, strategy.Step{Name: "disable", OK: ok1})
	time.Sleep(3 * time.Second)

	ok2, _ := RunCmd(15*time.Second, "networksetup", "-setairportpower", adapter, "on")
	steps = append(steps, strategy.Step{Name: "enable", OK: ok2})
	time.Sleep(d.settle)

	ok3, _ := d.FlushDNS()
	steps = append(steps, strategy.Step{Name: "flush_dns", OK: ok3})

	ok4, _ := RunCmd(15*time.Second, "ipconfig", "set", adapter, "DHCP")
	steps = append(steps, strategy.Step{Name: "renew_dhcp", OK: ok4})
	time.Sleep(3 * time.Second)

	ok5 := PingHost(1, 2000)
	steps = append(steps, strategy.Step{Name: "ping_check", OK: ok5})
	return RestartResult{Steps: steps, Internet: ok5}
}

func (d *DarwinDriver) FlushDNS() (bool, string) {
	ok, out := RunCmd(15*time.Second, "dscacheutil", "-flushcache")
	RunCmd(10*time.Second, "killall", "-HUP", "mDNSResponder")
	return ok, out
}

var _ Driver = (*DarwinDriver)(nil)
