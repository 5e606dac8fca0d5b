//go:build windows

package netdrv

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/voltix/agent/internal/strategy"
)

// WindowsDriver drives the adapter through netsh and PowerShell.
//
// The enable chain is ordered from most to least authoritative for the
// radio-off failure mode:
//  1. WinRT Radio API (via PowerShell) — the only strategy that flips the
//     software radio kill switch behind the taskbar WiFi toggle
//  2. SWD\RADIO PnP device enable
//  3. Enable-NetAdapter
//  4. Broad wireless PnP device enable
//
// Enable-NetAdapter touches the adapter, not the radio, so it can report
// ok=true while WiFi stays off — exactly why the executor re-verifies state
// after every strategy.
type WindowsDriver struct {
	mu              sync.Mutex
	adapter         string
	radioInstanceID string
	settle          time.Duration
}

// NewWindowsDriver detects the wireless adapter and returns the driver.
func NewWindowsDriver() *WindowsDriver {
	d := &WindowsDriver{settle: 5 * time.Second}
	d.adapter = d.detectAdapter()
	return d
}

func newPlatformDriver() Driver { return NewWindowsDriver() }

func powershell(timeout time.Duration, script string) (bool, string) {
	return RunCmd(timeout, "powershell", "-NoProfile", "-NonInteractive",
		"-ExecutionPolicy", "Bypass", "-Command", script)
}

func (d *WindowsDriver) detectAdapter() string {
	ok, out := powershell(20*time.Second,
		"Get-NetAdapter | Where-Object {"+
			"$_.InterfaceDescription -like '*Wireless*' "+
			"-or $_.Name -like '*Wi-Fi*' "+
			"-or $_.Name -like '*WLAN*'"+
			"} | Select-Object -ExpandProperty Name")
	if ok && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	}
	ok, out = RunCmd(15*time.Second, "netsh", "wlan", "show", "interfaces")
	if ok {
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "Name") && strings.Contains(line, ":") {
				return strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			}
		}
	}
	return "Wi-Fi"
}

func (d *WindowsDriver) AdapterName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter
}

func (d *WindowsDriver) radioInstance() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.radioInstanceID != "" {
		return d.radioInstanceID
	}
	ok, out := powershell(20*time.Second,
		"Get-PnpDevice | Where-Object {"+
			"$_.FriendlyName -eq 'Wi-Fi' -and "+
			`$_.InstanceId -like 'SWD\\RADIO\\*'`+
			"} | Select-Object -ExpandProperty InstanceId")
	if ok && strings.TrimSpace(out) != "" {
		d.radioInstanceID = strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
		log.Printf("Radio PnP InstanceId: %s", d.radioInstanceID)
	}
	return d.radioInstanceID
}

func (d *WindowsDriver) State() State {
	adapter := d.AdapterName()

	ok, out := powershell(20*time.Second,
		`(Get-NetAdapter -Name "`+adapter+`" -ErrorAction SilentlyContinue).Status`)
	status := strings.ToLower(strings.TrimSpace(out))

	if !ok || status == "" || status == "notpresent" || strings.Contains(status, "disabled") {
		ok2, out2 := RunCmd(15*time.Second, "netsh", "wlan", "show", "interfaces")
		if !ok2 || strings.Contains(strings.ToLower(out2), "there is no wireless interface") {
			return StateDisabled
		}
		return StateDisabled
	}

	ok3, out3 := RunCmd(15*time.Second, "netsh", "wlan", "show", "interfaces")
	if !ok3 {
		return StateUnknown
	}
	lower := strings.ToLower(out3)
	if strings.Contains(lower, "there is no wireless interface") {
		return StateNoWLAN
	}

	connected := false
	for _, line := range strings.Split(out3, "\n") {
		ll := strings.ToLower(line)
		if !strings.Contains(line, ":") {
			continue
		}
		val := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		if strings.Contains(ll, "ssid") && !strings.Contains(ll, "bssid") && val != "" {
			connected = true
			break
		}
		if strings.Contains(ll, "state") && strings.EqualFold(val, "connected") {
			connected = true
		}
	}
	if !connected {
		return StateDisabled
	}
	if PingHost(1, 2000) {
		return StateConnected
	}
	return StateUpNoNet
}

func (d *WindowsDriver) strategyWinRTRadio() (bool, string) {
	// PowerShell reaches the WinRT Radio API; this is the only path that
	// reliably clears the software radio kill switch.
	script := `
Add-Type -AssemblyName System.Runtime.WindowsRuntime
$asTask = ([System.WindowsRuntimeSystemExtensions].GetMethods() | Where-Object {
  $_.Name -eq 'AsTask' -and $_.GetParameters().Count -eq 1 -and
  $_.GetParameters()[0].ParameterType.Name -eq 'IAsyncOperation~1'
})[0]
[Windows.Devices.Radios.Radio,Windows.System.Devices,ContentType=WindowsRuntime] | Out-Null
$radios = $asTask.MakeGenericMethod([Windows.Devices.Radios.RadioAccessStatus]).Invoke($null, @([Windows.Devices.Radios.Radio]::RequestAccessAsync())).Result
$all = $asTask.MakeGenericMethod([System.Collections.Generic.IReadOnlyList[Windows.Devices.Radios.Radio]]).Invoke($null, @([Windows.Devices.Radios.Radio]::GetRadiosAsync())).Result
foreach ($r in $all) {
  if ($r.Kind -eq 'WiFi') {
    $asTask.MakeGenericMethod([Windows.Devices.Radios.RadioAccessStatus]).Invoke($null, @($r.SetStateAsync('On'))).Result
    exit 0
  }
}
Write-Output 'No WiFi radio found in WinRT enumeration'
exit 1
`
	return powershell(30*time.Second, script)
}

func (d *WindowsDriver) strategyPnpRadio() (bool, string) {
	instanceID := d.radioInstance()
	if instanceID == "" {
		return false, `SWD\RADIO PnP device not found`
	}
	return powershell(20*time.Second,
		`Get-PnpDevice -InstanceId "`+instanceID+`" | Enable-PnpDevice -Confirm:$false`)
}

func (d *WindowsDriver) strategyEnableNetAdapter() (bool, string) {
	return powershell(20*time.Second,
		`Enable-NetAdapter -Name "`+d.AdapterName()+`" -Confirm:$false`)
}

func (d *WindowsDriver) strategyPnpWireless() (bool, string) {
	return powershell(30*time.Second,
		"Get-PnpDevice | Where-Object {"+
			"$_.FriendlyName -like '*Wi-Fi*' "+
			"-or $_.FriendlyName -like '*Wireless*'"+
			"} | Enable-PnpDevice -Confirm:$false")
}

func (d *WindowsDriver) ensureWlanService() {
	powershell(20*time.Second,
		"Set-Service -Name WlanSvc -StartupType Automatic; "+
			"Start-Service -Name WlanSvc -ErrorAction SilentlyContinue")
}

func (d *WindowsDriver) EnableWiFi() EnableResult {
	exec := &strategy.Executor{
		Settle: d.settle,
		Probe: func() string {
			d.ensureWlanService()
			return string(d.State())
		},
		Healthy: func(s string) bool { return State(s).Healthy() },
	}
	res := exec.Run([]strategy.Strategy{
		{Name: "winrt-radio-api", Run: d.strategyWinRTRadio},
		{Name: "pnpdevice-radio", Run: d.strategyPnpRadio},
		{Name: "Enable-NetAdapter", Run: d.strategyEnableNetAdapter},
		{Name: "pnpdevice-wireless", Run: d.strategyPnpWireless},
	})
	return EnableResult{Steps: res.Steps, FinalState: State(res.FinalState)}
}

func (d *WindowsDriver) RestartNetwork() RestartResult {
	adapter := d.AdapterName()
	var steps []strategy.Step

	ok1, _ := powershell(20*time.Second, `Disable-NetAdapter -Name "`+adapter+`" -Confirm:$false`)
	steps = append(steps, strategy.Step{Name: "disable", OK: ok1})
	time.Sleep(3 * time.Second)

	ok2, _ := powershell(20*time.Second, `Enable-NetAdapter -Name "`+adapter+`" -Confirm:$false`)
	steps = append(steps, strategy.Step{Name: "enable", OK: ok2})
	time.Sleep(d.settle)

	ok3, _ := d.FlushDNS()
	steps = append(steps, strategy.Step{Name: "flush_dns", OK: ok3})

	RunCmd(15*time.Second, "ipconfig", "/release")
	time.Sleep(2 * time.Second)
	ok4, _ := RunCmd(30*time.Second, "ipconfig", "/renew")
	steps = append(steps, strategy.Step{Name: "renew_ip", OK: ok4})
	time.Sleep(3 * time.Second)

	ok5 := PingHost(1, 2000)
	steps = append(steps, strategy.Step{Name: "ping_check", OK: ok5})
	return RestartResult{Steps: steps, Internet: ok5}
}

func (d *WindowsDriver) FlushDNS() (bool, string) {
	return RunCmd(15*time.Second, "ipconfig", "/flushdns")
}

var _ Driver = (*WindowsDriver)(nil)
