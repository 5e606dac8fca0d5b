//go:build !windows && !darwin

package netdrv

import "log"

// Linux, containers, cloud hosts: no real WiFi hardware to drive.
func newPlatformDriver() Driver {
	log.Println("Linux/Cloud detected — using CloudDriver (simulated WiFi)")
	return NewCloudDriver()
}
