// Package hal runs hardware detection by probing every registered device
// driver.
package hal

import (
	"gopheros/device"
	"gopheros/kernel/kfmt"
)

var (
	driverListFn = device.DriverList

	// devices holds the drivers that were successfully detected and
	// initialized.
	devices []device.Driver
)

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers. Drivers that fail to initialize are logged and skipped.
func DetectHardware(log kfmt.Logger) {
	devices = devices[:0]

	for _, info := range driverListFn() {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		major, minor, patch := drv.DriverVersion()
		log.Debugf("[hal] %s(%d.%d.%d): detected", drv.DriverName(), major, minor, patch)

		if err := drv.DriverInit(log); err != nil {
			log.Errorf("[hal] %s(%d.%d.%d): init failed: %s", drv.DriverName(), major, minor, patch, err.Message)
			continue
		}

		log.Infof("[hal] %s(%d.%d.%d): initialized", drv.DriverName(), major, minor, patch)
		devices = append(devices, drv)
	}
}

// ActiveDrivers returns the drivers initialized by the last DetectHardware
// call.
func ActiveDrivers() []device.Driver {
	out := make([]device.Driver, len(devices))
	copy(out, devices)
	return out
}
