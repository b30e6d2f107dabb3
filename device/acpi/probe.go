package acpi

import (
	"gopheros/device"
	"gopheros/kernel/boot"
	"gopheros/kernel/mm/vmm"
)

var (
	activeSpaceFn = vmm.Active
	bootRegionFn  = boot.ACPIRegion
)

func probeForACPI() device.Driver {
	as := activeSpaceFn()
	if as == nil {
		return nil
	}

	if rsdp, ok := LocateRSDP(as, bootRegionFn()); ok {
		return &acpiDriver{rsdp: rsdp}
	}

	return nil
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderACPI,
		Probe: probeForACPI,
	})
}
