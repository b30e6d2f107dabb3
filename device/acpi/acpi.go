package acpi

import (
	"gopheros/device/acpi/table"
	"gopheros/kernel"
	"gopheros/kernel/kfmt"
)

type acpiDriver struct {
	// rsdp is a copy of the root system descriptor pointer located while
	// probing. It is never mutated.
	rsdp table.RSDPDescriptor
}

// DriverInit initializes this driver.
func (drv *acpiDriver) DriverInit(log kfmt.Logger) *kernel.Error {
	tableName := "RSDT"
	if drv.useXSDT() {
		tableName = "XSDT"
	}

	log.Infof("RSDP revision %d (OEM %q), %s at 0x%16x",
		drv.rsdp.Revision,
		string(drv.rsdp.OEMID[:]),
		tableName,
		drv.rsdp.SDTAddress(),
	)

	return nil
}

// DriverName returns the name of this driver.
func (*acpiDriver) DriverName() string {
	return "ACPI"
}

// DriverVersion returns the version of this driver.
func (*acpiDriver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// useXSDT returns true if the driver must use the XSDT instead of the RSDT.
func (drv *acpiDriver) useXSDT() bool {
	return drv.rsdp.Revision >= table.RevisionACPI2Plus
}

// SDTAddress returns the physical address of the root table (RSDT or XSDT)
// that ACPI table parsing starts from.
func (drv *acpiDriver) SDTAddress() uintptr {
	return drv.rsdp.SDTAddress()
}
