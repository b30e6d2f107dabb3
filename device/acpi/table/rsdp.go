// Package table contains the binary layouts of the ACPI structures the kernel
// reads from firmware memory.
package table

import (
	"encoding/binary"
)

const (
	// RevisionACPI1 is the RSDP revision reported by ACPI 1.0 firmware.
	RevisionACPI1 uint8 = 0

	// RevisionACPI2Plus is the RSDP revision reported by ACPI 2.0 to 6.x
	// firmware.
	RevisionACPI2Plus uint8 = 2

	// SizeofRSDP is the length of the ACPI 1.0 part of the RSDP. The
	// checksum field covers these bytes.
	SizeofRSDP = 20

	// SizeofExtRSDP is the length of the extended RSDP. The extended
	// checksum field covers these bytes.
	SizeofExtRSDP = 36
)

// Byte offsets of the RSDP fields. All multi-byte fields are little-endian.
const (
	offSignature        = 0
	offChecksum         = 8
	offOEMID            = 9
	offRevision         = 15
	offRSDTAddr         = 16
	offLength           = 20
	offXSDTAddr         = 24
	offExtendedChecksum = 32
	offReserved         = 33
)

// RSDPSignature is the signature that marks an RSDP ("RSD PTR ", last byte
// is a space).
var RSDPSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// RSDPDescriptor defines the root system descriptor pointer. This is used as
// the entry-point for parsing ACPI data. The fields after RSDTAddr are only
// meaningful when Revision is RevisionACPI2Plus.
type RSDPDescriptor struct {
	// The signature must contain "RSD PTR " (last byte is a space).
	Signature [8]byte

	// A value that when added to the sum of all other bytes contained in
	// the first SizeofRSDP bytes of the descriptor should result in the
	// value 0.
	Checksum uint8

	OEMID [6]byte

	// ACPI revision number. It is 0 for ACPI1.0 and 2 for versions 2.0 to 6.2.
	Revision uint8

	// Physical address of 32-bit root system descriptor table.
	RSDTAddr uint32

	// The size of the extended descriptor.
	Length uint32

	// Physical address of 64-bit root system descriptor table.
	XSDTAddr uint64

	// A value that when added to the sum of all other bytes contained in
	// the extended descriptor should result in the value 0.
	ExtendedChecksum uint8

	Reserved [3]byte
}

// ParseRSDP decodes the RSDP stored at the start of b and validates it. The
// second return value is false if b is too short for the revision it
// declares, if the signature does not match, if the revision is neither
// RevisionACPI1 nor RevisionACPI2Plus or if a checksum does not add up.
func ParseRSDP(b []byte) (RSDPDescriptor, bool) {
	desc, ok := decodeRSDP(b)
	if !ok || !desc.Valid() {
		return RSDPDescriptor{}, false
	}

	return desc, true
}

// HasSignature returns true if b starts with RSDPSignature.
func HasSignature(b []byte) bool {
	if len(b) < len(RSDPSignature) {
		return false
	}

	for i, c := range RSDPSignature {
		if b[i] != c {
			return false
		}
	}

	return true
}

// decodeRSDP performs a field-by-field decode of b. Only the ACPI 1.0 fields
// are decoded when the revision is not RevisionACPI2Plus.
func decodeRSDP(b []byte) (RSDPDescriptor, bool) {
	var desc RSDPDescriptor

	if len(b) < SizeofRSDP {
		return desc, false
	}

	copy(desc.Signature[:], b[offSignature:offChecksum])
	desc.Checksum = b[offChecksum]
	copy(desc.OEMID[:], b[offOEMID:offRevision])
	desc.Revision = b[offRevision]
	desc.RSDTAddr = binary.LittleEndian.Uint32(b[offRSDTAddr:offLength])

	if desc.Revision < RevisionACPI2Plus {
		return desc, true
	}

	if len(b) < SizeofExtRSDP {
		return desc, false
	}

	desc.Length = binary.LittleEndian.Uint32(b[offLength:offXSDTAddr])
	desc.XSDTAddr = binary.LittleEndian.Uint64(b[offXSDTAddr:offExtendedChecksum])
	desc.ExtendedChecksum = b[offExtendedChecksum]
	copy(desc.Reserved[:], b[offReserved:SizeofExtRSDP])

	return desc, true
}

// Bytes encodes the descriptor using its firmware layout. The returned slice
// is SizeofRSDP bytes long for ACPI 1.0 descriptors and SizeofExtRSDP bytes
// long otherwise.
func (d *RSDPDescriptor) Bytes() []byte {
	size := SizeofRSDP
	if d.Revision >= RevisionACPI2Plus {
		size = SizeofExtRSDP
	}

	b := make([]byte, size)
	copy(b[offSignature:], d.Signature[:])
	b[offChecksum] = d.Checksum
	copy(b[offOEMID:], d.OEMID[:])
	b[offRevision] = d.Revision
	binary.LittleEndian.PutUint32(b[offRSDTAddr:], d.RSDTAddr)

	if size == SizeofExtRSDP {
		binary.LittleEndian.PutUint32(b[offLength:], d.Length)
		binary.LittleEndian.PutUint64(b[offXSDTAddr:], d.XSDTAddr)
		b[offExtendedChecksum] = d.ExtendedChecksum
		copy(b[offReserved:], d.Reserved[:])
	}

	return b
}

// Valid returns true if the descriptor carries the RSDP signature, a
// supported revision and correct checksums for that revision.
func (d *RSDPDescriptor) Valid() bool {
	if d.Signature != RSDPSignature {
		return false
	}

	switch d.Revision {
	case RevisionACPI1, RevisionACPI2Plus:
	default:
		return false
	}

	b := d.Bytes()
	if Checksum(b[:SizeofRSDP]) != 0 {
		return false
	}

	if d.Revision == RevisionACPI2Plus && Checksum(b) != 0 {
		return false
	}

	return true
}

// IsACPI1 returns true if the descriptor was published by ACPI 1.0 firmware.
func (d *RSDPDescriptor) IsACPI1() bool {
	return d.Revision == RevisionACPI1
}

// IsACPI2 returns true if the descriptor was published by ACPI 2.0+ firmware.
func (d *RSDPDescriptor) IsACPI2() bool {
	return d.Revision == RevisionACPI2Plus
}

// SDTAddress returns the physical address of the XSDT for ACPI 2.0+
// descriptors and the address of the RSDT otherwise.
func (d *RSDPDescriptor) SDTAddress() uintptr {
	if d.Revision >= RevisionACPI2Plus {
		return uintptr(d.XSDTAddr)
	}

	return uintptr(d.RSDTAddr)
}

// Checksum returns the modulo 256 sum of all bytes in b.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}

	return sum
}

// Seal updates the checksum fields so that the descriptor validates.
func (d *RSDPDescriptor) Seal() {
	d.Checksum = 0
	d.ExtendedChecksum = 0

	b := d.Bytes()
	d.Checksum = -Checksum(b[:SizeofRSDP])

	if d.Revision >= RevisionACPI2Plus {
		b = d.Bytes()
		d.ExtendedChecksum = -Checksum(b)
	}
}
