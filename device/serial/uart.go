// Package serial drives the 16550-compatible serial ports used for the kernel
// debug console.
package serial

// PortIO is implemented by code that can access x86 I/O ports.
type PortIO interface {
	In8(port uint16) uint8
	Out8(port uint16, value uint8)
}

// UART is a byte-oriented serial transceiver.
type UART interface {
	// Send transmits b, waiting until the transmitter can accept it.
	Send(b byte)

	// Receive returns the next received byte. The second return value is
	// false if no data is pending.
	Receive() (byte, bool)
}

// I/O port base addresses of the standard PC serial ports.
const (
	COM1Base uint16 = 0x3f8
	COM2Base uint16 = 0x2f8
)

// 16550 register offsets.
const (
	regData        = 0
	regIntEnable   = 1
	regFIFOControl = 2
	regLineControl = 3
	regModemCtrl   = 4
	regLineStatus  = 5

	// With the DLAB bit set, offsets 0 and 1 hold the baud rate divisor.
	regDivisorLo = 0
	regDivisorHi = 1
)

const (
	lineStatusDataReady = 1 << 0
	lineStatusTHREmpty  = 1 << 5

	lineControlDLAB = 1 << 7
	lineControl8N1  = 0x03

	// Enable and clear both FIFOs with a 14-byte receive threshold.
	fifoControlEnable = 0xc7

	// DTR, RTS and OUT2 (OUT2 gates the IRQ line).
	modemControlIRQ = 0x0b

	intEnableReceive = 1 << 0

	// The UART's input clock divided by 16.
	baseBaudRate = 115200
)

// UART16550 drives a 16550-compatible UART through port-mapped I/O.
type UART16550 struct {
	io   PortIO
	base uint16
}

// NewUART16550 returns a driver for the UART at the given I/O port base.
func NewUART16550(io PortIO, base uint16) *UART16550 {
	return &UART16550{io: io, base: base}
}

// Init programs the UART for the requested baud rate with 8 data bits, no
// parity and one stop bit and enables the receive interrupt.
func (u *UART16550) Init(baudRate uint32) {
	divisor := uint16(1)
	if baudRate > 0 && baudRate <= baseBaudRate {
		divisor = uint16(baseBaudRate / baudRate)
	}

	u.io.Out8(u.base+regIntEnable, 0)
	u.io.Out8(u.base+regLineControl, lineControlDLAB)
	u.io.Out8(u.base+regDivisorLo, uint8(divisor))
	u.io.Out8(u.base+regDivisorHi, uint8(divisor>>8))
	u.io.Out8(u.base+regLineControl, lineControl8N1)
	u.io.Out8(u.base+regFIFOControl, fifoControlEnable)
	u.io.Out8(u.base+regModemCtrl, modemControlIRQ)
	u.io.Out8(u.base+regIntEnable, intEnableReceive)
}

// Send implements UART.
func (u *UART16550) Send(b byte) {
	for u.io.In8(u.base+regLineStatus)&lineStatusTHREmpty == 0 {
	}

	u.io.Out8(u.base+regData, b)
}

// Receive implements UART.
func (u *UART16550) Receive() (byte, bool) {
	if u.io.In8(u.base+regLineStatus)&lineStatusDataReady == 0 {
		return 0, false
	}

	return u.io.In8(u.base + regData), true
}
