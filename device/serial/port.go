package serial

import (
	"sync"
)

// Port serializes access to a UART. Only one writer can be transmitting at
// any time; other writers block until the port is released.
type Port struct {
	mu   sync.Mutex
	uart UART

	receiver func(byte)
}

// NewPort returns a Port that drives uart.
func NewPort(uart UART) *Port {
	return &Port{uart: uart}
}

// Write transmits every byte of buf in order and returns len(buf). It
// implements io.Writer so a Port can be used as a log sink.
func (p *Port) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range buf {
		p.uart.Send(b)
	}

	return len(buf), nil
}

// SetReceiver installs the function that HandleInterrupt passes received
// bytes to.
func (p *Port) SetReceiver(fn func(byte)) {
	p.mu.Lock()
	p.receiver = fn
	p.mu.Unlock()
}

// HandleInterrupt drains the UART receive buffer, forwards each byte to the
// installed receiver and returns the number of bytes drained. It is called
// by the serial IRQ handler.
func (p *Port) HandleInterrupt() int {
	var received []byte

	p.mu.Lock()
	for {
		b, ok := p.uart.Receive()
		if !ok {
			break
		}
		received = append(received, b)
	}
	receiver := p.receiver
	p.mu.Unlock()

	if receiver != nil {
		for _, b := range received {
			receiver(b)
		}
	}

	return len(received)
}
