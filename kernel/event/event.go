// Package event delivers readiness notifications from resources to the
// contexts waiting on them.
package event

import (
	"sync"

	"gopheros/kernel/scheme"
	"gopheros/kernel/syscall"
)

// Event describes a readiness change of a scheme resource.
type Event struct {
	// Scheme is the ID of the scheme that raised the event.
	Scheme scheme.ID

	// Sub identifies the subscription (usually a handle) within the scheme.
	Sub uintptr

	// Flags describes the readiness conditions that are now met.
	Flags syscall.EventFlags

	// Data carries an event-specific payload, e.g. the number of bytes
	// available for reading.
	Data int
}

// Listener is invoked for every event raised by the scheme it was registered
// for. Listeners run on the context that calls Trigger (often an interrupt
// handler) and must not block.
type Listener func(Event)

type registration struct {
	id uint64
	fn Listener
}

var (
	mu        sync.RWMutex
	nextID    uint64
	listeners = make(map[scheme.ID][]registration)
)

// Register adds fn to the listeners of the scheme with the given id. The
// returned function removes the registration.
func Register(id scheme.ID, fn Listener) (unregister func()) {
	mu.Lock()
	nextID++
	reg := registration{id: nextID, fn: fn}
	listeners[id] = append(listeners[id], reg)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()

		regs := listeners[id]
		for i, r := range regs {
			if r.id == reg.id {
				listeners[id] = append(regs[:i:i], regs[i+1:]...)
				break
			}
		}

		if len(listeners[id]) == 0 {
			delete(listeners, id)
		}
	}
}

// Trigger raises an event for the scheme with the given id, waking any
// context waiting on it. It returns the number of listeners notified.
func Trigger(id scheme.ID, sub uintptr, flags syscall.EventFlags, data int) int {
	mu.RLock()
	regs := listeners[id]
	mu.RUnlock()

	ev := Event{Scheme: id, Sub: sub, Flags: flags, Data: data}
	for _, r := range regs {
		r.fn(ev)
	}

	return len(regs)
}
