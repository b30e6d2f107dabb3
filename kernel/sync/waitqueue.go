// Package sync provides the blocking primitives shared by kernel resources.
package sync

import (
	"sync"
)

// WaitQueue is an unbounded FIFO buffer. Receivers may block until at least
// one element is available. Each Send and ReceiveInto call is atomic with
// respect to other calls on the same queue.
type WaitQueue[T any] struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []T
}

// NewWaitQueue returns an empty queue.
func NewWaitQueue[T any]() *WaitQueue[T] {
	q := &WaitQueue[T]{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Send appends v to the queue, wakes any blocked receivers and returns the
// number of queued elements after the append.
func (q *WaitQueue[T]) Send(v T) int {
	q.mu.Lock()
	q.items = append(q.items, v)
	n := len(q.items)
	q.mu.Unlock()

	q.ready.Broadcast()
	return n
}

// ReceiveInto moves up to len(buf) queued elements into buf, oldest first,
// and returns the number of elements copied.
//
// If the queue is empty and block is false, ReceiveInto returns 0 right
// away. If block is true, the caller is suspended until an element becomes
// available; whatever is queued at that point is drained without waiting
// again. A zero-length buf never blocks.
func (q *WaitQueue[T]) ReceiveInto(buf []T, block bool) int {
	if len(buf) == 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for block && len(q.items) == 0 {
		q.ready.Wait()
	}

	n := copy(buf, q.items)

	// Drop the references held by the backing array so drained elements
	// can be collected.
	var zero T
	for i := 0; i < n; i++ {
		q.items[i] = zero
	}
	q.items = q.items[n:]
	if len(q.items) == 0 {
		q.items = nil
	}

	return n
}

// Len returns the number of queued elements.
func (q *WaitQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
