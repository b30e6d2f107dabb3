package sync

import "sync"

// Once holds a lazily constructed value. The constructor passed to Get runs
// at most once, even when Get is called concurrently before the value
// exists; every caller observes the same value.
type Once[T any] struct {
	once  sync.Once
	value T
}

// Get returns the held value, calling init to construct it on first use.
func (o *Once[T]) Get(init func() T) T {
	o.once.Do(func() {
		o.value = init()
	})

	return o.value
}
