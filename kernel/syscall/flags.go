package syscall

// EventFlags describes the readiness conditions an event reports or a
// subscriber is interested in.
type EventFlags uint

const (
	// EventRead is set when a resource has data available for reading.
	EventRead EventFlags = 1 << iota

	// EventWrite is set when a resource can accept more data.
	EventWrite
)

// Has returns true if all bits in other are set in f.
func (f EventFlags) Has(other EventFlags) bool {
	return f&other == other
}
