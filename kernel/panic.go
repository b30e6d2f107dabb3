package kernel

import (
	"gopheros/kernel/kfmt"
)

var (
	// cpuHaltFn parks the calling context forever. It is a variable so
	// tests can observe a halt without stopping the test binary.
	cpuHaltFn = func() { select {} }
)

// runtimeModule tags errors raised through panic() rather than kernel code.
const runtimeModule = "rt"

// Panic outputs the supplied error (if not nil) to the kernel log and halts
// the CPU. Calls to Panic never return. Panic also works as a redirection
// target for calls to panic() (resolved via runtime.gopanic)
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		err = &Error{Module: runtimeModule, Message: t}
	case error:
		err = &Error{Module: runtimeModule, Message: t.Error()}
	}

	log := kfmt.Default()
	log.Error("-----------------------------------")
	if err != nil {
		log.Errorf("[%s] unrecoverable error: %s", err.Module, err.Message)
	}
	log.Error("*** kernel panic: system halted ***")
	log.Error("-----------------------------------")

	cpuHaltFn()
}
