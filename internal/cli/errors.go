package cli

// Exit codes reported by the gopheros tool.
const (
	// Generic failure
	ExitCodeGeneric = 1

	// No valid RSDP was found in the supplied memory
	ExitCodeRSDPNotFound = 2

	// Invalid configuration or flags
	ExitCodeBadConfig = 3

	// A memory image could not be read or loaded
	ExitCodeBadImage = 4

	// An output file could not be written
	ExitCodeWriteFailed = 5
)

// ExitError is an error that carries the process exit code to use.
type ExitError struct {
	err  string
	code int
}

func (e *ExitError) Error() string {
	return e.err
}

// ExitCode returns the exit code for this error.
func (e *ExitError) ExitCode() int {
	return e.code
}

// NewFromError generates an ExitError from an existing error,
// maintaining its error message
func NewFromError(err error, code int) error {
	if err == nil {
		return nil
	}

	return &ExitError{err: err.Error(), code: code}
}

// NewExitError generates an ExitError from a string
func NewExitError(err string, code int) error {
	return &ExitError{err: err, code: code}
}
