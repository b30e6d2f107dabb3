// Package syscall defines the error and flag vocabulary shared by the
// system call layer and the resource schemes it dispatches to.
package syscall

// Errno is an OS-style error number.
type Errno int

// The list of error numbers returned by scheme operations.
const (
	EPERM   Errno = 1
	ENOENT  Errno = 2
	EINTR   Errno = 4
	EIO     Errno = 5
	EBADF   Errno = 9
	EAGAIN  Errno = 11
	ENOMEM  Errno = 12
	EACCES  Errno = 13
	EFAULT  Errno = 14
	EBUSY   Errno = 16
	EEXIST  Errno = 17
	ENODEV  Errno = 19
	EINVAL  Errno = 22
	ENOSPC  Errno = 28
	ESPIPE  Errno = 29
	ENOSYS  Errno = 38
	ENOTSUP Errno = 95
)

var errnoNames = map[Errno]string{
	EPERM:   "operation not permitted",
	ENOENT:  "no such file or directory",
	EINTR:   "interrupted system call",
	EIO:     "I/O error",
	EBADF:   "bad file number",
	EAGAIN:  "try again",
	ENOMEM:  "out of memory",
	EACCES:  "permission denied",
	EFAULT:  "bad address",
	EBUSY:   "device or resource busy",
	EEXIST:  "file exists",
	ENODEV:  "no such device",
	EINVAL:  "invalid argument",
	ENOSPC:  "no space left on device",
	ESPIPE:  "illegal seek",
	ENOSYS:  "function not implemented",
	ENOTSUP: "operation not supported",
}

// String returns a description of the error number.
func (e Errno) String() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return "unknown error"
}

// Error is the typed failure returned by scheme operations.
type Error struct {
	Errno Errno
}

// New returns an Error carrying errno.
func New(errno Errno) *Error {
	return &Error{Errno: errno}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Errno.String()
}
