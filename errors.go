package asyncio

import (
	"errors"
	"fmt"
	"syscall"
)

// GeneratorErrorKind enumerates the ways a Generator operation can fail.
type GeneratorErrorKind int

const (
	// GeneratorAlreadyRunning is raised by next/throw_in when the generator
	// is already RUNNING (reentrant resume).
	GeneratorAlreadyRunning GeneratorErrorKind = iota
	// GeneratorNotRunning is raised when an operation requires the
	// generator's body to be the currently executing flow and it is not.
	GeneratorNotRunning
)

func (k GeneratorErrorKind) String() string {
	switch k {
	case GeneratorAlreadyRunning:
		return "already running"
	case GeneratorNotRunning:
		return "not running"
	default:
		return "unknown"
	}
}

// GeneratorError reports a misuse of a Generator's resume operations.
type GeneratorError struct {
	Kind GeneratorErrorKind
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator: %s", e.Kind)
}

// ReactorErrorKind enumerates the Reactor's failure modes.
type ReactorErrorKind int

const (
	// ReactorInit is raised when the kernel multiplexer cannot be created.
	ReactorInit ReactorErrorKind = iota
	// ReactorQuery is raised when a readiness poll fails.
	ReactorQuery
	// ReactorReg is raised when adding/modifying/removing an fd's
	// interests with the kernel multiplexer fails.
	ReactorReg
)

func (k ReactorErrorKind) String() string {
	switch k {
	case ReactorInit:
		return "init"
	case ReactorQuery:
		return "query"
	case ReactorReg:
		return "reg"
	default:
		return "unknown"
	}
}

// ReactorError carries a Reactor failure and the OS errno that caused it.
type ReactorError struct {
	Kind  ReactorErrorKind
	Errno syscall.Errno
}

func (e *ReactorError) Error() string {
	return fmt.Sprintf("reactor: %s: %s", e.Kind, e.Errno)
}

func (e *ReactorError) Unwrap() error {
	return e.Errno
}

// SocketErrorKind enumerates the Socket/ServerSocket failure modes.
type SocketErrorKind int

const (
	SocketCreate SocketErrorKind = iota
	SocketMakeNonBlock
	SocketReuseAddr
	SocketBind
	SocketListen
	SocketConnect
	SocketAccept
	SocketRead
	SocketWrite
	SocketGetLocalAddr
	// SocketGetPeerAddr is supplemented relative to the distilled spec:
	// getpeername can fail independently of getsockname on accept.
	SocketGetPeerAddr
	SocketClose
)

func (k SocketErrorKind) String() string {
	switch k {
	case SocketCreate:
		return "create"
	case SocketMakeNonBlock:
		return "make non-blocking"
	case SocketReuseAddr:
		return "reuse addr"
	case SocketBind:
		return "bind"
	case SocketListen:
		return "listen"
	case SocketConnect:
		return "connect"
	case SocketAccept:
		return "accept"
	case SocketRead:
		return "read"
	case SocketWrite:
		return "write"
	case SocketGetLocalAddr:
		return "get local addr"
	case SocketGetPeerAddr:
		return "get peer addr"
	case SocketClose:
		return "close"
	default:
		return "unknown"
	}
}

// SocketError carries a Socket/ServerSocket failure and the OS errno that
// caused it.
type SocketError struct {
	Kind  SocketErrorKind
	Errno syscall.Errno
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("socket: %s: %s", e.Kind, e.Errno)
}

func (e *SocketError) Unwrap() error {
	return e.Errno
}

// TypeError reports a promise resolved with itself, mirroring JavaScript's
// Promises/A+ 2.3.1 requirement. Grounded on the teacher's errors.go.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: %s", e.Message)
}

// BadCastError is returned by AwaitAs when the awaited promise's fulfillment
// value is not of the requested type. Catch handlers receive the rejection
// reason as a plain error; no Catch variant checks its dynamic type.
type BadCastError struct {
	Want string
	Got  any
}

func (e *BadCastError) Error() string {
	return fmt.Sprintf("bad cast: want %s, got %T", e.Want, e.Got)
}

// PanicError wraps a panic value recovered from a promise executor,
// continuation callback, or generator body.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panicked: %v", e.Value)
}

// Unwrap allows errors.Is/errors.As to see through to a panic value that
// was itself an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// recoverAsError converts a recovered panic value into an error suitable
// for a promise rejection or generator termination. Returns nil if r is
// nil (i.e. no panic occurred).
func recoverAsError(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return PanicError{Value: err}
	}
	return PanicError{Value: r}
}

// errnoFrom extracts a syscall.Errno from err, defaulting to 0 if err does
// not wrap one.
func errnoFrom(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
