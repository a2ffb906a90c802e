package asyncio

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// ServerSocketStatus is a ServerSocket's lifecycle state.
type ServerSocketStatus int32

const (
	ServerSocketIdle ServerSocketStatus = iota
	ServerSocketListening
	ServerSocketClosed
)

func (s ServerSocketStatus) String() string {
	switch s {
	case ServerSocketIdle:
		return "idle"
	case ServerSocketListening:
		return "listening"
	case ServerSocketClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServerSocket is a nonblocking TCP listener, driven by a Reactor, that
// emits a "connect" event (with an already-CONNECTED Socket as Client) for
// every accepted peer. Grounded in shape on the teacher's eventtarget.go
// emitter pattern and the gaio watcher's accept-loop-to-EAGAIN idiom.
type ServerSocket struct {
	fd      int
	status  ServerSocketStatus
	reactor *Reactor
	sched   *PromiseScheduler
	logger  Logger
	emitter *socketEmitter

	backlog int
}

// NewServerSocket creates a nonblocking IPv4 TCP socket with SO_REUSEADDR
// set, ready for Bind/Listen.
func NewServerSocket(reactor *Reactor, sched *PromiseScheduler, opts ...SocketOption) (*ServerSocket, error) {
	cfg := resolveSocketOptions(opts)

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &SocketError{Kind: SocketCreate, Errno: errnoFrom(err)}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, &SocketError{Kind: SocketMakeNonBlock, Errno: errnoFrom(err)}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, &SocketError{Kind: SocketReuseAddr, Errno: errnoFrom(err)}
	}

	return &ServerSocket{
		fd:      fd,
		status:  ServerSocketIdle,
		reactor: reactor,
		sched:   sched,
		logger:  cfg.logger,
		emitter: newSocketEmitter(),
	}, nil
}

// Bind binds the listening socket to addr:port. Pass [4]byte{} for any
// local address (INADDR_ANY).
func (s *ServerSocket) Bind(addr [4]byte, port int) error {
	sa := &unix.SockaddrInet4{Port: port, Addr: addr}
	if err := unix.Bind(s.fd, sa); err != nil {
		return &SocketError{Kind: SocketBind, Errno: errnoFrom(err)}
	}
	return nil
}

// Listen marks the socket as listening with the given backlog and
// registers it with the reactor for read (connection-pending) readiness.
func (s *ServerSocket) Listen(backlog int) error {
	if err := unix.Listen(s.fd, backlog); err != nil {
		return &SocketError{Kind: SocketListen, Errno: errnoFrom(err)}
	}
	s.backlog = backlog
	s.status = ServerSocketListening
	if err := s.reactor.Register(s.fd, EventRead, s); err != nil {
		return err
	}
	logInfo(s.logger, "server socket listening", "fd", strconv.Itoa(s.fd))
	return nil
}

// Status returns the listener's current lifecycle state.
func (s *ServerSocket) Status() ServerSocketStatus { return s.status }

// LocalAddr returns the bound local address.
func (s *ServerSocket) LocalAddr() (*unix.SockaddrInet4, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil, &SocketError{Kind: SocketGetLocalAddr, Errno: errnoFrom(err)}
	}
	addr, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return nil, &SocketError{Kind: SocketGetLocalAddr}
	}
	return addr, nil
}

// On registers a SocketListener; "connect" and "error"/"close" events are
// the only kinds a ServerSocket emits.
func (s *ServerSocket) On(fn SocketListener) ListenerID { return s.emitter.On(fn) }

// Off removes a previously registered listener.
func (s *ServerSocket) Off(id ListenerID) { s.emitter.Off(id) }

// OnEvent implements ReactorTarget: it accepts every pending connection in
// a loop, wrapping each in a Socket and emitting "connect", until
// EAGAIN/EWOULDBLOCK signals the backlog is drained for now.
func (s *ServerSocket) OnEvent(events IOEvents) {
	if events&EventError != 0 {
		s.fail(&SocketError{Kind: SocketAccept})
		return
	}
	for {
		fd, _, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.fail(&SocketError{Kind: SocketAccept, Errno: errnoFrom(err)})
			return
		}
		// getpeername rather than trusting Accept4's returned sockaddr: it
		// can fail independently (the peer may have reset the connection
		// between accept and this call), and SPEC_FULL.md §12 supplements a
		// distinct SocketGetPeerAddr reason for exactly that case.
		rsa, err := unix.Getpeername(fd)
		if err != nil {
			_ = unix.Close(fd)
			logErr(s.logger, "failed to get accepted peer address", &SocketError{Kind: SocketGetPeerAddr, Errno: errnoFrom(err)})
			continue
		}
		remote, ok := rsa.(*unix.SockaddrInet4)
		if !ok {
			_ = unix.Close(fd)
			continue
		}
		var local *unix.SockaddrInet4
		if lsa, err := unix.Getsockname(fd); err == nil {
			local, _ = lsa.(*unix.SockaddrInet4)
		}
		client, err := newAcceptedSocket(fd, s.reactor, s.sched, s.logger, local, remote)
		if err != nil {
			logErr(s.logger, "failed to register accepted socket", err)
			continue
		}
		s.emitter.emit(SocketEvent{Kind: SocketEventConnect, Client: client})
	}
}

// fail emits an error event and panics, matching Socket's treatment of
// fatal non-EAGAIN I/O errors (§4.6).
func (s *ServerSocket) fail(err error) {
	logErr(s.logger, "server socket I/O error", err)
	s.emitter.emit(SocketEvent{Kind: SocketEventError, Err: err})
	panic(err)
}

// Close stops accepting, unregisters from the reactor, and closes the fd.
func (s *ServerSocket) Close() {
	if s.status == ServerSocketClosed {
		return
	}
	s.status = ServerSocketClosed
	s.reactor.Unregister(s.fd)
	_ = unix.Close(s.fd)
	logInfo(s.logger, "server socket closed", "fd", strconv.Itoa(s.fd))
	s.emitter.emit(SocketEvent{Kind: SocketEventClose})
}
