package asyncio

import (
	"strconv"

	"golang.org/x/sys/unix"
)

// SocketStatus is a Socket's connection lifecycle state.
type SocketStatus int32

const (
	SocketIdle SocketStatus = iota
	SocketConnecting
	SocketConnected
	SocketHalfClosed
	SocketClosed
)

func (s SocketStatus) String() string {
	switch s {
	case SocketIdle:
		return "idle"
	case SocketConnecting:
		return "connecting"
	case SocketConnected:
		return "connected"
	case SocketHalfClosed:
		return "half-closed"
	case SocketClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// pendingWrite is a write-completion record: the bytes_written threshold
// at which it becomes resolvable, and the capability to resolve it.
type pendingWrite struct {
	target int64
	ctx    *PromiseCtx
}

// Socket is a nonblocking TCP connection state machine driven by a
// Reactor. It is its own ReactorTarget. Grounded in shape on the gaio
// watcher (other_examples/9c88e704_socket515-gaio__watcher.go.go) for the
// raw-syscall-plus-reactor approach, and on the teacher's event-driven
// dispatch style, but the state machine itself (write-queue targets,
// HALF_CLOSED, read-drain-to-EAGAIN) is this spec's own design (§4.6).
type Socket struct {
	fd      int
	status  SocketStatus
	reactor *Reactor
	sched   *PromiseScheduler
	logger  Logger
	emitter *socketEmitter

	localAddr  *unix.SockaddrInet4
	remoteAddr *unix.SockaddrInet4

	writeBuf      []byte
	bytesRead     int64
	bytesWritten  int64
	pendingWrites []pendingWrite

	localClosed bool
	peerClosed  bool

	connectCtx *PromiseCtx
}

// NewSocket creates a nonblocking IPv4 TCP socket and registers it with
// reactor, ready for Connect. Interests are EventRead|EventWrite from the
// start, since a connecting client needs writable readiness to detect
// connect completion (§4.5).
func NewSocket(reactor *Reactor, sched *PromiseScheduler, opts ...SocketOption) (*Socket, error) {
	cfg := resolveSocketOptions(opts)

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &SocketError{Kind: SocketCreate, Errno: errnoFrom(err)}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, &SocketError{Kind: SocketMakeNonBlock, Errno: errnoFrom(err)}
	}

	s := &Socket{
		fd:      fd,
		status:  SocketIdle,
		reactor: reactor,
		sched:   sched,
		logger:  cfg.logger,
		emitter: newSocketEmitter(),
	}
	if err := reactor.Register(fd, EventRead|EventWrite, s); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// newAcceptedSocket wraps an already-connected fd (produced by
// ServerSocket's accept loop) as a CONNECTED Socket.
func newAcceptedSocket(fd int, reactor *Reactor, sched *PromiseScheduler, logger Logger, local, remote *unix.SockaddrInet4) (*Socket, error) {
	s := &Socket{
		fd:         fd,
		status:     SocketConnected,
		reactor:    reactor,
		sched:      sched,
		logger:     logger,
		emitter:    newSocketEmitter(),
		localAddr:  local,
		remoteAddr: remote,
	}
	if err := reactor.Register(fd, EventRead|EventWrite, s); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// Connect begins connecting to addr:port. The returned Promise resolves
// (with a nil Result) once the connection completes, or rejects with a
// SocketError.
func (s *Socket) Connect(addr [4]byte, port int) *Promise {
	var ctx *PromiseCtx
	p := NewPromise(s.sched, func(c *PromiseCtx) {
		ctx = c
		sa := &unix.SockaddrInet4{Port: port, Addr: addr}
		err := unix.Connect(s.fd, sa)
		if err == nil {
			s.status = SocketConnected
			s.remoteAddr = sa
			logInfo(s.logger, "socket connected", "fd", strconv.Itoa(s.fd))
			ctx.Resolve(nil)
			return
		}
		if err == unix.EINPROGRESS {
			s.status = SocketConnecting
			s.remoteAddr = sa
			s.connectCtx = ctx
			return
		}
		_ = unix.Close(s.fd)
		ctx.Reject(&SocketError{Kind: SocketConnect, Errno: errnoFrom(err)})
	})
	return p
}

// Status returns the socket's current connection state.
func (s *Socket) Status() SocketStatus { return s.status }

// BytesRead returns the cumulative count of bytes delivered via "data"
// events.
func (s *Socket) BytesRead() int64 { return s.bytesRead }

// BytesWritten returns the cumulative count of bytes the kernel has
// accepted from Write calls.
func (s *Socket) BytesWritten() int64 { return s.bytesWritten }

// BufferedLen returns the number of bytes still queued locally, not yet
// accepted by the kernel.
func (s *Socket) BufferedLen() int { return len(s.writeBuf) }

// LocalAddr returns the address bound on first successful bind/connect or
// accept.
func (s *Socket) LocalAddr() (*unix.SockaddrInet4, error) {
	if s.localAddr != nil {
		return s.localAddr, nil
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil, &SocketError{Kind: SocketGetLocalAddr, Errno: errnoFrom(err)}
	}
	addr, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return nil, &SocketError{Kind: SocketGetLocalAddr}
	}
	s.localAddr = addr
	return addr, nil
}

// RemoteAddr returns the peer address, definite once accepted or
// connected.
func (s *Socket) RemoteAddr() *unix.SockaddrInet4 { return s.remoteAddr }

// On registers a SocketListener and returns a handle usable with Off.
func (s *Socket) On(fn SocketListener) ListenerID { return s.emitter.On(fn) }

// Off removes a previously registered listener.
func (s *Socket) Off(id ListenerID) { s.emitter.Off(id) }

// Write appends data to the socket's write buffer, opportunistically
// drains it in 4096-byte chunks, and returns a Promise that resolves once
// every byte of data has been accepted by the kernel. If the buffer
// empties immediately, the returned Promise is already resolved.
func (s *Socket) Write(data []byte) *Promise {
	s.writeBuf = append(s.writeBuf, data...)
	s.drainWriteBuf(4096)

	if len(s.writeBuf) == 0 {
		return Resolved(s.sched, nil)
	}

	var ctx *PromiseCtx
	p := NewPromise(s.sched, func(c *PromiseCtx) { ctx = c })
	target := s.bytesWritten + int64(len(s.writeBuf))
	s.pendingWrites = append(s.pendingWrites, pendingWrite{target: target, ctx: ctx})
	return p
}

// Close half-closes the socket from the local side (shutdown for
// writing). Once the peer has also closed (FIN observed on read), the
// socket transitions to CLOSED, the fd is closed, and reactor
// unregistration happens automatically.
func (s *Socket) Close() {
	if s.localClosed {
		return
	}
	s.localClosed = true
	_ = unix.Shutdown(s.fd, unix.SHUT_WR)
	s.advanceCloseState()
}

// OnEvent implements ReactorTarget.
func (s *Socket) OnEvent(events IOEvents) {
	switch s.status {
	case SocketConnecting:
		s.handleConnecting(events)
	case SocketConnected, SocketHalfClosed:
		if events&EventError != 0 {
			s.fail(&SocketError{Kind: SocketRead})
			return
		}
		if events&EventRead != 0 {
			s.drainRead()
		}
		if s.status == SocketClosed {
			return
		}
		if events&EventWrite != 0 {
			s.drainWriteBuf(1024)
		}
	}
}

func (s *Socket) handleConnecting(events IOEvents) {
	if events&(EventWrite|EventError) == 0 {
		return
	}
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		s.failConnect(&SocketError{Kind: SocketConnect, Errno: errnoFrom(err)})
		return
	}
	if errno != 0 {
		s.failConnect(&SocketError{Kind: SocketConnect, Errno: unix.Errno(errno)})
		return
	}
	s.status = SocketConnected
	if s.connectCtx != nil {
		ctx := s.connectCtx
		s.connectCtx = nil
		ctx.Resolve(nil)
	}
	logInfo(s.logger, "socket connected", "fd", strconv.Itoa(s.fd))
}

func (s *Socket) failConnect(err error) {
	s.status = SocketClosed
	s.reactor.Unregister(s.fd)
	_ = unix.Close(s.fd)
	logErr(s.logger, "socket connect failed", err)
	s.emitter.emit(SocketEvent{Kind: SocketEventError, Err: err})
	if s.connectCtx != nil {
		ctx := s.connectCtx
		s.connectCtx = nil
		ctx.Reject(err)
	}
}

// fail rejects all pending writes, emits an error event, and panics —
// read/write errors that are not EAGAIN/EWOULDBLOCK are fatal to the
// current reactor tick per §4.6, and TaskLoop.RunOnce does not catch
// panics escaping a task.
func (s *Socket) fail(err error) {
	logErr(s.logger, "socket I/O error", err)
	s.emitter.emit(SocketEvent{Kind: SocketEventError, Err: err})
	for _, pw := range s.pendingWrites {
		pw.ctx.Reject(err)
	}
	s.pendingWrites = nil
	panic(err)
}

// drainRead loops unix.Read in 1024-byte chunks, appending to a scratch
// buffer, until EAGAIN/EWOULDBLOCK (no more data right now) or a 0-byte
// read (peer FIN).
func (s *Socket) drainRead() {
	var collected []byte
	buf := make([]byte, 1024)
	for {
		n, err := unix.Read(s.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			if len(collected) > 0 {
				s.bytesRead += int64(len(collected))
				s.emitter.emit(SocketEvent{Kind: SocketEventData, Data: collected})
			}
			s.fail(&SocketError{Kind: SocketRead, Errno: errnoFrom(err)})
			return
		}
		if n == 0 {
			if len(collected) > 0 {
				s.bytesRead += int64(len(collected))
				s.emitter.emit(SocketEvent{Kind: SocketEventData, Data: collected})
			}
			s.peerClosed = true
			s.emitter.emit(SocketEvent{Kind: SocketEventEnd})
			s.advanceCloseState()
			return
		}
		collected = append(collected, buf[:n]...)
	}
	if len(collected) > 0 {
		s.bytesRead += int64(len(collected))
		s.emitter.emit(SocketEvent{Kind: SocketEventData, Data: collected})
	}
}

// drainWriteBuf writes the buffered bytes in chunks of at most chunkSize,
// resolving head-of-queue pending writes as their target is reached, until
// the buffer empties or the kernel signals EAGAIN/EWOULDBLOCK.
func (s *Socket) drainWriteBuf(chunkSize int) {
	for len(s.writeBuf) > 0 {
		end := chunkSize
		if end > len(s.writeBuf) {
			end = len(s.writeBuf)
		}
		n, err := unix.Write(s.fd, s.writeBuf[:end])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.fail(&SocketError{Kind: SocketWrite, Errno: errnoFrom(err)})
			return
		}
		s.bytesWritten += int64(n)
		s.writeBuf = s.writeBuf[n:]
		s.resolveReadyWrites()
	}
}

func (s *Socket) resolveReadyWrites() {
	for len(s.pendingWrites) > 0 && s.pendingWrites[0].target <= s.bytesWritten {
		pw := s.pendingWrites[0]
		s.pendingWrites = s.pendingWrites[1:]
		pw.ctx.Resolve(nil)
	}
}

// advanceCloseState recomputes status from localClosed/peerClosed,
// finalizing the socket (fd close, reactor unregistration, "close" event)
// once both sides have closed.
func (s *Socket) advanceCloseState() {
	if s.status == SocketClosed {
		return
	}
	if s.localClosed && s.peerClosed {
		s.status = SocketClosed
		s.reactor.Unregister(s.fd)
		_ = unix.Close(s.fd)
		logInfo(s.logger, "socket closed", "fd", strconv.Itoa(s.fd))
		s.emitter.emit(SocketEvent{Kind: SocketEventClose})
		return
	}
	if s.localClosed || s.peerClosed {
		s.status = SocketHalfClosed
	}
}
