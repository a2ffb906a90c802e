//go:build linux

package asyncio

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux poller implementation, grounded on the
// teacher's poller_linux.go but stripped of its RWMutex/atomic.Uint64
// version-counter concurrency control: this runtime's Reactor only ever
// runs on its owning TaskLoop's single thread, so none of that is needed.
//
// Unlike the teacher's FastPoller, every registration here carries
// unix.EPOLLET — edge-triggered mode, as SPEC_FULL.md §4 requires and the
// teacher's own level-triggered registration does not provide.
type epollPoller struct {
	epfd int
	buf  [reactorEventBufSize]unix.EpollEvent
}

func newPlatformPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, &ReactorError{Kind: ReactorInit, Errno: errnoFrom(err)}
	}
	return &epollPoller{epfd: fd}, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

func (p *epollPoller) Add(fd int, interests IOEvents) error {
	ev := unix.EpollEvent{Events: eventsToEpoll(interests) | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return &ReactorError{Kind: ReactorReg, Errno: errnoFrom(err)}
	}
	return nil
}

func (p *epollPoller) Modify(fd int, interests IOEvents) error {
	ev := unix.EpollEvent{Events: eventsToEpoll(interests) | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return &ReactorError{Kind: ReactorReg, Errno: errnoFrom(err)}
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return &ReactorError{Kind: ReactorReg, Errno: errnoFrom(err)}
	}
	return nil
}

func (p *epollPoller) Wait(timeout time.Duration, out []pollEvent) (int, error) {
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epfd, p.buf[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, &ReactorError{Kind: ReactorQuery, Errno: errnoFrom(err)}
	}
	for i := 0; i < n && i < len(out); i++ {
		out[i] = pollEvent{fd: int(p.buf[i].Fd), events: epollToEvents(p.buf[i].Events)}
	}
	return n, nil
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
