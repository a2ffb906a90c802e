//go:build darwin

package asyncio

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller is the Darwin/BSD poller implementation, grounded on the
// teacher's poller_darwin.go but stripped of its RWMutex/atomic.Bool
// concurrency control for the same single-threaded reasons noted in
// poller_linux.go.
//
// Every registration carries unix.EV_CLEAR — kqueue's edge-triggered
// equivalent of EPOLLET — which the teacher's own registration omits.
type kqueuePoller struct {
	kq  int
	buf [reactorEventBufSize]unix.Kevent_t
}

func newPlatformPoller() (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, &ReactorError{Kind: ReactorInit, Errno: errnoFrom(err)}
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{kq: kq}, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}

func eventsToKevents(fd int, interests IOEvents, flags uint16) []unix.Kevent_t {
	var out []unix.Kevent_t
	if interests&EventRead != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if interests&EventWrite != 0 {
		out = append(out, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return out
}

func (p *kqueuePoller) Add(fd int, interests IOEvents) error {
	kevents := eventsToKevents(fd, interests, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR)
	if len(kevents) == 0 {
		return nil
	}
	if _, err := unix.Kevent(p.kq, kevents, nil, nil); err != nil {
		return &ReactorError{Kind: ReactorReg, Errno: errnoFrom(err)}
	}
	return nil
}

// Modify replaces fd's registered filters wholesale: delete both possible
// filters (best-effort — a filter that was never added yields ENOENT,
// which is expected and ignored), then add the requested set.
func (p *kqueuePoller) Modify(fd int, interests IOEvents) error {
	_, _ = unix.Kevent(p.kq, eventsToKevents(fd, EventRead|EventWrite, unix.EV_DELETE), nil, nil)
	return p.Add(fd, interests)
}

func (p *kqueuePoller) Remove(fd int) error {
	_, _ = unix.Kevent(p.kq, eventsToKevents(fd, EventRead|EventWrite, unix.EV_DELETE), nil, nil)
	return nil
}

func (p *kqueuePoller) Wait(timeout time.Duration, out []pollEvent) (int, error) {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	n, err := unix.Kevent(p.kq, nil, p.buf[:], &ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, &ReactorError{Kind: ReactorQuery, Errno: errnoFrom(err)}
	}
	for i := 0; i < n && i < len(out); i++ {
		ev := p.buf[i]
		var events IOEvents
		switch ev.Filter {
		case unix.EVFILT_READ:
			events |= EventRead
		case unix.EVFILT_WRITE:
			events |= EventWrite
		}
		if ev.Flags&unix.EV_EOF != 0 {
			events |= EventHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			events |= EventError
		}
		out[i] = pollEvent{fd: int(ev.Ident), events: events}
	}
	return n, nil
}
