package asyncio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoller is a poller double used to exercise Reactor's dispatch and
// unregister-race handling without real file descriptors, per
// SPEC_FULL.md §10's note that WithPoller exists for exactly this.
type fakePoller struct {
	added    map[int]IOEvents
	closed   bool
	nextWait []pollEvent
	waitErr  error
}

func newFakePoller() *fakePoller {
	return &fakePoller{added: make(map[int]IOEvents)}
}

func (p *fakePoller) Close() error { p.closed = true; return nil }

func (p *fakePoller) Add(fd int, interests IOEvents) error {
	p.added[fd] = interests
	return nil
}

func (p *fakePoller) Modify(fd int, interests IOEvents) error {
	p.added[fd] = interests
	return nil
}

func (p *fakePoller) Remove(fd int) error {
	delete(p.added, fd)
	return nil
}

func (p *fakePoller) Wait(timeout time.Duration, out []pollEvent) (int, error) {
	if p.waitErr != nil {
		return 0, p.waitErr
	}
	n := copy(out, p.nextWait)
	p.nextWait = nil
	return n, nil
}

type recordingTarget struct {
	events []IOEvents
}

func (t *recordingTarget) OnEvent(e IOEvents) { t.events = append(t.events, e) }

func TestReactor_DispatchesToRegisteredTarget(t *testing.T) {
	loop := NewTaskLoop()
	fp := newFakePoller()
	reactor, err := NewReactor(loop, WithPoller(fp))
	require.NoError(t, err)

	target := &recordingTarget{}
	require.NoError(t, reactor.Register(3, EventRead, target))

	fp.nextWait = []pollEvent{{fd: 3, events: EventRead}}
	loop.RunOnce()

	require.Len(t, target.events, 1)
	assert.Equal(t, EventRead, target.events[0])
}

func TestReactor_UnregisteredFdEventsAreIgnored(t *testing.T) {
	loop := NewTaskLoop()
	fp := newFakePoller()
	reactor, err := NewReactor(loop, WithPoller(fp))
	require.NoError(t, err)

	target := &recordingTarget{}
	require.NoError(t, reactor.Register(3, EventRead, target))
	reactor.Unregister(3)

	fp.nextWait = []pollEvent{{fd: 3, events: EventRead}}
	assert.NotPanics(t, func() { loop.RunOnce() })
	assert.Empty(t, target.events)
}

func TestReactor_UnregisterThenReregisterDoesNotLeakToPriorTarget(t *testing.T) {
	loop := NewTaskLoop()
	fp := newFakePoller()
	reactor, err := NewReactor(loop, WithPoller(fp))
	require.NoError(t, err)

	first := &recordingTarget{}
	second := &recordingTarget{}
	require.NoError(t, reactor.Register(5, EventRead, first))
	reactor.Unregister(5)
	require.NoError(t, reactor.Register(5, EventRead, second))

	fp.nextWait = []pollEvent{{fd: 5, events: EventRead}}
	loop.RunOnce()

	assert.Empty(t, first.events)
	require.Len(t, second.events, 1)
}

func TestReactor_QueryFailurePanicsAndClosesMultiplexer(t *testing.T) {
	loop := NewTaskLoop()
	fp := newFakePoller()
	fp.waitErr = &ReactorError{Kind: ReactorQuery}
	reactor, err := NewReactor(loop, WithPoller(fp))
	require.NoError(t, err)
	_ = reactor

	assert.Panics(t, func() { loop.RunOnce() })
	assert.True(t, fp.closed)
}
