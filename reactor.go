package asyncio

import "time"

// reactorEventBufSize is the fixed-capacity readiness event buffer size
// the spec mandates (§3: "fixed-size event buffer of capacity 64").
const reactorEventBufSize = 64

// ReactorTarget receives readiness notifications for the file descriptor
// it is registered against. Socket and ServerSocket are each their own
// ReactorTarget.
type ReactorTarget interface {
	OnEvent(events IOEvents)
}

// Reactor owns the kernel multiplexer descriptor and a map from file
// descriptor to the ReactorTarget registered against it. Constructing a
// Reactor registers its tick as a permanent task on loop immediately, so
// callers should construct a PromiseScheduler and a Reactor in whatever
// order they want the promise microtask and the reactor tick to run
// relative to one another within each TaskLoop tick (see SPEC_FULL.md §5).
type Reactor struct {
	loop    *TaskLoop
	logger  Logger
	poller  poller
	timeout time.Duration

	targets map[int]ReactorTarget
	events  []pollEvent
	closed  bool
}

// NewReactor creates the kernel multiplexer (or uses the poller supplied
// via WithPoller) and registers the reactor's tick as a permanent task on
// loop.
func NewReactor(loop *TaskLoop, opts ...ReactorOption) (*Reactor, error) {
	cfg := resolveReactorOptions(opts)

	p := cfg.poller
	if p == nil {
		var err error
		p, err = newPlatformPoller()
		if err != nil {
			return nil, err
		}
	}

	r := &Reactor{
		loop:    loop,
		logger:  cfg.logger,
		poller:  p,
		timeout: cfg.pollTimeout,
		targets: make(map[int]ReactorTarget),
		events:  make([]pollEvent, reactorEventBufSize),
	}
	loop.Add(r.tick)
	return r, nil
}

// Register adds fd to the kernel multiplexer with edge-triggered
// semantics for interests and stores target in the fd→target map. On
// registration failure the fd is not added to the map — the caller is
// expected to drop the partially created socket.
func (r *Reactor) Register(fd int, interests IOEvents, target ReactorTarget) error {
	if err := r.poller.Add(fd, interests); err != nil {
		return err
	}
	r.targets[fd] = target
	return nil
}

// Modify changes the interests registered for fd.
func (r *Reactor) Modify(fd int, interests IOEvents) error {
	return r.poller.Modify(fd, interests)
}

// Unregister removes fd from the map, dropping the owned target, and
// best-effort removes fd's registration from the kernel multiplexer.
// Kernel-side removal also happens implicitly once the fd is closed.
func (r *Reactor) Unregister(fd int) {
	delete(r.targets, fd)
	_ = r.poller.Remove(fd)
}

// tick queries readiness with the configured timeout (zero by default, a
// deliberate busy loop per SPEC_FULL.md §12) and dispatches each reported
// event to its registered target. Events for fds that are no longer in
// the map are ignored: a benign race between unregister and a
// notification the poller had already queued.
//
// A query failure closes the multiplexer and panics with the
// ReactorError, which TaskLoop.RunOnce does not catch — this is the one
// fatal-infrastructure-error path the spec calls out explicitly.
func (r *Reactor) tick() {
	if r.closed {
		return
	}
	n, err := r.poller.Wait(r.timeout, r.events)
	if err != nil {
		logErr(r.logger, "reactor readiness query failed", err)
		r.closed = true
		_ = r.poller.Close()
		panic(err)
	}
	for i := 0; i < n; i++ {
		ev := r.events[i]
		target, ok := r.targets[ev.fd]
		if !ok {
			continue
		}
		target.OnEvent(ev.events)
	}
}

// Close shuts down the multiplexer. Subsequent ticks become no-ops.
func (r *Reactor) Close() error {
	r.closed = true
	return r.poller.Close()
}
