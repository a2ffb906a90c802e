package asyncio

import "time"

// taskLoopOptions holds configuration resolved from TaskLoopOption values.
type taskLoopOptions struct {
	logger             Logger
	oneshotCapacityHint int
}

// TaskLoopOption configures a TaskLoop at construction time.
type TaskLoopOption interface {
	applyTaskLoop(*taskLoopOptions)
}

type taskLoopOptionFunc func(*taskLoopOptions)

func (f taskLoopOptionFunc) applyTaskLoop(opts *taskLoopOptions) { f(opts) }

// WithLogger sets the Logger used to report task panics and other
// diagnostics. The default is NoOpLogger.
func WithLogger(l Logger) TaskLoopOption {
	return taskLoopOptionFunc(func(opts *taskLoopOptions) {
		if l != nil {
			opts.logger = l
		}
	})
}

// WithOneshotCapacityHint preallocates capacity for the oneshot task queue
// that collects tasks scheduled before the first tick. RunOnce starts each
// later tick's queue empty, without that capacity, so the hint does not
// carry past the first tick.
func WithOneshotCapacityHint(n int) TaskLoopOption {
	return taskLoopOptionFunc(func(opts *taskLoopOptions) {
		if n > 0 {
			opts.oneshotCapacityHint = n
		}
	})
}

func resolveTaskLoopOptions(opts []TaskLoopOption) *taskLoopOptions {
	cfg := &taskLoopOptions{logger: NoOpLogger{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyTaskLoop(cfg)
	}
	return cfg
}

// reactorOptions holds configuration resolved from ReactorOption values.
type reactorOptions struct {
	logger      Logger
	poller      poller
	pollTimeout time.Duration
}

// ReactorOption configures a Reactor at construction time.
type ReactorOption interface {
	applyReactor(*reactorOptions)
}

type reactorOptionFunc func(*reactorOptions)

func (f reactorOptionFunc) applyReactor(opts *reactorOptions) { f(opts) }

// WithReactorLogger sets the Logger used to report reactor errors.
func WithReactorLogger(l Logger) ReactorOption {
	return reactorOptionFunc(func(opts *reactorOptions) {
		if l != nil {
			opts.logger = l
		}
	})
}

// WithPoller injects a poller implementation, bypassing platform
// auto-selection. Intended for tests that want to exercise Reactor's
// dispatch/unregister-race semantics without real file descriptors.
func WithPoller(p poller) ReactorOption {
	return reactorOptionFunc(func(opts *reactorOptions) {
		if p != nil {
			opts.poller = p
		}
	})
}

// WithPollTimeout sets the timeout passed to the poller's readiness query
// each reactor tick. The spec's busy-loop behavior (zero timeout) is the
// default; a nonzero value trades latency for CPU, as sanctioned by the
// "blocking wait bounded by no pending work" re-architecture note.
func WithPollTimeout(d time.Duration) ReactorOption {
	return reactorOptionFunc(func(opts *reactorOptions) {
		opts.pollTimeout = d
	})
}

func resolveReactorOptions(opts []ReactorOption) *reactorOptions {
	cfg := &reactorOptions{logger: NoOpLogger{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyReactor(cfg)
	}
	return cfg
}

// socketOptions holds configuration resolved from SocketOption values.
type socketOptions struct {
	logger Logger
}

// SocketOption configures a Socket or ServerSocket at construction time.
type SocketOption interface {
	applySocket(*socketOptions)
}

type socketOptionFunc func(*socketOptions)

func (f socketOptionFunc) applySocket(opts *socketOptions) { f(opts) }

// WithSocketLogger sets the Logger used to report Socket/ServerSocket
// lifecycle transitions and errors.
func WithSocketLogger(l Logger) SocketOption {
	return socketOptionFunc(func(opts *socketOptions) {
		if l != nil {
			opts.logger = l
		}
	})
}

func resolveSocketOptions(opts []SocketOption) *socketOptions {
	cfg := &socketOptions{logger: NoOpLogger{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applySocket(cfg)
	}
	return cfg
}
