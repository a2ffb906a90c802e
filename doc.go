// Package asyncio is a single-threaded, cooperative I/O runtime for TCP
// networking on POSIX platforms. It is built from six interlocking pieces:
//
//   - [TaskLoop]: two ordered queues of nullary callables — permanent tasks
//     that rerun every tick, oneshot tasks that run once and are discarded.
//   - [Generator]: a stackful-coroutine stand-in, realized as a goroutine
//     paired with its caller over unbuffered channels so that only one side
//     ever runs, with bidirectional value passing via Next/ThrowIn/Yield.
//   - [Promise]: a single-assignment value/error cell whose Then/Catch
//     continuations fire from a dedicated microtask drain, never
//     synchronously and never reentrantly.
//   - [AsyncCtx] and [AsyncFunc]: turn linear code containing calls to
//     ctx.Await into a function returning a *Promise, by driving a
//     Generator whose suspensions correspond to each await.
//   - [Reactor]: owns the kernel multiplexer (epoll on Linux, kqueue on
//     Darwin/BSD) and dispatches readiness events to registered
//     [ReactorTarget]s every tick.
//   - [Socket] and [ServerSocket]: nonblocking TCP state machines driven by
//     the Reactor, with read-drain-to-EAGAIN and a write queue of pending
//     completion promises keyed by a bytes_written target.
//
// # Wiring order
//
// [NewPromiseScheduler] and [NewReactor] each register a permanent task on
// the [TaskLoop] they are given, at construction time. The relative order
// of the promise microtask drain and the reactor tick within a single tick
// is fixed by the order these two are constructed in — construct the
// scheduler before the reactor to drain settled promises before dispatching
// new readiness events within the same tick, matching the convention this
// module's own constructors and cmd/asyncio-echo follow:
//
//	loop := asyncio.NewTaskLoop()
//	sched := asyncio.NewPromiseScheduler(loop)
//	reactor, err := asyncio.NewReactor(loop)
//
// # Concurrency
//
// Every component except Generator is plain fields, no goroutines, no
// atomics, no mutexes (apart from the process-wide registry behind
// [ThreadLoop], which a sync.Mutex guards): a TaskLoop, its PromiseScheduler and Reactor, and
// every Socket/ServerSocket registered against that Reactor are only ever
// touched from the goroutine that calls TaskLoop.Run/RunOnce. Generator is
// the one deliberate exception — its body runs on a second goroutine purely
// as a green thread, synchronized by unbuffered channel handoff so that
// exactly one of caller or body executes at any instant.
package asyncio
