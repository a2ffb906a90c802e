package asyncio

// PromiseState is a Promise's settlement state.
type PromiseState int32

const (
	PromisePending PromiseState = iota
	PromiseResolved
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromisePending:
		return "pending"
	case PromiseResolved:
		return "resolved"
	case PromiseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the dynamically-typed payload a Promise carries, mirroring
// the spec's own acknowledgement (§3) that Promise<T> collapses to one
// concrete any-shaped implementation because Go cannot express "returns U
// or Promise<U>" as a return-type union.
type Result = any

// drainable is implemented by Promise so PromiseScheduler's queue can hold
// promises of unrelated call sites without a type parameter.
type drainable interface {
	drain()
}

// Promise is a single-assignment value/error cell with chained
// continuations, settled at most once, whose continuations fire from a
// dedicated microtask drain rather than synchronously. Grounded on the
// teacher's ChainedPromise (promise.go), stripped of the mutex/atomic
// machinery that repo needs for cross-goroutine submission — this
// runtime's single-threaded contract (SPEC_FULL.md §5) makes that
// machinery both unnecessary and, per the spec, undesirable.
type Promise struct {
	sched *PromiseScheduler

	state PromiseState
	value Result
	err   error

	callbackPending bool
	onFulfilled     []func(Result)
	onRejected      []func(error)
}

// PromiseCtx is the capability an executor uses to settle the promise it
// was created for.
type PromiseCtx struct {
	p *Promise
}

// NewPromise constructs a pending Promise and runs executor against it
// synchronously and immediately. A panic escaping executor rejects the
// promise with a PanicError wrapping the panic value.
func NewPromise(sched *PromiseScheduler, executor func(ctx *PromiseCtx)) *Promise {
	p := &Promise{sched: sched, state: PromisePending}
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.reject(recoverAsError(r))
			}
		}()
		executor(&PromiseCtx{p: p})
	}()
	return p
}

// Resolved constructs an already-settled, fulfilled Promise without
// enqueuing any callbacks (there are none to enqueue yet).
func Resolved(sched *PromiseScheduler, value Result) *Promise {
	return &Promise{sched: sched, state: PromiseResolved, value: value}
}

// Rejected constructs an already-settled, rejected Promise.
func Rejected(sched *PromiseScheduler, err error) *Promise {
	return &Promise{sched: sched, state: PromiseRejected, err: err}
}

func newChild(sched *PromiseScheduler) *Promise {
	return &Promise{sched: sched, state: PromisePending}
}

// Resolve settles the promise as fulfilled with value, unless value is
// itself a *Promise — in which case this promise adopts that promise's
// eventual state (transitively, since adoption recurses through resolve
// again if the adoptee's own value turns out to be a promise).
func (c *PromiseCtx) Resolve(value Result) {
	c.p.resolve(value)
}

// Reject settles the promise as rejected with err.
func (c *PromiseCtx) Reject(err error) {
	c.p.reject(err)
}

func (p *Promise) resolve(value Result) {
	if p.state != PromisePending {
		return
	}
	if other, ok := value.(*Promise); ok {
		if other == p {
			p.reject(&TypeError{Message: "promise resolved with itself"})
			return
		}
		switch other.state {
		case PromiseResolved:
			p.resolve(other.value)
		case PromiseRejected:
			p.reject(other.err)
		default:
			other.addFulfilled(func(v Result) { p.resolve(v) })
			other.addRejected(func(e error) { p.reject(e) })
		}
		return
	}
	p.state = PromiseResolved
	p.value = value
	p.enqueueDrain()
}

func (p *Promise) reject(err error) {
	if p.state != PromisePending {
		return
	}
	p.state = PromiseRejected
	p.err = err
	p.enqueueDrain()
}

func (p *Promise) enqueueDrain() {
	if p.callbackPending {
		return
	}
	p.callbackPending = true
	p.sched.enqueue(p)
}

// addFulfilled installs cb, which fires on fulfillment. If the promise is
// already settled, this schedules a microtask (re-enqueues the promise)
// rather than invoking cb synchronously.
func (p *Promise) addFulfilled(cb func(Result)) {
	p.onFulfilled = append(p.onFulfilled, cb)
	if p.state != PromisePending {
		p.enqueueDrain()
	}
}

// addRejected installs cb, which fires on rejection, with the same
// settled-promise scheduling rule as addFulfilled.
func (p *Promise) addRejected(cb func(error)) {
	p.onRejected = append(p.onRejected, cb)
	if p.state != PromisePending {
		p.enqueueDrain()
	}
}

// drain invokes every installed continuation matching the final status in
// FIFO order, then clears both continuation lists and lowers the
// pending-callback flag. Continuations installed by a callback invoked
// here (re-entrantly, on the same promise or a fresh one) land in a new
// slice and are only seen by a later drain, never this one — this is what
// gives "continuations added while draining land on the next tick".
func (p *Promise) drain() {
	p.callbackPending = false
	fulfilled := p.onFulfilled
	rejected := p.onRejected
	p.onFulfilled = nil
	p.onRejected = nil

	switch p.state {
	case PromiseResolved:
		for _, cb := range fulfilled {
			cb(p.value)
		}
	case PromiseRejected:
		for _, cb := range rejected {
			cb(p.err)
		}
	}
}

// Then returns a new Promise settled from onFulfilled's outcome when p
// fulfills, or from p's rejection reason, passed through unchanged, when p
// rejects. onFulfilled may return another *Promise as its Result, in which
// case the returned promise adopts it (chaining).
func (p *Promise) Then(onFulfilled func(Result) (Result, error)) *Promise {
	child := newChild(p.sched)
	p.addFulfilled(func(v Result) {
		res, err := callSafely(onFulfilled, v)
		if err != nil {
			child.reject(err)
			return
		}
		child.resolve(res)
	})
	p.addRejected(func(e error) {
		child.reject(e)
	})
	return child
}

// Catch returns a new Promise settled from onRejected's outcome when p
// rejects, or from p's fulfillment value, passed through unchanged, when p
// fulfills.
func (p *Promise) Catch(onRejected func(error) (Result, error)) *Promise {
	child := newChild(p.sched)
	p.addFulfilled(func(v Result) {
		child.resolve(v)
	})
	p.addRejected(func(e error) {
		res, err := callSafelyErr(onRejected, e)
		if err != nil {
			child.reject(err)
			return
		}
		child.resolve(res)
	})
	return child
}

func callSafely(fn func(Result) (Result, error), v Result) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverAsError(r)
		}
	}()
	return fn(v)
}

func callSafelyErr(fn func(error) (Result, error), e error) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverAsError(r)
		}
	}()
	return fn(e)
}

// State, Value and Reason expose the promise's settled status/payload,
// primarily for tests and diagnostics.
func (p *Promise) State() PromiseState { return p.state }
func (p *Promise) Value() Result       { return p.value }
func (p *Promise) Reason() error       { return p.err }

// PromiseScheduler owns the thread-local pending-callback queue and the
// permanent "promise microtask" task that drains it once per TaskLoop
// tick. Constructing a PromiseScheduler registers that task immediately;
// SPEC_FULL.md §5 fixes the registration order between this and a Reactor
// by construction order, so construct the scheduler and the reactor in
// the order the application wants them to run within a tick.
type PromiseScheduler struct {
	loop  *TaskLoop
	queue []drainable
}

// NewPromiseScheduler constructs a scheduler bound to loop and registers
// its drain as a permanent task.
func NewPromiseScheduler(loop *TaskLoop) *PromiseScheduler {
	s := &PromiseScheduler{loop: loop}
	loop.Add(s.tick)
	return s
}

func (s *PromiseScheduler) enqueue(p drainable) {
	s.queue = append(s.queue, p)
}

// tick snapshots the pending-callback queue, clears it, and drains every
// promise captured in the snapshot.
func (s *PromiseScheduler) tick() {
	batch := s.queue
	s.queue = nil
	for _, p := range batch {
		p.drain()
	}
}
