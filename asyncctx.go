package asyncio

import "fmt"

// awaitSignal is the resume-value channel payload the async-function
// generator uses: it carries either the awaited promise's fulfillment
// value or an error to raise at the await point.
type awaitSignal struct {
	value Result
	err   error
}

// AsyncCtx is passed to an async body (the function given to AsyncFunc),
// giving it the ability to await a Promise. It bridges a Generator (whose
// suspensions correspond to awaits) and the Promise that represents the
// async function's eventual result.
type AsyncCtx struct {
	handle *Generator[struct{}, awaitSignal]
	body   *GenCtx[struct{}, awaitSignal]
	pctx   *PromiseCtx
}

// AsyncFunc adapts body, written as linear imperative code containing
// calls to ctx.Await, into a function returning a *Promise. Each
// invocation creates a fresh promise and a fresh generator driving body;
// the generator is kicked immediately so body runs synchronously up to
// its first await (or to completion, if it never awaits).
func AsyncFunc[Args any](sched *PromiseScheduler, body func(ctx *AsyncCtx, args Args) (Result, error)) func(Args) *Promise {
	return func(args Args) *Promise {
		var pctx *PromiseCtx
		p := NewPromise(sched, func(c *PromiseCtx) { pctx = c })

		actx := &AsyncCtx{pctx: pctx}
		gen := NewGenerator(func(bodyCtx *GenCtx[struct{}, awaitSignal]) (struct{}, error) {
			actx.body = bodyCtx
			res, err := body(actx, args)
			if err != nil {
				pctx.Reject(err)
			} else {
				pctx.Resolve(res)
			}
			return struct{}{}, nil
		})
		actx.handle = gen

		_, err := gen.Next(awaitSignal{})
		if err != nil {
			pctx.Reject(err)
		}
		return p
	}
}

// Await suspends the async body until p settles, returning p's
// fulfillment value, or raising p's rejection reason as an error at this
// call site, exactly as if it had been a synchronous call. Await always
// yields to the scheduler — even if p is already settled — because
// attaching a continuation to a settled promise schedules a microtask
// rather than firing synchronously (see Promise.addFulfilled/addRejected).
func (c *AsyncCtx) Await(p *Promise) (Result, error) {
	p.addFulfilled(func(v Result) {
		_, err := c.handle.Next(awaitSignal{value: v})
		if err != nil {
			// The resumed body ran to completion with an escaped error
			// (a panic) rather than settling pctx itself; make sure the
			// outer promise still settles.
			c.pctx.Reject(err)
		}
	})
	p.addRejected(func(e error) {
		_, err := c.handle.ThrowIn(e)
		if err != nil {
			c.pctx.Reject(err)
		}
	})

	sig, err := c.body.Yield(struct{}{})
	if err != nil {
		return nil, err
	}
	if sig.err != nil {
		return nil, sig.err
	}
	return sig.value, nil
}

// AwaitAs awaits p and type-asserts its fulfillment value to T, raising a
// BadCastError if the dynamic type does not match — the typed convenience
// layer SPEC_FULL.md §3 describes on top of the any-shaped Promise core.
func AwaitAs[T any](ctx *AsyncCtx, p *Promise) (T, error) {
	var zero T
	v, err := ctx.Await(p)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &BadCastError{Want: fmt.Sprintf("%T", zero), Got: v}
	}
	return t, nil
}
