package asyncio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drainTicks(loop *TaskLoop, n int) {
	for i := 0; i < n; i++ {
		loop.RunOnce()
	}
}

func TestAsyncFunc_AwaitResolvedPromiseReturnsValue(t *testing.T) {
	loop := NewTaskLoop()
	sched := NewPromiseScheduler(loop)

	fn := AsyncFunc(sched, func(ctx *AsyncCtx, _ struct{}) (Result, error) {
		v, err := ctx.Await(Resolved(sched, "hello"))
		if err != nil {
			return nil, err
		}
		return v, nil
	})

	p := fn(struct{}{})
	drainTicks(loop, 3)

	require.Equal(t, PromiseResolved, p.State())
	assert.Equal(t, "hello", p.Value())
}

func TestAsyncFunc_AwaitRejectedPromiseRaisesInBody(t *testing.T) {
	// spec.md §8 scenario 3.
	sentinel := errors.New("my error")
	loop := NewTaskLoop()
	sched := NewPromiseScheduler(loop)

	fn := AsyncFunc(sched, func(ctx *AsyncCtx, _ struct{}) (Result, error) {
		_, err := ctx.Await(Rejected(sched, sentinel))
		return nil, err
	})

	p := fn(struct{}{})
	drainTicks(loop, 3)

	require.Equal(t, PromiseRejected, p.State())
	assert.Same(t, sentinel, p.Reason())
}

func TestAsyncFunc_AwaitNeverResolvesSynchronously(t *testing.T) {
	// "Important contract" in spec.md §4.4: await always yields, even for an
	// already-settled promise.
	loop := NewTaskLoop()
	sched := NewPromiseScheduler(loop)

	var reachedAfterAwait bool
	fn := AsyncFunc(sched, func(ctx *AsyncCtx, _ struct{}) (Result, error) {
		_, err := ctx.Await(Resolved(sched, 1))
		reachedAfterAwait = true
		return nil, err
	})

	p := fn(struct{}{})
	assert.False(t, reachedAfterAwait, "body must not resume past await before any tick runs")
	assert.Equal(t, PromisePending, p.State())

	drainTicks(loop, 3)
	assert.True(t, reachedAfterAwait)
}

func TestAsyncFunc_SequentialAwaitsRunInOrder(t *testing.T) {
	loop := NewTaskLoop()
	sched := NewPromiseScheduler(loop)

	var log []int
	fn := AsyncFunc(sched, func(ctx *AsyncCtx, _ struct{}) (Result, error) {
		v1, _ := ctx.Await(Resolved(sched, 1))
		log = append(log, v1.(int))
		v2, _ := ctx.Await(Resolved(sched, 2))
		log = append(log, v2.(int))
		return nil, nil
	})

	fn(struct{}{})
	drainTicks(loop, 6)

	assert.Equal(t, []int{1, 2}, log)
}

func TestAwaitAs_TypeMismatchReturnsBadCast(t *testing.T) {
	loop := NewTaskLoop()
	sched := NewPromiseScheduler(loop)

	fn := AsyncFunc(sched, func(ctx *AsyncCtx, _ struct{}) (Result, error) {
		_, err := AwaitAs[int](ctx, Resolved(sched, "not an int"))
		return nil, err
	})

	p := fn(struct{}{})
	drainTicks(loop, 3)

	require.Equal(t, PromiseRejected, p.State())
	var berr *BadCastError
	require.ErrorAs(t, p.Reason(), &berr)
}

func TestAsyncFunc_ErrorEscapingBodyRejectsPromise(t *testing.T) {
	sentinel := errors.New("body failed")
	loop := NewTaskLoop()
	sched := NewPromiseScheduler(loop)

	fn := AsyncFunc(sched, func(ctx *AsyncCtx, _ struct{}) (Result, error) {
		return nil, sentinel
	})

	p := fn(struct{}{})
	assert.Equal(t, PromiseRejected, p.State())
	assert.Same(t, sentinel, p.Reason())
}
