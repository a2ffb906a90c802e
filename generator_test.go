package asyncio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_BasicYieldSequence(t *testing.T) {
	g := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		a, _ := ctx.Yield(1)
		b, _ := ctx.Yield(a + 1)
		return a + b, nil
	})

	assert.Equal(t, GenPending, g.Status())

	v, err := g.Next(0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, GenSuspended, g.Status())

	v, err = g.Next(10)
	require.NoError(t, err)
	assert.Equal(t, 11, v)

	v, err = g.Next(20)
	require.NoError(t, err)
	assert.Equal(t, GenDone, g.Status())
	assert.Equal(t, 30, v)

	// DONE returns cached final value.
	v, err = g.Next(999)
	require.NoError(t, err)
	assert.Equal(t, 30, v)
}

func TestGenerator_ThrowInWhileSuspendedIsRaisedAtYield(t *testing.T) {
	sentinel := errors.New("injected")
	g := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		_, err := ctx.Yield(1)
		if err != nil {
			return -1, err
		}
		return 0, nil
	})

	_, err := g.Next(0)
	require.NoError(t, err)

	v, err := g.ThrowIn(sentinel)
	assert.Same(t, sentinel, err)
	assert.Equal(t, -1, v)
	assert.Equal(t, GenDone, g.Status())
}

func TestGenerator_ThrowInWhilePendingReturnsErrDirectly(t *testing.T) {
	sentinel := errors.New("injected")
	g := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		return 0, nil
	})

	_, err := g.ThrowIn(sentinel)
	assert.Same(t, sentinel, err)
	assert.Equal(t, GenPending, g.Status())
}

func TestGenerator_ReentrantNextWhileRunningFails(t *testing.T) {
	var g *Generator[int, int]
	var reentrantErr error
	g = NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		_, reentrantErr = g.Next(0)
		return 0, nil
	})

	_, err := g.Next(0)
	require.NoError(t, err)

	var gerr *GeneratorError
	require.ErrorAs(t, reentrantErr, &gerr)
	assert.Equal(t, GeneratorAlreadyRunning, gerr.Kind)
}

func TestGenerator_PanicBecomesPanicError(t *testing.T) {
	g := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		panic("body exploded")
	})

	_, err := g.Next(0)
	var perr PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "body exploded", perr.Value)
	assert.Equal(t, GenDone, g.Status())
}

func TestGenerator_CloseWhileSuspendedDoesNotLeak(t *testing.T) {
	cleanedUp := make(chan struct{})
	g := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		defer close(cleanedUp)
		ctx.Yield(1)
		return 0, nil
	})

	_, err := g.Next(0)
	require.NoError(t, err)
	assert.Equal(t, GenSuspended, g.Status())

	g.Close()
	assert.Equal(t, GenDone, g.Status())

	select {
	case <-cleanedUp:
	case <-time.After(time.Second):
		t.Fatal("body goroutine leaked past Close")
	}
}

func TestGenerator_CloseOnNonSuspendedIsNoop(t *testing.T) {
	g := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		return 0, nil
	})
	g.Close()
	assert.Equal(t, GenPending, g.Status())
}

func TestGenCtx_YieldFromDelegatesAndReturnsFinalValue(t *testing.T) {
	inner := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		ctx.Yield(1)
		ctx.Yield(2)
		return 99, nil
	})

	var yielded []int
	outer := NewGenerator(func(ctx *GenCtx[int, int]) (int, error) {
		final, err := ctx.YieldFrom(inner, 0)
		if err != nil {
			return -1, err
		}
		return final, nil
	})

	v, err := outer.Next(0)
	require.NoError(t, err)
	yielded = append(yielded, v)
	assert.Equal(t, GenSuspended, outer.Status())

	v, err = outer.Next(0)
	require.NoError(t, err)
	yielded = append(yielded, v)
	assert.Equal(t, GenSuspended, outer.Status())

	v, err = outer.Next(0)
	require.NoError(t, err)
	assert.Equal(t, GenDone, outer.Status())
	assert.Equal(t, 99, v, "inner's final produced value becomes YieldFrom's own result")
	assert.Equal(t, []int{1, 2}, yielded, "delegated values are re-yielded, the final one is not")
}
