package csp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendezvous_PutParksUntilGet(t *testing.T) {
	ch := NewChan()

	accepted := make(chan bool, 1)
	go func() {
		accepted <- ch.BPut("hello")
	}()

	// give the putter a chance to park; not required for correctness, just
	// keeps this test honest about exercising the parked path.
	time.Sleep(5 * time.Millisecond)

	val, ok := ch.BGet()
	assert.True(t, ok)
	assert.Equal(t, "hello", val)
	assert.True(t, <-accepted)
}

func TestRendezvous_GetParksUntilPut(t *testing.T) {
	ch := NewChan()

	result := make(chan any, 1)
	go func() {
		v, _ := ch.BGet()
		result <- v
	}()

	time.Sleep(5 * time.Millisecond)
	assert.True(t, ch.BPut(7))
	assert.Equal(t, 7, <-result)
}

func TestBufferedChan_PutDoesNotBlockUntilFull(t *testing.T) {
	ch := NewChan(WithBuffer(NewFixedBuffer(2)))
	assert.True(t, ch.Offer(1))
	assert.True(t, ch.Offer(2))
	assert.False(t, ch.Offer(3), "buffer is full, and Offer must not block")

	v, ok := ch.Poll()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestOfferPoll_NeverBlockOnRendezvous(t *testing.T) {
	ch := NewChan()
	assert.False(t, ch.Offer("nobody listening"))
	v, ok := ch.Poll()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestClose_RejectsParkedTakersWithClosedSentinel(t *testing.T) {
	ch := NewChan()

	results := make(chan GetResult, 3)
	for i := 0; i < 3; i++ {
		go func() {
			v := <-ch.Get(context.Background())
			results <- v
		}()
	}
	time.Sleep(5 * time.Millisecond)
	ch.Close()

	for i := 0; i < 3; i++ {
		r := <-results
		assert.True(t, r.Closed)
		assert.Nil(t, r.Val)
	}
}

func TestClose_DrainsBufferBeforeRejecting(t *testing.T) {
	ch := NewChan(WithBuffer(NewFixedBuffer(2)))
	require.True(t, ch.Offer("a"))
	require.True(t, ch.Offer("b"))
	ch.Close()

	v, ok := ch.Poll()
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = ch.Poll()
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = ch.Poll()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestClose_Idempotent(t *testing.T) {
	ch := NewChan()
	ch.Close()
	assert.NotPanics(t, func() { ch.Close() })
}

func TestPutOnClosedChan_RejectedNotPanicking(t *testing.T) {
	ch := NewChan()
	ch.Close()
	assert.False(t, ch.Offer("too late"))
	assert.False(t, ch.BPut("too late"))
}

func TestPut_NilValuePanics(t *testing.T) {
	ch := NewChan()
	assert.Panics(t, func() { ch.Offer(nil) })
}

func TestGetOnClosedDrainedChan_ReturnsClosedSentinel(t *testing.T) {
	ch := NewChan()
	ch.Close()
	v, ok := ch.BGet()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestFixedBuffer_BackpressureParksPutter(t *testing.T) {
	ch := NewChan(WithBuffer(NewFixedBuffer(1)))
	require.True(t, ch.Offer(1))

	accepted := make(chan bool, 1)
	go func() { accepted <- ch.BPut(2) }()

	time.Sleep(5 * time.Millisecond)
	select {
	case <-accepted:
		t.Fatal("BPut(2) must park while the fixed buffer is full")
	default:
	}

	v, ok := ch.BGet()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, <-accepted)

	v, ok = ch.BGet()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestPut_ContextCancellationStopsParkedPutFromDelivering(t *testing.T) {
	ch := NewChan()
	ctx, cancel := context.WithCancel(context.Background())

	result := ch.Put(ctx, "value")
	cancel()
	time.Sleep(5 * time.Millisecond)

	select {
	case <-result:
		t.Fatal("a cancelled parked Put must never resolve")
	default:
	}

	// the cancelled handler must be prunable: a subsequent touch of the
	// channel should not see it as a live parked put.
	_, ok := ch.Poll()
	assert.False(t, ok)
}

func TestGet_ContextCancellationStopsParkedGetFromDelivering(t *testing.T) {
	ch := NewChan()
	ctx, cancel := context.WithCancel(context.Background())

	result := ch.Get(ctx)
	cancel()
	time.Sleep(5 * time.Millisecond)

	select {
	case <-result:
		t.Fatal("a cancelled parked Get must never resolve")
	default:
	}

	_, ok := ch.Poll()
	assert.False(t, ok)
}

func TestPut_InactiveHandlerDoesNotDiscardActiveParkedTaker(t *testing.T) {
	// Regression test for the pop-then-check bug in chanpy's old _put:
	// an h that turns out inactive when it reaches the rendezvous loop
	// (here, a flagHandler whose shared commitFlag a sibling already
	// committed, as a losing Alt branch would see) must not cause the
	// still-active head taker to be dropped from the queue.
	ch := NewChan()

	takerResult := make(chan any, 1)
	go func() {
		v, _ := ch.BGet()
		takerResult <- v
	}()
	time.Sleep(5 * time.Millisecond)

	flag := newCommitFlag()
	require.True(t, commitFlagDirectly(flag))
	h := NewFlagHandler(flag, true, func(any) {})

	out := ch.put(h, "value", true)
	assert.Nil(t, out, "an already-committed h must not synchronously resolve")

	// The parked taker must still be live: a later Offer should still
	// reach it, rather than finding the queue empty.
	require.True(t, ch.Offer("delivered"))
	assert.Equal(t, "delivered", <-takerResult)
}

func TestGet_InactiveHandlerDoesNotDiscardActiveParkedPutter(t *testing.T) {
	// Symmetric regression test for get's rendezvous loop.
	ch := NewChan()

	putAccepted := make(chan bool, 1)
	go func() {
		putAccepted <- ch.BPut("parked value")
	}()
	time.Sleep(5 * time.Millisecond)

	flag := newCommitFlag()
	require.True(t, commitFlagDirectly(flag))
	h := NewFlagHandler(flag, true, func(any) {})

	out := ch.get(h, true)
	assert.Nil(t, out, "an already-committed h must not synchronously resolve")

	// The parked putter must still be live: a later Poll should still
	// reach it, rather than finding the queue empty.
	v, ok := ch.Poll()
	require.True(t, ok)
	assert.Equal(t, "parked value", v)
	assert.True(t, <-putAccepted)
}

func TestTransducer_MapFilterWiredOnPutPath(t *testing.T) {
	xform := Comp(
		Map(func(v any) any { return v.(int) * 10 }),
		Filter(func(v any) bool { return v.(int) != 20 }),
	)
	ch := NewChan(WithBuffer(NewFixedBuffer(4)), WithTransducer(xform))

	require.True(t, ch.Offer(1))
	require.True(t, ch.Offer(2)) // filtered out after mapping to 20
	require.True(t, ch.Offer(3))

	v, ok := ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 10, v)

	v, ok = ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 30, v)

	_, ok = ch.Poll()
	assert.False(t, ok)
}

func TestTransducer_ReducedEarlyTerminationClosesChan(t *testing.T) {
	ch := NewChan(WithBuffer(NewFixedBuffer(4)), WithTransducer(Take(2)))

	require.True(t, ch.Offer(1))
	require.True(t, ch.Offer(2))
	// Take(2) signals Reduced on the 2nd value accepted, closing the
	// channel; further puts must be rejected.
	assert.False(t, ch.Offer(3))

	v, ok := ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = ch.Poll()
	assert.False(t, ok)
}

func TestExHandler_RecoversPanicAndAppendsRecoveredValue(t *testing.T) {
	xform := Map(func(v any) any {
		if v.(int) == 0 {
			panic("divide by zero")
		}
		return 100 / v.(int)
	})
	ch := NewChan(
		WithBuffer(NewFixedBuffer(4)),
		WithTransducer(xform),
		WithExHandler(func(err error) (any, bool) { return -1, true }),
	)

	require.True(t, ch.Offer(5))
	require.True(t, ch.Offer(0))

	v, ok := ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 20, v)

	v, ok = ch.Poll()
	require.True(t, ok)
	assert.Equal(t, -1, v)
}

func TestExHandler_DropsValueWhenNotRecovered(t *testing.T) {
	xform := Map(func(v any) any {
		if v.(int) == 0 {
			panic("divide by zero")
		}
		return v
	})
	ch := NewChan(
		WithBuffer(NewFixedBuffer(4)),
		WithTransducer(xform),
		WithExHandler(func(err error) (any, bool) { return nil, false }),
	)

	require.True(t, ch.Offer(1))
	require.True(t, ch.Offer(0))
	require.True(t, ch.Offer(2))

	v, ok := ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = ch.Poll()
	require.True(t, ok)
	assert.Equal(t, 2, v, "the panicking input must be dropped, not appended")
}

func TestFPut_InvokesCallbackAsynchronouslyWhenParked(t *testing.T) {
	ch := NewChan()
	var mu sync.Mutex
	var accepted bool
	done := make(chan struct{})

	ch.FPut("value", func(ok bool) {
		mu.Lock()
		accepted = ok
		mu.Unlock()
		close(done)
	})

	v, ok := ch.BGet()
	require.True(t, ok)
	assert.Equal(t, "value", v)

	<-done
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, accepted)
}

func TestFGet_InvokesCallbackAsynchronouslyWhenParked(t *testing.T) {
	ch := NewChan()
	done := make(chan struct{})
	var got any
	var gotOK bool

	ch.FGet(func(val any, ok bool) {
		got = val
		gotOK = ok
		close(done)
	})

	require.True(t, ch.BPut("async"))
	<-done
	assert.True(t, gotOK)
	assert.Equal(t, "async", got)
}

func TestFPut_SynchronousResolutionInvokesCallbackOnce(t *testing.T) {
	ch := NewChan(WithBuffer(NewFixedBuffer(1)))
	var calls int
	ch.FPut("fits", func(bool) { calls++ })
	assert.Equal(t, 1, calls)
}

func TestGetResult_ClosedFlag(t *testing.T) {
	ch := NewChan(WithBuffer(NewFixedBuffer(1)))
	require.True(t, ch.Offer("x"))
	r := <-ch.Get(context.Background())
	assert.False(t, r.Closed)
	assert.Equal(t, "x", r.Val)

	ch.Close()
	r = <-ch.Get(context.Background())
	assert.True(t, r.Closed)
}

func TestManyConcurrentPutsAndGets_NoLossNoDuplication(t *testing.T) {
	const n = 500
	ch := NewChan(WithBuffer(NewFixedBuffer(16)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			ch.BPut(i)
		}
		ch.Close()
	}()

	seen := make(map[int]bool, n)
	for {
		v, ok := ch.BGet()
		if !ok {
			break
		}
		seen[v.(int)] = true
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
