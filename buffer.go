package csp

// Buffer is a bounded in-memory store consumed by a Chan. Implementations
// must satisfy: Put must not be called while IsFull reports true, unless
// the buffer is an unblocking kind (see unblocking()).
//
// Buffer is not safe for concurrent use on its own; a Chan only ever
// touches its Buffer while holding its own lock.
type Buffer interface {
	// Len returns the number of values currently held.
	Len() int

	// IsFull reports whether Put would overflow the buffer's capacity.
	// Unblocking buffers (Dropping, Sliding, Promise) always report
	// false — the channel must not treat them as back-pressure.
	IsFull() bool

	// Put adds a value.
	Put(v any)

	// Get removes and returns the oldest value (Promise: returns the
	// latched value without removing it).
	Get() any

	// Close optionally releases resources. Most buffer kinds no-op.
	Close()

	// unblocking reports whether the channel may treat this buffer as an
	// unbounded sink, never parking a putter on it.
	unblocking() bool
}

// fixedBuffer is a classical ring buffer: IsFull once Len()==cap.
type fixedBuffer struct {
	data        []any
	head, count int
}

var _ Buffer = (*fixedBuffer)(nil)

// NewFixedBuffer returns a bounded FIFO Buffer of the given capacity.
// Panics with a *ValueError if n < 1.
func NewFixedBuffer(n int) Buffer {
	if n < 1 {
		panic(&ValueError{Message: "csp: buffer size must be >= 1"})
	}
	return &fixedBuffer{data: make([]any, n)}
}

func (b *fixedBuffer) Len() int      { return b.count }
func (b *fixedBuffer) IsFull() bool  { return b.count == len(b.data) }
func (b *fixedBuffer) unblocking() bool { return false }
func (b *fixedBuffer) Close()        {}

func (b *fixedBuffer) Put(v any) {
	if b.IsFull() {
		panic("csp: Put called on a full fixedBuffer")
	}
	idx := (b.head + b.count) % len(b.data)
	b.data[idx] = v
	b.count++
}

func (b *fixedBuffer) Get() any {
	if b.count == 0 {
		panic("csp: Get called on an empty fixedBuffer")
	}
	v := b.data[b.head]
	b.data[b.head] = nil
	b.head = (b.head + 1) % len(b.data)
	b.count--
	return v
}

// droppingBuffer never reports full; once at capacity, new Puts are
// silently dropped and the oldest values are retained.
type droppingBuffer struct {
	data        []any
	head, count int
}

var _ Buffer = (*droppingBuffer)(nil)

// NewDroppingBuffer returns an unblocking Buffer of the given capacity
// that drops newly-put values once full, retaining what's already there.
func NewDroppingBuffer(n int) Buffer {
	if n < 1 {
		panic(&ValueError{Message: "csp: buffer size must be >= 1"})
	}
	return &droppingBuffer{data: make([]any, n)}
}

func (b *droppingBuffer) Len() int      { return b.count }
func (b *droppingBuffer) IsFull() bool  { return false }
func (b *droppingBuffer) unblocking() bool { return true }
func (b *droppingBuffer) Close()        {}

func (b *droppingBuffer) Put(v any) {
	if b.count == len(b.data) {
		return
	}
	idx := (b.head + b.count) % len(b.data)
	b.data[idx] = v
	b.count++
}

func (b *droppingBuffer) Get() any {
	if b.count == 0 {
		panic("csp: Get called on an empty droppingBuffer")
	}
	v := b.data[b.head]
	b.data[b.head] = nil
	b.head = (b.head + 1) % len(b.data)
	b.count--
	return v
}

// slidingBuffer never reports full; once at capacity, new Puts evict the
// oldest value to make room, retaining the most recent values.
type slidingBuffer struct {
	data        []any
	head, count int
}

var _ Buffer = (*slidingBuffer)(nil)

// NewSlidingBuffer returns an unblocking Buffer of the given capacity that
// evicts the oldest value once full, retaining the newest values.
func NewSlidingBuffer(n int) Buffer {
	if n < 1 {
		panic(&ValueError{Message: "csp: buffer size must be >= 1"})
	}
	return &slidingBuffer{data: make([]any, n)}
}

func (b *slidingBuffer) Len() int      { return b.count }
func (b *slidingBuffer) IsFull() bool  { return false }
func (b *slidingBuffer) unblocking() bool { return true }
func (b *slidingBuffer) Close()        {}

func (b *slidingBuffer) Put(v any) {
	if b.count == len(b.data) {
		// evict oldest
		b.data[b.head] = nil
		b.head = (b.head + 1) % len(b.data)
		b.count--
	}
	idx := (b.head + b.count) % len(b.data)
	b.data[idx] = v
	b.count++
}

func (b *slidingBuffer) Get() any {
	if b.count == 0 {
		panic("csp: Get called on an empty slidingBuffer")
	}
	v := b.data[b.head]
	b.data[b.head] = nil
	b.head = (b.head + 1) % len(b.data)
	b.count--
	return v
}

// promiseBuffer is a capacity-1 latch: the first Put sets the value
// forever; subsequent Puts are ignored; Get never empties it.
type promiseBuffer struct {
	val any
	set bool
}

var _ Buffer = (*promiseBuffer)(nil)

// NewPromiseBuffer returns an unblocking single-slot latch Buffer: the
// first value Put onto it is returned by every subsequent Get, forever.
func NewPromiseBuffer() Buffer {
	return &promiseBuffer{}
}

func (b *promiseBuffer) Len() int {
	if b.set {
		return 1
	}
	return 0
}
func (b *promiseBuffer) IsFull() bool     { return false }
func (b *promiseBuffer) unblocking() bool { return true }
func (b *promiseBuffer) Close()           {}

func (b *promiseBuffer) Put(v any) {
	if b.set {
		return
	}
	b.val = v
	b.set = true
}

func (b *promiseBuffer) Get() any {
	return b.val
}
