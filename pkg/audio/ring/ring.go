// ABOUTME: Single-producer single-consumer ring buffer
// ABOUTME: Fixed-capacity circular queue with monotonically increasing cursors
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrShortRead is returned by ReadMany when fewer elements than requested
// are buffered and a short read was not allowed.
var ErrShortRead = errors.New("ring: not enough elements buffered")

// Buffer is a fixed-capacity circular queue.
//
// The read and write cursors only ever increase; storage is indexed by
// cursor modulo capacity, so write-read is always the element count and
// empty (0) and full (capacity) never collide.
//
// One goroutine may write (Write, WriteMany, Free) while another reads
// (Read, ReadMany, ReadInto, Reset). Size and Capacity are safe from
// either side. There is no further synchronization.
type Buffer[T any] struct {
	writePos atomic.Uint64
	readPos  atomic.Uint64

	buf      []T
	capacity uint64
}

// New creates a buffer holding up to capacity elements
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("ring: capacity must be positive, got %d", capacity))
	}
	return &Buffer[T]{
		buf:      make([]T, capacity),
		capacity: uint64(capacity),
	}
}

// Capacity returns the fixed element capacity
func (b *Buffer[T]) Capacity() int {
	return int(b.capacity)
}

// Size returns the number of buffered elements
func (b *Buffer[T]) Size() int {
	r := b.readPos.Load()
	w := b.writePos.Load()
	return int(w - r)
}

// Free returns the number of elements that can be written
func (b *Buffer[T]) Free() int {
	return int(b.capacity) - b.Size()
}

// Write appends one element. It returns false and changes nothing when
// the buffer is full.
func (b *Buffer[T]) Write(v T) bool {
	w := b.writePos.Load()
	if w-b.readPos.Load() >= b.capacity {
		return false
	}
	b.buf[w%b.capacity] = v
	b.writePos.Store(w + 1)
	return true
}

// WriteMany appends as many elements from the front of vs as fit and
// returns how many were accepted. It never blocks.
func (b *Buffer[T]) WriteMany(vs []T) int {
	w := b.writePos.Load()
	free := b.capacity - (w - b.readPos.Load())

	n := uint64(len(vs))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	// Copy in one or two segments depending on wrap-around
	pos := w % b.capacity
	first := b.capacity - pos
	if first >= n {
		copy(b.buf[pos:pos+n], vs[:n])
	} else {
		copy(b.buf[pos:], vs[:first])
		copy(b.buf[:n-first], vs[first:n])
	}

	b.writePos.Store(w + n)
	return int(n)
}

// Read removes and returns the oldest element; ok is false when empty
func (b *Buffer[T]) Read() (v T, ok bool) {
	r := b.readPos.Load()
	if r == b.writePos.Load() {
		return v, false
	}
	idx := r % b.capacity
	v = b.buf[idx]
	var zero T
	b.buf[idx] = zero
	b.readPos.Store(r + 1)
	return v, true
}

// ReadMany removes up to n of the oldest elements.
//
// With allowShort false, fewer than n buffered elements is an error and
// nothing is removed. With allowShort true, whatever is buffered (up to n)
// is returned.
func (b *Buffer[T]) ReadMany(n int, allowShort bool) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("ring: negative read count %d", n)
	}
	size := b.Size()
	if size < n {
		if !allowShort {
			return nil, fmt.Errorf("%w: want %d, have %d", ErrShortRead, n, size)
		}
		n = size
	}

	out := make([]T, n)
	b.ReadInto(out)
	return out, nil
}

// ReadInto removes up to len(dst) elements into dst and returns the count.
// It does not allocate.
func (b *Buffer[T]) ReadInto(dst []T) int {
	r := b.readPos.Load()
	available := b.writePos.Load() - r

	n := uint64(len(dst))
	if n > available {
		n = available
	}
	if n == 0 {
		return 0
	}

	pos := r % b.capacity
	first := b.capacity - pos
	if first >= n {
		copy(dst[:n], b.buf[pos:pos+n])
	} else {
		copy(dst[:first], b.buf[pos:])
		copy(dst[first:n], b.buf[:n-first])
	}

	b.readPos.Store(r + n)
	return int(n)
}

// Reset discards everything buffered. Consumer side only.
func (b *Buffer[T]) Reset() {
	b.readPos.Store(b.writePos.Load())
}
