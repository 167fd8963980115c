// Package cache keeps a short, time-ordered history of samples per tracked
// joint and averages it over a recency window.
package cache

// Ring is a fixed-capacity FIFO. Pushing into a full ring evicts the oldest
// element. Ring is not safe for concurrent use; Cache adds the locking.
type Ring[T any] struct {
	buf   []T
	start int // index of the oldest element
	size  int
}

// NewRing returns an empty ring holding at most capacity elements
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Len returns the number of stored elements
func (r *Ring[T]) Len() int {
	return r.size
}

// Push appends v, evicting the oldest element when full. It reports whether
// an element was evicted.
func (r *Ring[T]) Push(v T) bool {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return false
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Latest returns the most recently pushed element
func (r *Ring[T]) Latest() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.at(r.size - 1), true
}

// Newest calls fn from the newest element to the oldest until fn returns false
func (r *Ring[T]) Newest(fn func(T) bool) {
	for i := r.size - 1; i >= 0; i-- {
		if !fn(r.at(i)) {
			return
		}
	}
}

// Items returns a copy of the elements, oldest first
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.at(i)
	}
	return out
}

// Reset drops all elements
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start = 0
	r.size = 0
}

func (r *Ring[T]) at(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}
