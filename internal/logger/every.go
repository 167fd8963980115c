package logger

import "sync/atomic"

// Every emits only one in every n calls. Per-frame loops use it so a
// disconnected camera does not flood the log at 30 lines per second.
type Every struct {
	n       uint64
	counter atomic.Uint64
}

// NewEvery returns a limiter that lets the 1st, (n+1)th, (2n+1)th ... call through
func NewEvery(n int) *Every {
	if n < 1 {
		n = 1
	}
	return &Every{n: uint64(n)}
}

// Allow reports whether this call should be logged
func (e *Every) Allow() bool {
	c := e.counter.Add(1)
	return (c-1)%e.n == 0
}

// Count returns how many calls have been made
func (e *Every) Count() uint64 {
	return e.counter.Load()
}

// Warn logs through the global logger when allowed, tagging the running count
func (e *Every) Warn(module string, format string, args ...any) {
	if !e.Allow() {
		return
	}
	args = append(args, e.Count())
	Warn(module, format+" (occurrence %d)", args...)
}
