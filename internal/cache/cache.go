package cache

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"
)

// Defaults for new caches
const (
	DefaultCapacity = 5
	DefaultWindow   = 2 * time.Second
)

// Sample is one cached value and the instant it was recorded
type Sample[T any] struct {
	Value T
	At    time.Time
}

// Averager reduces a non-empty list of values to their mean
type Averager[T any] func(values []T) T

// Cache is the per-joint sample history. Every method takes the cache's
// own lock, so a single writer and any number of readers may share it.
type Cache[T any] struct {
	name string
	avg  Averager[T]

	mu      sync.Mutex
	samples *Ring[Sample[T]]
	scratch []T
}

// New returns an empty cache
func New[T any](name string, capacity int, avg Averager[T]) *Cache[T] {
	ring := NewRing[Sample[T]](capacity)
	return &Cache[T]{
		name:    name,
		avg:     avg,
		samples: ring,
		scratch: make([]T, 0, ring.Cap()),
	}
}

// NewAngleCache returns a cache averaging angle magnitudes in degrees
func NewAngleCache(name string, capacity int) *Cache[float64] {
	return New(name, capacity, MeanAngle)
}

// NewPositionCache returns a cache averaging coordinates component-wise
func NewPositionCache(name string, capacity int) *Cache[mgl64.Vec3] {
	return New(name, capacity, MeanPosition)
}

// Name returns the joint name
func (c *Cache[T]) Name() string {
	return c.name
}

// Push records v at instant at, evicting the oldest sample when full. An
// instant earlier than the newest sample is raised to it so the history
// stays ordered.
func (c *Cache[T]) Push(v T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last, ok := c.samples.Latest(); ok && at.Before(last.At) {
		at = last.At
	}
	c.samples.Push(Sample[T]{Value: v, At: at})
}

// Latest returns the most recent sample
func (c *Cache[T]) Latest() (Sample[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.Latest()
}

// Len returns the number of cached samples
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.Len()
}

// Samples returns a copy of the history, oldest first
func (c *Cache[T]) Samples() []Sample[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples.Items()
}

// WindowedAverage averages the samples no more than window older than the
// newest sample in this cache. The edge is inclusive: a sample exactly
// window old counts. ok is false when the cache is empty.
func (c *Cache[T]) WindowedAverage(window time.Duration) (avg T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	newest, ok := c.samples.Latest()
	if !ok {
		return avg, false
	}

	values := c.scratch[:0]
	c.samples.Newest(func(s Sample[T]) bool {
		if newest.At.Sub(s.At) > window {
			return false
		}
		values = append(values, s.Value)
		return true
	})
	c.scratch = values[:0]

	return c.avg(values), true
}

// MeanAngle is the arithmetic mean of angle magnitudes
func MeanAngle(values []float64) float64 {
	return stat.Mean(values, nil)
}

// MeanPosition is the component-wise mean of coordinates
func MeanPosition(values []mgl64.Vec3) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(values)))
}
