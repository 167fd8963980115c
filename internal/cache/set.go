package cache

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/joints"
)

// AngleJoint pairs an angle spec with its cache
type AngleJoint struct {
	Spec  joints.AngleSpec
	Cache *Cache[float64]
}

// PositionJoint pairs a position spec with its cache
type PositionJoint struct {
	Spec  joints.PositionSpec
	Cache *Cache[mgl64.Vec3]
}

// Set holds one cache per joint in a schema. The slices are fixed at
// construction; only cache contents change afterwards.
type Set struct {
	Angles    []AngleJoint
	Positions []PositionJoint

	angleByName    map[string]*Cache[float64]
	positionByName map[string]*Cache[mgl64.Vec3]
}

// NewSet builds empty caches for every joint in schema
func NewSet(schema joints.Schema, capacity int) *Set {
	s := &Set{
		Angles:         make([]AngleJoint, 0, len(schema.Angles)),
		Positions:      make([]PositionJoint, 0, len(schema.Positions)),
		angleByName:    make(map[string]*Cache[float64], len(schema.Angles)),
		positionByName: make(map[string]*Cache[mgl64.Vec3], len(schema.Positions)),
	}
	for _, spec := range schema.Angles {
		c := NewAngleCache(spec.Name, capacity)
		s.Angles = append(s.Angles, AngleJoint{Spec: spec, Cache: c})
		s.angleByName[spec.Name] = c
	}
	for _, spec := range schema.Positions {
		c := NewPositionCache(spec.Name, capacity)
		s.Positions = append(s.Positions, PositionJoint{Spec: spec, Cache: c})
		s.positionByName[spec.Name] = c
	}
	return s
}

// Angle returns the cache for an angle joint
func (s *Set) Angle(name string) (*Cache[float64], bool) {
	c, ok := s.angleByName[name]
	return c, ok
}

// Position returns the cache for a position joint
func (s *Set) Position(name string) (*Cache[mgl64.Vec3], bool) {
	c, ok := s.positionByName[name]
	return c, ok
}

// Snapshot averages every cache over window. Each cache is locked only
// while it is being averaged.
func (s *Set) Snapshot(window time.Duration, now time.Time) features.Snapshot {
	snap := features.NewSnapshot(now)
	for _, j := range s.Angles {
		if v, ok := j.Cache.WindowedAverage(window); ok {
			snap.Angles[j.Spec.Name] = v
		}
	}
	for _, j := range s.Positions {
		if v, ok := j.Cache.WindowedAverage(window); ok {
			snap.Positions[j.Spec.Name] = features.PositionOf(v)
		}
	}
	return snap
}
