package features

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Position mirrors a landmark's averaged coordinates
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PositionOf converts a vector to a Position
func PositionOf(v mgl64.Vec3) Position {
	return Position{X: v[0], Y: v[1], Z: v[2]}
}

// Snapshot is the set of windowed averages across all tracked joints.
// Joints without data in the window are absent.
type Snapshot struct {
	TakenAt   time.Time           `json:"taken_at"`
	Angles    map[string]float64  `json:"angles"`
	Positions map[string]Position `json:"positions"`
}

// NewSnapshot returns an empty snapshot stamped with takenAt
func NewSnapshot(takenAt time.Time) Snapshot {
	return Snapshot{
		TakenAt:   takenAt,
		Angles:    make(map[string]float64),
		Positions: make(map[string]Position),
	}
}

// Empty reports whether no joint had data
func (s Snapshot) Empty() bool {
	return len(s.Angles) == 0 && len(s.Positions) == 0
}

// AngleNames returns angle joint names in sorted order
func (s Snapshot) AngleNames() []string {
	names := make([]string, 0, len(s.Angles))
	for name := range s.Angles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PositionNames returns position joint names in sorted order
func (s Snapshot) PositionNames() []string {
	names := make([]string, 0, len(s.Positions))
	for name := range s.Positions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
