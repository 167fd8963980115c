// Package features turns landmark geometry into joint angles and holds the
// averaged per-joint values handed to the coach.
package features

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Angle returns the angle in degrees at vertex b formed by a-b-c.
// The result is NaN when a or c coincides with b.
func Angle(a, b, c mgl64.Vec3) float64 {
	ba := a.Sub(b)
	bc := c.Sub(b)

	denom := ba.Len() * bc.Len()
	if denom == 0 {
		return math.NaN()
	}

	cos := mgl64.Clamp(ba.Dot(bc)/denom, -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// Valid reports whether v is a finite number
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
