package features

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const tolerance = 1e-9

func TestAngleRightAngle(t *testing.T) {
	got := Angle(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0})
	if math.Abs(got-90) > tolerance {
		t.Fatalf("Angle = %v, want 90", got)
	}
}

func TestAngleStraightLine(t *testing.T) {
	got := Angle(mgl64.Vec3{-2, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 0, 0})
	if got != 180.0 {
		t.Fatalf("Angle = %v, want exactly 180", got)
	}
}

func TestAngleSymmetric(t *testing.T) {
	a := mgl64.Vec3{0.31, 0.42, -0.1}
	b := mgl64.Vec3{0.35, 0.55, 0.02}
	c := mgl64.Vec3{0.52, 0.61, 0.07}
	if Angle(a, b, c) != Angle(c, b, a) {
		t.Fatalf("Angle not symmetric: %v vs %v", Angle(a, b, c), Angle(c, b, a))
	}
}

func TestAngleDegenerate(t *testing.T) {
	b := mgl64.Vec3{0.5, 0.5, 0}
	if v := Angle(b, b, mgl64.Vec3{1, 1, 1}); Valid(v) {
		t.Fatalf("expected NaN when a == b, got %v", v)
	}
	if v := Angle(mgl64.Vec3{1, 1, 1}, b, b); Valid(v) {
		t.Fatalf("expected NaN when c == b, got %v", v)
	}
}

func TestAngleClampsRoundingOvershoot(t *testing.T) {
	// Nearly parallel arms can push the cosine a hair past 1.
	a := mgl64.Vec3{1e-8, 1, 0}
	c := mgl64.Vec3{1e-8, 3, 0}
	v := Angle(a, mgl64.Vec3{}, c)
	if !Valid(v) || v < 0 || v > 1e-3 {
		t.Fatalf("Angle = %v, want ~0", v)
	}
}
