// Package pose holds per-frame landmark estimates and the shared slot the
// producer publishes them through.
package pose

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// LandmarkPoint is one labeled anatomical point with model confidence in [0,1]
type LandmarkPoint struct {
	X          float64 `json:"x" cbor:"x"`
	Y          float64 `json:"y" cbor:"y"`
	Z          float64 `json:"z" cbor:"z"`
	Visibility float64 `json:"visibility" cbor:"visibility"`
}

// Vec returns the point's coordinates as a vector
func (p LandmarkPoint) Vec() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// Visible reports whether the point's visibility is strictly above threshold
func (p LandmarkPoint) Visible(threshold float64) bool {
	return p.Visibility > threshold
}

// Estimate is the pose inferred from one frame. It is never mutated after
// being stored in a Slot.
type Estimate struct {
	ID         uuid.UUID                `json:"id" cbor:"id"`
	FrameSeq   uint64                   `json:"frame_seq" cbor:"frame_seq"`
	CapturedAt time.Time                `json:"captured_at" cbor:"captured_at"`
	Landmarks  map[string]LandmarkPoint `json:"landmarks" cbor:"landmarks"`
}

// NewEstimate stamps a fresh ID on a set of landmarks
func NewEstimate(frameSeq uint64, capturedAt time.Time, landmarks map[string]LandmarkPoint) *Estimate {
	return &Estimate{
		ID:         uuid.New(),
		FrameSeq:   frameSeq,
		CapturedAt: capturedAt,
		Landmarks:  landmarks,
	}
}

// Point looks up a landmark by label
func (e *Estimate) Point(label string) (LandmarkPoint, bool) {
	if e == nil {
		return LandmarkPoint{}, false
	}
	p, ok := e.Landmarks[label]
	return p, ok
}
