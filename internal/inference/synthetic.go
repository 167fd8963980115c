package inference

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// standing holds normalized image coordinates for a subject facing the camera
var standing = map[string]mgl64.Vec3{
	"nose":             {0.50, 0.12, 0},
	"left_eye_inner":   {0.51, 0.10, 0},
	"left_eye":         {0.52, 0.10, 0},
	"left_eye_outer":   {0.53, 0.10, 0},
	"right_eye_inner":  {0.49, 0.10, 0},
	"right_eye":        {0.48, 0.10, 0},
	"right_eye_outer":  {0.47, 0.10, 0},
	"left_ear":         {0.55, 0.11, 0},
	"right_ear":        {0.45, 0.11, 0},
	"mouth_left":       {0.52, 0.15, 0},
	"mouth_right":      {0.48, 0.15, 0},
	"left_shoulder":    {0.60, 0.25, 0},
	"right_shoulder":   {0.40, 0.25, 0},
	"left_elbow":       {0.62, 0.40, 0},
	"right_elbow":      {0.38, 0.40, 0},
	"left_wrist":       {0.63, 0.55, 0},
	"right_wrist":      {0.37, 0.55, 0},
	"left_pinky":       {0.64, 0.57, 0},
	"right_pinky":      {0.36, 0.57, 0},
	"left_index":       {0.63, 0.58, 0},
	"right_index":      {0.37, 0.58, 0},
	"left_thumb":       {0.62, 0.56, 0},
	"right_thumb":      {0.38, 0.56, 0},
	"left_hip":         {0.56, 0.55, 0},
	"right_hip":        {0.44, 0.55, 0},
	"left_knee":        {0.57, 0.72, 0},
	"right_knee":       {0.43, 0.72, 0},
	"left_ankle":       {0.57, 0.90, 0},
	"right_ankle":      {0.43, 0.90, 0},
	"left_heel":        {0.56, 0.92, 0},
	"right_heel":       {0.44, 0.92, 0},
	"left_foot_index":  {0.59, 0.93, 0},
	"right_foot_index": {0.41, 0.93, 0},
}

// Synthetic produces a standing skeleton whose right arm bends and
// straightens over Period frames. It ignores pixel data.
type Synthetic struct {
	Period     int     // Frames per full elbow cycle
	Visibility float64 // Visibility reported for every landmark
}

// NewSynthetic returns an estimator cycling every 90 frames
func NewSynthetic() *Synthetic {
	return &Synthetic{Period: 90, Visibility: 0.95}
}

// ElbowAngle returns the right elbow angle in degrees for frame seq
func (s *Synthetic) ElbowAngle(seq uint64) float64 {
	period := s.Period
	if period < 1 {
		period = 1
	}
	phase := 2 * math.Pi * float64(seq%uint64(period)) / float64(period)
	return 120 + 60*math.Sin(phase)
}

// Infer implements Estimator
func (s *Synthetic) Infer(ctx context.Context, frame *types.Frame) (*pose.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	landmarks := make(map[string]pose.LandmarkPoint, len(standing))
	for label, v := range standing {
		landmarks[label] = point(v, s.Visibility)
	}

	// Upper arm hangs straight down from the shoulder; the forearm swings
	// around the elbow so the shoulder-elbow-wrist angle is theta.
	theta := mgl64.DegToRad(s.ElbowAngle(frame.Seq))
	shoulder := standing["right_shoulder"]
	elbow := shoulder.Add(mgl64.Vec3{0, 0.15, 0})
	wrist := elbow.Add(mgl64.Vec3{-math.Sin(theta), -math.Cos(theta), 0}.Mul(0.15))
	landmarks["right_elbow"] = point(elbow, s.Visibility)
	landmarks["right_wrist"] = point(wrist, s.Visibility)

	return pose.NewEstimate(frame.Seq, frame.Timestamp, landmarks), nil
}

func point(v mgl64.Vec3, visibility float64) pose.LandmarkPoint {
	return pose.LandmarkPoint{X: v[0], Y: v[1], Z: v[2], Visibility: visibility}
}

// Replay hands out recorded estimates in order, looping at the end. Each
// returned estimate is a fresh copy stamped with the current frame.
type Replay struct {
	mu        sync.Mutex
	estimates []pose.Estimate
	next      int
}

// NewReplay returns an estimator over estimates. It fails when there is
// nothing to replay.
func NewReplay(estimates []pose.Estimate) (*Replay, error) {
	if len(estimates) == 0 {
		return nil, errors.New("replay: no estimates")
	}
	return &Replay{estimates: estimates}, nil
}

// Infer implements Estimator
func (r *Replay) Infer(ctx context.Context, frame *types.Frame) (*pose.Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	src := r.estimates[r.next]
	r.next = (r.next + 1) % len(r.estimates)
	r.mu.Unlock()

	landmarks := make(map[string]pose.LandmarkPoint, len(src.Landmarks))
	for k, v := range src.Landmarks {
		landmarks[k] = v
	}
	return pose.NewEstimate(frame.Seq, frame.Timestamp, landmarks), nil
}
