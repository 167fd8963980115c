package inference

import (
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// frameRequest is the CBOR message sent to the pose sidecar
type frameRequest struct {
	Type        string `cbor:"type"`
	Seq         uint64 `cbor:"seq"`
	Width       int    `cbor:"width"`
	Height      int    `cbor:"height"`
	Format      string `cbor:"format"`
	TimestampNs int64  `cbor:"timestamp_ns"`
	Data        []byte `cbor:"data"`
}

// poseReply is the sidecar's answer. Landmark values are [x, y, z, visibility].
type poseReply struct {
	Type      string           `cbor:"type"`
	Detected  bool             `cbor:"detected"`
	Error     string           `cbor:"error"`
	Landmarks map[string][]any `cbor:"landmarks"`
}

func encodeRequest(f *types.Frame) ([]byte, error) {
	return cbor.Marshal(frameRequest{
		Type:        "frame",
		Seq:         f.Seq,
		Width:       f.Width,
		Height:      f.Height,
		Format:      f.Format.String(),
		TimestampNs: f.Timestamp.UnixNano(),
		Data:        f.Data,
	})
}

// decodeReply parses a sidecar reply for frame f. A reply without a
// detected pose yields (nil, nil).
func decodeReply(msg []byte, f *types.Frame) (*pose.Estimate, error) {
	var reply poseReply
	if err := cbor.Unmarshal(msg, &reply); err != nil {
		return nil, fmt.Errorf("CBOR decode error: %w", err)
	}

	switch reply.Type {
	case "pose":
	case "error":
		if reply.Error == "" {
			reply.Error = "unspecified"
		}
		return nil, fmt.Errorf("sidecar error: %s", reply.Error)
	default:
		return nil, fmt.Errorf("unexpected message type %q", reply.Type)
	}

	if !reply.Detected || len(reply.Landmarks) == 0 {
		return nil, nil
	}

	landmarks := make(map[string]pose.LandmarkPoint, len(reply.Landmarks))
	for label, raw := range reply.Landmarks {
		if !pose.IsLandmark(label) {
			continue
		}
		p, err := toPoint(raw)
		if err != nil {
			return nil, fmt.Errorf("landmark %q: %w", label, err)
		}
		landmarks[label] = p
	}
	if len(landmarks) == 0 {
		return nil, nil
	}
	return pose.NewEstimate(f.Seq, f.Timestamp, landmarks), nil
}

func toPoint(raw []any) (pose.LandmarkPoint, error) {
	if len(raw) != 4 {
		return pose.LandmarkPoint{}, fmt.Errorf("expected 4 values, got %d", len(raw))
	}
	var v [4]float64
	for i, x := range raw {
		f, err := toFloat(x)
		if err != nil {
			return pose.LandmarkPoint{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return pose.LandmarkPoint{}, errors.New("non-finite value")
		}
		v[i] = f
	}
	if v[3] < 0 || v[3] > 1 {
		return pose.LandmarkPoint{}, fmt.Errorf("visibility %g out of range", v[3])
	}
	return pose.LandmarkPoint{X: v[0], Y: v[1], Z: v[2], Visibility: v[3]}, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}
