package inference

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

func mustCBOR(t *testing.T, v any) []byte {
	t.Helper()
	b, err := cbor.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func testFrame() *types.Frame {
	return &types.Frame{Seq: 42, Timestamp: time.Unix(100, 0), Width: 2, Height: 2, Format: types.FormatRGB}
}

func TestDecodeReplyPose(t *testing.T) {
	msg := mustCBOR(t, map[string]any{
		"type":     "pose",
		"detected": true,
		"landmarks": map[string]any{
			"left_elbow": []any{0.5, 0.25, -0.1, 0.9},
			"nose":       []any{1, 0, 0, 1},
			"tail":       []any{0.0, 0.0, 0.0, 1.0},
		},
	})
	est, err := decodeReply(msg, testFrame())
	if err != nil {
		t.Fatalf("decodeReply: %v", err)
	}
	if est == nil || est.FrameSeq != 42 || !est.CapturedAt.Equal(time.Unix(100, 0)) {
		t.Fatalf("unexpected estimate %+v", est)
	}
	if _, ok := est.Point("tail"); ok {
		t.Fatal("unknown label should be dropped")
	}
	p, ok := est.Point("left_elbow")
	if !ok || p.X != 0.5 || p.Y != 0.25 || p.Z != -0.1 || p.Visibility != 0.9 {
		t.Fatalf("left_elbow = %+v", p)
	}
	if n, _ := est.Point("nose"); n.X != 1 || n.Visibility != 1 {
		t.Fatalf("integer values not converted: %+v", n)
	}
}

func TestDecodeReplyNoPose(t *testing.T) {
	msg := mustCBOR(t, map[string]any{"type": "pose", "detected": false})
	est, err := decodeReply(msg, testFrame())
	if err != nil || est != nil {
		t.Fatalf("decodeReply = %v, %v; want nil, nil", est, err)
	}
}

func TestDecodeReplyErrors(t *testing.T) {
	cases := map[string][]byte{
		"sidecar error": mustCBOR(t, map[string]any{"type": "error", "error": "model not loaded"}),
		"wrong type":    mustCBOR(t, map[string]any{"type": "image"}),
		"short point": mustCBOR(t, map[string]any{
			"type": "pose", "detected": true,
			"landmarks": map[string]any{"nose": []any{0.1, 0.2}},
		}),
		"visibility range": mustCBOR(t, map[string]any{
			"type": "pose", "detected": true,
			"landmarks": map[string]any{"nose": []any{0.1, 0.2, 0.3, 1.5}},
		}),
		"not cbor": []byte{0xff, 0x00},
	}
	for name, msg := range cases {
		if _, err := decodeReply(msg, testFrame()); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestEncodeRequest(t *testing.T) {
	f := testFrame()
	f.Data = []byte{1, 2, 3}
	b, err := encodeRequest(f)
	if err != nil {
		t.Fatalf("encodeRequest: %v", err)
	}
	var req frameRequest
	if err := cbor.Unmarshal(b, &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Type != "frame" || req.Format != "rgb" || req.Seq != 42 || req.TimestampNs != 100e9 {
		t.Fatalf("request = %+v", req)
	}
}

func TestSyntheticElbowAngle(t *testing.T) {
	s := NewSynthetic()
	for _, seq := range []uint64{0, 10, 22, 45, 70} {
		f := testFrame()
		f.Seq = seq
		est, err := s.Infer(context.Background(), f)
		if err != nil {
			t.Fatal(err)
		}
		if len(est.Landmarks) != len(pose.Landmarks) {
			t.Fatalf("got %d landmarks", len(est.Landmarks))
		}
		sh, _ := est.Point("right_shoulder")
		el, _ := est.Point("right_elbow")
		wr, _ := est.Point("right_wrist")
		got := features.Angle(sh.Vec(), el.Vec(), wr.Vec())
		if want := s.ElbowAngle(seq); math.Abs(got-want) > 1e-6 {
			t.Fatalf("seq %d: angle %.4f, want %.4f", seq, got, want)
		}
	}
}

func TestReplayLoops(t *testing.T) {
	recorded := []pose.Estimate{
		{Landmarks: map[string]pose.LandmarkPoint{"nose": {X: 1}}},
		{Landmarks: map[string]pose.LandmarkPoint{"nose": {X: 2}}},
	}
	r, err := NewReplay(recorded)
	if err != nil {
		t.Fatal(err)
	}
	var xs []float64
	for i := 0; i < 3; i++ {
		est, err := r.Infer(context.Background(), testFrame())
		if err != nil {
			t.Fatal(err)
		}
		p, _ := est.Point("nose")
		xs = append(xs, p.X)
	}
	if xs[0] != 1 || xs[1] != 2 || xs[2] != 1 {
		t.Fatalf("replay order = %v", xs)
	}

	if _, err := NewReplay(nil); err == nil {
		t.Fatal("expected error for empty replay")
	}
}
