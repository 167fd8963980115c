package recorder

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
)

func estimate(seq uint64, x float64) *pose.Estimate {
	return pose.NewEstimate(seq, time.Unix(1700000000, 123456789), map[string]pose.LandmarkPoint{
		"nose": {X: x, Y: 0.5, Z: -0.25, Visibility: 0.9},
	})
}

func TestRecordAndReadBack(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	if r.Send(estimate(0, 0)) {
		t.Fatal("Send accepted a pose while idle")
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start = %v", err)
	}

	want := []*pose.Estimate{estimate(1, 0.1), estimate(2, 0.2), estimate(3, 0.3)}
	for _, e := range want {
		if !r.Send(e) {
			t.Fatalf("Send dropped pose %d", e.FrameSeq)
		}
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("second Stop = %v", err)
	}

	st := r.GetStatus()
	if st.Recording || st.PoseCount != 3 || st.BytesWritten == 0 {
		t.Fatalf("status = %+v", st)
	}

	got, err := ReadFile(filepath.Join(dir, st.Filename))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("read %d poses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].FrameSeq != want[i].FrameSeq {
			t.Fatalf("pose %d = %+v, want %+v", i, got[i], *want[i])
		}
		if !got[i].CapturedAt.Equal(want[i].CapturedAt) {
			t.Fatalf("pose %d captured at %v, want %v", i, got[i].CapturedAt, want[i].CapturedAt)
		}
		if got[i].Landmarks["nose"] != want[i].Landmarks["nose"] {
			t.Fatalf("pose %d nose = %+v", i, got[i].Landmarks["nose"])
		}
	}
}

func TestReadRejectsForeignFile(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("\x00\x00\x00\x01gibberish"))); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := Read(bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadEmptyRecording(t *testing.T) {
	got, err := Read(bytes.NewReader(fileMagic))
	if err != nil || len(got) != 0 {
		t.Fatalf("Read = %v, %v", got, err)
	}
}
