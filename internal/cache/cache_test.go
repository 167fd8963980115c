package cache

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/joints"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestRingEvictsOldestFirst(t *testing.T) {
	r := NewRing[int](5)
	for i := 1; i <= 12; i++ {
		r.Push(i)
		if r.Len() > r.Cap() {
			t.Fatalf("Len %d exceeds capacity %d", r.Len(), r.Cap())
		}
	}
	items := r.Items()
	want := []int{8, 9, 10, 11, 12}
	if len(items) != len(want) {
		t.Fatalf("items = %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("items = %v, want %v", items, want)
		}
	}
	if latest, _ := r.Latest(); latest != 12 {
		t.Fatalf("Latest = %d, want 12", latest)
	}
}

func TestRingNewestStopsEarly(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}
	var seen []int
	r.Newest(func(v int) bool {
		seen = append(seen, v)
		return v > 5
	})
	if len(seen) != 2 || seen[0] != 6 || seen[1] != 5 {
		t.Fatalf("seen = %v", seen)
	}
}

func TestCacheLatestEmpty(t *testing.T) {
	c := NewAngleCache("knee", DefaultCapacity)
	if _, ok := c.Latest(); ok {
		t.Fatalf("expected empty cache")
	}
	if _, ok := c.WindowedAverage(DefaultWindow); ok {
		t.Fatalf("expected no data from empty cache")
	}
}

func TestWindowedAverageAnchorsOnNewestSample(t *testing.T) {
	c := NewAngleCache("elbow", DefaultCapacity)
	c.Push(10, t0)
	c.Push(20, t0.Add(500*time.Millisecond))
	c.Push(30, t0.Add(3*time.Second))

	avg, ok := c.WindowedAverage(2 * time.Second)
	if !ok || avg != 30 {
		t.Fatalf("avg = %v, %v; want 30 (older samples out of window)", avg, ok)
	}

	avg, ok = c.WindowedAverage(10 * time.Second)
	if !ok || avg != 20 {
		t.Fatalf("avg = %v, %v; want 20", avg, ok)
	}
}

func TestWindowedAverageEdgeIsInclusive(t *testing.T) {
	c := NewAngleCache("elbow", DefaultCapacity)
	c.Push(40, t0)
	c.Push(80, t0.Add(2*time.Second))

	avg, ok := c.WindowedAverage(2 * time.Second)
	if !ok || avg != 60 {
		t.Fatalf("avg = %v, %v; want 60", avg, ok)
	}
}

func TestPositionAverageIsComponentWise(t *testing.T) {
	c := NewPositionCache("head", DefaultCapacity)
	c.Push(mgl64.Vec3{0, 0, 0}, t0)
	c.Push(mgl64.Vec3{1, 2, 3}, t0.Add(100*time.Millisecond))
	c.Push(mgl64.Vec3{2, 4, 6}, t0.Add(200*time.Millisecond))

	avg, ok := c.WindowedAverage(DefaultWindow)
	if !ok {
		t.Fatalf("expected data")
	}
	if !avg.ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("avg = %v", avg)
	}
}

func TestPushClampsBackwardsClock(t *testing.T) {
	c := NewAngleCache("hip", DefaultCapacity)
	c.Push(1, t0.Add(time.Second))
	c.Push(2, t0)

	samples := c.Samples()
	if !samples[1].At.Equal(samples[0].At) {
		t.Fatalf("timestamps not monotonic: %v", samples)
	}
}

func TestSetSnapshotSkipsEmptyJoints(t *testing.T) {
	schema := joints.Schema{
		Angles: []joints.AngleSpec{
			{Name: "left_elbow", Anchors: [3]string{"left_shoulder", "left_elbow", "left_wrist"}},
			{Name: "right_elbow", Anchors: [3]string{"right_shoulder", "right_elbow", "right_wrist"}},
		},
		Positions: []joints.PositionSpec{{Name: "head", Anchor: "nose"}},
	}
	set := NewSet(schema, DefaultCapacity)

	left, ok := set.Angle("left_elbow")
	if !ok {
		t.Fatalf("missing left_elbow cache")
	}
	left.Push(90, t0)

	snap := set.Snapshot(DefaultWindow, t0)
	if len(snap.Angles) != 1 || snap.Angles["left_elbow"] != 90 {
		t.Fatalf("angles = %v", snap.Angles)
	}
	if len(snap.Positions) != 0 {
		t.Fatalf("positions = %v", snap.Positions)
	}
	if _, ok := set.Position("nope"); ok {
		t.Fatalf("unexpected cache for unknown joint")
	}
}

func TestCacheConcurrentReadWrite(t *testing.T) {
	c := NewAngleCache("knee", DefaultCapacity)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Push(float64(i%180), t0.Add(time.Duration(i)*time.Millisecond))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if v, ok := c.WindowedAverage(DefaultWindow); ok && math.IsNaN(v) {
				t.Errorf("NaN average")
				return
			}
		}
	}()
	wg.Wait()
	if c.Len() != DefaultCapacity {
		t.Fatalf("Len = %d", c.Len())
	}
}
