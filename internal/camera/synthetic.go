package camera

import (
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// SyntheticSource generates RGB test frames at a fixed rate. With Hold > 1
// every generated image is repeated Hold times, the way a stalled camera
// keeps handing out its last buffer.
type SyntheticSource struct {
	Width  int
	Height int
	FPS    float64
	Hold   int

	mu      sync.Mutex
	running bool
	next    time.Time
	seq     uint64
	last    []byte
}

// NewSyntheticSource returns a 30fps source of width x height frames
func NewSyntheticSource(width, height int) *SyntheticSource {
	return &SyntheticSource{Width: width, Height: height, FPS: 30, Hold: 1}
}

// Start implements Source
func (s *SyntheticSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FPS <= 0 {
		s.FPS = 30
	}
	if s.Hold < 1 {
		s.Hold = 1
	}
	s.running = true
	s.next = time.Now()
	return nil
}

// Stop implements Source
func (s *SyntheticSource) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// ReadFrame implements Source
func (s *SyntheticSource) ReadFrame(timeout time.Duration) (*types.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrNotStreaming
	}

	wait := time.Until(s.next)
	if wait > timeout {
		time.Sleep(timeout)
		return nil, nil
	}
	if wait > 0 {
		time.Sleep(wait)
	}
	interval := time.Duration(float64(time.Second) / s.FPS)
	s.next = s.next.Add(interval)
	if behind := time.Since(s.next); behind > interval {
		s.next = time.Now()
	}

	if s.seq%uint64(s.Hold) == 0 || s.last == nil {
		s.last = s.render(s.seq / uint64(s.Hold))
	}
	s.seq++

	data := make([]byte, len(s.last))
	copy(data, s.last)
	return &types.Frame{
		Data:      data,
		Timestamp: time.Now(),
		Seq:       s.seq,
		Width:     s.Width,
		Height:    s.Height,
		Format:    types.FormatRGB,
	}, nil
}

// render draws a diagonal gradient that shifts with n
func (s *SyntheticSource) render(n uint64) []byte {
	data := make([]byte, s.Width*s.Height*3)
	shift := int(n % 256)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			i := (y*s.Width + x) * 3
			data[i+0] = byte((x + shift) % 256)
			data[i+1] = byte((y + shift) % 256)
			data[i+2] = byte((x + y) % 256)
		}
	}
	return data
}
