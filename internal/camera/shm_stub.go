//go:build !linux || !cgo

package camera

import (
	"errors"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

const DefaultSHMName = "/pose_coach_frames"

var errSHMUnsupported = errors.New("shared memory source requires linux and cgo")

// SHMSource is unavailable on this platform
type SHMSource struct {
	Name        string
	OpenRetries int
}

func NewSHMSource(name string) *SHMSource {
	if name == "" {
		name = DefaultSHMName
	}
	return &SHMSource{Name: name}
}

func (s *SHMSource) Start() error { return errSHMUnsupported }

func (s *SHMSource) Stop() error { return nil }

func (s *SHMSource) ReadFrame(time.Duration) (*types.Frame, error) {
	return nil, errSHMUnsupported
}
