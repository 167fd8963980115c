// Package camera acquires raw frames for pose inference.
package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// ErrNotStreaming is returned by GetFrame before Start or after Stop
var ErrNotStreaming = errors.New("camera is not streaming")

// Source is a frame producer such as a capture daemon or a simulator.
// ReadFrame returns (nil, nil) when no frame arrived within timeout.
type Source interface {
	Start() error
	ReadFrame(timeout time.Duration) (*types.Frame, error)
	Stop() error
}

// Device guards a Source with a streaming state so it can be started,
// stopped and closed from any goroutine. Always Close a device you opened.
type Device struct {
	mu        sync.RWMutex
	src       Source
	streaming bool
}

// NewDevice wraps src without starting it
func NewDevice(src Source) *Device {
	return &Device{src: src}
}

// Open starts src and returns the device. The caller must Close it.
func Open(src Source) (*Device, error) {
	d := NewDevice(src)
	if err := d.Start(); err != nil {
		return nil, err
	}
	return d, nil
}

// Start begins streaming. Starting a streaming device is a no-op.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streaming {
		logger.Warn("Camera", "Camera is already streaming")
		return nil
	}
	if err := d.src.Start(); err != nil {
		if serr := d.src.Stop(); serr != nil {
			logger.Warn("Camera", "Error cleaning up after failed start: %v", serr)
		}
		return fmt.Errorf("failed to start camera: %w", err)
	}
	d.streaming = true
	logger.Info("Camera", "Camera streaming started")
	return nil
}

// Stop ends streaming. Stopping an idle device is a no-op. Stop waits for
// any in-flight GetFrame to return before releasing the source.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.streaming {
		return nil
	}
	d.streaming = false
	if err := d.src.Stop(); err != nil {
		return fmt.Errorf("failed to stop camera: %w", err)
	}
	logger.Info("Camera", "Camera streaming stopped")
	return nil
}

// Close releases the device
func (d *Device) Close() error {
	return d.Stop()
}

// Streaming reports whether the device is started
func (d *Device) Streaming() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.streaming
}

// GetFrame waits up to timeout for the next frame. It returns (nil, nil)
// when no frame arrived in time.
func (d *Device) GetFrame(timeout time.Duration) (*types.Frame, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.streaming {
		return nil, ErrNotStreaming
	}
	frame, err := d.src.ReadFrame(timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	return frame, nil
}
