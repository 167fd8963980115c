package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/camera"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/inference"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/notify"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// PoseSink receives published estimates without blocking the producer
type PoseSink interface {
	IsRecording() bool
	Send(est *pose.Estimate) bool
}

// Producer acquires frames, runs inference and publishes estimates
type Producer struct {
	device       *camera.Device
	estimator    inference.Estimator
	slot         *pose.Slot
	event        *notify.Event
	opts         camera.Options
	frameTimeout time.Duration
	retryDelay   time.Duration
	pollSlice    time.Duration
	metrics      *metrics.Metrics
	sink         PoseSink

	lastDigest uint64
	haveDigest bool

	acquireLog   *logger.Every
	inferenceLog *logger.Every
}

// NewProducer creates a producer reading from device
func NewProducer(device *camera.Device, est inference.Estimator, slot *pose.Slot, event *notify.Event, opts camera.Options, frameTimeout time.Duration, m *metrics.Metrics) *Producer {
	return &Producer{
		device:       device,
		estimator:    est,
		slot:         slot,
		event:        event,
		opts:         opts,
		frameTimeout: frameTimeout,
		retryDelay:   100 * time.Millisecond,
		pollSlice:    100 * time.Millisecond,
		metrics:      m,
		acquireLog:   logger.NewEvery(30),
		inferenceLog: logger.NewEvery(30),
	}
}

// frameDigest hashes the frame geometry and pixels
func frameDigest(f *types.Frame) uint64 {
	var hdr [24]byte
	binary.LittleEndian.PutUint64(hdr[0:], uint64(f.Width))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(f.Height))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(f.Format))
	d := xxhash.New()
	d.Write(hdr[:])
	d.Write(f.Data)
	return d.Sum64()
}

// acquire waits up to frameTimeout for a frame, reading in pollSlice
// steps so a cancelled ctx is noticed between reads
func (p *Producer) acquire(ctx context.Context) (*types.Frame, error) {
	deadline := time.Now().Add(p.frameTimeout)
	for {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}
		if wait > p.pollSlice {
			wait = p.pollSlice
		}
		frame, err := p.device.GetFrame(wait)
		if err != nil || frame != nil {
			return frame, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Step runs one acquire/infer/publish cycle. A returned error means the
// cycle was skipped; the caller keeps going.
func (p *Producer) Step(ctx context.Context) error {
	frame, err := p.acquire(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		p.metrics.FrameErrors.Add(1)
		p.acquireLog.Warn("Producer", "Frame acquisition failed: %v", err)
		return err
	}
	if frame == nil {
		p.metrics.FramesEmpty.Add(1)
		return nil
	}
	p.metrics.FramesAcquired.Add(1)

	digest := frameDigest(frame)
	changed := !p.haveDigest || digest != p.lastDigest
	if !changed {
		p.metrics.FramesDuplicate.Add(1)
	}

	input, err := camera.Preprocess(frame, p.opts)
	if err != nil {
		p.metrics.FrameErrors.Add(1)
		p.acquireLog.Warn("Producer", "Frame %d preprocessing failed: %v", frame.Seq, err)
		return err
	}

	start := time.Now()
	est, err := p.estimator.Infer(ctx, input)
	p.metrics.UpdateInferenceLatency(time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.metrics.InferenceErrors.Add(1)
		p.inferenceLog.Warn("Producer", "Inference failed on frame %d: %v", frame.Seq, err)
		return fmt.Errorf("inference: %w", err)
	}
	// Only frames that made it through inference count as seen, so a frame
	// whose inference failed never suppresses a later signal
	p.lastDigest, p.haveDigest = digest, true

	if est == nil {
		p.metrics.PosesMissing.Add(1)
		p.slot.Store(nil)
		return nil
	}

	p.slot.Store(est)
	p.metrics.PosesPublished.Add(1)

	if p.sink != nil && p.sink.IsRecording() {
		if p.sink.Send(est) {
			p.metrics.RecordedPoses.Add(1)
		} else {
			p.metrics.RecordDropped.Add(1)
		}
	}

	if changed {
		p.metrics.UpdateSignals.Add(1)
		if !p.event.Set() {
			p.metrics.SignalsCollapsed.Add(1)
		}
	}
	return nil
}

// Run loops Step until ctx is cancelled
func (p *Producer) Run(ctx context.Context) {
	logger.Info("Producer", "Pose producer started (frame timeout %v)", p.frameTimeout)
	defer logger.Info("Producer", "Pose producer stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := p.Step(ctx); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
		}
	}
}
