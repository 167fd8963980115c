package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/cache"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/camera"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/coach"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/inference"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/joints"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/notify"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
)

var (
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrStopped        = errors.New("pipeline stopped")
)

// Config holds the tunables of the three workers
type Config struct {
	Capacity            int
	Window              time.Duration
	VisibilityThreshold float64
	RequestPeriod       time.Duration
	InitialDelay        time.Duration
	FrameTimeout        time.Duration
	Preprocess          camera.Options
}

// DefaultConfig returns the standard tunables
func DefaultConfig() Config {
	return Config{
		Capacity:            cache.DefaultCapacity,
		Window:              cache.DefaultWindow,
		VisibilityThreshold: DefaultVisibilityThreshold,
		RequestPeriod:       5 * time.Second,
		InitialDelay:        2 * time.Second,
		FrameTimeout:        5 * time.Second,
	}
}

// Pipeline owns the shared state and the producer, updater and requester
type Pipeline struct {
	cfg     Config
	device  *camera.Device
	Slot    *pose.Slot
	Event   *notify.Event
	Caches  *cache.Set
	Metrics *metrics.Metrics

	producer  *Producer
	updater   *Updater
	requester *Requester

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// New wires a pipeline. consumer may be nil.
func New(cfg Config, schema joints.Schema, device *camera.Device, est inference.Estimator, consumer coach.Consumer, m *metrics.Metrics) *Pipeline {
	if m == nil {
		m = metrics.New()
	}
	slot := &pose.Slot{}
	event := notify.NewEvent()
	caches := cache.NewSet(schema, cfg.Capacity)

	return &Pipeline{
		cfg:       cfg,
		device:    device,
		Slot:      slot,
		Event:     event,
		Caches:    caches,
		Metrics:   m,
		producer:  NewProducer(device, est, slot, event, cfg.Preprocess, cfg.FrameTimeout, m),
		updater:   NewUpdater(slot, event, caches, cfg.VisibilityThreshold, m),
		requester: NewRequester(slot, caches, consumer, cfg.Window, cfg.RequestPeriod, cfg.InitialDelay, m),
	}
}

// SetRecorder taps every published estimate into sink. Call before Start.
func (p *Pipeline) SetRecorder(sink PoseSink) {
	p.producer.sink = sink
}

// Start opens the device and launches the workers
func (p *Pipeline) Start(parent context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrStopped
	}
	if p.started {
		return ErrAlreadyStarted
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}

	p.ctx, p.cancel = context.WithCancel(parent)
	p.started = true

	p.wg.Add(3)
	go func() { defer p.wg.Done(); p.producer.Run(p.ctx) }()
	go func() { defer p.wg.Done(); p.updater.Run(p.ctx) }()
	go func() { defer p.wg.Done(); p.requester.Run(p.ctx) }()

	logger.Info("Pipeline", "Pipeline started (%d angle joints, %d position joints, capacity %d, window %v)",
		len(p.Caches.Angles), len(p.Caches.Positions), p.cfg.Capacity, p.cfg.Window)
	return nil
}

// Shutdown stops the workers, waits for them and closes the device. It is
// safe to call more than once.
func (p *Pipeline) Shutdown() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	if started {
		p.cancel()
		p.wg.Wait()
	}
	if err := p.device.Close(); err != nil {
		return err
	}
	logger.Info("Pipeline", "Pipeline stopped")
	return nil
}

// Snapshot returns the current windowed averages, or false when no subject
// is visible.
func (p *Pipeline) Snapshot() (features.Snapshot, bool) {
	if est, _ := p.Slot.Load(); est == nil {
		return features.Snapshot{}, false
	}
	return p.Caches.Snapshot(p.cfg.Window, time.Now()), true
}
