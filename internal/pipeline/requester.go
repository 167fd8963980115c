package pipeline

import (
	"context"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/cache"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/coach"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
)

// Requester periodically averages the caches and hands the snapshot to a
// consumer. It never writes to the caches.
type Requester struct {
	slot         *pose.Slot
	caches       *cache.Set
	consumer     coach.Consumer
	window       time.Duration
	period       time.Duration
	initialDelay time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewRequester creates a requester
func NewRequester(slot *pose.Slot, caches *cache.Set, consumer coach.Consumer, window, period, initialDelay time.Duration, m *metrics.Metrics) *Requester {
	return &Requester{
		slot:         slot,
		caches:       caches,
		consumer:     consumer,
		window:       window,
		period:       period,
		initialDelay: initialDelay,
		metrics:      m,
		now:          time.Now,
	}
}

// Request builds one snapshot and forwards it. It returns false when no
// subject is currently visible.
func (r *Requester) Request(ctx context.Context) (features.Snapshot, bool) {
	if est, _ := r.slot.Load(); est == nil {
		r.metrics.SnapshotsSkipped.Add(1)
		return features.Snapshot{}, false
	}

	snap := r.caches.Snapshot(r.window, r.now())
	r.metrics.SnapshotsSent.Add(1)
	if r.consumer != nil {
		if err := r.consumer.Consume(ctx, snap); err != nil && ctx.Err() == nil {
			r.metrics.ConsumerErrors.Add(1)
			logger.Warn("Requester", "Snapshot consumer failed: %v", err)
		}
	}
	return snap, true
}

// Run waits the initial delay, then requests a snapshot every period
func (r *Requester) Run(ctx context.Context) {
	logger.Info("Requester", "Snapshot requester started (period %v, initial delay %v)", r.period, r.initialDelay)
	defer logger.Info("Requester", "Snapshot requester stopped")

	delay := time.NewTimer(r.initialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		if _, ok := r.Request(ctx); !ok {
			logger.Debug("Requester", "No subject visible, skipping snapshot")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
