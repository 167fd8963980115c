// Package pipeline runs the pose producer, cache updater and snapshot
// requester workers and coordinates their shutdown.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/cache"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/notify"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
)

// DefaultVisibilityThreshold is the exclusive lower bound for using a landmark
const DefaultVisibilityThreshold = 0.85

// UpdateResult counts what one estimate contributed to the caches
type UpdateResult struct {
	Pushed            int
	SkippedVisibility int
	Degenerate        int
}

// Updater writes pose estimates into the joint caches. It is the only
// writer of the caches and handles one estimate at a time.
type Updater struct {
	slot      *pose.Slot
	event     *notify.Event
	caches    *cache.Set
	threshold float64
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewUpdater creates an updater feeding caches from slot
func NewUpdater(slot *pose.Slot, event *notify.Event, caches *cache.Set, threshold float64, m *metrics.Metrics) *Updater {
	return &Updater{
		slot:      slot,
		event:     event,
		caches:    caches,
		threshold: threshold,
		metrics:   m,
		now:       time.Now,
	}
}

func (u *Updater) visible(est *pose.Estimate, labels ...string) bool {
	for _, label := range labels {
		p, ok := est.Point(label)
		if !ok || !p.Visible(u.threshold) {
			return false
		}
	}
	return true
}

// Apply pushes one sample per joint whose anchors are all visible. Every
// sample from the estimate carries the same timestamp.
func (u *Updater) Apply(est *pose.Estimate) UpdateResult {
	var res UpdateResult
	if est == nil {
		return res
	}
	at := u.now()

	for _, j := range u.caches.Angles {
		a := j.Spec.Anchors
		if !u.visible(est, a[0], a[1], a[2]) {
			res.SkippedVisibility++
			continue
		}
		p0, _ := est.Point(a[0])
		p1, _ := est.Point(a[1])
		p2, _ := est.Point(a[2])
		angle := features.Angle(p0.Vec(), p1.Vec(), p2.Vec())
		if !features.Valid(angle) {
			res.Degenerate++
			continue
		}
		j.Cache.Push(angle, at)
		res.Pushed++
	}

	for _, j := range u.caches.Positions {
		if !u.visible(est, j.Spec.Anchor) {
			res.SkippedVisibility++
			continue
		}
		p, _ := est.Point(j.Spec.Anchor)
		j.Cache.Push(p.Vec(), at)
		res.Pushed++
	}
	return res
}

// Run waits for update signals and applies the latest estimate until ctx
// is cancelled.
func (u *Updater) Run(ctx context.Context) {
	logger.Info("Updater", "Cache updater started (visibility > %.2f)", u.threshold)
	for {
		if err := u.event.Wait(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn("Updater", "Wait ended: %v", err)
			}
			logger.Info("Updater", "Cache updater stopped")
			return
		}

		// Take the estimate once so every joint in this cycle sees the same frame
		est, _ := u.slot.Load()
		if est == nil {
			continue
		}

		start := time.Now()
		res := u.Apply(est)
		u.metrics.UpdateCacheLatency(time.Since(start))
		u.metrics.UpdatesApplied.Add(1)
		u.metrics.SamplesPushed.Add(uint64(res.Pushed))
		u.metrics.VisibilitySkipped.Add(uint64(res.SkippedVisibility))
		u.metrics.DegenerateAngles.Add(uint64(res.Degenerate))
		if res.Degenerate > 0 {
			logger.Debug("Updater", "Frame %d: discarded %d degenerate angles", est.FrameSeq, res.Degenerate)
		}
	}
}
