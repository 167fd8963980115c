// Package coach turns feature snapshots into coaching prompts and answers.
package coach

import (
	"context"
	"errors"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/features"
)

// Consumer receives every snapshot the requester builds
type Consumer interface {
	Consume(ctx context.Context, snap features.Snapshot) error
}

// ConsumerFunc adapts a function to Consumer
type ConsumerFunc func(ctx context.Context, snap features.Snapshot) error

func (f ConsumerFunc) Consume(ctx context.Context, snap features.Snapshot) error {
	return f(ctx, snap)
}

// Multi hands each snapshot to every consumer in order. All consumers are
// called even when one fails; the failures are joined.
type Multi []Consumer

func (m Multi) Consume(ctx context.Context, snap features.Snapshot) error {
	var errs []error
	for _, c := range m {
		if c == nil {
			continue
		}
		if err := c.Consume(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
