// Package inference turns camera frames into pose estimates.
package inference

import (
	"context"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/pose"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

// Estimator runs pose inference on one frame. It returns (nil, nil) when
// the frame contains no person.
type Estimator interface {
	Infer(ctx context.Context, frame *types.Frame) (*pose.Estimate, error)
}

// EstimatorFunc adapts a function to Estimator
type EstimatorFunc func(ctx context.Context, frame *types.Frame) (*pose.Estimate, error)

func (f EstimatorFunc) Infer(ctx context.Context, frame *types.Frame) (*pose.Estimate, error) {
	return f(ctx, frame)
}
