package effects

import (
	"context"

	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

// Chain steps work on a clone so the step input stays intact.

type InvertStep struct {
	pool *workerpool.Pool
}

func NewInvertStep(pool *workerpool.Pool) *InvertStep {
	return &InvertStep{pool: pool}
}

func (s *InvertStep) Name() string {
	return "invert"
}

func (s *InvertStep) ShouldExecute(params map[string]interface{}) bool {
	return true
}

func (s *InvertStep) Apply(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := input.Clone()
	if err := Invert(s.pool, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ThresholdStep reads its cut points from "threshold_levels" ([]int),
// falling back to DefaultThreshold.
type ThresholdStep struct {
	pool *workerpool.Pool
}

func NewThresholdStep(pool *workerpool.Pool) *ThresholdStep {
	return &ThresholdStep{pool: pool}
}

func (s *ThresholdStep) Name() string {
	return "threshold"
}

func (s *ThresholdStep) ShouldExecute(params map[string]interface{}) bool {
	return true
}

func (s *ThresholdStep) Apply(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var levels []int
	if val, ok := params["threshold_levels"].([]int); ok {
		levels = val
	}

	out := input.Clone()
	if err := Threshold(s.pool, out, levels...); err != nil {
		return nil, err
	}
	return out, nil
}

// PosterizeStep reads "posterize_step" (int), defaulting to DefaultPosterizeStep.
type PosterizeStep struct {
	pool *workerpool.Pool
}

func NewPosterizeStep(pool *workerpool.Pool) *PosterizeStep {
	return &PosterizeStep{pool: pool}
}

func (s *PosterizeStep) Name() string {
	return "posterize"
}

func (s *PosterizeStep) ShouldExecute(params map[string]interface{}) bool {
	return true
}

func (s *PosterizeStep) Apply(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	step := DefaultPosterizeStep
	if val, ok := params["posterize_step"].(int); ok {
		step = val
	}

	out := input.Clone()
	if err := Posterize(s.pool, out, step); err != nil {
		return nil, err
	}
	return out, nil
}
