package filters

import (
	"context"

	"github.com/pkg/errors"

	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

// PresetStep runs one named convolution preset as a chain step.
type PresetStep struct {
	pool   *workerpool.Pool
	preset Preset
}

func NewPresetStep(pool *workerpool.Pool, name string) (*PresetStep, error) {
	p, ok := LookupPreset(name)
	if !ok {
		return nil, errors.Wrapf(raster.ErrInvalidArgument, "unknown filter preset %q", name)
	}
	return &PresetStep{pool: pool, preset: p}, nil
}

func (s *PresetStep) Name() string {
	return s.preset.Name
}

func (s *PresetStep) ShouldExecute(params map[string]interface{}) bool {
	return true
}

func (s *PresetStep) Apply(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return s.preset.Apply(s.pool, input)
}

// BrightnessStep brightens for positive "brightness_level" and darkens for
// negative values. It is skipped when the level is missing or zero.
type BrightnessStep struct {
	pool *workerpool.Pool
}

func NewBrightnessStep(pool *workerpool.Pool) *BrightnessStep {
	return &BrightnessStep{pool: pool}
}

func (s *BrightnessStep) Name() string {
	return "brightness"
}

func (s *BrightnessStep) ShouldExecute(params map[string]interface{}) bool {
	level, ok := params["brightness_level"].(int)
	return ok && level != 0
}

func (s *BrightnessStep) Apply(ctx context.Context, input *raster.Buffer, params map[string]interface{}) (*raster.Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	level, _ := params["brightness_level"].(int)
	if level < 0 {
		return Darken(s.pool, input, -level)
	}
	return Brighten(s.pool, input, level)
}
