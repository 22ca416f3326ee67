package filters

import (
	"sort"

	"github.com/pkg/errors"

	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

// Preset is a named kernel with its factor and bias.
type Preset struct {
	Name   string
	Kernel Kernel
	Factor float64
	Bias   float64
}

// Apply convolves src with the preset.
func (p Preset) Apply(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return Convolve(pool, src, p.Kernel, p.Factor, p.Bias)
}

const (
	PresetBlurLow             = "blur_low"
	PresetBlurMedium          = "blur_medium"
	PresetBlurHigh            = "blur_high"
	PresetMotionBlur          = "motion_blur"
	PresetHorizontalEdgesLow  = "horizontal_edges_low"
	PresetHorizontalEdgesHigh = "horizontal_edges_high"
	PresetVerticalEdgesLow    = "vertical_edges_low"
	PresetVerticalEdgesHigh   = "vertical_edges_high"
	PresetEdgesLow            = "edges_low"
	PresetEdgesHigh           = "edges_high"
	PresetSharpen             = "sharpen"
	PresetEmboss              = "emboss"
)

var presets = map[string]Preset{
	PresetBlurLow: {
		Name: PresetBlurLow,
		Kernel: MustKernel([][]float64{
			{0, 1, 0},
			{1, 1, 1},
			{0, 1, 0},
		}),
		Factor: 1.0 / 5.0,
	},
	PresetBlurMedium: {
		Name: PresetBlurMedium,
		Kernel: MustKernel([][]float64{
			{0, 0, 1, 0, 0},
			{0, 1, 1, 1, 0},
			{1, 1, 1, 1, 1},
			{0, 1, 1, 1, 0},
			{0, 0, 1, 0, 0},
		}),
		Factor: 1.0 / 13.0,
	},
	PresetBlurHigh: {
		Name: PresetBlurHigh,
		Kernel: MustKernel([][]float64{
			{0, 0, 0, 1, 0, 0, 0},
			{0, 0, 1, 1, 1, 0, 0},
			{0, 1, 1, 1, 1, 1, 0},
			{1, 1, 1, 1, 1, 1, 1},
			{0, 1, 1, 1, 1, 1, 0},
			{0, 0, 1, 1, 1, 0, 0},
			{0, 0, 0, 1, 0, 0, 0},
		}),
		Factor: 1.0 / 25.0,
	},
	PresetMotionBlur: {
		Name: PresetMotionBlur,
		Kernel: MustKernel([][]float64{
			{1, 0, 0, 0, 0, 0, 0, 0, 0},
			{0, 1, 0, 0, 0, 0, 0, 0, 0},
			{0, 0, 1, 0, 0, 0, 0, 0, 0},
			{0, 0, 0, 1, 0, 0, 0, 0, 0},
			{0, 0, 0, 0, 1, 0, 0, 0, 0},
			{0, 0, 0, 0, 0, 1, 0, 0, 0},
			{0, 0, 0, 0, 0, 0, 1, 0, 0},
			{0, 0, 0, 0, 0, 0, 0, 1, 0},
			{0, 0, 0, 0, 0, 0, 0, 0, 1},
		}),
		Factor: 1.0 / 9.0,
	},
	// Difference with the pixel above: responds to horizontal edges.
	PresetHorizontalEdgesLow: {
		Name: PresetHorizontalEdgesLow,
		Kernel: MustKernel([][]float64{
			{0, -1, 0},
			{0, 1, 0},
			{0, 0, 0},
		}),
		Factor: 1.0,
	},
	PresetHorizontalEdgesHigh: {
		Name: PresetHorizontalEdgesHigh,
		Kernel: MustKernel([][]float64{
			{0, 0, -1, 0, 0},
			{0, 0, -1, 0, 0},
			{0, 0, 2, 0, 0},
			{0, 0, 0, 0, 0},
			{0, 0, 0, 0, 0},
		}),
		Factor: 1.0,
	},
	// Difference with the pixel to the left: responds to vertical edges.
	PresetVerticalEdgesLow: {
		Name: PresetVerticalEdgesLow,
		Kernel: MustKernel([][]float64{
			{0, 0, 0},
			{-1, 1, 0},
			{0, 0, 0},
		}),
		Factor: 1.0,
	},
	PresetVerticalEdgesHigh: {
		Name: PresetVerticalEdgesHigh,
		Kernel: MustKernel([][]float64{
			{0, 0, 0, 0, 0},
			{0, 0, 0, 0, 0},
			{-1, -1, 2, 0, 0},
			{0, 0, 0, 0, 0},
			{0, 0, 0, 0, 0},
		}),
		Factor: 1.0,
	},
	PresetEdgesLow: {
		Name: PresetEdgesLow,
		Kernel: MustKernel([][]float64{
			{-1, -1, -1},
			{-1, 8, -1},
			{-1, -1, -1},
		}),
		Factor: 1.0,
	},
	PresetEdgesHigh: {
		Name: PresetEdgesHigh,
		Kernel: MustKernel([][]float64{
			{-1, -1, -1, -1, -1},
			{-1, -1, -1, -1, -1},
			{-1, -1, 24, -1, -1},
			{-1, -1, -1, -1, -1},
			{-1, -1, -1, -1, -1},
		}),
		Factor: 1.0,
	},
	PresetSharpen: {
		Name: PresetSharpen,
		Kernel: MustKernel([][]float64{
			{-1, -1, -1},
			{-1, 9, -1},
			{-1, -1, -1},
		}),
		Factor: 1.0,
	},
	// Flat regions land on mid gray; edges move toward black or white.
	PresetEmboss: {
		Name: PresetEmboss,
		Kernel: MustKernel([][]float64{
			{-1, -1, 0},
			{-1, 0, 1},
			{0, 1, 1},
		}),
		Factor: 1.0,
		Bias:   128.0,
	},
}

// LookupPreset returns the preset registered under name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames lists every registered preset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset convolves src with the named preset.
func ApplyPreset(pool *workerpool.Pool, src *raster.Buffer, name string) (*raster.Buffer, error) {
	p, ok := presets[name]
	if !ok {
		return nil, errors.Wrapf(raster.ErrInvalidArgument, "unknown filter preset %q", name)
	}
	return p.Apply(pool, src)
}

func BlurLow(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetBlurLow)
}

func BlurMedium(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetBlurMedium)
}

func BlurHigh(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetBlurHigh)
}

func MotionBlur(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetMotionBlur)
}

func HorizontalEdgesLow(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetHorizontalEdgesLow)
}

func HorizontalEdgesHigh(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetHorizontalEdgesHigh)
}

func VerticalEdgesLow(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetVerticalEdgesLow)
}

func VerticalEdgesHigh(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetVerticalEdgesHigh)
}

func EdgesLow(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetEdgesLow)
}

func EdgesHigh(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetEdgesHigh)
}

func Sharpen(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetSharpen)
}

func Emboss(pool *workerpool.Pool, src *raster.Buffer) (*raster.Buffer, error) {
	return ApplyPreset(pool, src, PresetEmboss)
}

// Brighten adds level to every channel using a 1x1 kernel.
func Brighten(pool *workerpool.Pool, src *raster.Buffer, level int) (*raster.Buffer, error) {
	if level < 0 {
		return nil, errors.Wrapf(raster.ErrInvalidArgument, "brighten level must not be negative, got %d", level)
	}
	return Convolve(pool, src, Identity(), 1.0, float64(level))
}

// Darken subtracts level from every channel using a 1x1 kernel.
func Darken(pool *workerpool.Pool, src *raster.Buffer, level int) (*raster.Buffer, error) {
	if level < 0 {
		return nil, errors.Wrapf(raster.ErrInvalidArgument, "darken level must not be negative, got %d", level)
	}
	return Convolve(pool, src, Identity(), 1.0, -float64(level))
}
