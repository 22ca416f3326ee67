// Package filters implements kernel convolution over raster buffers and the
// named blur, edge, sharpen, emboss and brightness filters built on it.
package filters

import (
	"math"

	"github.com/pkg/errors"

	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

// tap is one nonzero kernel weight, already multiplied by the factor.
type tap struct {
	dx, dy int
	weight float64
}

// Convolve applies kernel to src and returns a new buffer. Each channel of
// each destination pixel is the sum of in-bounds neighbours times
// weight*factor, plus bias, clamped to [0,255] and truncated. Neighbours
// outside the buffer contribute nothing, so borders darken unless the
// kernel compensates. src is only read; alpha is carried over unchanged.
//
// Destination rows are computed in parallel on pool; a nil pool runs
// sequentially.
func Convolve(pool *workerpool.Pool, src *raster.Buffer, kernel Kernel, factor, bias float64) (*raster.Buffer, error) {
	if !kernel.valid() {
		return nil, errors.Wrap(ErrInvalidKernel, "kernel is not an odd square")
	}
	if err := raster.ValidateBufferForOperation(src, "Convolve"); err != nil {
		return nil, err
	}

	taps := kernelTaps(kernel, factor)
	dst := src.Clone()

	width := src.Width()
	height := src.Height()
	bpp := src.BytesPerPixel()

	pool.ParallelFor(height, func(start, end int) {
		for y := start; y < end; y++ {
			out := dst.Row(y)
			for x := 0; x < width; x++ {
				var b, g, r float64
				for _, t := range taps {
					sx, sy := x+t.dx, y+t.dy
					if sx < 0 || sx >= width || sy < 0 || sy >= height {
						continue
					}
					in := src.Row(sy)
					off := sx * bpp
					b += float64(in[off]) * t.weight
					g += float64(in[off+1]) * t.weight
					r += float64(in[off+2]) * t.weight
				}

				off := x * bpp
				out[off] = clampChannel(b + bias)
				out[off+1] = clampChannel(g + bias)
				out[off+2] = clampChannel(r + bias)
			}
		}
	})

	return dst, nil
}

func kernelTaps(kernel Kernel, factor float64) []tap {
	radius := kernel.Radius()
	taps := make([]tap, 0, kernel.Size()*kernel.Size())
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			w := kernel.Weight(dx, dy)
			if w == 0 {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: w * factor})
		}
	}
	return taps
}

// clampChannel clamps to [0,255] then truncates toward zero.
func clampChannel(v float64) uint8 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
