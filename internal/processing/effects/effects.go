// Package effects applies per-pixel transforms directly to buffer bytes.
// Each scanline is handled independently on a worker pool and rewritten in
// place; no effect reads neighbouring pixels, so rows never need to
// coordinate.
package effects

import (
	"github.com/pkg/errors"

	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

// DefaultThreshold is the cut point used when Threshold gets no levels.
const DefaultThreshold = 200

// DefaultPosterizeStep matches the 64-level quantization of a cartoon effect.
const DefaultPosterizeStep = 64

// Invert replaces every channel with 255 minus its value. Applying it twice
// restores the original buffer.
func Invert(pool *workerpool.Pool, buf *raster.Buffer) error {
	if err := raster.ValidateBufferForOperation(buf, "Invert"); err != nil {
		return err
	}

	forEachPixel(pool, buf, func(px []byte) {
		px[0] = 255 - px[0]
		px[1] = 255 - px[1]
		px[2] = 255 - px[2]
	})
	return nil
}

// Threshold maps every pixel to a gray band chosen by its channel average.
// levels are strictly ascending cut points in [0,255]; with no levels the
// single cut point DefaultThreshold is used. The buffer is left untouched
// when levels are invalid.
func Threshold(pool *workerpool.Pool, buf *raster.Buffer, levels ...int) error {
	if err := raster.ValidateBufferForOperation(buf, "Threshold"); err != nil {
		return err
	}
	if len(levels) == 0 {
		levels = []int{DefaultThreshold}
	}
	if err := validateLevels(levels); err != nil {
		return err
	}

	lut := thresholdTable(levels)
	forEachPixel(pool, buf, func(px []byte) {
		avg := (int(px[0]) + int(px[1]) + int(px[2])) / 3
		gray := lut[avg]
		px[0], px[1], px[2] = gray, gray, gray
	})
	return nil
}

// Posterize rounds every channel down to a multiple of step.
func Posterize(pool *workerpool.Pool, buf *raster.Buffer, step int) error {
	if err := raster.ValidateBufferForOperation(buf, "Posterize"); err != nil {
		return err
	}
	if step < 1 || step > 256 {
		return errors.Wrapf(raster.ErrInvalidArgument, "posterize step must be in [1,256], got %d", step)
	}

	var lut [256]byte
	for i := range lut {
		lut[i] = byte(i / step * step)
	}
	forEachPixel(pool, buf, func(px []byte) {
		px[0] = lut[px[0]]
		px[1] = lut[px[1]]
		px[2] = lut[px[2]]
	})
	return nil
}

// thresholdTable precomputes the gray level for every possible average.
//
// Bands are walked from the highest cut point down, each one
// 255/len(levels) darker than the last; a later (darker) match overwrites an
// earlier one, so the lowest qualifying band wins. Averages above every
// cut point stay white.
func thresholdTable(levels []int) [256]byte {
	step := 255 / len(levels)

	var lut [256]byte
	for avg := range lut {
		gray := 255
		rate := 255
		for i := len(levels) - 1; i >= 0; i-- {
			rate -= step
			if avg <= levels[i] {
				gray = rate
			}
		}
		lut[avg] = byte(gray)
	}
	return lut
}

func validateLevels(levels []int) error {
	for i, level := range levels {
		if level < 0 || level > 255 {
			return errors.Wrapf(raster.ErrInvalidArgument, "threshold level %d out of range [0,255]", level)
		}
		if i > 0 && level <= levels[i-1] {
			return errors.Wrapf(raster.ErrInvalidArgument, "threshold levels must be ascending: %d after %d", level, levels[i-1])
		}
	}
	return nil
}

// forEachPixel calls fn with the B,G,R[,A] bytes of every pixel, one row
// range per worker.
func forEachPixel(pool *workerpool.Pool, buf *raster.Buffer, fn func(px []byte)) {
	bpp := buf.BytesPerPixel()
	pool.ParallelFor(buf.Height(), func(start, end int) {
		for y := start; y < end; y++ {
			row := buf.Row(y)
			for x := 0; x+bpp <= len(row); x += bpp {
				fn(row[x : x+bpp : x+bpp])
			}
		}
	})
}
