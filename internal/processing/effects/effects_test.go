package effects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasterkit/internal/colormodel"
	"rasterkit/internal/raster"
	"rasterkit/internal/workerpool"
)

func noise(t *testing.T, width, height, bpp int) *raster.Buffer {
	t.Helper()
	buf, err := raster.New(width, height, bpp)
	require.NoError(t, err)
	seed := uint32(7)
	for y := 0; y < height; y++ {
		row := buf.Row(y)
		for i := range row {
			seed = seed*1664525 + 1013904223
			row[i] = byte(seed >> 24)
		}
	}
	return buf
}

func distinctColors(t *testing.T, buf *raster.Buffer) map[colormodel.Color]struct{} {
	t.Helper()
	seen := make(map[colormodel.Color]struct{})
	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			c, err := buf.Pixel(x, y)
			require.NoError(t, err)
			seen[c] = struct{}{}
		}
	}
	return seen
}

func TestInvertTwiceRestores(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	for _, bpp := range []int{raster.BGR, raster.BGRA} {
		buf := noise(t, 31, 17, bpp)
		orig := buf.Clone()

		require.NoError(t, Invert(pool, buf))
		assert.False(t, buf.Equal(orig))
		require.NoError(t, Invert(pool, buf))
		assert.True(t, buf.Equal(orig), "bpp %d", bpp)
	}
}

func TestInvertPixelValues(t *testing.T) {
	buf, err := raster.NewFilled(2, 2, raster.BGRA, colormodel.Color{R: 10, G: 200, B: 255})
	require.NoError(t, err)

	require.NoError(t, Invert(nil, buf))
	c, err := buf.Pixel(1, 1)
	require.NoError(t, err)
	assert.Equal(t, colormodel.Color{R: 245, G: 55, B: 0}, c)
	assert.Equal(t, byte(255), buf.Row(1)[7], "alpha untouched")
}

func TestThresholdSingleLevelIsBinary(t *testing.T) {
	buf := noise(t, 40, 40, raster.BGR)
	require.NoError(t, Threshold(workerpool.Shared(), buf, 128))

	seen := distinctColors(t, buf)
	assert.Len(t, seen, 2)
	for c := range seen {
		assert.Contains(t, []colormodel.Color{colormodel.Black, colormodel.White}, c)
	}
}

func TestThresholdDefaultLevel(t *testing.T) {
	buf, err := raster.New(2, 1, raster.BGR)
	require.NoError(t, err)
	require.NoError(t, buf.SetPixel(0, 0, colormodel.Gray(200)))
	require.NoError(t, buf.SetPixel(1, 0, colormodel.Gray(201)))

	require.NoError(t, Threshold(nil, buf))

	dark, _ := buf.Pixel(0, 0)
	light, _ := buf.Pixel(1, 0)
	assert.Equal(t, colormodel.Black, dark)
	assert.Equal(t, colormodel.White, light)
}

func TestThresholdBands(t *testing.T) {
	// Two cut points: step 127, rates 128 then 1.
	tests := []struct {
		avg  uint8
		want uint8
	}{
		{0, 1},
		{85, 1},
		{86, 128},
		{170, 128},
		{171, 255},
		{255, 255},
	}

	for _, tt := range tests {
		buf, err := raster.NewFilled(1, 1, raster.BGR, colormodel.Gray(tt.avg))
		require.NoError(t, err)
		require.NoError(t, Threshold(nil, buf, 85, 170))
		c, err := buf.Pixel(0, 0)
		require.NoError(t, err)
		assert.Equal(t, colormodel.Gray(tt.want), c, "avg %d", tt.avg)
	}
}

func TestThresholdUsesIntegerAverage(t *testing.T) {
	// (100+100+102)/3 = 100 with integer division
	buf, err := raster.NewFilled(1, 1, raster.BGR, colormodel.Color{R: 100, G: 100, B: 102})
	require.NoError(t, err)
	require.NoError(t, Threshold(nil, buf, 100))

	c, _ := buf.Pixel(0, 0)
	assert.Equal(t, colormodel.Black, c)
}

func TestThresholdRejectsBadLevelsWithoutMutating(t *testing.T) {
	tests := []struct {
		name   string
		levels []int
	}{
		{"negative", []int{-1}},
		{"above 255", []int{256}},
		{"descending", []int{200, 100}},
		{"duplicate", []int{100, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := noise(t, 5, 5, raster.BGR)
			orig := buf.Clone()
			err := Threshold(nil, buf, tt.levels...)
			assert.ErrorIs(t, err, raster.ErrInvalidArgument)
			assert.True(t, buf.Equal(orig))
		})
	}
}

func TestPosterize(t *testing.T) {
	buf, err := raster.NewFilled(3, 3, raster.BGR, colormodel.Color{R: 63, G: 64, B: 255})
	require.NoError(t, err)

	require.NoError(t, Posterize(nil, buf, DefaultPosterizeStep))
	c, _ := buf.Pixel(2, 2)
	assert.Equal(t, colormodel.Color{R: 0, G: 64, B: 192}, c)

	assert.ErrorIs(t, Posterize(nil, buf, 0), raster.ErrInvalidArgument)
	assert.ErrorIs(t, Posterize(nil, buf, 257), raster.ErrInvalidArgument)
}

func TestEffectsRejectNilBuffer(t *testing.T) {
	assert.ErrorIs(t, Invert(nil, nil), raster.ErrInvalidArgument)
	assert.ErrorIs(t, Threshold(nil, nil), raster.ErrInvalidArgument)
	assert.ErrorIs(t, Posterize(nil, nil, 8), raster.ErrInvalidArgument)
}

func TestParallelMatchesSequential(t *testing.T) {
	pool := workerpool.New(8)
	defer pool.Close()

	seq := noise(t, 64, 57, raster.BGRA)
	par := seq.Clone()

	require.NoError(t, Threshold(nil, seq, 50, 120, 220))
	require.NoError(t, Threshold(pool, par, 50, 120, 220))
	assert.True(t, seq.Equal(par))
}

func TestStepsLeaveInputIntact(t *testing.T) {
	ctx := context.Background()
	input := noise(t, 8, 8, raster.BGR)
	orig := input.Clone()

	out, err := NewThresholdStep(nil).Apply(ctx, input, map[string]interface{}{"threshold_levels": []int{128}})
	require.NoError(t, err)
	assert.Len(t, distinctColors(t, out), 2)

	_, err = NewInvertStep(nil).Apply(ctx, input, nil)
	require.NoError(t, err)
	_, err = NewPosterizeStep(nil).Apply(ctx, input, map[string]interface{}{"posterize_step": 32})
	require.NoError(t, err)

	assert.True(t, input.Equal(orig))
}
