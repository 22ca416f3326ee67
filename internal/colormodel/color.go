// Package colormodel holds the RGB and HSV colour value types and the
// conversions between them.
package colormodel

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidRange is returned when an HSV component lies outside its legal interval.
var ErrInvalidRange = errors.New("value out of range")

// Color is an 8-bit RGB colour.
type Color struct {
	R, G, B uint8
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// Gray returns a colour with all three channels set to level.
func Gray(level uint8) Color {
	return Color{R: level, G: level, B: level}
}

// HSV converts the colour to the HSV model.
func (c Color) HSV() HSV {
	return RGBToHSV(c)
}

// RGBToHSV converts an RGB colour. Achromatic colours get hue 0.
func RGBToHSV(c Color) HSV {
	r := float64(c.R) / 255.0
	g := float64(c.G) / 255.0
	b := float64(c.B) / 255.0

	cMax := math.Max(r, math.Max(g, b))
	cMin := math.Min(r, math.Min(g, b))
	delta := cMax - cMin

	var hue float64
	switch {
	case delta == 0:
		hue = 0
	case cMax == r:
		hue = 60.0 * math.Mod((g-b)/delta, 6.0)
	case cMax == g:
		hue = 60.0 * ((b-r)/delta + 2.0)
	default:
		hue = 60.0 * ((r-g)/delta + 4.0)
	}

	saturation := 0.0
	if cMax != 0 {
		saturation = delta / cMax
	}

	return NewHSV(hue, saturation, cMax)
}

// HSVToRGB converts raw HSV components to RGB. Hue must be in [0,360] and
// saturation and value in [0,1].
func HSVToRGB(hue, saturation, value float64) (Color, error) {
	if math.IsNaN(hue) || hue < 0 || hue > 360 {
		return Color{}, errors.Wrapf(ErrInvalidRange, "hue %v must be between 0 and 360", hue)
	}
	if math.IsNaN(saturation) || saturation < 0 || saturation > 1 {
		return Color{}, errors.Wrapf(ErrInvalidRange, "saturation %v must be between 0 and 1", saturation)
	}
	if math.IsNaN(value) || value < 0 || value > 1 {
		return Color{}, errors.Wrapf(ErrInvalidRange, "value %v must be between 0 and 1", value)
	}

	c := value * saturation
	x := c * (1.0 - math.Abs(math.Mod(hue/60.0, 2.0)-1.0))
	m := value - c

	var rp, gp, bp float64
	switch int(math.Floor(hue/60.0)) % 6 {
	case 0:
		rp, gp, bp = c, x, 0
	case 1:
		rp, gp, bp = x, c, 0
	case 2:
		rp, gp, bp = 0, c, x
	case 3:
		rp, gp, bp = 0, x, c
	case 4:
		rp, gp, bp = x, 0, c
	case 5:
		rp, gp, bp = c, 0, x
	}

	return Color{
		R: channelFromUnit(rp + m),
		G: channelFromUnit(gp + m),
		B: channelFromUnit(bp + m),
	}, nil
}

// channelFromUnit scales a [0,1] component to a byte, rounding up.
func channelFromUnit(v float64) uint8 {
	scaled := math.Ceil(v * 255.0)
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}
