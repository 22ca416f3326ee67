package colormodel

import "math"

// HSV is a colour in the hue/saturation/value model. Hue is kept in
// [0,360); saturation and value are kept in [0,1].
type HSV struct {
	hue        float64
	saturation float64
	value      float64
}

// NewHSV builds an HSV colour, normalizing hue and clamping the other components.
func NewHSV(hue, saturation, value float64) HSV {
	var h HSV
	h.SetHue(hue)
	h.SetSaturation(saturation)
	h.SetValue(value)
	return h
}

// SetHue stores hue wrapped into [0,360), so -30 becomes 330 and 360 becomes 0.
func (h *HSV) SetHue(hue float64) {
	if math.IsNaN(hue) || math.IsInf(hue, 0) {
		h.hue = 0
		return
	}
	hue = math.Mod(hue, 360.0)
	if hue < 0 {
		hue += 360.0
	}
	// -1e-15 + 360 rounds to 360
	if hue >= 360.0 {
		hue = 0
	}
	h.hue = hue
}

func (h *HSV) SetSaturation(saturation float64) {
	h.saturation = clampUnit(saturation)
}

func (h *HSV) SetValue(value float64) {
	h.value = clampUnit(value)
}

func (h HSV) Hue() float64        { return h.hue }
func (h HSV) Saturation() float64 { return h.saturation }
func (h HSV) Value() float64      { return h.value }

// RGB converts back to an 8-bit colour.
func (h HSV) RGB() (Color, error) {
	return HSVToRGB(h.hue, h.saturation, h.value)
}

// HueDistance returns the circular distance between two hues in degrees, in [0,180].
func HueDistance(a, b HSV) float64 {
	delta := math.Abs(a.hue - b.hue)
	return math.Min(delta, 360.0-delta)
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
