package imageutil

import (
	"image/color"
)

// Turn color lighter by v percent (0.0, 1.0). Alpha is kept.
func Tint(c color.Color, v float64) color.RGBA {
	c2 := RgbaColor(c)
	v = clamp01(v)
	// premultiplied: the ceiling of each channel is alpha
	c2.R += uint8(v * float64(c2.A-c2.R))
	c2.G += uint8(v * float64(c2.A-c2.G))
	c2.B += uint8(v * float64(c2.A-c2.B))
	return c2
}

// Turn color darker by v percent (0.0, 1.0). Alpha is kept.
func Shade(c color.Color, v float64) color.RGBA {
	c2 := RgbaColor(c)
	v = 1.0 - clamp01(v)
	c2.R = uint8(v * float64(c2.R))
	c2.G = uint8(v * float64(c2.G))
	c2.B = uint8(v * float64(c2.B))
	return c2
}

func IsLighter(c color.Color) bool {
	c2 := color.NRGBAModel.Convert(c).(color.NRGBA)
	u := int(c2.R) + int(c2.G) + int(c2.B)
	return u > 256*3/2
}

// Shade light colors, tint dark ones.
func TintOrShade(c color.Color, v float64) color.RGBA {
	if IsLighter(c) {
		return Shade(c, v)
	}
	return Tint(c, v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
