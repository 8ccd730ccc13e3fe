package imageutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

func RgbaColor(c color.Color) color.RGBA {
	if u, ok := c.(color.RGBA); ok {
		return u
	} else {
		return convertToRgbaColor(c)
	}
}
func convertToRgbaColor(c color.Color) color.RGBA {
	// slow
	//return color.RGBAModel.Convert(c).(color.RGBA)

	r, g, b, a := c.RGBA()
	return color.RGBA{
		uint8(r >> 8),
		uint8(g >> 8),
		uint8(b >> 8),
		uint8(a >> 8),
	}
}

//----------

// ParseHexColor accepts "#rrggbb" and "#rrggbbaa". The result is
// premultiplied.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("imageutil: bad hex color: %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	u, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("imageutil: bad hex color: %q", s)
	}
	nc := color.NRGBA{uint8(u >> 24), uint8(u >> 16), uint8(u >> 8), uint8(u)}
	return RgbaColor(nc), nil
}

func SprintHex(c color.Color) string {
	u := color.NRGBAModel.Convert(c).(color.NRGBA)
	if u.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", u.R, u.G, u.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", u.R, u.G, u.B, u.A)
}

// Float components in [0,1], not premultiplied.
func FloatRGBA(c color.Color) (r, g, b, a float64) {
	u := color.NRGBAModel.Convert(c).(color.NRGBA)
	return float64(u.R) / 255, float64(u.G) / 255, float64(u.B) / 255, float64(u.A) / 255
}
