package imageutil

import (
	"image"
	"image/color"
	"image/draw"
)

// BGRA is premultiplied blue/green/red/alpha in memory order, which is
// WL_SHM_FORMAT_ARGB8888 on little endian machines.
type BGRA struct {
	image.RGBA
}

func NewBGRA(r *image.Rectangle) *BGRA {
	u := image.NewRGBA(*r)
	return &BGRA{*u}
}

// NewBGRAFromBuffer wraps buf without copying. Stride is in bytes.
func NewBGRAFromBuffer(buf []byte, stride int, r *image.Rectangle) *BGRA {
	rgba := image.RGBA{Pix: buf, Stride: stride, Rect: *r}
	return &BGRA{RGBA: rgba}
}

func BGRAStride(width int) int {
	return width * 4
}
func BGRASize(r *image.Rectangle) int {
	return BGRAStride(r.Dx()) * r.Dy()
}

func (img *BGRA) ColorModel() color.Model {
	return color.RGBAModel
}

func (img *BGRA) Set(x, y int, c color.Color) {
	u := RgbaColor(c)
	img.SetRGBA(x, y, u)
}

// Allows fast lane if detected.
func (img *BGRA) SetRGBA(x, y int, c color.RGBA) {
	c.R, c.B = c.B, c.R // flip to keep Bgra
	img.RGBA.SetRGBA(x, y, c)
}
func (img *BGRA) At(x, y int) color.Color {
	return img.RGBAAt(x, y)
}
func (img *BGRA) RGBAAt(x, y int) color.RGBA {
	c := img.RGBA.RGBAAt(x, y)
	c.R, c.B = c.B, c.R // flip to return Rgba
	return c
}

func (img *BGRA) SubImage(r image.Rectangle) draw.Image {
	u := img.RGBA.SubImage(r).(*image.RGBA)
	return &BGRA{*u}
}

// RGBAImageWithCorrectedColor returns the underlying rgba image and the
// color swizzled so that drawing it there stores bgra.
func (img *BGRA) RGBAImageWithCorrectedColor(c color.Color) (draw.Image, color.Color) {
	return &img.RGBA, BgraColor(c)
}

// CopyRGBA copies src into img at the same coordinates, swapping the red and
// blue channels.
func (img *BGRA) CopyRGBA(src *image.RGBA) {
	r := img.Rect.Intersect(src.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := img.PixOffset(r.Min.X, y)
		j := src.PixOffset(r.Min.X, y)
		dst := img.Pix[i : i+r.Dx()*4]
		s := src.Pix[j : j+r.Dx()*4]
		for k := 0; k < len(dst); k += 4 {
			dst[k+0] = s[k+2]
			dst[k+1] = s[k+1]
			dst[k+2] = s[k+0]
			dst[k+3] = s[k+3]
		}
	}
}

//----------

func BgraColor(c color.Color) color.RGBA {
	c2 := RgbaColor(c)
	c2.R, c2.B = c2.B, c2.R // convert to BGR
	return c2
}
