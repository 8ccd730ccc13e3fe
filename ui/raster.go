package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/jmigpin/wlpanel/core/framesched"
	"github.com/jmigpin/wlpanel/util/fontutil"
	"github.com/jmigpin/wlpanel/util/imageutil"
	"github.com/jmigpin/wlpanel/util/logutil"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// RasterPainter draws shapes with an antialiased scanline rasterizer and
// text with truetype glyph masks.
type RasterPainter struct {
	scene  *Scene
	fonts  *fontutil.FontsManager
	font   *fontutil.Font
	logger *slog.Logger

	z    *vector.Rasterizer
	mask *image.Alpha
}

func NewRasterPainter(s *Scene, logger *slog.Logger) (*RasterPainter, error) {
	p := &RasterPainter{fonts: fontutil.NewFontsManager(), logger: logutil.OrDiscard(logger)}
	if err := p.SetScene(s); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RasterPainter) SetScene(s *Scene) error {
	if p.font == nil || p.scene == nil || !bytes.Equal(p.scene.TTF, s.TTF) {
		f, err := p.fonts.Font(s.TTF)
		if err != nil {
			return err
		}
		p.font = f
	}
	p.scene = s
	return nil
}

func (p *RasterPainter) Close() error {
	p.z, p.mask = nil, nil
	return nil
}

//----------

func (p *RasterPainter) Paint(c *framesched.Canvas, width, height int) {
	img := c.Image
	sc := p.scene
	s := float64(c.Scale)

	// the corners outside the rounded rectangle stay transparent
	imageutil.FillRectangle(img, img.Bounds(), color.RGBA{})

	w, h := float64(width)*s, float64(height)*s
	r := sc.CornerRadius * s
	if bw := sc.BorderWidth * s; bw > 0 {
		p.fill(img, sc.Border, func(z *vector.Rasterizer) {
			roundedRect(z, 0, 0, w, h, r)
		})
		p.fill(img, sc.Background, func(z *vector.Rasterizer) {
			roundedRect(z, bw, bw, w-2*bw, h-2*bw, max(r-bw, 0))
		})
	} else {
		p.fill(img, sc.Background, func(z *vector.Rasterizer) {
			roundedRect(z, 0, 0, w, h, r)
		})
	}

	if sc.CircleR > 0 {
		p.fill(img, sc.CircleColor, func(z *vector.Rasterizer) {
			cr := sc.CircleR * s
			roundedRect(z, sc.CircleX*s-cr, sc.CircleY*s-cr, 2*cr, 2*cr, cr)
		})
	}

	if sc.Text != "" {
		ff := p.font.FontFace2(sc.FontSize * s)
		dst, col := img.RGBAImageWithCorrectedColor(sc.TextColor)
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(col),
			Face: ff.Face,
			Dot: fixed.Point26_6{
				X: fontutil.Float64ToFixed266(sc.TextX * s),
				Y: fontutil.Float64ToFixed266(sc.TextY * s),
			},
		}
		d.DrawString(sc.Text)
	}
}

func (p *RasterPainter) fill(img *imageutil.BGRA, c color.Color, path func(*vector.Rasterizer)) {
	b := img.Bounds()
	if p.z == nil || p.z.Size() != b.Size() {
		p.z = vector.NewRasterizer(b.Dx(), b.Dy())
		p.mask = image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	} else {
		p.z.Reset(b.Dx(), b.Dy())
		clear(p.mask.Pix)
	}
	path(p.z)
	p.z.Draw(p.mask, p.mask.Bounds(), image.Opaque, image.Point{})
	imageutil.DrawUniformMask(img, b, c, p.mask, image.Point{}, draw.Over)
}

//----------

// Control point distance for a quarter circle with a cubic.
const kappa = 0.5522847498

// roundedRect adds a closed path. With r at half the side it is a circle.
func roundedRect(z *vector.Rasterizer, x, y, w, h, r float64) {
	if w <= 0 || h <= 0 {
		return
	}
	r = min(r, w/2, h/2)
	k := r * kappa
	f := func(v float64) float32 { return float32(v) }

	z.MoveTo(f(x+r), f(y))
	z.LineTo(f(x+w-r), f(y))
	z.CubeTo(f(x+w-r+k), f(y), f(x+w), f(y+r-k), f(x+w), f(y+r))
	z.LineTo(f(x+w), f(y+h-r))
	z.CubeTo(f(x+w), f(y+h-r+k), f(x+w-r+k), f(y+h), f(x+w-r), f(y+h))
	z.LineTo(f(x+r), f(y+h))
	z.CubeTo(f(x+r-k), f(y+h), f(x), f(y+h-r+k), f(x), f(y+h-r))
	z.LineTo(f(x), f(y+r))
	z.CubeTo(f(x), f(y+r-k), f(x+r-k), f(y), f(x+r), f(y))
	z.ClosePath()
}
