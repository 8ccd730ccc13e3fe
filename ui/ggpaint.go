package ui

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/jmigpin/wlpanel/core/framesched"
	"github.com/jmigpin/wlpanel/util/imageutil"
	"github.com/jmigpin/wlpanel/util/logutil"
)

// GGPainter draws with the gg software renderer into its own rgba pixmap,
// then copies it to the canvas.
type GGPainter struct {
	scene  *Scene
	source *text.FontSource
	dc     *gg.Context
	logger *slog.Logger
}

func NewGGPainter(s *Scene, logger *slog.Logger) (*GGPainter, error) {
	logger = logutil.OrDiscard(logger)
	gg.SetLogger(logger.With("renderer", RendererGG))
	p := &GGPainter{logger: logger}
	if err := p.SetScene(s); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *GGPainter) SetScene(s *Scene) error {
	src, err := text.NewFontSource(s.TTF)
	if err != nil {
		return err
	}
	if p.source != nil {
		_ = p.source.Close()
	}
	p.source = src
	p.scene = s
	return nil
}

func (p *GGPainter) Close() error {
	if p.dc != nil {
		_ = p.dc.Close()
		p.dc = nil
	}
	if p.source != nil {
		_ = p.source.Close()
		p.source = nil
	}
	return nil
}

//----------

func (p *GGPainter) Paint(c *framesched.Canvas, width, height int) {
	b := c.Image.Bounds()
	if p.dc == nil {
		p.dc = gg.NewContext(b.Dx(), b.Dy())
	} else if err := p.dc.Resize(b.Dx(), b.Dy()); err != nil {
		// the canvas still gets overwritten, with transparent pixels
		p.logger.Warn("ui: gg resize", "err", err)
		imageutil.FillRectangle(c.Image, b, color.RGBA{})
		return
	}
	dc := p.dc
	sc := p.scene
	s := float64(c.Scale)

	dc.Clear()
	dc.Push()
	dc.Scale(s, s)
	w, h := float64(width), float64(height)
	if bw := sc.BorderWidth; bw > 0 {
		p.setColor(sc.Border)
		dc.DrawRoundedRectangle(0, 0, w, h, sc.CornerRadius)
		p.fill()
		p.setColor(sc.Background)
		dc.DrawRoundedRectangle(bw, bw, w-2*bw, h-2*bw, max(sc.CornerRadius-bw, 0))
		p.fill()
	} else {
		p.setColor(sc.Background)
		dc.DrawRoundedRectangle(0, 0, w, h, sc.CornerRadius)
		p.fill()
	}
	if sc.CircleR > 0 {
		p.setColor(sc.CircleColor)
		dc.DrawCircle(sc.CircleX, sc.CircleY, sc.CircleR)
		p.fill()
	}
	dc.Pop()

	// text ignores the transform: scale the face and the position
	if sc.Text != "" {
		p.setColor(sc.TextColor)
		dc.SetFont(p.source.Face(sc.FontSize * s))
		dc.DrawString(sc.Text, sc.TextX*s, sc.TextY*s)
	}

	pm := dc.ResizeTarget()
	src := &image.RGBA{
		Pix:    pm.Data(),
		Stride: pm.Width() * 4,
		Rect:   image.Rect(0, 0, pm.Width(), pm.Height()),
	}
	c.Image.CopyRGBA(src)
}

func (p *GGPainter) setColor(c color.Color) {
	r, g, b, a := imageutil.FloatRGBA(c)
	p.dc.SetRGBA(r, g, b, a)
}

func (p *GGPainter) fill() {
	if err := p.dc.Fill(); err != nil {
		p.logger.Warn("ui: gg fill", "err", err)
	}
}
