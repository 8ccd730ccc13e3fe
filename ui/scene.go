// Package ui paints the panel contents.
package ui

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/jmigpin/wlpanel/core/config"
	"github.com/jmigpin/wlpanel/core/framesched"
	"github.com/jmigpin/wlpanel/util/fontutil"
	"github.com/jmigpin/wlpanel/util/imageutil"
)

// Scene is a rounded background, a filled circle and a line of text.
// Coordinates are logical; painters multiply them by the canvas scale.
type Scene struct {
	Background   color.RGBA
	Border       color.RGBA
	BorderWidth  float64
	CornerRadius float64

	CircleX, CircleY, CircleR float64
	CircleColor               color.RGBA

	Text         string
	TextX, TextY float64 // baseline start
	TextColor    color.RGBA
	TTF          []byte
	FontSize     float64
}

func NewScene(c *config.Scene) (*Scene, error) {
	s := &Scene{
		BorderWidth:  c.BorderWidth,
		CornerRadius: c.CornerRadius,
		CircleX:      c.Circle.X,
		CircleY:      c.Circle.Y,
		CircleR:      c.Circle.R,
		Text:         c.Text,
		TextX:        c.TextX,
		TextY:        c.TextY,
		FontSize:     c.FontSize,
	}
	var err error
	if s.Background, err = imageutil.ParseHexColor(c.Background); err != nil {
		return nil, err
	}
	if s.CircleColor, err = imageutil.ParseHexColor(c.Circle.Color); err != nil {
		return nil, err
	}
	if s.TextColor, err = imageutil.ParseHexColor(c.TextColor); err != nil {
		return nil, err
	}
	s.Border = imageutil.TintOrShade(s.Background, 0.3)
	if s.TTF, err = fontutil.LoadTTF(c.Font); err != nil {
		return nil, err
	}
	return s, nil
}

//----------

type Painter interface {
	Paint(c *framesched.Canvas, width, height int)
	SetScene(s *Scene) error
	Close() error
}

const (
	RendererRaster = "raster"
	RendererGG     = "gg"
)

func NewPainter(renderer string, s *Scene, logger *slog.Logger) (Painter, error) {
	switch renderer {
	case RendererRaster, "":
		return NewRasterPainter(s, logger)
	case RendererGG:
		return NewGGPainter(s, logger)
	}
	return nil, fmt.Errorf("ui: unknown renderer: %q", renderer)
}
