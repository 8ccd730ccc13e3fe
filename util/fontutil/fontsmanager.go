package fontutil

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var builtin = map[string][]byte{
	"regular": goregular.TTF,
	"medium":  gomedium.TTF,
	"bold":    gobold.TTF,
	"mono":    gomono.TTF,
}

// LoadTTF returns a builtin go font by name, or reads a font file.
func LoadTTF(name string) ([]byte, error) {
	if b, ok := builtin[name]; ok {
		return b, nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("fontutil: %w", err)
	}
	return b, nil
}

//----------

type FontsManager struct {
	fontsCache map[string]*Font
}

func NewFontsManager() *FontsManager {
	return &FontsManager{fontsCache: map[string]*Font{}}
}

func (fm *FontsManager) Font(ttf []byte) (*Font, error) {
	f, ok := fm.fontsCache[string(ttf)]
	if ok {
		return f, nil
	}
	f, err := NewFont(ttf)
	if err != nil {
		return nil, err
	}
	fm.fontsCache[string(ttf)] = f
	return f, nil
}

//----------

type Font struct {
	Font       *truetype.Font
	facesCache map[truetype.Options]*FontFace
}

func NewFont(ttf []byte) (*Font, error) {
	tf, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("fontutil: parse: %w", err)
	}
	return &Font{Font: tf, facesCache: map[truetype.Options]*FontFace{}}, nil
}

func (f *Font) FontFace(opt truetype.Options) *FontFace {
	if opt.Size == 0 {
		opt.Size = 12
	}
	if opt.DPI == 0 {
		opt.DPI = 72
	}
	ff, ok := f.facesCache[opt]
	if ok {
		return ff
	}
	ff = newFontFace(f, opt)
	f.facesCache[opt] = ff
	return ff
}

// FontFace2 returns a face of size pixels, hinted, as used to paint.
func (f *Font) FontFace2(size float64) *FontFace {
	return f.FontFace(truetype.Options{Size: size, Hinting: font.HintingFull})
}

//----------

type FontFace struct {
	Font    *Font
	Face    font.Face
	Size    float64 // in points at 72 dpi, that is pixels; readonly
	Metrics font.Metrics
}

func newFontFace(f *Font, opt truetype.Options) *FontFace {
	face := NewFaceCache(truetype.NewFace(f.Font, &opt))
	return &FontFace{Font: f, Face: face, Size: opt.Size, Metrics: face.Metrics()}
}

// Width of the string in pixels.
func (ff *FontFace) Width(s string) fixed.Int26_6 {
	return font.MeasureString(ff.Face, s)
}
