package fontutil

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FaceCache keeps glyph masks rendered at the origin. Not safe for
// concurrent use.
type FaceCache struct {
	font.Face
	gc map[rune]*glyphCache
}

func NewFaceCache(face font.Face) *FaceCache {
	return &FaceCache{Face: face, gc: map[rune]*glyphCache{}}
}

func (fc *FaceCache) Glyph(dot fixed.Point26_6, ru rune) (
	dr image.Rectangle,
	mask image.Image,
	maskp image.Point,
	advance fixed.Int26_6,
	ok bool,
) {
	gc, ok := fc.gc[ru]
	if !ok {
		gc = newGlyphCache(fc.Face, ru)
		fc.gc[ru] = gc
	}
	p := image.Point{dot.X.Round(), dot.Y.Round()}
	return gc.dr.Add(p), gc.mask, gc.maskp, gc.advance, gc.ok
}

func (fc *FaceCache) Len() int {
	return len(fc.gc)
}

//----------

type glyphCache struct {
	dr      image.Rectangle
	mask    image.Image
	maskp   image.Point
	advance fixed.Int26_6
	ok      bool
}

func newGlyphCache(face font.Face, ru rune) *glyphCache {
	var zeroDot fixed.Point26_6
	dr, mask, maskp, adv, ok := face.Glyph(zeroDot, ru)
	// truetype reuses the mask memory on the next call
	if ok {
		mask = copyMask(mask)
	}
	return &glyphCache{dr, mask, maskp, adv, ok}
}

func copyMask(mask image.Image) image.Image {
	alpha, ok := mask.(*image.Alpha)
	if !ok {
		return mask
	}
	a2 := *alpha
	a2.Pix = append([]uint8(nil), alpha.Pix...)
	return &a2
}
