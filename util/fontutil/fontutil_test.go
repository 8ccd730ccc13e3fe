package fontutil

import (
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

func mustFont(t *testing.T, name string) *Font {
	t.Helper()
	ttf, err := LoadTTF(name)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewFontsManager().Font(ttf)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLoadTTF(t *testing.T) {
	for _, name := range []string{"regular", "medium", "bold", "mono"} {
		mustFont(t, name)
	}

	name := filepath.Join(t.TempDir(), "font.ttf")
	if err := os.WriteFile(name, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	mustFont(t, name)

	if _, err := LoadTTF(filepath.Join(t.TempDir(), "nope.ttf")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewFont([]byte("not a font")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFontsManagerCache(t *testing.T) {
	fm := NewFontsManager()
	f1, _ := fm.Font(goregular.TTF)
	f2, _ := fm.Font(goregular.TTF)
	if f1 != f2 {
		t.Fatal("not cached")
	}
	if f1.FontFace2(16) != f1.FontFace2(16) {
		t.Fatal("face not cached")
	}
	if f1.FontFace2(16) == f1.FontFace2(32) {
		t.Fatal("sizes share a face")
	}
}

func TestFaceScales(t *testing.T) {
	f := mustFont(t, "bold")
	w1 := f.FontFace2(16).Width("Test text")
	w2 := f.FontFace2(32).Width("Test text")
	if w1 <= 0 || w2 < w1*3/2 {
		t.Fatal(w1, w2)
	}
}

func TestFaceCacheDraw(t *testing.T) {
	ff := mustFont(t, "regular").FontFace2(20)
	img := image.NewAlpha(image.Rect(0, 0, 200, 40))
	d := &font.Drawer{Dst: img, Src: image.Opaque, Face: ff.Face}
	d.Dot = fixed.P(4, 30)
	d.DrawString("aaa")

	fc := ff.Face.(*FaceCache)
	if fc.Len() != 1 {
		t.Fatal(fc.Len())
	}

	// same glyph drawn at the three positions
	img2 := image.NewAlpha(img.Bounds())
	dr, mask, maskp, adv, ok := fc.Glyph(fixed.P(4, 30), 'a')
	if !ok || adv <= 0 {
		t.Fatal(ok, adv)
	}
	draw.DrawMask(img2, dr, image.Opaque, image.Point{}, mask, maskp, draw.Over)
	n1, n2 := 0, 0
	for i := range img.Pix {
		if img.Pix[i] > 0 {
			n1++
		}
		if img2.Pix[i] > 0 {
			n2++
		}
	}
	if n2 == 0 || n1 < n2*3-3 {
		t.Fatal(n1, n2)
	}
}

func TestFloat64ToFixed266(t *testing.T) {
	for _, c := range []struct {
		v    float64
		want fixed.Int26_6
	}{
		{0, 0},
		{1, fixed.I(1)},
		{12.5, fixed.I(12) + 32},
		{-2, fixed.I(-2)},
	} {
		if got := Float64ToFixed266(c.v); got != c.want {
			t.Fatalf("%v: %v != %v", c.v, got, c.want)
		}
	}
}
