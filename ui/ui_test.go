package ui

import (
	"image"
	"image/color"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/jmigpin/wlpanel/core/config"
	"github.com/jmigpin/wlpanel/core/framesched"
	"github.com/jmigpin/wlpanel/util/imageutil"
	"github.com/jmigpin/wlpanel/util/testutil"
)

func mustScene(t *testing.T, fn func(c *config.Scene)) *Scene {
	t.Helper()
	cfg := config.Default()
	if fn != nil {
		fn(&cfg.Scene)
	}
	s, err := NewScene(&cfg.Scene)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustPainter(t *testing.T, renderer string, s *Scene) Painter {
	t.Helper()
	p, err := NewPainter(renderer, s, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func newCanvas(w, h, scale int) *framesched.Canvas {
	r := image.Rect(0, 0, w*scale, h*scale)
	img := imageutil.NewBGRA(&r)
	// garbage, the painter must overwrite everything
	imageutil.FillRectangle(img, r, color.RGBA{200, 0, 0, 255})
	return &framesched.Canvas{Image: img, Scale: scale}
}

func near(c1, c2 color.RGBA, d int) bool {
	f := func(a, b uint8) bool {
		v := int(a) - int(b)
		return v >= -d && v <= d
	}
	return f(c1.R, c2.R) && f(c1.G, c2.G) && f(c1.B, c2.B) && f(c1.A, c2.A)
}

func countBright(img *imageutil.BGRA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := img.RGBAAt(x, y); c.R > 200 && c.G > 200 && c.B > 200 {
				n++
			}
		}
	}
	return n
}

//----------

func TestNewScene(t *testing.T) {
	s := mustScene(t, nil)
	want := color.RGBA{0, 0x80, 0x80, 0xff}
	if s.Background != want || s.CircleColor != (color.RGBA{0, 0, 0, 255}) {
		t.Fatal(spew.Sdump(s.Background, s.CircleColor))
	}
	if len(s.TTF) == 0 {
		t.Fatal("no font")
	}

	cfg := config.Default()
	cfg.Scene.Font = "/nonexistent/font.ttf"
	if _, err := NewScene(&cfg.Scene); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnknownRenderer(t *testing.T) {
	if _, err := NewPainter("cairo", mustScene(t, nil), nil); err == nil {
		t.Fatal("expected error")
	}
}

func testPaint(t *testing.T, renderer string, tol int) {
	teal := color.RGBA{0, 0x80, 0x80, 0xff}
	black := color.RGBA{0, 0, 0, 0xff}

	for _, scale := range []int{1, 2} {
		p := mustPainter(t, renderer, mustScene(t, nil))
		c := newCanvas(720, 300, scale)
		p.Paint(c, 720, 300)
		img := c.Image
		at := func(x, y int) color.RGBA { return img.RGBAAt(x*scale, y*scale) }

		if v := at(0, 0); v.A > 0 {
			t.Fatalf("%v: scale %v: corner not transparent: %v", renderer, scale, v)
		}
		if v := at(360, 40); !near(v, teal, tol) {
			t.Fatalf("%v: scale %v: background: %v", renderer, scale, v)
		}
		if v := at(330, 160); !near(v, black, tol) {
			t.Fatalf("%v: scale %v: circle: %v", renderer, scale, v)
		}
		if v := at(330+45, 160); !near(v, teal, tol) {
			t.Fatalf("%v: scale %v: outside circle: %v", renderer, scale, v)
		}
		tr := image.Rect(100, 84, 320, 104)
		tr = image.Rectangle{tr.Min.Mul(scale), tr.Max.Mul(scale)}
		if countBright(img, tr) == 0 {
			t.Fatalf("%v: scale %v: no text", renderer, scale)
		}
		// nothing of the text above its line
		tr2 := image.Rect(100, 40, 320, 70)
		tr2 = image.Rectangle{tr2.Min.Mul(scale), tr2.Max.Mul(scale)}
		if n := countBright(img, tr2); n != 0 {
			t.Fatalf("%v: scale %v: stray text pixels: %v", renderer, scale, n)
		}
	}
}

func TestRasterPaint(t *testing.T) {
	testPaint(t, RendererRaster, 0)
}

func TestGGPaint(t *testing.T) {
	testPaint(t, RendererGG, 2)
}

func TestPaintOverwritesCanvas(t *testing.T) {
	for _, renderer := range []string{RendererRaster, RendererGG} {
		p := mustPainter(t, renderer, mustScene(t, nil))
		c1 := newCanvas(300, 200, 2)
		p.Paint(c1, 300, 200)
		c2 := newCanvas(300, 200, 2)
		testutil.FillPattern(c2.Image, 7)
		p.Paint(c2, 300, 200)
		if err := testutil.CompareImgs(c1.Image, c2.Image); err != nil {
			t.Fatalf("%v: %v", renderer, err)
		}
	}
}

func TestRasterPaintMemoryOrder(t *testing.T) {
	p := mustPainter(t, RendererRaster, mustScene(t, nil))
	c := newCanvas(720, 300, 1)
	p.Paint(c, 720, 300)
	i := c.Image.PixOffset(360, 40)
	// argb8888 little endian: b, g, r, a
	if u := c.Image.Pix[i : i+4]; u[0] != 0x80 || u[1] != 0x80 || u[2] != 0 || u[3] != 0xff {
		t.Fatal(u)
	}
}

func TestRasterBorder(t *testing.T) {
	s := mustScene(t, func(c *config.Scene) { c.BorderWidth = 4 })
	p := mustPainter(t, RendererRaster, s)
	c := newCanvas(720, 300, 1)
	p.Paint(c, 720, 300)
	if v := c.Image.RGBAAt(360, 1); v != s.Border {
		t.Fatal(v, s.Border)
	}
	if v := c.Image.RGBAAt(360, 10); v != s.Background {
		t.Fatal(v)
	}
	if s.Border == s.Background {
		t.Fatal("border not distinct")
	}
}

func TestRasterSetScene(t *testing.T) {
	p := mustPainter(t, RendererRaster, mustScene(t, nil))
	s2 := mustScene(t, func(c *config.Scene) {
		c.Background = "#ff0000"
		c.Circle.R = 0
		c.Text = ""
		c.Font = "mono"
	})
	if err := p.SetScene(s2); err != nil {
		t.Fatal(err)
	}
	c := newCanvas(100, 50, 1)
	p.Paint(c, 100, 50)
	if v := c.Image.RGBAAt(50, 25); v != (color.RGBA{255, 0, 0, 255}) {
		t.Fatal(v)
	}
	// resize reuses nothing stale
	c = newCanvas(200, 80, 1)
	p.Paint(c, 200, 80)
	if v := c.Image.RGBAAt(150, 70); v != (color.RGBA{255, 0, 0, 255}) {
		t.Fatal(v)
	}
}

func BenchmarkRasterPaint(b *testing.B) {
	cfg := config.Default()
	s, err := NewScene(&cfg.Scene)
	if err != nil {
		b.Fatal(err)
	}
	p, _ := NewRasterPainter(s, nil)
	c := newCanvas(720, 300, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Paint(c, 720, 300)
	}
}

func TestGGPaintAfterBadSize(t *testing.T) {
	p := mustPainter(t, RendererGG, mustScene(t, nil))
	c1 := newCanvas(300, 200, 1)
	p.Paint(c1, 300, 200)

	// resize fails: nothing to draw into, must not keep old pixels around
	r := image.Rect(0, 0, 0, 200)
	p.Paint(&framesched.Canvas{Image: imageutil.NewBGRA(&r), Scale: 1}, 0, 200)

	c2 := newCanvas(300, 200, 1)
	testutil.FillPattern(c2.Image, 3)
	p.Paint(c2, 300, 200)
	if err := testutil.CompareImgs(c1.Image, c2.Image); err != nil {
		t.Fatal(err)
	}
}
