package framesched

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/jmigpin/wlpanel/core/bufpool"
	"github.com/jmigpin/wlpanel/core/bufpool/bufpooltest"
)

type recSurface struct {
	calls  []string
	frames uint32
}

func (s *recSurface) AckConfigure(serial uint32) {
	s.calls = append(s.calls, fmt.Sprintf("ack %d", serial))
}
func (s *recSurface) Attach(handle uint32) {
	s.calls = append(s.calls, fmt.Sprintf("attach %d", handle))
}
func (s *recSurface) Damage(x, y, w, h int) {
	s.calls = append(s.calls, fmt.Sprintf("damage %d %d %d %d", x, y, w, h))
}
func (s *recSurface) SetBufferScale(scale int) {
	s.calls = append(s.calls, fmt.Sprintf("scale %d", scale))
}
func (s *recSurface) Frame() uint32 {
	s.frames++
	s.calls = append(s.calls, fmt.Sprintf("frame %d", s.frames))
	return s.frames + 100
}
func (s *recSurface) Commit() {
	s.calls = append(s.calls, "commit")
}

func (s *recSurface) count(prefix string) int {
	n := 0
	for _, c := range s.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

//----------

type paintCall struct {
	w, h          int // logical
	imgW, imgH    int
	scale         int
	currentIsBusy bool
}

type tenv struct {
	t       *testing.T
	surf    *recSurface
	alloc   *bufpooltest.Allocator
	pool    *bufpool.Pool
	sched   *Scheduler
	paints  []paintCall
	onPaint func()
	trace   []Action
}

func newTEnv(t *testing.T) *tenv {
	t.Helper()
	env := &tenv{t: t, surf: &recSurface{}, alloc: &bufpooltest.Allocator{}}
	env.pool = bufpool.NewPool(env.alloc, nil)
	env.sched = New(&Config{
		Surface: env.surf,
		Pool:    env.pool,
		Paint:   env.paint,
		Width:   720,
		Height:  300,
	})
	return env
}

func (env *tenv) paint(c *Canvas, w, h int) {
	b := c.Image.Bounds()
	cur := env.sched.Current()
	env.paints = append(env.paints, paintCall{
		w: w, h: h,
		imgW: b.Dx(), imgH: b.Dy(),
		scale:         c.Scale,
		currentIsBusy: cur != nil && cur.Busy(),
	})
	if env.onPaint != nil {
		env.onPaint()
	}
}

func (env *tenv) send(ev Event, want ActionKind) Action {
	env.t.Helper()
	a := env.sched.HandleEvent(ev)
	env.trace = append(env.trace, a)
	if a.Kind != want {
		env.t.Fatalf("event %#v: got %v, want %v\ntrace:\n%s", ev, a, want, spew.Sdump(env.trace))
	}
	return a
}

func (env *tenv) frameDone(want ActionKind) Action {
	env.t.Helper()
	return env.send(FrameDone{Token: env.sched.PendingFrame()}, want)
}

func (env *tenv) releaseAll() {
	env.t.Helper()
	for _, a := range env.alloc.Allocs {
		env.pool.Release(a.Handle)
	}
}

//----------

func TestConfigureSubmitsOnce(t *testing.T) {
	env := newTEnv(t)
	a := env.send(Configure{Serial: 7, Width: 720, Height: 300}, Submit)

	if a.Width != 720 || a.Height != 300 || !a.Realloc {
		t.Fatal(a)
	}
	want := []string{"ack 7", "attach 1", "damage 0 0 720 300", "scale 1", "frame 1", "commit"}
	if fmt.Sprint(env.surf.calls) != fmt.Sprint(want) {
		t.Fatalf("calls:\n%v\nwant:\n%v", env.surf.calls, want)
	}
	if env.sched.Dirty() {
		t.Fatal("dirty after submit")
	}
	if env.sched.State() != AwaitingFrame {
		t.Fatal(env.sched.State())
	}
	if len(env.paints) != 1 || env.paints[0].imgW != 720 || env.paints[0].imgH != 300 {
		t.Fatal(env.paints)
	}
}

func TestRedrawBeforeConfigure(t *testing.T) {
	env := newTEnv(t)
	for i := 0; i < 3; i++ {
		env.send(Redraw{}, Defer)
	}
	if len(env.surf.calls) != 0 || len(env.paints) != 0 {
		t.Fatalf("submission before configure: %v", env.surf.calls)
	}
	if !env.sched.Dirty() {
		t.Fatal("expecting dirty")
	}

	env.send(Configure{Serial: 1}, Submit)
	if env.surf.count("commit") != 1 || len(env.paints) != 1 {
		t.Fatalf("calls: %v", env.surf.calls)
	}
	if env.sched.Dirty() {
		t.Fatal("dirty after submit")
	}
}

func TestConfigureZeroSizeUsesRequested(t *testing.T) {
	env := newTEnv(t)
	a := env.send(Configure{Serial: 1, Width: 0, Height: 0}, Submit)
	if a.Width != 720 || a.Height != 300 {
		t.Fatal(a)
	}
	if w, h := env.sched.Size(); w != 720 || h != 300 {
		t.Fatal(w, h)
	}
}

func TestRedrawWhileAwaitingFrame(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1, Width: 720, Height: 300}, Submit)

	env.send(Redraw{}, Defer)
	env.send(Redraw{}, Defer)
	if env.surf.count("commit") != 1 {
		t.Fatal("submitted while awaiting frame")
	}

	env.frameDone(Submit)
	if env.surf.count("commit") != 2 || env.surf.count("frame") != 2 {
		t.Fatalf("calls: %v", env.surf.calls)
	}

	// nothing owed anymore
	env.frameDone(None)
	if env.surf.count("commit") != 2 {
		t.Fatal("duplicate submission")
	}
	if env.sched.PendingFrame() != 0 || env.sched.State() != Idle {
		t.Fatal("expecting idle without pending frame")
	}
}

func TestBackpressure(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1, Width: 10, Height: 10}, Submit) // buffer 1 busy
	env.frameDone(None)
	env.send(Redraw{}, Submit) // buffer 2 busy
	env.frameDone(None)

	n := len(env.surf.calls)
	a := env.send(Redraw{}, Defer)
	if a.Reason == "" {
		t.Fatal("expecting a reason")
	}
	if len(env.surf.calls) != n {
		t.Fatalf("compositor interaction while all busy: %v", env.surf.calls[n:])
	}
	if !env.sched.Dirty() || env.sched.PendingFrame() != 0 {
		t.Fatal("expecting dirty and no frame requested")
	}

	// release brings the owed frame in
	h := env.alloc.Allocs[0].Handle
	a = env.send(BufferRelease{Handle: h}, Submit)
	if a.Realloc {
		t.Fatal("same size must reuse the buffer")
	}
	if env.sched.Dirty() {
		t.Fatal("dirty after submit")
	}
	if env.pool.Busy() > bufpool.Size {
		t.Fatal("too many busy")
	}
}

func TestReleaseWhileAwaitingFrame(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1, Width: 10, Height: 10}, Submit)
	env.send(Redraw{}, Defer)
	env.send(BufferRelease{Handle: env.alloc.Allocs[0].Handle}, None)
	if env.surf.count("commit") != 1 {
		t.Fatal("release must not bypass the frame callback")
	}
	env.frameDone(Submit)
}

func TestScaleChange(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1, Width: 720, Height: 300}, Submit)

	env.send(Scale{Factor: 2}, Defer) // awaiting frame
	env.send(Redraw{}, Defer)
	a := env.frameDone(Submit)

	if a.Width != 1440 || a.Height != 600 || !a.Realloc {
		t.Fatal(a)
	}
	p := env.paints[len(env.paints)-1]
	if p.w != 720 || p.h != 300 {
		t.Fatalf("logical size changed: %v", p)
	}
	if p.imgW != 1440 || p.imgH != 600 || p.scale != 2 {
		t.Fatalf("canvas: %v", p)
	}
	if env.surf.calls[len(env.surf.calls)-3] != "scale 2" {
		t.Fatal(env.surf.calls)
	}
	// damage stays in surface coordinates
	if env.surf.calls[len(env.surf.calls)-4] != "damage 0 0 720 300" {
		t.Fatal(env.surf.calls)
	}
}

func TestScaleUnchangedOrInvalid(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1}, Submit)
	env.frameDone(None)
	env.send(Scale{Factor: 1}, None)
	env.send(Scale{Factor: 0}, Ignore)
	if env.sched.Scale() != 1 {
		t.Fatal(env.sched.Scale())
	}
}

func TestResizeReallocatesBeforePaint(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1, Width: 720, Height: 300}, Submit)
	env.frameDone(None)
	env.releaseAll()

	allocs := len(env.alloc.Allocs)
	a := env.send(Configure{Serial: 2, Width: 800, Height: 200}, Submit)
	if !a.Realloc {
		t.Fatal("expecting reallocation")
	}
	if len(env.alloc.Allocs) != allocs+1 {
		t.Fatalf("allocs: %v -> %v", allocs, len(env.alloc.Allocs))
	}
	p := env.paints[len(env.paints)-1]
	if p.imgW != 800 || p.imgH != 200 || p.w != 800 || p.h != 200 {
		t.Fatalf("paint saw stale dims: %+v", p)
	}
	if env.surf.calls[len(env.surf.calls)-6] != "ack 2" {
		t.Fatal(env.surf.calls)
	}
}

func TestConfigureSameSize(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1, Width: 720, Height: 300}, Submit)
	env.send(Configure{Serial: 2, Width: 720, Height: 300}, None)
	if env.surf.count("ack") != 2 {
		t.Fatal("every configure must be acked")
	}
}

func TestStaleSignals(t *testing.T) {
	env := newTEnv(t)
	env.send(FrameDone{Token: 5}, Ignore)
	env.send(Configure{Serial: 1}, Submit)
	env.send(FrameDone{Token: env.sched.PendingFrame() + 1}, Ignore)
	env.send(BufferRelease{Handle: 999}, Ignore)
	if env.sched.Stats().Stale != 3 {
		t.Fatal(env.sched.Stats())
	}
	if env.sched.State() != AwaitingFrame {
		t.Fatal("stale frame changed state")
	}
}

func TestAllocationFailureDefers(t *testing.T) {
	env := newTEnv(t)
	env.alloc.Fail = true
	env.send(Configure{Serial: 1}, Defer)
	if !env.sched.Dirty() {
		t.Fatal("initial paint must stay owed")
	}
	if env.surf.count("attach") != 0 {
		t.Fatal("attach without buffer")
	}
	env.alloc.Fail = false
	env.send(Redraw{}, Submit)
}

func TestPaintExclusiveAccess(t *testing.T) {
	env := newTEnv(t)
	env.send(Configure{Serial: 1}, Submit)
	if !env.paints[0].currentIsBusy {
		t.Fatal("painting a buffer that is not marked busy")
	}
	if env.sched.Current() != nil {
		t.Fatal("current buffer kept after submission")
	}
}

func TestRedrawFromPaintIsQueued(t *testing.T) {
	env := newTEnv(t)
	var inner []Action
	env.onPaint = func() {
		if len(env.paints) == 1 {
			inner = append(inner, env.sched.RequestRedraw())
		}
	}
	env.send(Configure{Serial: 1}, Submit)

	if len(inner) != 1 || inner[0].Kind != Queued {
		t.Fatal(inner)
	}
	if len(env.paints) != 1 {
		t.Fatalf("paint reentered: %v", len(env.paints))
	}
	if !env.sched.Dirty() || env.sched.State() != AwaitingFrame {
		t.Fatal("queued redraw lost")
	}
	env.frameDone(Submit)
}

func TestRandomEventsInvariants(t *testing.T) {
	env := newTEnv(t)
	rnd := rand.New(rand.NewSource(1))
	env.send(Configure{Serial: 1, Width: 100, Height: 50}, Submit)

	for i := 0; i < 5000; i++ {
		var ev Event
		switch rnd.Intn(5) {
		case 0:
			ev = Redraw{}
		case 1:
			ev = FrameDone{Token: env.sched.PendingFrame()}
		case 2:
			allocs := env.alloc.Allocs
			ev = BufferRelease{Handle: allocs[rnd.Intn(len(allocs))].Handle}
		case 3:
			ev = Scale{Factor: 1 + rnd.Intn(2)}
		case 4:
			ev = Configure{Serial: uint32(i), Width: 100 + rnd.Intn(2), Height: 50}
		}
		commits := env.surf.count("commit")
		a := env.sched.HandleEvent(ev)

		if env.pool.Busy() > bufpool.Size {
			t.Fatalf("busy %v > %v", env.pool.Busy(), bufpool.Size)
		}
		if a.Kind == Submit {
			if env.surf.count("commit") != commits+1 {
				t.Fatal("submit without exactly one commit")
			}
			if env.sched.Dirty() {
				t.Fatal("dirty after submit")
			}
		} else if env.surf.count("commit") != commits {
			t.Fatalf("commit without submit: %v", a)
		}
		if env.sched.State() == AwaitingFrame && env.sched.PendingFrame() == 0 {
			t.Fatal("awaiting frame without token")
		}
		if env.sched.State() == Idle && env.sched.PendingFrame() != 0 {
			t.Fatal("idle with token")
		}
	}
	if env.alloc.Live() > bufpool.Size {
		t.Fatalf("live backings: %v", env.alloc.Live())
	}
}
