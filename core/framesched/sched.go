// Package framesched decides when a surface is repainted.
//
// A frame is only submitted when the surface is configured, no frame
// callback is outstanding and the pool has a free buffer. Submitting arms
// exactly one frame callback, so at most one compositor round trip is in
// flight. Redraws that cannot be submitted leave the surface dirty; the
// next frame callback or buffer release retries.
package framesched

import (
	"errors"
	"log/slog"

	"github.com/jmigpin/wlpanel/core/bufpool"
	"github.com/jmigpin/wlpanel/util/imageutil"
	"github.com/jmigpin/wlpanel/util/logutil"
)

// Surface is the compositor side of the panel. Calls are fire and forget.
type Surface interface {
	AckConfigure(serial uint32)
	Attach(handle uint32)
	Damage(x, y, width, height int)
	SetBufferScale(scale int)
	Frame() uint32 // arms a one-shot frame callback, returns its token
	Commit()
}

type Pool interface {
	Acquire(width, height int) (*bufpool.Buffer, error)
	Release(handle uint32) bool
}

// Canvas is the paint target: the whole buffer, in pixels. Logical
// coordinates are multiplied by Scale.
type Canvas struct {
	Image *imageutil.BGRA
	Scale int
}

// PaintFunc must overwrite the whole canvas. Width and height are logical.
type PaintFunc func(c *Canvas, width, height int)

type Config struct {
	Surface Surface
	Pool    Pool
	Paint   PaintFunc

	// Logical size used when the compositor leaves the choice to the client.
	Width, Height int

	Logger *slog.Logger
}

type Stats struct {
	Submits  int
	Deferred int
	Stale    int
}

//----------

type Scheduler struct {
	surf   Surface
	pool   Pool
	paint  PaintFunc
	logger *slog.Logger

	state      State
	configured bool
	dirty      bool
	pending    uint32 // frame callback token, 0 when none

	reqW, reqH    int // requested logical size
	width, height int // configured logical size
	scale         int

	current *bufpool.Buffer // only set between acquire and commit

	handling bool
	queue    []Event

	stats Stats
}

func New(cfg *Config) *Scheduler {
	return &Scheduler{
		surf:   cfg.Surface,
		pool:   cfg.Pool,
		paint:  cfg.Paint,
		logger: logutil.OrDiscard(cfg.Logger),
		reqW:   cfg.Width,
		reqH:   cfg.Height,
		scale:  1,
	}
}

//----------

// HandleEvent runs one state transition. Events raised while an event is
// being handled (from the paint callback, for instance) are queued and run
// afterwards, never recursively.
func (s *Scheduler) HandleEvent(ev Event) Action {
	if s.handling {
		s.queue = append(s.queue, ev)
		return Action{Kind: Queued}
	}
	s.handling = true
	defer func() { s.handling = false }()

	a := s.handle(ev)
	for len(s.queue) > 0 {
		ev2 := s.queue[0]
		s.queue = s.queue[1:]
		a2 := s.handle(ev2)
		s.logger.Debug("framesched: queued event", "event", ev2, "action", a2)
	}
	return a
}

func (s *Scheduler) RequestRedraw() Action {
	return s.HandleEvent(Redraw{})
}

func (s *Scheduler) handle(ev Event) Action {
	switch t := ev.(type) {
	case Configure:
		return s.onConfigure(t)
	case Redraw:
		return s.onRedraw()
	case FrameDone:
		return s.onFrameDone(t)
	case BufferRelease:
		return s.onBufferRelease(t)
	case Scale:
		return s.onScale(t)
	}
	return s.ignore("unknown event")
}

//----------

func (s *Scheduler) onConfigure(ev Configure) Action {
	s.surf.AckConfigure(ev.Serial)

	w, h := ev.Width, ev.Height
	if w <= 0 {
		w = s.reqW
	}
	if h <= 0 {
		h = s.reqH
	}

	if !s.configured {
		s.configured = true
		s.state = Idle
		s.width, s.height = w, h
		s.logger.Info("framesched: configured", "width", w, "height", h)
		// the first paint is always owed
		s.dirty = true
		return s.trySubmit()
	}

	if w == s.width && h == s.height {
		return Action{Kind: None}
	}
	s.logger.Info("framesched: resized", "width", w, "height", h)
	s.width, s.height = w, h
	return s.onRedraw()
}

func (s *Scheduler) onRedraw() Action {
	s.dirty = true
	if !s.configured {
		return s.deferred("unconfigured")
	}
	if s.state == AwaitingFrame {
		return s.deferred("awaiting frame")
	}
	return s.trySubmit()
}

func (s *Scheduler) onFrameDone(ev FrameDone) Action {
	if s.pending == 0 || ev.Token != s.pending {
		s.stats.Stale++
		return s.ignore("stale frame callback")
	}
	s.pending = 0
	s.state = Idle
	if s.dirty {
		return s.trySubmit()
	}
	return Action{Kind: None}
}

func (s *Scheduler) onBufferRelease(ev BufferRelease) Action {
	if !s.pool.Release(ev.Handle) {
		s.stats.Stale++
		return s.ignore("stale buffer release")
	}
	// a redraw may have been dropped because both buffers were busy
	if s.dirty && s.configured && s.state == Idle {
		return s.trySubmit()
	}
	return Action{Kind: None}
}

func (s *Scheduler) onScale(ev Scale) Action {
	if ev.Factor < 1 {
		return s.ignore("bad scale")
	}
	if ev.Factor == s.scale {
		return Action{Kind: None}
	}
	s.scale = ev.Factor
	return s.onRedraw()
}

//----------

func (s *Scheduler) trySubmit() Action {
	bw, bh := s.width*s.scale, s.height*s.scale
	b, err := s.pool.Acquire(bw, bh)
	if err != nil {
		if !errors.Is(err, bufpool.ErrAllBusy) {
			s.logger.Warn("framesched: no buffer", "err", err)
		}
		return s.deferred(err.Error())
	}
	s.current = b
	defer func() { s.current = nil }()

	s.paint(&Canvas{Image: b.Image(), Scale: s.scale}, s.width, s.height)

	s.surf.Attach(b.Handle())
	s.surf.Damage(0, 0, s.width, s.height)
	s.surf.SetBufferScale(s.scale)
	s.pending = s.surf.Frame()
	s.surf.Commit()

	s.state = AwaitingFrame
	s.dirty = false
	s.stats.Submits++
	return Action{Kind: Submit, Width: bw, Height: bh, Realloc: b.Reallocated()}
}

func (s *Scheduler) deferred(reason string) Action {
	s.stats.Deferred++
	return Action{Kind: Defer, Reason: reason}
}

func (s *Scheduler) ignore(reason string) Action {
	s.logger.Debug("framesched: ignored", "reason", reason)
	return Action{Kind: Ignore, Reason: reason}
}

//----------

func (s *Scheduler) State() State         { return s.state }
func (s *Scheduler) Configured() bool     { return s.configured }
func (s *Scheduler) Dirty() bool          { return s.dirty }
func (s *Scheduler) PendingFrame() uint32 { return s.pending }
func (s *Scheduler) Scale() int           { return s.scale }
func (s *Scheduler) Stats() Stats         { return s.stats }

// Current is the buffer being painted, nil outside of a submission.
func (s *Scheduler) Current() *bufpool.Buffer { return s.current }

// Size returns the configured logical size.
func (s *Scheduler) Size() (int, int) { return s.width, s.height }

// SetRequestedSize changes the size used when the compositor leaves the
// choice to the client. Takes effect on the next configure.
func (s *Scheduler) SetRequestedSize(w, h int) {
	s.reqW, s.reqH = w, h
}
