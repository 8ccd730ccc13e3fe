package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmigpin/wlpanel/core/bufpool"
	"github.com/jmigpin/wlpanel/core/config"
	"github.com/jmigpin/wlpanel/core/framesched"
	"github.com/jmigpin/wlpanel/core/fswatcher"
	"github.com/jmigpin/wlpanel/driver/wldriver"
	"github.com/jmigpin/wlpanel/driver/wldriver/wimage"
	"github.com/jmigpin/wlpanel/ui"
	"github.com/jmigpin/wlpanel/util/logutil"
)

// Panel is one layer surface on the compositor of client. Everything runs
// on the goroutine that calls Run.
type Panel struct {
	opt    *Options
	cfg    *config.Config
	logger *slog.Logger
	client *wldriver.Client

	comp   *wldriver.Compositor
	shm    *wldriver.Shm
	output *wldriver.Output
	shell  *wldriver.LayerShell
	surf   *wldriver.Surface
	layer  *wldriver.LayerSurface

	pool    *bufpool.Pool
	sched   *framesched.Scheduler
	painter ui.Painter
	watcher *fswatcher.FileWatcher

	compVersion uint32
	closed      bool
	redraw      chan struct{}
}

func RunPanel(ctx context.Context, opt *Options, logger *slog.Logger) error {
	cfg, err := config.Load(opt.ConfigPath, logger)
	if err != nil {
		return err
	}
	client, err := wldriver.Connect(logger)
	if err != nil {
		return err
	}
	defer client.Close()

	p, err := NewPanel(client, cfg, opt, logger)
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

func NewPanel(client *wldriver.Client, cfg *config.Config, opt *Options, logger *slog.Logger) (*Panel, error) {
	p := &Panel{
		opt:    opt,
		cfg:    cfg,
		logger: logutil.OrDiscard(logger),
		client: client,
		redraw: make(chan struct{}, 1),
	}
	scene, err := ui.NewScene(&cfg.Scene)
	if err != nil {
		return nil, err
	}
	p.painter, err = ui.NewPainter(opt.Renderer, scene, p.logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Redraw asks for a repaint on the next available frame. Safe to call from
// any goroutine.
func (p *Panel) Redraw() {
	select {
	case p.redraw <- struct{}{}:
	default:
	}
}

// Run returns when ctx is done, the compositor closes the layer surface or
// the connection fails.
func (p *Panel) Run(ctx context.Context) error {
	defer p.teardown()
	if err := p.init(ctx); err != nil {
		return err
	}
	p.initWatcher()
	return p.eventLoop(ctx)
}

//----------

func (p *Panel) init(ctx context.Context) error {
	if err := p.client.Roundtrip(ctx); err != nil {
		return err
	}
	err := p.client.MustHave(
		wldriver.CompositorInterface,
		wldriver.ShmInterface,
		wldriver.LayerShellInterface)
	if err != nil {
		return err
	}

	g, _ := p.client.Global(wldriver.CompositorInterface)
	p.comp = wldriver.BindCompositor(p.client, g)
	p.compVersion = g.Version
	g, _ = p.client.Global(wldriver.ShmInterface)
	p.shm = wldriver.BindShm(p.client, g)
	g, _ = p.client.Global(wldriver.LayerShellInterface)
	p.shell = wldriver.BindLayerShell(p.client, g)
	if g, ok := p.client.Global(wldriver.OutputInterface); ok {
		p.output = wldriver.BindOutput(p.client, g)
		p.output.OnScale = func(f int) {
			p.handle(framesched.Scale{Factor: f})
		}
	}

	alloc := wimage.NewShmAllocator(p.shm, p.logger)
	alloc.OnRelease = func(h uint32) {
		p.handle(framesched.BufferRelease{Handle: h})
	}
	p.pool = bufpool.NewPool(alloc, p.logger)

	p.surf = p.comp.CreateSurface()
	p.layer = p.shell.GetLayerSurface(p.surf, nil, p.cfg.LayerValue(), p.cfg.Namespace)
	p.layer.OnConfigure = func(serial uint32, w, h int) {
		p.handle(framesched.Configure{Serial: serial, Width: w, Height: h})
	}
	p.layer.OnClosed = func() {
		p.closed = true
	}
	p.setLayerState()

	p.sched = framesched.New(&framesched.Config{
		Surface: &panelSurface{p},
		Pool:    p.pool,
		Paint:   p.painter.Paint,
		Width:   p.cfg.Width,
		Height:  p.cfg.Height,
		Logger:  p.logger,
	})

	// shm formats, output scale
	if err := p.client.Roundtrip(ctx); err != nil {
		return err
	}
	if !p.shm.HasFormat(wldriver.FormatARGB8888) {
		return &wldriver.CapabilityError{Interface: "wl_shm argb8888"}
	}

	// first configure comes after a commit without a buffer
	p.surf.Commit()
	p.logger.Info("panel: surface created",
		"namespace", p.cfg.Namespace,
		"layer", p.cfg.Layer,
		"size", fmt.Sprintf("%dx%d", p.cfg.Width, p.cfg.Height))
	return nil
}

func (p *Panel) initWatcher() {
	if !p.opt.WatchConfig || p.opt.ConfigPath == "" {
		return
	}
	w, err := fswatcher.NewFsnWatcher(fswatcher.FileOps)
	if err != nil {
		p.logger.Warn("panel: config watcher", "err", err)
		return
	}
	fw, err := fswatcher.NewFileWatcher(w, p.opt.ConfigPath, p.opt.WatchDelay, p.logger)
	if err != nil {
		w.Close()
		p.logger.Warn("panel: config watcher", "err", err)
		return
	}
	p.watcher = fw
}

func (p *Panel) setLayerState() {
	c := p.cfg
	p.layer.SetSize(c.Width, c.Height)
	p.layer.SetAnchor(c.AnchorValue())
	p.layer.SetExclusiveZone(c.ExclusiveZone)
	p.layer.SetMargin(c.Margin[0], c.Margin[1], c.Margin[2], c.Margin[3])
	p.layer.SetKeyboardInteractivity(c.KeyboardInteractivity)
}

//----------

func (p *Panel) eventLoop(ctx context.Context) error {
	var changed <-chan struct{}
	if p.watcher != nil {
		changed = p.watcher.Changed()
	}
	for {
		if err := p.client.Flush(); err != nil {
			return err
		}
		if p.closed {
			p.logger.Info("panel: layer surface closed by the compositor")
			return nil
		}

		select {
		case <-ctx.Done():
			p.logger.Info("panel: shutting down")
			return nil
		case r := <-p.client.Reads():
			if err := p.client.Dispatch(r); err != nil {
				return err
			}
		case <-p.redraw:
			p.handle(framesched.Redraw{})
		case <-changed:
			p.reloadConfig()
		}
	}
}

func (p *Panel) handle(ev framesched.Event) {
	a := p.sched.HandleEvent(ev)
	p.logger.Debug("panel: event", "event", fmt.Sprintf("%T%+v", ev, ev), "action", a)
}

func (p *Panel) reloadConfig() {
	cfg, err := config.Load(p.opt.ConfigPath, p.logger)
	if err != nil {
		p.logger.Warn("panel: config not reloaded", "err", err)
		return
	}
	if !cfg.SameRole(p.cfg) {
		p.logger.Warn("panel: layer and namespace changes need a restart")
		cfg.Layer, cfg.Namespace = p.cfg.Layer, p.cfg.Namespace
	}

	sceneChanged := !cfg.SameScene(p.cfg)
	if sceneChanged {
		scene, err := ui.NewScene(&cfg.Scene)
		if err == nil {
			err = p.painter.SetScene(scene)
		}
		if err != nil {
			p.logger.Warn("panel: config not reloaded", "err", err)
			return
		}
	}
	surfaceChanged := !cfg.SameSurface(p.cfg)
	p.cfg = cfg

	if surfaceChanged {
		p.sched.SetRequestedSize(cfg.Width, cfg.Height)
		p.setLayerState()
		p.surf.Commit() // compositor answers with a configure
	}
	if sceneChanged {
		p.handle(framesched.Redraw{})
	}
	p.logger.Info("panel: config reloaded", "scene", sceneChanged, "surface", surfaceChanged)
}

//----------

// teardown never waits for the compositor.
func (p *Panel) teardown() {
	var errs []error
	if p.pool != nil {
		errs = append(errs, p.pool.Close())
	}
	if p.layer != nil {
		p.layer.Destroy()
	}
	if p.surf != nil {
		p.surf.Destroy()
	}
	if p.output != nil {
		p.output.Release()
	}
	if err := p.client.Flush(); err != nil {
		p.logger.Debug("panel: flush", "err", err)
	}
	if p.watcher != nil {
		errs = append(errs, p.watcher.Close())
	}
	errs = append(errs, p.painter.Close())
	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("panel: teardown", "err", err)
	}
}

//----------

// panelSurface is the scheduler's view of the layer surface.
type panelSurface struct {
	p *Panel
}

func (s *panelSurface) AckConfigure(serial uint32) {
	s.p.layer.AckConfigure(serial)
}
func (s *panelSurface) Attach(handle uint32) {
	s.p.surf.Attach(handle, 0, 0)
}
func (s *panelSurface) Damage(x, y, w, h int) {
	s.p.surf.Damage(x, y, w, h)
}
func (s *panelSurface) SetBufferScale(scale int) {
	if s.p.compVersion >= 3 {
		s.p.surf.SetBufferScale(scale)
	}
}
func (s *panelSurface) Frame() uint32 {
	cb := s.p.surf.Frame()
	id := cb.ID()
	cb.OnDone = func(uint32) {
		s.p.handle(framesched.FrameDone{Token: id})
	}
	return id
}
func (s *panelSurface) Commit() {
	s.p.surf.Commit()
}
