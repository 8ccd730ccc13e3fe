package wldriver

import (
	"deedles.dev/wl/wire"
)

const (
	CompositorInterface = "wl_compositor"
	ShmInterface        = "wl_shm"
	OutputInterface     = "wl_output"
	LayerShellInterface = "zwlr_layer_shell_v1"

	SurfaceInterface      = "wl_surface"
	ShmPoolInterface      = "wl_shm_pool"
	BufferInterface       = "wl_buffer"
	LayerSurfaceInterface = "zwlr_layer_surface_v1"
)

// wl_shm formats
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
)

//----------

type Compositor struct {
	proxy
}

func BindCompositor(c *Client, g Global) *Compositor {
	o := &Compositor{proxy: c.newProxy(CompositorInterface)}
	c.Registry.bind(g, minVersion(g, 4), o)
	return o
}

func (o *Compositor) CreateSurface() *Surface {
	s := &Surface{proxy: o.c.newProxy(SurfaceInterface)}
	o.c.Add(s)
	m := request(o, 0, "create_surface", s.id)
	m.WriteObject(s)
	o.c.Enqueue(m)
	return s
}

func (o *Compositor) Dispatch(m *wire.MessageBuffer) error {
	return o.unknownEvent(m)
}

//----------

type Surface struct {
	proxy
}

func (s *Surface) Destroy() {
	s.c.Enqueue(request(s, 0, "destroy"))
	s.c.zombify(s.id)
}

// Attach a buffer by id, 0 detaches.
func (s *Surface) Attach(buffer uint32, x, y int) {
	m := request(s, 1, "attach", buffer, x, y)
	m.WriteUint(buffer)
	m.WriteInt(int32(x))
	m.WriteInt(int32(y))
	s.c.Enqueue(m)
}

// Damage in surface coordinates.
func (s *Surface) Damage(x, y, w, h int) {
	m := request(s, 2, "damage", x, y, w, h)
	m.WriteInt(int32(x))
	m.WriteInt(int32(y))
	m.WriteInt(int32(w))
	m.WriteInt(int32(h))
	s.c.Enqueue(m)
}

func (s *Surface) Frame() *Callback {
	cb := &Callback{proxy: s.c.newProxy(CallbackInterface)}
	s.c.Add(cb)
	m := request(s, 3, "frame", cb.id)
	m.WriteObject(cb)
	s.c.Enqueue(m)
	return cb
}

func (s *Surface) Commit() {
	s.c.Enqueue(request(s, 6, "commit"))
}

func (s *Surface) SetBufferScale(scale int) {
	m := request(s, 8, "set_buffer_scale", scale)
	m.WriteInt(int32(scale))
	s.c.Enqueue(m)
}

func (s *Surface) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0, 1: // enter, leave
		s.c.logger.Debug("wldriver: surface output", "opcode", m.Op(), "output", m.ReadObject())
		return nil
	}
	return s.unknownEvent(m)
}

//----------

type Shm struct {
	proxy
	formats map[uint32]bool
}

func BindShm(c *Client, g Global) *Shm {
	o := &Shm{proxy: c.newProxy(ShmInterface), formats: map[uint32]bool{}}
	c.Registry.bind(g, minVersion(g, 1), o)
	return o
}

// HasFormat is only valid after a roundtrip following the bind.
func (o *Shm) HasFormat(f uint32) bool {
	return o.formats[f]
}

// CreatePool shares fd with the compositor. The request holds its own
// duplicate of fd, so the caller may close fd right away.
func (o *Shm) CreatePool(fd int, size int) *ShmPool {
	p := &ShmPool{proxy: o.c.newProxy(ShmPoolInterface)}
	o.c.Add(p)
	m := request(o, 0, "create_pool", p.id, fd, size)
	m.WriteObject(p)
	m.WriteFD(fd)
	m.WriteInt(int32(size))
	o.c.Enqueue(m)
	return p
}

func (o *Shm) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // format
		o.formats[m.ReadUint()] = true
		return nil
	}
	return o.unknownEvent(m)
}

//----------

type ShmPool struct {
	proxy
}

func (p *ShmPool) CreateBuffer(offset, w, h, stride int, format uint32) *Buffer {
	b := &Buffer{proxy: p.c.newProxy(BufferInterface)}
	p.c.Add(b)
	m := request(p, 0, "create_buffer", b.id, offset, w, h, stride, format)
	m.WriteObject(b)
	m.WriteInt(int32(offset))
	m.WriteInt(int32(w))
	m.WriteInt(int32(h))
	m.WriteInt(int32(stride))
	m.WriteUint(format)
	p.c.Enqueue(m)
	return b
}

// Destroy the pool. Buffers created from it stay valid.
func (p *ShmPool) Destroy() {
	p.c.Enqueue(request(p, 1, "destroy"))
	p.c.zombify(p.id)
}

func (p *ShmPool) Dispatch(m *wire.MessageBuffer) error {
	return p.unknownEvent(m)
}

//----------

type Buffer struct {
	proxy
	OnRelease func()
}

func (b *Buffer) Destroy() {
	b.c.Enqueue(request(b, 0, "destroy"))
	b.c.zombify(b.id)
}

func (b *Buffer) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // release
		if b.OnRelease != nil {
			b.OnRelease()
		}
		return nil
	}
	return b.unknownEvent(m)
}

//----------

type Output struct {
	proxy
	Global Global

	OnScale func(factor int)
	OnDone  func()

	Make, Model   string
	Width, Height int // current mode, pixels
	scale         int
}

func BindOutput(c *Client, g Global) *Output {
	o := &Output{proxy: c.newProxy(OutputInterface), Global: g, scale: 1}
	c.Registry.bind(g, minVersion(g, 3), o)
	return o
}

func (o *Output) Scale() int { return o.scale }

func (o *Output) Release() {
	if o.Global.Version >= 3 {
		o.c.Enqueue(request(o, 0, "release"))
	}
	o.c.zombify(o.id)
}

func (o *Output) Dispatch(m *wire.MessageBuffer) error {
	switch m.Op() {
	case 0: // geometry
		_, _, _, _, _ = m.ReadInt(), m.ReadInt(), m.ReadInt(), m.ReadInt(), m.ReadInt()
		o.Make, o.Model = m.ReadString(), m.ReadString()
		return nil
	case 1: // mode
		flags, w, h := m.ReadUint(), m.ReadInt(), m.ReadInt()
		const current = 1
		if flags&current != 0 {
			o.Width, o.Height = int(w), int(h)
		}
		return nil
	case 2: // done
		if o.OnDone != nil {
			o.OnDone()
		}
		return nil
	case 3: // scale
		o.scale = int(m.ReadInt())
		if o.OnScale != nil {
			o.OnScale(o.scale)
		}
		return nil
	}
	return o.unknownEvent(m)
}
